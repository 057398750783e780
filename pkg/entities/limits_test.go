package entities

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestParseMemoryEmpty(t *testing.T) {
	n, err := ParseMemory("")
	assert.NilError(t, err)
	assert.Equal(t, n, int64(0))
}

func TestParseMemoryMegabytes(t *testing.T) {
	n, err := ParseMemory("512m")
	assert.NilError(t, err)
	assert.Equal(t, n, int64(512*1024*1024))
}

func TestParseMemoryGigabytes(t *testing.T) {
	n, err := ParseMemory("2g")
	assert.NilError(t, err)
	assert.Equal(t, n, int64(2*1024*1024*1024))
}

func TestParseMemoryInvalidRejected(t *testing.T) {
	_, err := ParseMemory("not-a-size")
	assert.ErrorContains(t, err, "invalid memory limit")
}
