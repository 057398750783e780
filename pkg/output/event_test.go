package output

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestWaitingEventIsWorking(t *testing.T) {
	e := Waiting("web.1")
	assert.Equal(t, e.Container, "web.1")
	assert.Equal(t, e.Status, Working)
	assert.Equal(t, e.Text, "waiting...")
}

func TestAbortedEventIsFailed(t *testing.T) {
	e := Aborted("web.1")
	assert.Equal(t, e.Status, Failed)
	assert.Equal(t, e.Text, "aborted!")
}

func TestRunningEventAppendsEllipsis(t *testing.T) {
	e := Running("web.1", "starting")
	assert.Equal(t, e.Status, Working)
	assert.Equal(t, e.Text, "starting...")
}

func TestSucceededEventIsDone(t *testing.T) {
	e := Succeeded("web.1", "started")
	assert.Equal(t, e.Status, Done)
	assert.Equal(t, e.Text, "started")
}

func TestFailedWithEventPrefixesReason(t *testing.T) {
	e := FailedWith("web.1", "timed out")
	assert.Equal(t, e.Status, Failed)
	assert.Equal(t, e.Text, "failed: timed out")
}
