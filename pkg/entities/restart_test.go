package entities

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestParseRestartPolicyEmptyDefaultsToNo(t *testing.T) {
	rp, err := ParseRestartPolicy("")
	assert.NilError(t, err)
	assert.Equal(t, rp.Name, RestartNo)
}

func TestParseRestartPolicyAlways(t *testing.T) {
	rp, err := ParseRestartPolicy("always")
	assert.NilError(t, err)
	assert.Equal(t, rp.Name, RestartAlways)
}

func TestParseRestartPolicyOnFailureBare(t *testing.T) {
	rp, err := ParseRestartPolicy("on-failure")
	assert.NilError(t, err)
	assert.Equal(t, rp.Name, RestartOnFailure)
	assert.Equal(t, rp.MaxRetryCount, 0)
}

func TestParseRestartPolicyOnFailureWithRetries(t *testing.T) {
	rp, err := ParseRestartPolicy("on-failure:5")
	assert.NilError(t, err)
	assert.Equal(t, rp.Name, RestartOnFailure)
	assert.Equal(t, rp.MaxRetryCount, 5)
}

func TestParseRestartPolicyOnFailureBadRetriesRejected(t *testing.T) {
	_, err := ParseRestartPolicy("on-failure:abc")
	assert.ErrorContains(t, err, "invalid restart policy")
}

func TestParseRestartPolicyUnknownRejected(t *testing.T) {
	_, err := ParseRestartPolicy("whenever")
	assert.ErrorContains(t, err, "invalid restart policy")
}
