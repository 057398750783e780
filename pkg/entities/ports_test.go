package entities

import (
	"testing"

	"gotest.tools/v3/assert"
)

func TestParsePortSpecBareNumber(t *testing.T) {
	pm, err := ParsePortSpec("web", "8080")
	assert.NilError(t, err)
	assert.Equal(t, pm.Exposed.Number, 8080)
	assert.Equal(t, pm.Exposed.Protocol, TCP)
	assert.Assert(t, pm.External == nil)
}

func TestParsePortSpecWithProtocol(t *testing.T) {
	pm, err := ParsePortSpec("dns", "53/udp")
	assert.NilError(t, err)
	assert.Equal(t, pm.Exposed.Number, 53)
	assert.Equal(t, pm.Exposed.Protocol, UDP)
}

func TestParsePortSpecRange(t *testing.T) {
	pm, err := ParsePortSpec("cluster", "7000-7010")
	assert.NilError(t, err)
	assert.Equal(t, pm.Exposed.Number, 7000)
	assert.Equal(t, pm.Exposed.RangeEnd, 7010)
}

func TestParsePortSpecPublished(t *testing.T) {
	pm, err := ParsePortSpec("web", "8080:80")
	assert.NilError(t, err)
	assert.Equal(t, pm.Exposed.Number, 8080)
	assert.Assert(t, pm.External != nil)
	assert.Equal(t, pm.External.Port.Number, 80)
}

func TestParsePortSpecPublishedWithInterface(t *testing.T) {
	pm, err := ParsePortSpec("web", "8080:127.0.0.1@80")
	assert.NilError(t, err)
	assert.Equal(t, pm.External.Interface, "127.0.0.1")
	assert.Equal(t, pm.External.Port.Number, 80)
}

func TestParsePortSpecProtocolMismatchRejected(t *testing.T) {
	_, err := ParsePortSpec("web", "8080/udp:80")
	assert.ErrorContains(t, err, "protocol mismatch")
}

func TestParsePortSpecSlashInExternalRejected(t *testing.T) {
	_, err := ParsePortSpec("web", "8080:80/tcp")
	assert.ErrorContains(t, err, "unexpected '/'")
}

func TestParsePortSpecEmptyRejected(t *testing.T) {
	_, err := ParsePortSpec("web", "")
	assert.ErrorContains(t, err, "empty port spec")
}

func TestParsePortSpecOutOfRangeRejected(t *testing.T) {
	_, err := ParsePortSpec("web", "70000")
	assert.ErrorContains(t, err, "out of range")
}

func TestPortString(t *testing.T) {
	assert.Equal(t, Port{Number: 80, RangeEnd: 80, Protocol: TCP}.String(), "80/tcp")
	assert.Equal(t, Port{Number: 7000, RangeEnd: 7010, Protocol: UDP}.String(), "7000-7010/udp")
}
