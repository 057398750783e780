package lifecycle

import (
	"testing"

	"gotest.tools/v3/assert"

	"github.com/maestroship/maestro/pkg/entities"
)

func TestBuildRejectsUnknownType(t *testing.T) {
	_, err := Build(Config{Type: "bogus"}, nil)
	assert.ErrorContains(t, err, "unknown lifecycle check type")
}

func TestBuildDispatchesPerType(t *testing.T) {
	ports := map[string]entities.PortMapping{
		"http": {Name: "http", Exposed: entities.Port{Number: 80, Protocol: entities.TCP}},
	}

	cases := []struct {
		name string
		cfg  Config
	}{
		{"tcp", Config{Type: "tcp", Port: "http"}},
		{"http", Config{Type: "http", Port: "http"}},
		{"exec", Config{Type: "exec", Command: "true"}},
		{"rexec", Config{Type: "rexec", Command: "true"}},
		{"sleep", Config{Type: "sleep", Seconds: 1}},
	}
	for _, c := range cases {
		check, err := Build(c.cfg, ports)
		assert.NilError(t, err, c.name)
		assert.Assert(t, check != nil, c.name)
	}
}

func TestBuildAllWrapsPerStateErrors(t *testing.T) {
	cfgs := map[string][]Config{
		"running": {{Type: "bogus"}},
	}
	_, err := BuildAll(cfgs, nil)
	assert.ErrorContains(t, err, `lifecycle check for state "running"`)
}

func TestBuildAllConstructsEveryState(t *testing.T) {
	cfgs := map[string][]Config{
		"pre-start": {{Type: "sleep", Seconds: 1}},
		"running":   {{Type: "exec", Command: "true"}},
	}
	checks, err := BuildAll(cfgs, nil)
	assert.NilError(t, err)
	assert.Equal(t, len(checks["pre-start"]), 1)
	assert.Equal(t, len(checks["running"]), 1)
}

func TestCompileMatchEmptyPatternIsNil(t *testing.T) {
	re, err := compileMatch("")
	assert.NilError(t, err)
	assert.Assert(t, re == nil)
}

func TestCompileMatchRejectsInvalidRegexp(t *testing.T) {
	_, err := compileMatch("(unclosed")
	assert.ErrorContains(t, err, "invalid match regexp")
}
