// Package lifecycle implements the pluggable LifecycleCheck predicates
// that gate a Container's transition into or out of a lifecycle state
// (pre-start, running, pre-stop, stopped), per spec.md §4.1. Each variant
// satisfies entities.LifecycleCheck; the factory in this file validates
// configuration once, at environment load time, exactly as spec.md §9
// describes ("tag -> constructor table validated once at environment
// load").
package lifecycle

import (
	"context"
	"regexp"
	"time"

	"github.com/pkg/errors"

	"github.com/maestroship/maestro/pkg/entities"
)

// Config is the raw `lifecycle: <state>: [...]` entry for one check, as
// read from the environment description (spec.md §6).
type Config struct {
	Type string `yaml:"type"`

	// tcp / http
	Port string `yaml:"port"`

	// http
	Method string `yaml:"method"`
	Path   string `yaml:"path"`
	Scheme string `yaml:"scheme"`
	Match  string `yaml:"match"`
	Host   string `yaml:"host"` // overrides ship IP for the request, rarely used

	// exec / rexec
	Command string `yaml:"command"`

	// sleep
	Seconds int `yaml:"seconds"`

	// shared
	Timeout int `yaml:"timeout"` // seconds; meaning depends on variant
	Retries int `yaml:"retries"`
}

const (
	defaultRetries      = 180
	retryBackoff        = 1 * time.Second
	defaultHTTPDeadline = 60 * time.Second
	pollInterval        = 500 * time.Millisecond
)

// Build validates one Config against the container's declared ports and
// constructs the corresponding entities.LifecycleCheck. Unknown port
// name, a UDP port referenced by a `tcp` check, a bad regular expression,
// or an unknown check type are all configuration errors, raised once at
// load time per spec.md §4.1.
func Build(cfg Config, ports map[string]entities.PortMapping) (entities.LifecycleCheck, error) {
	switch cfg.Type {
	case "tcp":
		return newTCPCheck(cfg, ports)
	case "http":
		return newHTTPCheck(cfg, ports)
	case "exec":
		return newExecCheck(cfg)
	case "rexec":
		return newRExecCheck(cfg)
	case "sleep":
		return newSleepCheck(cfg)
	default:
		return nil, errors.Errorf("unknown lifecycle check type %q", cfg.Type)
	}
}

// BuildAll validates and constructs every check in a `state -> [...]`
// mapping.
func BuildAll(cfgs map[string][]Config, ports map[string]entities.PortMapping) (map[string][]entities.LifecycleCheck, error) {
	out := make(map[string][]entities.LifecycleCheck, len(cfgs))
	for state, list := range cfgs {
		checks := make([]entities.LifecycleCheck, 0, len(list))
		for _, c := range list {
			check, err := Build(c, ports)
			if err != nil {
				return nil, errors.Wrapf(err, "lifecycle check for state %q", state)
			}
			checks = append(checks, check)
		}
		out[state] = checks
	}
	return out, nil
}

func resolvePort(name string, ports map[string]entities.PortMapping) (entities.Port, error) {
	pm, ok := ports[name]
	if !ok {
		return entities.Port{}, errors.Errorf("unknown port %q", name)
	}
	return pm.Exposed, nil
}

func compileMatch(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid match regexp %q", pattern)
	}
	return re, nil
}

// sleepWithContext blocks for d or until ctx is done, returning true if
// the sleep completed and false if it was canceled — used by every retry
// loop below to stay cancellable, per spec.md §5's suspension-point list.
func sleepWithContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
