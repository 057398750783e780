package entities

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// RestartPolicyName is the kind of restart behavior requested for a
// Container, matching the vocabulary of compose-go/types/types.go
// (RestartPolicyAlways/OnFailure/No/UnlessStopped).
type RestartPolicyName string

const (
	RestartAlways        RestartPolicyName = "always"
	RestartOnFailure     RestartPolicyName = "on-failure"
	RestartNo            RestartPolicyName = "no"
	RestartUnlessStopped RestartPolicyName = "unless-stopped"
)

// RestartPolicy is the normalized restart configuration for a Container.
type RestartPolicy struct {
	Name          RestartPolicyName
	MaxRetryCount int
}

// ParseRestartPolicy accepts `always`, `no`, `on-failure[:retries]`, or
// `unless-stopped`, per spec.md §4.2. Any other form is a configuration
// error.
func ParseRestartPolicy(spec string) (RestartPolicy, error) {
	if spec == "" {
		return RestartPolicy{Name: RestartNo}, nil
	}

	if strings.HasPrefix(spec, string(RestartOnFailure)) {
		rest := strings.TrimPrefix(spec, string(RestartOnFailure))
		if rest == "" {
			return RestartPolicy{Name: RestartOnFailure}, nil
		}
		if !strings.HasPrefix(rest, ":") {
			return RestartPolicy{}, errors.Errorf("invalid restart policy %q", spec)
		}
		retries, err := strconv.Atoi(strings.TrimPrefix(rest, ":"))
		if err != nil || retries < 0 {
			return RestartPolicy{}, errors.Errorf("invalid restart policy %q: bad retry count", spec)
		}
		return RestartPolicy{Name: RestartOnFailure, MaxRetryCount: retries}, nil
	}

	switch RestartPolicyName(spec) {
	case RestartAlways, RestartNo, RestartUnlessStopped:
		return RestartPolicy{Name: RestartPolicyName(spec)}, nil
	default:
		return RestartPolicy{}, errors.Errorf("invalid restart policy %q", spec)
	}
}
