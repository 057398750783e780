package entities

import (
	"github.com/docker/go-units"
	"github.com/pkg/errors"
)

// Limits holds the resource constraints of a Container, per spec.md §3.
type Limits struct {
	CPUShares int64
	Memory    int64 // bytes
	MemSwap   int64 // bytes; 0 means unset (engine default), -1 means unlimited
}

// ParseMemory accepts `<n>[kmg]` the same way compose-go's loader does
// (github.com/docker/go-units RAMInBytes), per spec.md §4.2.
func ParseMemory(spec string) (int64, error) {
	if spec == "" {
		return 0, nil
	}
	n, err := units.RAMInBytes(spec)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid memory limit %q", spec)
	}
	return n, nil
}
