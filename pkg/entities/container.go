package entities

import (
	"context"
	"time"
)

// LifecycleCheck is a pluggable predicate gating a Container's transition
// into or out of a lifecycle state, per spec.md §4.1. Declared here (not
// in pkg/lifecycle) so Container can hold checks without pkg/lifecycle
// importing entities and entities importing lifecycle back — the
// concrete variants live in pkg/lifecycle and are wired in by
// pkg/conductor at build time.
type LifecycleCheck interface {
	// Test runs the predicate against the container, blocking until it
	// succeeds, exhausts its retry budget, or ctx is canceled.
	Test(ctx context.Context, c *Container) bool
	// String names the check for output/log lines ("tcp:pg", "http:...").
	String() string
}

// VolumeMode is the access mode of a bind-mounted volume.
type VolumeMode string

const (
	VolumeRW VolumeMode = "rw"
	VolumeRO VolumeMode = "ro"
)

// VolumeMount is one host-path bind mount.
type VolumeMount struct {
	HostPath string
	Target   string
	Mode     VolumeMode
}

// LogConfig is the container's logging driver configuration.
type LogConfig struct {
	Driver  string
	Options map[string]string
}

// Ulimit is one soft/hard resource limit pair.
type Ulimit struct {
	Name string
	Soft int64
	Hard int64
}

// Container is one placed, named instance of a Service on a specific Ship,
// per spec.md §3. It is constructed once at Conductor build; its runtime
// "status" is fetched on demand from the remote engine and cached within a
// single Task (never leaked across Task boundaries, per the design note in
// spec.md §9).
type Container struct {
	Name    string
	Service *Service
	Ship    *Ship

	Image   string // resolved image (service image unless overridden)
	Command []string
	Env     map[string]string

	Ports           map[string]PortMapping
	Volumes         []VolumeMount
	ContainerVolumes []string // container-only mount targets, no host path
	VolumesFrom     []string // names of other containers on the same Ship

	Links              []string
	Privileged         bool
	CapAdd             []string
	CapDrop            []string
	ExtraHosts         map[string]string
	NetworkMode        string
	Restart            RestartPolicy
	DNS                []string
	StopTimeout        time.Duration
	Limits             Limits
	Log                LogConfig
	WorkDir            string
	SecurityOpt        []string
	Ulimits            []Ulimit
	Lifecycle          map[string][]LifecycleCheck

	// status cache, valid only for the lifetime of a single Task; Tasks
	// must call an explicit refresh path when staleness matters
	// (spec.md §9 "Status caching").
	cachedStatus *Status
}

// Status is the engine-reported runtime status of a Container.
type Status struct {
	Exists     bool
	Running    bool
	ShortID    string
	FullID     string
	ImageID    string
	StartedAt  time.Time
	FinishedAt time.Time
}

// CachedStatus returns the last status fetched with SetCachedStatus, or
// nil if none has been fetched within the current Task.
func (c *Container) CachedStatus() *Status { return c.cachedStatus }

// SetCachedStatus stores the last inspected status. Tasks must call this
// after every inspect so `CachedStatus` reflects the engine's current
// view; callers needing fresh data issue their own inspect and then set
// it again rather than trusting a stale cache across Task boundaries.
func (c *Container) SetCachedStatus(s *Status) { c.cachedStatus = s }
