// Package engine defines the remote container engine contract (spec.md
// §6) that every Task drives a Container through, and the Docker-backed
// implementation used by real Ships. The contract is kept narrow and
// engine-facing so pkg/entities stays free of transport concerns (per the
// design note in spec.md §9) and so tests can substitute a fake
// implementation without touching a real engine.
package engine

import (
	"context"
	"time"

	"github.com/maestroship/maestro/pkg/entities"
)

// CreateSpec is everything needed to create a container, assembled by
// pkg/task/start.go from a Container's entity fields.
type CreateSpec struct {
	Name        string
	Image       string
	Hostname    string
	Command     []string
	Env         []string
	Labels      map[string]string
	WorkDir     string
	Privileged  bool
	CapAdd      []string
	CapDrop     []string
	ExtraHosts  []string
	NetworkMode string
	DNS         []string
	Restart     entities.RestartPolicy
	CPUShares   int64
	Memory      int64
	MemorySwap  int64
	Binds       []string // "host:container[:ro]"
	Volumes     []string // container-only mount points
	VolumesFrom []string
	PortBindings map[string][]PortBinding // "80/tcp" -> bindings
	ExposedPorts []string                 // "80/tcp"
	LogDriver   string
	LogOpts     map[string]string
	SecurityOpt []string
	Ulimits     []entities.Ulimit
	Detach      bool
}

// PortBinding is one host-side binding for an exposed port.
type PortBinding struct {
	HostIP   string
	HostPort string
}

// PullEvent is one line of a pull/login stream, matching the shape in
// spec.md §6 ("Image event format"): either a progress update or an error.
type PullEvent struct {
	ID              string
	Status          string
	ProgressCurrent int64
	ProgressTotal   int64
	Error           string
}

// ImageRecord is one entry of Images' result.
type ImageRecord struct {
	ID   string
	Tags []string
}

// ExecResult is the outcome of a completed in-container exec, per
// spec.md §6 ("exec_create/start/inspect").
type ExecResult struct {
	ExitCode int
	Running  bool
}

// Client is the capability a Ship exposes to Tasks: the remote container
// engine contract of spec.md §6. Implementations must be safe for
// concurrent use by multiple Tasks targeting the same Ship (spec.md §5,
// "Shared resources") — either because the underlying transport already
// is, or because the implementation serializes internally.
type Client interface {
	Inspect(ctx context.Context, name string) (*entities.Status, error)
	Images(ctx context.Context, repo string) ([]ImageRecord, error)
	Create(ctx context.Context, spec CreateSpec) (id string, err error)
	Start(ctx context.Context, id string) error
	Stop(ctx context.Context, id string, timeout time.Duration) error
	Remove(ctx context.Context, id string, removeVolumes bool) error
	Logs(ctx context.Context, id string, tail int) (string, error)
	Pull(ctx context.Context, image string, auth *AuthConfig) (<-chan PullEvent, error)
	Login(ctx context.Context, registry string, auth AuthConfig) error
	ExecCreate(ctx context.Context, containerID string, cmd []string) (execID string, err error)
	ExecStart(ctx context.Context, execID string) error
	ExecInspect(ctx context.Context, execID string) (ExecResult, error)
	Close() error
}

// AuthConfig is the registry credential triple used by Login/Pull.
type AuthConfig struct {
	Username string
	Password string
	Email    string
}

type execKey struct{}

// WithClient attaches a Client to ctx so lifecycle checks (notably
// `rexec`, which must run a command inside the running container) can
// reach the owning Ship's engine without pkg/lifecycle importing
// pkg/task or pkg/play, mirroring the `progress.WithContextWriter`
// pattern used by the teacher to thread a capability through a call
// chain instead of a struct field.
func WithClient(ctx context.Context, c Client) context.Context {
	return context.WithValue(ctx, execKey{}, c)
}

// FromContext returns the Client stashed by WithClient, or nil.
func FromContext(ctx context.Context) Client {
	c, _ := ctx.Value(execKey{}).(Client)
	return c
}

// DrainPullEvents reads every event off ch, averaging the per-layer
// progress into an overall percentage, per spec.md §4.5 ("Aggregate
// per-layer progress into an overall percentage by averaging"). It
// returns the first error event's message, if any.
func DrainPullEvents(ch <-chan PullEvent, onProgress func(percent float64)) error {
	layers := map[string]float64{}
	var firstErr string

	for ev := range ch {
		if ev.Error != "" && firstErr == "" {
			firstErr = ev.Error
			continue
		}
		if ev.ProgressTotal > 0 {
			layers[ev.ID] = float64(ev.ProgressCurrent) / float64(ev.ProgressTotal)
		}
		if onProgress != nil && len(layers) > 0 {
			var sum float64
			for _, p := range layers {
				sum += p
			}
			onProgress(sum / float64(len(layers)) * 100)
		}
	}

	if firstErr != "" {
		return errString(firstErr)
	}
	return nil
}

type errString string

func (e errString) Error() string { return string(e) }
