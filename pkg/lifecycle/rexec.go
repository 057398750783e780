package lifecycle

import (
	"context"
	"fmt"

	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"

	"github.com/maestroship/maestro/pkg/engine"
	"github.com/maestroship/maestro/pkg/entities"
)

type rexecCheck struct {
	command string
	args    []string
	retries int
}

func newRExecCheck(cfg Config) (entities.LifecycleCheck, error) {
	if cfg.Command == "" {
		return nil, errors.New("rexec check requires a command")
	}
	args, err := shellwords.Parse(cfg.Command)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid rexec command %q", cfg.Command)
	}
	if len(args) == 0 {
		return nil, errors.Errorf("rexec command %q parsed to no tokens", cfg.Command)
	}
	retries := cfg.Retries
	if retries == 0 {
		retries = defaultRetries
	}
	return &rexecCheck{command: args[0], args: args[1:], retries: retries}, nil
}

func (c *rexecCheck) String() string { return fmt.Sprintf("rexec:%s", c.command) }

// Test runs the configured command inside the running container via the
// engine's exec API, polling the exec result until it completes, per
// spec.md §4.1. The engine Client is threaded in through the context by
// pkg/task (see engine.WithClient) so pkg/lifecycle does not need to know
// how a Task obtained its Ship's client.
func (c *rexecCheck) Test(ctx context.Context, container *entities.Container) bool {
	client := engine.FromContext(ctx)
	if client == nil {
		return false
	}

	status := container.CachedStatus()
	if status == nil || !status.Exists {
		return false
	}

	cmd := append([]string{c.command}, c.args...)

	for attempt := 0; attempt < c.retries; attempt++ {
		if ctx.Err() != nil {
			return false
		}
		if c.attempt(ctx, client, status.FullID, cmd) {
			return true
		}
		if !sleepWithContext(ctx, retryBackoff) {
			return false
		}
	}
	return false
}

func (c *rexecCheck) attempt(ctx context.Context, client engine.Client, containerID string, cmd []string) bool {
	execID, err := client.ExecCreate(ctx, containerID, cmd)
	if err != nil {
		return false
	}
	if err := client.ExecStart(ctx, execID); err != nil {
		return false
	}

	for {
		result, err := client.ExecInspect(ctx, execID)
		if err != nil {
			return false
		}
		if !result.Running {
			return result.ExitCode == 0
		}
		if !sleepWithContext(ctx, pollInterval) {
			return false
		}
	}
}
