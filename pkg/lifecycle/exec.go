package lifecycle

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"

	"github.com/maestroship/maestro/pkg/entities"
)

type execCheck struct {
	command string
	args    []string
	retries int
}

// newExecCheck shell-splits the configured command with
// github.com/mattn/go-shellwords, the idiomatic tokenizer used across the
// pack for turning a user-supplied command string into argv, rather than
// a hand-rolled split on whitespace that would mishandle quoting.
func newExecCheck(cfg Config) (entities.LifecycleCheck, error) {
	if cfg.Command == "" {
		return nil, errors.New("exec check requires a command")
	}
	args, err := shellwords.Parse(cfg.Command)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid exec command %q", cfg.Command)
	}
	if len(args) == 0 {
		return nil, errors.Errorf("exec command %q parsed to no tokens", cfg.Command)
	}
	retries := cfg.Retries
	if retries == 0 {
		retries = defaultRetries
	}
	return &execCheck{command: args[0], args: args[1:], retries: retries}, nil
}

func (c *execCheck) String() string { return fmt.Sprintf("exec:%s", c.command) }

func (c *execCheck) Test(ctx context.Context, container *entities.Container) bool {
	for attempt := 0; attempt < c.retries; attempt++ {
		if ctx.Err() != nil {
			return false
		}
		cmd := exec.CommandContext(ctx, c.command, c.args...)
		cmd.Env = append(os.Environ(), envSlice(container.Env)...)
		if err := cmd.Run(); err == nil {
			return true
		}
		if !sleepWithContext(ctx, retryBackoff) {
			return false
		}
	}
	return false
}

func envSlice(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
