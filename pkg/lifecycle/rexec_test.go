package lifecycle

import (
	"context"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/maestroship/maestro/pkg/engine"
	"github.com/maestroship/maestro/pkg/entities"
)

// fakeExecClient implements engine.Client, exercising only the Exec* methods
// rexecCheck depends on; every other method is unreachable from this test.
type fakeExecClient struct {
	engine.Client
	execErr      error
	startErr     error
	inspectExits []engine.ExecResult
}

func (f *fakeExecClient) ExecCreate(ctx context.Context, containerID string, cmd []string) (string, error) {
	if f.execErr != nil {
		return "", f.execErr
	}
	return "exec-1", nil
}

func (f *fakeExecClient) ExecStart(ctx context.Context, execID string) error {
	return f.startErr
}

func (f *fakeExecClient) ExecInspect(ctx context.Context, execID string) (engine.ExecResult, error) {
	if len(f.inspectExits) == 0 {
		return engine.ExecResult{Running: false, ExitCode: 0}, nil
	}
	next := f.inspectExits[0]
	f.inspectExits = f.inspectExits[1:]
	return next, nil
}

func TestRExecCheckFailsWithoutClientInContext(t *testing.T) {
	check, err := newRExecCheck(Config{Type: "rexec", Command: "true"})
	assert.NilError(t, err)

	container := &entities.Container{}
	container.SetCachedStatus(&entities.Status{Exists: true, FullID: "abc"})
	assert.Assert(t, !check.Test(context.Background(), container))
}

func TestRExecCheckFailsWithoutCachedStatus(t *testing.T) {
	check, err := newRExecCheck(Config{Type: "rexec", Command: "true"})
	assert.NilError(t, err)

	ctx := engine.WithClient(context.Background(), &fakeExecClient{})
	container := &entities.Container{}
	assert.Assert(t, !check.Test(ctx, container))
}

func TestRExecCheckSucceedsOnZeroExit(t *testing.T) {
	check, err := newRExecCheck(Config{Type: "rexec", Command: "true"})
	assert.NilError(t, err)

	client := &fakeExecClient{inspectExits: []engine.ExecResult{{Running: false, ExitCode: 0}}}
	ctx := engine.WithClient(context.Background(), client)
	container := &entities.Container{}
	container.SetCachedStatus(&entities.Status{Exists: true, FullID: "abc"})
	assert.Assert(t, check.Test(ctx, container))
}

func TestRExecCheckPollsUntilExecCompletes(t *testing.T) {
	check, err := newRExecCheck(Config{Type: "rexec", Command: "true"})
	assert.NilError(t, err)

	client := &fakeExecClient{inspectExits: []engine.ExecResult{
		{Running: true},
		{Running: true},
		{Running: false, ExitCode: 0},
	}}
	ctx := engine.WithClient(context.Background(), client)
	container := &entities.Container{}
	container.SetCachedStatus(&entities.Status{Exists: true, FullID: "abc"})

	start := time.Now()
	assert.Assert(t, check.Test(ctx, container))
	assert.Assert(t, time.Since(start) >= pollInterval)
}

func TestRExecCheckFailsOnNonZeroExit(t *testing.T) {
	check, err := newRExecCheck(Config{Type: "rexec", Command: "true", Retries: 1})
	assert.NilError(t, err)

	client := &fakeExecClient{inspectExits: []engine.ExecResult{{Running: false, ExitCode: 1}}}
	ctx := engine.WithClient(context.Background(), client)
	container := &entities.Container{}
	container.SetCachedStatus(&entities.Status{Exists: true, FullID: "abc"})

	assert.Assert(t, !check.Test(ctx, container))
}
