// Package task implements the per-container state machines of spec.md
// §4.5: one goroutine-friendly procedure per orchestration verb, driving
// a single Container through the remote engine via its Ship's
// engine.Client. Grounded on the original maestro/plays/tasks.py for
// procedure ordering and on docker-compose's pkg/compose (create.go,
// pull.go, kill.go, remove.go) for how the teacher assembles a creation
// spec and streams pull progress through the same engine-facing idiom.
package task

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/maestroship/maestro/internal/merrors"
	"github.com/maestroship/maestro/pkg/audit"
	"github.com/maestroship/maestro/pkg/engine"
	"github.com/maestroship/maestro/pkg/entities"
	"github.com/maestroship/maestro/pkg/output"
)

const (
	waitPollInterval = 500 * time.Millisecond
	defaultWaitRetries = 60
)

// Task bundles the dependencies every state machine in this package
// needs: the Container it drives, the engine client for its Ship, and
// the output/audit handles it reports through.
type Task struct {
	Container *entities.Container
	Client    engine.Client
	Writer    output.Writer
	Auditor   audit.Auditor
}

// runAudited wraps fn with the auditor action/success/error hooks every
// task carries, per spec.md §4.5 ("Each task is wrapped by auditor
// action -> success | error hooks").
func (t *Task) runAudited(verb string, fn func() error) error {
	if err := t.Auditor.Action(audit.LevelTask, t.Container.Name, verb); err != nil {
		return err
	}
	if err := fn(); err != nil {
		t.Auditor.Error(t.Container.Name, verb, err.Error())
		return err
	}
	t.Auditor.Success(audit.LevelTask, t.Container.Name, verb)
	return nil
}

func (t *Task) publish(e output.Event) {
	if t.Writer != nil {
		t.Writer.Event(e)
	}
}

// inspect refreshes and caches the container's status, per the "status
// caching confined to a single Task" rule of spec.md §9.
func (t *Task) inspect(ctx context.Context) (*entities.Status, error) {
	status, err := t.Client.Inspect(ctx, t.Container.Name)
	if err != nil {
		return nil, merrors.NewRemoteEngineError(t.Container.Name, err)
	}
	t.Container.SetCachedStatus(status)
	return status, nil
}

// waitFor polls inspect every waitPollInterval until pred holds or
// retries are exhausted, per spec.md §4.5's shared `wait_for` helper.
func (t *Task) waitFor(ctx context.Context, retries int, pred func(*entities.Status) bool) error {
	if retries <= 0 {
		retries = defaultWaitRetries
	}
	for attempt := 0; attempt < retries; attempt++ {
		status, err := t.inspect(ctx)
		if err != nil {
			return err
		}
		if pred(status) {
			return nil
		}
		if !sleepWithContext(ctx, waitPollInterval) {
			return ctx.Err()
		}
	}
	return merrors.NewContainerError(t.Container.Name, errors.New("timed out waiting for container state"))
}

// checkForState implements spec.md §4.5's `check_for_state`: launch the
// container's configured checks for `state` concurrently while also
// polling status against `pred`; success requires every check to
// return true before `pred` ever fails. Grounded on the original's
// `ThreadPool().map_async` fan-out (maestro/entities.py), expressed here
// with golang.org/x/sync/errgroup; the engine client is threaded into
// the checks' context via withEngineClient so a `rexec` check can reach
// it through engine.FromContext without checkForState knowing which
// variants need it.
func (t *Task) checkForState(ctx context.Context, state string, pred func(*entities.Status) bool) bool {
	checks := t.Container.Lifecycle[state]

	checkCtx, cancel := context.WithCancel(withEngineClient(ctx, t.Client))
	defer cancel()

	checksDone := make(chan bool, 1)
	go func() {
		g, gctx := errgroup.WithContext(checkCtx)
		for _, check := range checks {
			check := check
			g.Go(func() error {
				if !check.Test(gctx, t.Container) {
					return errors.Errorf("lifecycle check %s failed", check.String())
				}
				return nil
			})
		}
		checksDone <- g.Wait() == nil
	}()

	statusFailed := make(chan struct{})
	go func() {
		ticker := time.NewTicker(waitPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-checkCtx.Done():
				return
			case <-ticker.C:
				status, err := t.inspect(checkCtx)
				if err != nil || !pred(status) {
					close(statusFailed)
					return
				}
			}
		}
	}()

	select {
	case ok := <-checksDone:
		return ok
	case <-statusFailed:
		cancel()
		return false
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// isRunning and isDown are the shared state predicates §4.5 names
// ("down", "is_running", "is_down").
func isRunning(s *entities.Status) bool { return s != nil && s.Exists && s.Running }
func isDown(s *entities.Status) bool    { return s == nil || !s.Exists || !s.Running }

func withEngineClient(ctx context.Context, client engine.Client) context.Context {
	return engine.WithClient(ctx, client)
}
