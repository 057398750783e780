package task

import (
	"context"

	"github.com/pkg/errors"

	"github.com/maestroship/maestro/internal/merrors"
	"github.com/maestroship/maestro/pkg/output"
)

// Stop runs StopTask, per spec.md §4.5. Unlike Start, a failed check of the
// "stopped" state is non-fatal: it is reported as a StopFailure and the play keeps
// scheduling other containers.
func (t *Task) Stop(ctx context.Context) error {
	return t.runAudited("stop", func() error { return t.stop(ctx) })
}

func (t *Task) stop(ctx context.Context) error {
	t.publish(output.Running(t.Container.Name, "stopping"))

	status, err := t.inspect(ctx)
	if err != nil {
		return err
	}
	if !isRunning(status) {
		t.publish(output.Succeeded(t.Container.Name, "already stopped"))
		return nil
	}

	if !t.checkForState(ctx, "pre-stop", isRunning) {
		return merrors.NewContainerError(t.Container.Name, errors.New("pre-stop checks failed"))
	}

	if err := t.Client.Stop(ctx, t.Container.Name, t.Container.StopTimeout); err != nil {
		return merrors.NewRemoteEngineError(t.Container.Name, err)
	}
	if err := t.waitFor(ctx, 0, isDown); err != nil {
		return err
	}

	if !t.checkForState(ctx, "stopped", isDown) {
		reason := "post-stop checks failed"
		t.publish(output.FailedWith(t.Container.Name, reason))
		return merrors.StopFailure{Container: t.Container.Name, Reason: reason}
	}

	t.publish(output.Succeeded(t.Container.Name, "stopped"))
	return nil
}
