package task

import (
	"context"

	"github.com/maestroship/maestro/internal/merrors"
	"github.com/maestroship/maestro/pkg/entities"
	"github.com/maestroship/maestro/pkg/output"
)

// Clean runs CleanTask: removing a stopped container record so a later
// create can reuse its name, per spec.md §4.5.
func (t *Task) Clean(ctx context.Context) error {
	return t.runAudited("clean", func() error { return t.clean(ctx) })
}

// clean is the unaudited body, reused directly by StartTask's
// not-reusing-an-existing-container branch.
func (t *Task) clean(ctx context.Context) error {
	status, err := t.inspect(ctx)
	if err != nil {
		return err
	}
	if !status.Exists {
		t.publish(output.Succeeded(t.Container.Name, "absent"))
		return nil
	}
	if status.Running {
		t.publish(output.Succeeded(t.Container.Name, "skipped (running)"))
		return nil
	}

	if err := t.Client.Remove(ctx, t.Container.Name, false); err != nil {
		return merrors.NewRemoteEngineError(t.Container.Name, err)
	}
	t.Container.SetCachedStatus(&entities.Status{})
	t.publish(output.Succeeded(t.Container.Name, "removed"))
	return nil
}
