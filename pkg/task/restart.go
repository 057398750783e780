package task

import (
	"context"
	"time"

	"github.com/maestroship/maestro/pkg/output"
)

// RestartOptions are RestartTask's inputs, per spec.md §6's restart CLI
// surface (`--step-delay`, `--stop-start-delay`, `--only-if-changed`).
type RestartOptions struct {
	StartOptions

	OnlyIfChanged  bool
	StepDelay      time.Duration
	StopStartDelay time.Duration

	// First is true only for the first container a play begins to
	// restart; StepDelay is skipped for it and paid by every later one.
	First bool
}

// Restart runs RestartTask, per spec.md §4.5: an optional pull, an
// optional only-if-changed short circuit comparing the running image ID
// against the configured image, then a stop/start pair with optional
// inter-step delays.
func (t *Task) Restart(ctx context.Context, opts RestartOptions) error {
	return t.runAudited("restart", func() error { return t.restart(ctx, opts) })
}

func (t *Task) restart(ctx context.Context, opts RestartOptions) error {
	if opts.Refresh {
		if err := t.loginAndPull(ctx, opts.Registries); err != nil {
			return err
		}
	}

	if opts.OnlyIfChanged {
		unchanged, err := t.imageUnchanged(ctx)
		if err != nil {
			return err
		}
		if unchanged {
			t.publish(output.Succeeded(t.Container.Name, "unchanged, skipped"))
			return nil
		}
	}

	if !opts.First && opts.StepDelay > 0 {
		if !sleepWithContext(ctx, opts.StepDelay) {
			return ctx.Err()
		}
	}

	if err := t.stop(ctx); err != nil {
		return err
	}

	if opts.StopStartDelay > 0 {
		if !sleepWithContext(ctx, opts.StopStartDelay) {
			return ctx.Err()
		}
	}

	startOpts := opts.StartOptions
	startOpts.Refresh = false
	return t.start(ctx, startOpts)
}

// imageUnchanged compares the running container's image ID against the
// ID the configured image tag currently resolves to.
func (t *Task) imageUnchanged(ctx context.Context) (bool, error) {
	status, err := t.inspect(ctx)
	if err != nil {
		return false, err
	}
	if !status.Exists {
		return false, nil
	}

	images, err := t.Client.Images(ctx, t.Container.Image)
	if err != nil {
		return false, nil
	}
	for _, img := range images {
		for _, tag := range img.Tags {
			if tag == t.Container.Image {
				return img.ID == status.ImageID, nil
			}
		}
	}
	return false, nil
}
