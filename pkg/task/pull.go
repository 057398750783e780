package task

import (
	"context"
	"fmt"

	"github.com/maestroship/maestro/internal/merrors"
	"github.com/maestroship/maestro/pkg/engine"
	"github.com/maestroship/maestro/pkg/output"
)

// Pull runs PullTask: a login attempt followed by a streamed pull, per
// spec.md §4.5.
func (t *Task) Pull(ctx context.Context, registries Registries) error {
	return t.runAudited("pull", func() error { return t.loginAndPull(ctx, registries) })
}

// loginAndPull is the unaudited body shared with StartTask's
// needs-to-refresh-image branch.
func (t *Task) loginAndPull(ctx context.Context, registries Registries) error {
	if err := t.login(ctx, registries); err != nil {
		return err
	}

	t.publish(output.Running(t.Container.Name, "pulling"))

	reg := matchRegistry(t.Container.Image, registries)
	var auth *engine.AuthConfig
	if reg != nil && reg.Username != "" {
		auth = &engine.AuthConfig{Username: reg.Username, Password: reg.Password, Email: reg.Email}
	}

	ch, err := t.Client.Pull(ctx, t.Container.Image, auth)
	if err != nil {
		return merrors.NewRemoteEngineError(t.Container.Name, err)
	}

	err = engine.DrainPullEvents(ch, func(percent float64) {
		t.publish(output.Running(t.Container.Name, fmt.Sprintf("pulling (%.0f%%)", percent)))
	})
	if err != nil {
		return merrors.NewContainerError(t.Container.Name, err)
	}

	t.publish(output.Succeeded(t.Container.Name, "pulled"))
	return nil
}
