package task

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/maestroship/maestro/internal/merrors"
	"github.com/maestroship/maestro/pkg/engine"
	"github.com/maestroship/maestro/pkg/entities"
	"github.com/maestroship/maestro/pkg/output"
)

// Registries maps a registry name to its credentials, as built by
// pkg/conductor from the environment description's `registries` section.
type Registries map[string]*entities.Registry

// StartOptions are StartTask's inputs, per spec.md §4.5.
type StartOptions struct {
	Registries Registries
	Refresh    bool
	Reuse      bool
}

// Start runs the StartTask procedure for t.Container.
func (t *Task) Start(ctx context.Context, opts StartOptions) error {
	return t.runAudited("start", func() error { return t.start(ctx, opts) })
}

func (t *Task) start(ctx context.Context, opts StartOptions) error {
	t.publish(output.Running(t.Container.Name, "starting"))

	status, err := t.inspect(ctx)
	if err != nil {
		return err
	}
	if status.Exists && status.Running {
		t.publish(output.Succeeded(t.Container.Name, fmt.Sprintf("up (%s)", time.Since(status.StartedAt).Round(time.Second))))
		return nil
	}

	// pre-start checks gate against the container's "down" predicate;
	// failure here is fatal, per spec.md §4.5.
	if !t.checkForState(ctx, "pre-start", isDown) {
		return merrors.NewContainerError(t.Container.Name, errors.New("pre-start checks failed"))
	}

	if !opts.Reuse || !status.Exists {
		if status.Exists {
			if err := t.clean(ctx); err != nil {
				return err
			}
		}

		needsPull := opts.Refresh || !t.imageLocallyPresent(ctx)
		if needsPull {
			if err := t.loginAndPull(ctx, opts.Registries); err != nil {
				return err
			}
		}

		if err := t.create(ctx); err != nil {
			return err
		}
	}

	if err := t.waitFor(ctx, 0, func(s *entities.Status) bool { return s.Exists }); err != nil {
		return err
	}

	if err := t.Client.Start(ctx, t.Container.Name); err != nil {
		return merrors.NewRemoteEngineError(t.Container.Name, err)
	}
	if err := t.waitFor(ctx, 0, isRunning); err != nil {
		return err
	}

	if !t.checkForState(ctx, "running", isRunning) {
		tail, _ := t.Client.Logs(ctx, t.Container.Name, 50)
		return merrors.NewContainerError(t.Container.Name, errors.Errorf("running checks failed, log tail:\n%s", tail))
	}

	t.publish(output.Succeeded(t.Container.Name, "started"))
	return nil
}

func (t *Task) imageLocallyPresent(ctx context.Context) bool {
	images, err := t.Client.Images(ctx, t.Container.Image)
	if err != nil {
		return false
	}
	for _, img := range images {
		for _, tag := range img.Tags {
			if tag == t.Container.Image {
				return true
			}
		}
	}
	return false
}

func (t *Task) create(ctx context.Context) error {
	if _, err := t.Client.Create(ctx, t.creationSpec()); err != nil {
		return merrors.NewRemoteEngineError(t.Container.Name, err)
	}
	return nil
}

func (t *Task) creationSpec() engine.CreateSpec {
	c := t.Container
	env := make([]string, 0, len(c.Env))
	for k, v := range c.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	binds := make([]string, 0, len(c.Volumes))
	for _, v := range c.Volumes {
		mode := "rw"
		if v.Mode == entities.VolumeRO {
			mode = "ro"
		}
		binds = append(binds, fmt.Sprintf("%s:%s:%s", v.HostPath, v.Target, mode))
	}

	extraHosts := make([]string, 0, len(c.ExtraHosts))
	for host, ip := range c.ExtraHosts {
		extraHosts = append(extraHosts, fmt.Sprintf("%s:%s", host, ip))
	}

	exposedPorts := make([]string, 0, len(c.Ports))
	portBindings := map[string][]engine.PortBinding{}
	for _, pm := range c.Ports {
		exposedPorts = append(exposedPorts, pm.Exposed.String())
		if pm.External != nil {
			portBindings[pm.Exposed.String()] = []engine.PortBinding{{
				HostIP:   interfaceToBindIP(pm.External.Interface),
				HostPort: fmt.Sprintf("%d", pm.External.Port.Number),
			}}
		}
	}

	hostname := ""
	if c.NetworkMode == "" {
		hostname = c.Name
	}

	return engine.CreateSpec{
		Name:         c.Name,
		Image:        c.Image,
		Hostname:     hostname,
		Command:      c.Command,
		Env:          env,
		WorkDir:      c.WorkDir,
		Privileged:   c.Privileged,
		CapAdd:       c.CapAdd,
		CapDrop:      c.CapDrop,
		ExtraHosts:   extraHosts,
		NetworkMode:  c.NetworkMode,
		DNS:          c.DNS,
		Restart:      c.Restart,
		CPUShares:    c.Limits.CPUShares,
		Memory:       c.Limits.Memory,
		MemorySwap:   c.Limits.MemSwap,
		Binds:        binds,
		Volumes:      c.ContainerVolumes,
		VolumesFrom:  c.VolumesFrom,
		PortBindings: portBindings,
		ExposedPorts: exposedPorts,
		LogDriver:    c.Log.Driver,
		LogOpts:      c.Log.Options,
		SecurityOpt:  c.SecurityOpt,
		Ulimits:      c.Ulimits,
		Detach:       true,
	}
}

func interfaceToBindIP(iface string) string {
	if iface == "" {
		return "0.0.0.0"
	}
	return iface
}
