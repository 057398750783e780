package task

import (
	"context"
	"net/url"

	"github.com/distribution/reference"
	"github.com/docker/cli/cli/config"

	"github.com/maestroship/maestro/internal/merrors"
	"github.com/maestroship/maestro/pkg/engine"
	"github.com/maestroship/maestro/pkg/entities"
	"github.com/maestroship/maestro/pkg/output"
)

// Login runs LoginTask, per spec.md §4.5: extract the registry host from
// the image repository, match it against a configured Registry, and log
// in if one matches.
func (t *Task) Login(ctx context.Context, registries Registries) error {
	return t.runAudited("login", func() error { return t.login(ctx, registries) })
}

func (t *Task) login(ctx context.Context, registries Registries) error {
	reg := matchRegistry(t.Container.Image, registries)
	if reg == nil {
		t.publish(output.Succeeded(t.Container.Name, "no matching registry"))
		return nil
	}

	username := reg.Username
	password := reg.Password
	if username == "" {
		// Missing username falls back to a host-provided credentials
		// file (docker/cli's config.json); if still absent, skip login
		// silently rather than fail.
		username, password = lookupDockerCredentials(reg.URL)
		if username == "" {
			t.publish(output.Succeeded(t.Container.Name, "no credentials, skipping login"))
			return nil
		}
	}

	t.publish(output.Running(t.Container.Name, "logging in"))
	if err := t.Client.Login(ctx, reg.URL, engine.AuthConfig{
		Username: username,
		Password: password,
		Email:    reg.Email,
	}); err != nil {
		return merrors.NewRemoteEngineError(t.Container.Name, err)
	}
	t.publish(output.Succeeded(t.Container.Name, "logged in"))
	return nil
}

// matchRegistry extracts image's registry host and matches it against
// registries, either by map key or by the host:port of the registry's
// configured URL, per spec.md §4.5.
func matchRegistry(image string, registries Registries) *entities.Registry {
	host := registryHost(image)
	if host == "" {
		return nil
	}
	if reg, ok := registries[host]; ok {
		return reg
	}
	for _, reg := range registries {
		if registryHost(reg.URL) == host || reg.URL == host {
			return reg
		}
		if u, err := url.Parse(reg.URL); err == nil && u.Host == host {
			return reg
		}
	}
	return nil
}

func registryHost(image string) string {
	named, err := reference.ParseNormalizedNamed(image)
	if err != nil {
		return ""
	}
	domain := reference.Domain(named)
	if domain == "" || domain == "docker.io" {
		return ""
	}
	return domain
}

// lookupDockerCredentials reads the docker CLI's config.json credential
// store for host, returning empty strings if none is configured.
func lookupDockerCredentials(host string) (string, string) {
	cfg, err := config.Load(config.Dir())
	if err != nil {
		return "", ""
	}
	auth, err := cfg.GetAuthConfig(host)
	if err != nil {
		return "", ""
	}
	return auth.Username, auth.Password
}
