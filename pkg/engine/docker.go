package engine

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
	"github.com/docker/go-connections/tlsconfig"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/maestroship/maestro/pkg/entities"
)

// dockerClient is the Client implementation backed by a real Docker
// Engine API connection, grounded on the construction and call shape of
// pkg/compose/create.go and pkg/compose/pull.go. One dockerClient is
// built per Ship at Conductor build time (spec.md §3's "exactly one
// connection/client") and shared by every Task that targets that Ship;
// *client.Client is documented safe for concurrent use, satisfying
// spec.md §5's "Shared resources" requirement without extra locking.
type dockerClient struct {
	api  client.APIClient
	ship string
}

// NewDockerClient builds the per-Ship engine client for a direct-TCP or
// local-socket endpoint. ssh_tunnel ships go through NewClientForShip in
// tunnel.go, which builds its own httpClient (dialing through the SSH
// connection) and passes it here as an override.
func NewDockerClient(ship entities.Ship, host string, httpClient *http.Client) (Client, error) {
	opts := []client.Opt{
		client.WithHost(host),
		client.WithTimeout(effectiveTimeout(ship)),
	}

	if ship.APIVersion != "" {
		opts = append(opts, client.WithVersion(ship.APIVersion))
	} else {
		opts = append(opts, client.WithAPIVersionNegotiation())
	}

	switch {
	case httpClient != nil:
		opts = append(opts, client.WithHTTPClient(httpClient))
	case ship.TLS.Enabled:
		tlsCfg, err := tlsconfig.Client(tlsconfig.Options{
			CAFile:             ship.TLS.CACertPath,
			CertFile:           ship.TLS.CertPath,
			KeyFile:            ship.TLS.KeyPath,
			InsecureSkipVerify: !ship.TLS.Verify,
		})
		if err != nil {
			return nil, errors.Wrapf(err, "ship %s: building TLS config", ship.Name)
		}
		opts = append(opts, client.WithHTTPClient(&http.Client{
			Transport: &http.Transport{TLSClientConfig: tlsCfg},
			Timeout:   effectiveTimeout(ship),
		}))
	}

	api, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "ship %s: building engine client", ship.Name)
	}

	return &dockerClient{api: api, ship: ship.Name}, nil
}

func effectiveTimeout(ship entities.Ship) time.Duration {
	if ship.Timeout > 0 {
		return ship.Timeout
	}
	return 30 * time.Second
}

func (d *dockerClient) Inspect(ctx context.Context, name string) (*entities.Status, error) {
	info, err := d.api.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return &entities.Status{Exists: false}, nil
		}
		return nil, errors.Wrapf(err, "ship %s: inspect %s", d.ship, name)
	}

	status := &entities.Status{
		Exists:  true,
		FullID:  info.ID,
		ShortID: shortID(info.ID),
		ImageID: info.Image,
	}
	if info.State != nil {
		status.Running = info.State.Running
		status.StartedAt = parseTimeLenient(info.State.StartedAt)
		status.FinishedAt = parseTimeLenient(info.State.FinishedAt)
	}
	return status, nil
}

func (d *dockerClient) Images(ctx context.Context, repo string) ([]ImageRecord, error) {
	list, err := d.api.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "ship %s: list images", d.ship)
	}
	out := make([]ImageRecord, 0, len(list))
	for _, img := range list {
		out = append(out, ImageRecord{ID: img.ID, Tags: img.RepoTags})
	}
	return out, nil
}

func (d *dockerClient) Create(ctx context.Context, spec CreateSpec) (string, error) {
	exposed := nat.PortSet{}
	for _, p := range spec.ExposedPorts {
		exposed[nat.Port(p)] = struct{}{}
	}

	bindings := nat.PortMap{}
	for port, pbs := range spec.PortBindings {
		var natBindings []nat.PortBinding
		for _, pb := range pbs {
			natBindings = append(natBindings, nat.PortBinding{HostIP: pb.HostIP, HostPort: pb.HostPort})
		}
		bindings[nat.Port(port)] = natBindings
	}

	hostCfg := &container.HostConfig{
		Binds:        spec.Binds,
		VolumesFrom:  spec.VolumesFrom,
		PortBindings: bindings,
		Privileged:   spec.Privileged,
		CapAdd:       spec.CapAdd,
		CapDrop:      spec.CapDrop,
		ExtraHosts:   spec.ExtraHosts,
		NetworkMode:  container.NetworkMode(spec.NetworkMode),
		DNS:          spec.DNS,
		RestartPolicy: container.RestartPolicy{
			Name:              restartPolicyName(spec.Restart),
			MaximumRetryCount: spec.Restart.MaxRetryCount,
		},
		Resources: container.Resources{
			CPUShares:  spec.CPUShares,
			Memory:     spec.Memory,
			MemorySwap: spec.MemorySwap,
		},
		SecurityOpt: spec.SecurityOpt,
		LogConfig: container.LogConfig{
			Type:   spec.LogDriver,
			Config: spec.LogOpts,
		},
	}
	for _, u := range spec.Ulimits {
		hostCfg.Ulimits = append(hostCfg.Ulimits, &container.Ulimit{Name: u.Name, Soft: u.Soft, Hard: u.Hard})
	}

	containerCfg := &container.Config{
		Image:        spec.Image,
		Hostname:     spec.Hostname,
		Cmd:          spec.Command,
		Env:          spec.Env,
		Labels:       spec.Labels,
		WorkingDir:   spec.WorkDir,
		ExposedPorts: exposed,
		Volumes:      toVolumeSet(spec.Volumes),
		AttachStdout: !spec.Detach,
		AttachStderr: !spec.Detach,
	}

	resp, err := d.api.ContainerCreate(ctx, containerCfg, hostCfg, &network.NetworkingConfig{}, nil, spec.Name)
	if err != nil {
		return "", errors.Wrapf(err, "ship %s: create %s", d.ship, spec.Name)
	}
	return resp.ID, nil
}

func (d *dockerClient) Start(ctx context.Context, id string) error {
	if err := d.api.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return errors.Wrapf(err, "ship %s: start %s", d.ship, id)
	}
	return nil
}

func (d *dockerClient) Stop(ctx context.Context, id string, timeout time.Duration) error {
	secs := int(timeout.Seconds())
	if err := d.api.ContainerStop(ctx, id, container.StopOptions{Timeout: &secs}); err != nil {
		return errors.Wrapf(err, "ship %s: stop %s", d.ship, id)
	}
	return nil
}

func (d *dockerClient) Remove(ctx context.Context, id string, removeVolumes bool) error {
	if err := d.api.ContainerRemove(ctx, id, container.RemoveOptions{RemoveVolumes: removeVolumes}); err != nil {
		return errors.Wrapf(err, "ship %s: remove %s", d.ship, id)
	}
	return nil
}

func (d *dockerClient) Logs(ctx context.Context, id string, tail int) (string, error) {
	rc, err := d.api.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       fmt.Sprintf("%d", tail),
	})
	if err != nil {
		return "", errors.Wrapf(err, "ship %s: logs %s", d.ship, id)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return "", errors.Wrapf(err, "ship %s: reading logs %s", d.ship, id)
	}
	return string(data), nil
}

func (d *dockerClient) Pull(ctx context.Context, imageName string, auth *AuthConfig) (<-chan PullEvent, error) {
	opts := image.PullOptions{}
	if auth != nil {
		encoded, err := encodeAuth(*auth)
		if err != nil {
			return nil, err
		}
		opts.RegistryAuth = encoded
	}

	rc, err := d.api.ImagePull(ctx, imageName, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "ship %s: pull %s", d.ship, imageName)
	}

	out := make(chan PullEvent)
	go func() {
		defer close(out)
		defer rc.Close()
		decoder := json.NewDecoder(rc)
		for {
			var raw struct {
				ID             string `json:"id"`
				Status         string `json:"status"`
				ProgressDetail struct {
					Current int64 `json:"current"`
					Total   int64 `json:"total"`
				} `json:"progressDetail"`
				Error      string `json:"error"`
				ErrorDetail struct {
					Message string `json:"message"`
				} `json:"errorDetail"`
			}
			if err := decoder.Decode(&raw); err != nil {
				if err != io.EOF {
					logrus.WithError(err).WithField("ship", d.ship).Warn("malformed pull event")
				}
				return
			}
			errMsg := raw.Error
			if errMsg == "" {
				errMsg = raw.ErrorDetail.Message
			}
			select {
			case out <- PullEvent{
				ID:              raw.ID,
				Status:          raw.Status,
				ProgressCurrent: raw.ProgressDetail.Current,
				ProgressTotal:   raw.ProgressDetail.Total,
				Error:           errMsg,
			}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (d *dockerClient) Login(ctx context.Context, registryHost string, auth AuthConfig) error {
	_, err := d.api.RegistryLogin(ctx, registry.AuthConfig{
		ServerAddress: registryHost,
		Username:      auth.Username,
		Password:      auth.Password,
		Email:         auth.Email,
	})
	if err != nil {
		return errors.Wrapf(err, "ship %s: login to %s", d.ship, registryHost)
	}
	return nil
}

func (d *dockerClient) ExecCreate(ctx context.Context, containerID string, cmd []string) (string, error) {
	resp, err := d.api.ContainerExecCreate(ctx, containerID, container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	})
	if err != nil {
		return "", errors.Wrapf(err, "ship %s: exec create on %s", d.ship, containerID)
	}
	return resp.ID, nil
}

func (d *dockerClient) ExecStart(ctx context.Context, execID string) error {
	if err := d.api.ContainerExecStart(ctx, execID, container.ExecStartOptions{}); err != nil {
		return errors.Wrapf(err, "ship %s: exec start %s", d.ship, execID)
	}
	return nil
}

func (d *dockerClient) ExecInspect(ctx context.Context, execID string) (ExecResult, error) {
	info, err := d.api.ContainerExecInspect(ctx, execID)
	if err != nil {
		return ExecResult{}, errors.Wrapf(err, "ship %s: exec inspect %s", d.ship, execID)
	}
	return ExecResult{ExitCode: info.ExitCode, Running: info.Running}, nil
}

func (d *dockerClient) Close() error {
	return d.api.Close()
}

func encodeAuth(auth AuthConfig) (string, error) {
	buf, err := json.Marshal(registry.AuthConfig{
		Username: auth.Username,
		Password: auth.Password,
		Email:    auth.Email,
	})
	if err != nil {
		return "", errors.Wrap(err, "encoding registry auth")
	}
	return base64.URLEncoding.EncodeToString(buf), nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func parseTimeLenient(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func restartPolicyName(rp entities.RestartPolicy) container.RestartPolicyMode {
	switch rp.Name {
	case entities.RestartAlways:
		return container.RestartPolicyAlways
	case entities.RestartOnFailure:
		return container.RestartPolicyOnFailure
	case entities.RestartUnlessStopped:
		return container.RestartPolicyUnlessStopped
	default:
		return container.RestartPolicyDisabled
	}
}

func toVolumeSet(targets []string) map[string]struct{} {
	if len(targets) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(targets))
	for _, t := range targets {
		out[t] = struct{}{}
	}
	return out
}
