// Package conductor builds the entity graph (Ships, Services,
// Containers) from a parsed environment description, validates the
// invariants of spec.md §3, and expands/orders user selections into the
// container lists a Play schedules. It is grounded on
// pkg/compose/convert's "project config -> service -> container" pattern
// in the teacher (one function per entity kind, normalize-then-validate)
// and on the original maestro.Conductor's __init__ (maestro/maestro.py),
// adapted to Go's explicit-error, no-exceptions style.
package conductor

import (
	"fmt"
	"sort"
	"time"

	"github.com/pkg/errors"

	"github.com/maestroship/maestro/internal/graph"
	"github.com/maestroship/maestro/internal/merrors"
	"github.com/maestroship/maestro/pkg/config"
	"github.com/maestroship/maestro/pkg/engine"
	"github.com/maestroship/maestro/pkg/entities"
	"github.com/maestroship/maestro/pkg/lifecycle"
)

// Conductor holds the fully built, validated entity graph for one
// environment description plus the engine clients needed to act on it.
// Per spec.md §9 ("Global state. None required beyond the Conductor"),
// the CLI constructs a fresh Conductor for every invocation.
type Conductor struct {
	Name string

	Ships      map[string]*entities.Ship
	Registries map[string]*entities.Registry
	Services   map[string]*entities.Service
	Containers map[string]*entities.Container

	// ServiceGraph carries Requires/NeededFor edges between service names;
	// "things" selection expands through it.
	ServiceGraph *graph.Graph

	// ContainerGraph carries the same edges at container granularity: every
	// container of a dependent service requires every container of each
	// service it requires. Ordering (§4.3) walks this graph, since a Play
	// schedules one Task per container, not per service.
	ContainerGraph *graph.Graph

	// Clients holds one engine.Client per Ship, built once and shared by
	// every Container placed there (spec.md §3's Ship invariant).
	Clients map[string]engine.Client
}

// Build constructs and validates a Conductor from a parsed Document.
func Build(doc *config.Document) (*Conductor, error) {
	c := &Conductor{
		Name:       doc.Name,
		Ships:      map[string]*entities.Ship{},
		Registries: map[string]*entities.Registry{},
		Services:   map[string]*entities.Service{},
		Containers: map[string]*entities.Container{},
		Clients:    map[string]engine.Client{},
	}

	if err := c.buildShips(doc); err != nil {
		return nil, err
	}
	c.buildRegistries(doc)
	if err := c.buildServices(doc); err != nil {
		return nil, err
	}
	if err := c.validateVolumesFrom(); err != nil {
		return nil, err
	}
	c.buildContainerGraph()
	c.wireDependencies()
	c.injectLinkVariables()

	return c, nil
}

func (c *Conductor) buildShips(doc *config.Document) error {
	ships, err := resolveShips(doc)
	if err != nil {
		return err
	}
	for name, raw := range ships {
		merged := config.MergeDefaults(raw, doc.ShipDefaults)
		ship, err := buildShip(name, merged)
		if err != nil {
			return err
		}
		c.Ships[name] = ship

		client, err := engine.NewClientForShip(*ship)
		if err != nil {
			return merrors.WrapConfigurationError(errors.Wrapf(err, "ship %s: building engine client", name))
		}
		c.Clients[name] = client
	}
	return nil
}

func buildShip(name string, raw config.RawShip) (*entities.Ship, error) {
	ship := &entities.Ship{
		Name:       name,
		IP:         raw.IP,
		APIVersion: raw.APIVersion,
	}
	if raw.Timeout > 0 {
		ship.Timeout = secondsToDuration(raw.Timeout)
	}

	switch raw.Endpoint {
	case "", "tcp":
		ship.Endpoint = entities.EndpointTCP
		ship.DockerPort = raw.DockerPort
	case "socket":
		ship.Endpoint = entities.EndpointSocket
		ship.SocketPath = raw.SocketPath
	case "ssh_tunnel":
		ship.Endpoint = entities.EndpointSSH
		if raw.SSHTunnel == nil {
			return nil, merrors.NewConfigurationError("ship %s: endpoint ssh_tunnel requires ssh_tunnel configuration", name)
		}
		ship.Tunnel = &entities.SSHTunnel{
			User: raw.SSHTunnel.User,
			Key:  raw.SSHTunnel.Key,
			Port: raw.SSHTunnel.Port,
		}
	default:
		return nil, merrors.NewConfigurationError("ship %s: unknown endpoint %q", name, raw.Endpoint)
	}

	ship.TLS = entities.TLSOptions{
		Enabled:    raw.TLS,
		CertPath:   raw.TLSCert,
		KeyPath:    raw.TLSKey,
		CACertPath: raw.TLSCACert,
		Verify:     raw.TLSVerify == nil || *raw.TLSVerify,
	}

	return ship, nil
}

func (c *Conductor) buildRegistries(doc *config.Document) {
	for name, raw := range doc.Registries {
		c.Registries[name] = &entities.Registry{
			Name:     name,
			URL:      raw.Registry,
			Username: raw.Username,
			Password: raw.Password,
			Email:    raw.Email,
		}
	}
}

func (c *Conductor) buildServices(doc *config.Document) error {
	c.ServiceGraph = graph.New()

	names := make([]string, 0, len(doc.Services))
	for name := range doc.Services {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		raw := doc.Services[name]
		svc := &entities.Service{
			Name:      name,
			Image:     raw.Image,
			Omit:      raw.Omit,
			Requires:  append([]string(nil), raw.Requires...),
			WantsInfo: append([]string(nil), raw.WantsInfo...),
			Ports:     raw.Ports,
			Instances: map[string]*entities.Container{},
		}
		if len(raw.Env) > 0 {
			svc.BaseEnv = map[string]string{}
			for k, v := range raw.Env {
				svc.BaseEnv[k] = string(v)
			}
		}

		limits, err := parseLimits(raw.Limits)
		if err != nil {
			return merrors.WrapConfigurationError(errors.Wrapf(err, "service %s", name))
		}
		svc.Limits = limits

		servicePorts := map[string]entities.PortMapping{}
		for portName, spec := range raw.Ports {
			pm, err := entities.ParsePortSpec(portName, spec)
			if err != nil {
				return merrors.WrapConfigurationError(errors.Wrapf(err, "service %s", name))
			}
			servicePorts[portName] = pm
		}
		checks, err := lifecycle.BuildAll(toLifecycleConfigs(raw.Lifecycle), servicePorts)
		if err != nil {
			return merrors.WrapConfigurationError(errors.Wrapf(err, "service %s", name))
		}
		svc.Lifecycle = checks

		c.Services[name] = svc
		c.ServiceGraph.AddVertex(name)

		instanceNames := make([]string, 0, len(raw.Instances))
		for iname := range raw.Instances {
			instanceNames = append(instanceNames, iname)
		}
		sort.Strings(instanceNames)

		for _, iname := range instanceNames {
			merged := config.MergeContainer(raw.RawContainer, raw.Instances[iname])
			container, err := c.buildContainer(doc, svc, iname, merged)
			if err != nil {
				return err
			}
			svc.Instances[iname] = container
			c.Containers[iname] = container
		}
	}

	for name, raw := range doc.Services {
		for _, dep := range raw.Requires {
			if _, ok := c.Services[dep]; !ok {
				return merrors.NewConfigurationError("service %s: requires unknown service %q", name, dep)
			}
			c.ServiceGraph.AddEdge(name, dep)
		}
		for _, dep := range raw.WantsInfo {
			if _, ok := c.Services[dep]; !ok {
				return merrors.NewConfigurationError("service %s: wants_info references unknown service %q", name, dep)
			}
		}
	}

	return nil
}

func (c *Conductor) buildContainer(doc *config.Document, svc *entities.Service, name string, raw config.RawContainer) (*entities.Container, error) {
	if raw.Ship == "" {
		return nil, merrors.NewConfigurationError("container %s: missing required \"ship\"", name)
	}
	ship, ok := c.Ships[raw.Ship]
	if !ok {
		return nil, merrors.NewConfigurationError("container %s: unknown ship %q", name, raw.Ship)
	}

	image := raw.Image
	if image == "" {
		image = svc.Image
	}

	container := &entities.Container{
		Name:        name,
		Service:     svc,
		Ship:        ship,
		Image:       image,
		Command:     append([]string(nil), raw.Command...),
		Env:         map[string]string{},
		Links:       append([]string(nil), raw.Links...),
		Privileged:  raw.Privileged,
		CapAdd:      append([]string(nil), raw.CapAdd...),
		CapDrop:     append([]string(nil), raw.CapDrop...),
		NetworkMode: raw.Net,
		DNS:         append([]string(nil), raw.DNS...),
		WorkDir:     raw.Workdir,
		SecurityOpt: append([]string(nil), raw.SecurityOpt...),
		ContainerVolumes: append([]string(nil), raw.ContainerVolumes...),
		VolumesFrom: append([]string(nil), raw.VolumesFrom...),
	}

	for k, v := range svc.BaseEnv {
		container.Env[k] = v
	}
	for k, v := range raw.Env {
		container.Env[k] = string(v)
	}
	container.Env["MAESTRO_ENVIRONMENT_NAME"] = doc.Name
	container.Env["SERVICE_NAME"] = svc.Name
	container.Env["CONTAINER_NAME"] = name
	container.Env["CONTAINER_HOST_ADDRESS"] = ship.IP
	container.Env["IMAGE"] = container.Image

	if raw.ExtraHosts != nil {
		container.ExtraHosts = map[string]string{}
		for k, v := range raw.ExtraHosts {
			container.ExtraHosts[k] = v
		}
	}

	restart, err := entities.ParseRestartPolicy(raw.Restart)
	if err != nil {
		return nil, merrors.WrapConfigurationError(errors.Wrapf(err, "container %s", name))
	}
	container.Restart = restart

	if raw.StopTimeout != 0 {
		container.StopTimeout = secondsToDuration(raw.StopTimeout)
	}

	limits, err := parseLimits(raw.Limits)
	if err != nil {
		return nil, merrors.WrapConfigurationError(errors.Wrapf(err, "container %s", name))
	}
	container.Limits = limits

	container.Log = entities.LogConfig{Driver: raw.LogDriver, Options: raw.LogOpt}

	for ulimitName, u := range raw.Ulimits {
		container.Ulimits = append(container.Ulimits, entities.Ulimit{Name: ulimitName, Soft: u.Soft, Hard: u.Hard})
	}
	sort.Slice(container.Ulimits, func(i, j int) bool { return container.Ulimits[i].Name < container.Ulimits[j].Name })

	ports := map[string]entities.PortMapping{}
	for portName, spec := range raw.Ports {
		pm, err := entities.ParsePortSpec(portName, spec)
		if err != nil {
			return nil, merrors.WrapConfigurationError(errors.Wrapf(err, "container %s", name))
		}
		ports[portName] = pm
	}
	container.Ports = ports

	volumes, err := buildVolumes(name, raw.Volumes, raw.ContainerVolumes)
	if err != nil {
		return nil, err
	}
	container.Volumes = volumes

	checks, err := lifecycle.BuildAll(toLifecycleConfigs(raw.Lifecycle), ports)
	if err != nil {
		return nil, merrors.WrapConfigurationError(errors.Wrapf(err, "container %s", name))
	}
	container.Lifecycle = checks

	return container, nil
}

// buildVolumes enforces the disjointness invariant of spec.md §3:
// bind-mounted targets and container-only targets must not collide.
func buildVolumes(containerName string, raw map[string]config.RawVolume, containerVolumes []string) ([]entities.VolumeMount, error) {
	targets := map[string]bool{}
	var mounts []entities.VolumeMount

	hostPaths := make([]string, 0, len(raw))
	for hostPath := range raw {
		hostPaths = append(hostPaths, hostPath)
	}
	sort.Strings(hostPaths)

	for _, hostPath := range hostPaths {
		v := raw[hostPath]
		mode := entities.VolumeRW
		if v.Mode == "ro" {
			mode = entities.VolumeRO
		}
		if targets[v.Target] {
			return nil, merrors.NewConfigurationError("container %s: duplicate mount target %q", containerName, v.Target)
		}
		targets[v.Target] = true
		mounts = append(mounts, entities.VolumeMount{HostPath: hostPath, Target: v.Target, Mode: mode})
	}

	for _, target := range containerVolumes {
		if targets[target] {
			return nil, merrors.NewConfigurationError("container %s: mount target %q is both bind-mounted and container-only", containerName, target)
		}
		targets[target] = true
	}

	return mounts, nil
}

// validateVolumesFrom checks that every volumes_from reference exists, is
// placed on the same Ship, and has mount targets disjoint from this
// container's own — per spec.md §3. Runs after all Containers exist since
// it is a cross-container invariant.
func (c *Conductor) validateVolumesFrom() error {
	for name, container := range c.Containers {
		for _, ref := range container.VolumesFrom {
			other, ok := c.Containers[ref]
			if !ok {
				return merrors.NewConfigurationError("container %s: volumes_from references unknown container %q", name, ref)
			}
			if other.Ship.Name != container.Ship.Name {
				return merrors.NewConfigurationError("container %s: volumes_from %q is not on the same ship", name, ref)
			}
			targets := map[string]bool{}
			for _, v := range container.Volumes {
				targets[v.Target] = true
			}
			for _, t := range container.ContainerVolumes {
				targets[t] = true
			}
			for _, v := range other.Volumes {
				if targets[v.Target] {
					return merrors.NewConfigurationError("container %s: volumes_from %q conflicts on mount target %q", name, ref, v.Target)
				}
			}
		}
	}
	return nil
}

// buildContainerGraph derives a container-granularity dependency graph
// from the service-level one: every container of a dependent service
// requires every container of each service it requires directly. The
// iterative peel in internal/graph.TopologicalOrder resolves transitive
// chains on its own from these direct edges, the same way it does at
// service granularity.
func (c *Conductor) buildContainerGraph() {
	c.ContainerGraph = graph.New()
	for name := range c.Containers {
		c.ContainerGraph.AddVertex(name)
	}
	for _, svc := range c.Services {
		for _, depName := range svc.Requires {
			dep := c.Services[depName]
			for _, container := range svc.Instances {
				for _, depContainer := range dep.Instances {
					_ = c.ContainerGraph.AddEdge(container.Name, depContainer.Name)
				}
			}
		}
	}
}

func (c *Conductor) wireDependencies() {
	for name, svc := range c.Services {
		for _, dep := range svc.Requires {
			c.Services[dep].NeededFor = append(c.Services[dep].NeededFor, name)
		}
	}
	for _, svc := range c.Services {
		sort.Strings(svc.NeededFor)
	}
}

// injectLinkVariables implements spec.md §3's link-variable rule: peers
// within the same service always receive the internal variant; transitive
// requires/wants_info dependencies contribute their external variant. Per
// Open Question (b), wants_info affects only this injection, never
// scheduling order.
func (c *Conductor) injectLinkVariables() {
	for _, svc := range c.Services {
		instanceNames := sortedKeys(svc.Instances)
		instancesVar := entities.InstancesVariableName(svc)
		joined := joinNames(instanceNames)

		for _, container := range svc.Instances {
			container.Env[instancesVar] = joined
			for _, peerName := range instanceNames {
				peer := svc.Instances[peerName]
				names := entities.ComputeLinkVariableNames(peer)
				container.Env[names.Host] = peer.Ship.IP
				for portName, varName := range names.InternalPort {
					container.Env[varName] = fmt.Sprintf("%d", peer.Ports[portName].Exposed.Number)
				}
			}
		}
	}

	for _, svc := range c.Services {
		deps := map[string]bool{}
		for _, d := range c.transitiveServiceDeps(svc.Name) {
			deps[d] = true
		}
		for _, d := range svc.WantsInfo {
			deps[d] = true
			for _, d2 := range c.transitiveServiceDeps(d) {
				deps[d2] = true
			}
		}

		for _, container := range svc.Instances {
			for depName := range deps {
				dep := c.Services[depName]
				for _, depContainer := range dep.Instances {
					names := entities.ComputeLinkVariableNames(depContainer)
					container.Env[names.Host] = depContainer.Ship.IP
					for portName, varName := range names.Port {
						if depContainer.Ports[portName].External != nil {
							container.Env[varName] = fmt.Sprintf("%d", depContainer.Ports[portName].External.Port.Number)
						}
					}
				}
			}
		}
	}
}

// transitiveServiceDeps walks c.ServiceGraph's Requires edges from start,
// excluding start itself.
func (c *Conductor) transitiveServiceDeps(start string) []string {
	closure := c.ServiceGraph.TransitiveClosure([]string{start}, graph.Forward)
	out := make([]string, 0, len(closure))
	for _, n := range closure {
		if n != start {
			out = append(out, n)
		}
	}
	return out
}

func sortedKeys(m map[string]*entities.Container) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ","
		}
		out += n
	}
	return out
}

func parseLimits(raw config.RawLimits) (entities.Limits, error) {
	limits := entities.Limits{CPUShares: raw.CPU}
	if raw.Memory != "" {
		mem, err := entities.ParseMemory(raw.Memory)
		if err != nil {
			return entities.Limits{}, err
		}
		limits.Memory = mem
	}
	if raw.Swap != "" {
		swap, err := entities.ParseMemory(raw.Swap)
		if err != nil {
			return entities.Limits{}, err
		}
		limits.MemSwap = swap
	}
	return limits, nil
}

func toLifecycleConfigs(raw map[string][]config.RawLifecycleCheck) map[string][]lifecycle.Config {
	out := make(map[string][]lifecycle.Config, len(raw))
	for state, list := range raw {
		cfgs := make([]lifecycle.Config, 0, len(list))
		for _, r := range list {
			cfgs = append(cfgs, lifecycle.Config{
				Type:    r.Type,
				Port:    r.Port,
				Method:  r.Method,
				Path:    r.Path,
				Scheme:  r.Scheme,
				Match:   r.Match,
				Host:    r.Host,
				Command: r.Command,
				Seconds: r.Seconds,
				Timeout: r.Timeout,
				Retries: r.Retries,
			})
		}
		out[state] = cfgs
	}
	return out
}

func secondsToDuration(seconds int) time.Duration {
	return time.Duration(seconds) * time.Second
}
