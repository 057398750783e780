package config

// MergeDefaults overlays ship_defaults under an explicit per-ship entry:
// any field left at its zero value on s is filled from d. Per spec.md
// §6, `ship_defaults` supplies defaults for "any of the above per-ship
// fields".
func MergeDefaults(s, d RawShip) RawShip {
	if s.IP == "" {
		s.IP = d.IP
	}
	if s.Endpoint == "" {
		s.Endpoint = d.Endpoint
	}
	if s.DockerPort == 0 {
		s.DockerPort = d.DockerPort
	}
	if s.SocketPath == "" {
		s.SocketPath = d.SocketPath
	}
	if s.SSHTunnel == nil {
		s.SSHTunnel = d.SSHTunnel
	}
	if s.APIVersion == "" {
		s.APIVersion = d.APIVersion
	}
	if s.Timeout == 0 {
		s.Timeout = d.Timeout
	}
	if !s.TLS {
		s.TLS = d.TLS
	}
	if s.TLSCert == "" {
		s.TLSCert = d.TLSCert
	}
	if s.TLSKey == "" {
		s.TLSKey = d.TLSKey
	}
	if s.TLSVerify == nil {
		s.TLSVerify = d.TLSVerify
	}
	if s.TLSCACert == "" {
		s.TLSCACert = d.TLSCACert
	}
	if s.SSLVersion == "" {
		s.SSLVersion = d.SSLVersion
	}
	return s
}

// MergeContainer overlays an instance's config onto its service's
// top-level defaults: any field the instance leaves unset is inherited
// from the service. Maps are merged key-wise (instance wins on
// conflict); slices are replaced wholesale when the instance sets any
// value, per the convention compose-go's loader uses for service overrides.
func MergeContainer(service, instance RawContainer) RawContainer {
	out := service

	if instance.Ship != "" {
		out.Ship = instance.Ship
	}
	if instance.Image != "" {
		out.Image = instance.Image
	}
	if len(instance.Command) > 0 {
		out.Command = instance.Command
	}
	out.Ports = mergeStringMap(service.Ports, instance.Ports)
	out.Env = mergeEnvMap(service.Env, instance.Env)
	out.Volumes = mergeVolumeMap(service.Volumes, instance.Volumes)
	if len(instance.ContainerVolumes) > 0 {
		out.ContainerVolumes = instance.ContainerVolumes
	}
	if len(instance.VolumesFrom) > 0 {
		out.VolumesFrom = instance.VolumesFrom
	}
	if len(instance.Links) > 0 {
		out.Links = instance.Links
	}
	if instance.Privileged {
		out.Privileged = true
	}
	if len(instance.CapAdd) > 0 {
		out.CapAdd = instance.CapAdd
	}
	if len(instance.CapDrop) > 0 {
		out.CapDrop = instance.CapDrop
	}
	out.ExtraHosts = mergeStringMap(service.ExtraHosts, instance.ExtraHosts)
	if instance.Net != "" {
		out.Net = instance.Net
	}
	if instance.Restart != "" {
		out.Restart = instance.Restart
	}
	if len(instance.DNS) > 0 {
		out.DNS = instance.DNS
	}
	if instance.StopTimeout != 0 {
		out.StopTimeout = instance.StopTimeout
	}
	if instance.Limits.CPU != 0 {
		out.Limits.CPU = instance.Limits.CPU
	}
	if instance.Limits.Memory != "" {
		out.Limits.Memory = instance.Limits.Memory
	}
	if instance.Limits.Swap != "" {
		out.Limits.Swap = instance.Limits.Swap
	}
	if instance.LogDriver != "" {
		out.LogDriver = instance.LogDriver
	}
	out.LogOpt = mergeStringMap(service.LogOpt, instance.LogOpt)
	if instance.Workdir != "" {
		out.Workdir = instance.Workdir
	}
	if len(instance.SecurityOpt) > 0 {
		out.SecurityOpt = instance.SecurityOpt
	}
	out.Ulimits = mergeUlimitMap(service.Ulimits, instance.Ulimits)
	out.Lifecycle = mergeLifecycleMap(service.Lifecycle, instance.Lifecycle)

	return out
}

func mergeStringMap(base, override map[string]string) map[string]string {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func mergeEnvMap(base, override map[string]EnvValue) map[string]EnvValue {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]EnvValue, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func mergeVolumeMap(base, override map[string]RawVolume) map[string]RawVolume {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]RawVolume, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func mergeUlimitMap(base, override map[string]RawUlimit) map[string]RawUlimit {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string]RawUlimit, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

func mergeLifecycleMap(base, override map[string][]RawLifecycleCheck) map[string][]RawLifecycleCheck {
	if len(base) == 0 && len(override) == 0 {
		return nil
	}
	out := make(map[string][]RawLifecycleCheck, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}
