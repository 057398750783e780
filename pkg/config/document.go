// Package config loads the environment description (spec.md §6) from
// YAML and normalizes it into the pkg/entities data model. The raw
// document types mirror compose-go/types/types.go's approach of a
// permissive intermediate representation (plain maps/slices, loose
// typing for fields that accept multiple shapes) decoded first, then
// validated/normalized in a second pass — rather than unmarshaling
// straight into pkg/entities's immutable-after-construction types.
package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/maestroship/maestro/internal/merrors"
)

// Document is the raw, permissively-typed form of the environment
// description, decoded directly from YAML before normalization.
type Document struct {
	Name         string                    `yaml:"name"`
	Ships        map[string]RawShip        `yaml:"ships"`
	ShipDefaults RawShip                   `yaml:"ship_defaults"`
	ShipProvider string                    `yaml:"ship_provider"`
	Registries   map[string]RawRegistry    `yaml:"registries"`
	Services     map[string]RawService     `yaml:"services"`
	Audit        []RawAuditSink            `yaml:"audit"`
}

type RawSSHTunnel struct {
	User string `yaml:"user"`
	Key  string `yaml:"key"`
	Port int    `yaml:"port"`
}

// RawShip holds every field a ship entry OR ship_defaults entry may set;
// fields left zero are inherited from ship_defaults by MergeDefaults.
type RawShip struct {
	IP         string        `yaml:"ip"`
	Endpoint   string        `yaml:"endpoint"`
	DockerPort int           `yaml:"docker_port"`
	SocketPath string        `yaml:"socket_path"`
	SSHTunnel  *RawSSHTunnel `yaml:"ssh_tunnel"`
	APIVersion string        `yaml:"api_version"`
	Timeout    int           `yaml:"timeout"` // seconds
	TLS        bool          `yaml:"tls"`
	TLSCert    string        `yaml:"tls_cert"`
	TLSKey     string        `yaml:"tls_key"`
	TLSVerify  *bool         `yaml:"tls_verify"`
	TLSCACert  string        `yaml:"tls_ca_cert"`
	SSLVersion string        `yaml:"ssl_version"`
}

type RawRegistry struct {
	Registry string `yaml:"registry"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Email    string `yaml:"email"`
}

type RawLifecycleCheck struct {
	Type    string `yaml:"type"`
	Port    string `yaml:"port"`
	Method  string `yaml:"method"`
	Path    string `yaml:"path"`
	Scheme  string `yaml:"scheme"`
	Match   string `yaml:"match"`
	Host    string `yaml:"host"`
	Command string `yaml:"command"`
	Seconds int    `yaml:"seconds"`
	Timeout int    `yaml:"timeout"`
	Retries int    `yaml:"retries"`
}

type RawLimits struct {
	CPU    int64  `yaml:"cpu"`
	Memory string `yaml:"memory"`
	Swap   string `yaml:"swap"`
}

// RawVolume accepts both the short form (a bare "mode" string is never
// valid alone, only as part of the long-form map) and the long form
// `{target, mode}`; UnmarshalYAML below disambiguates.
type RawVolume struct {
	Target string `yaml:"target"`
	Mode   string `yaml:"mode"`
}

func (v *RawVolume) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		v.Target = node.Value
		v.Mode = "rw"
		return nil
	}
	type plain RawVolume
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*v = RawVolume(p)
	if v.Mode == "" {
		v.Mode = "rw"
	}
	return nil
}

// RawContainer is shared by a service's top-level fields (acting as
// instance defaults) and each entry under `instances`.
type RawContainer struct {
	Ship         string                         `yaml:"ship"`
	Image        string                         `yaml:"image"`
	Command      StringList                     `yaml:"command"`
	Ports        map[string]string              `yaml:"ports"`
	Env          map[string]EnvValue            `yaml:"env"`
	Volumes      map[string]RawVolume           `yaml:"volumes"`
	ContainerVolumes StringList                 `yaml:"container_volumes"`
	VolumesFrom  StringList                     `yaml:"volumes_from"`
	Links        StringList                     `yaml:"links"`
	Privileged   bool                           `yaml:"privileged"`
	CapAdd       StringList                     `yaml:"cap_add"`
	CapDrop      StringList                     `yaml:"cap_drop"`
	ExtraHosts   map[string]string              `yaml:"extra_hosts"`
	Net          string                         `yaml:"net"`
	Restart      string                         `yaml:"restart"`
	DNS          StringList                     `yaml:"dns"`
	StopTimeout  int                            `yaml:"stop_timeout"`
	Limits       RawLimits                      `yaml:"limits"`
	LogDriver    string                         `yaml:"log_driver"`
	LogOpt       map[string]string              `yaml:"log_opt"`
	Workdir      string                         `yaml:"workdir"`
	SecurityOpt  StringList                     `yaml:"security_opt"`
	Ulimits      map[string]RawUlimit           `yaml:"ulimits"`
	Lifecycle    map[string][]RawLifecycleCheck `yaml:"lifecycle"`
}

type RawUlimit struct {
	Soft int64 `yaml:"soft"`
	Hard int64 `yaml:"hard"`
}

func (u *RawUlimit) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var n int64
		if err := node.Decode(&n); err != nil {
			return err
		}
		u.Soft, u.Hard = n, n
		return nil
	}
	type plain RawUlimit
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*u = RawUlimit(p)
	return nil
}

type RawService struct {
	RawContainer `yaml:",inline"`

	Omit      bool                    `yaml:"omit"`
	Requires  StringList              `yaml:"requires"`
	WantsInfo StringList              `yaml:"wants_info"`
	Instances map[string]RawContainer `yaml:"instances"`
}

type RawAuditSink struct {
	Type         string                 `yaml:"type"`
	Level        string                 `yaml:"level"`
	IgnoreErrors bool                   `yaml:"ignore_errors"`
	Options      map[string]interface{} `yaml:",inline"`
}

// StringList accepts either a YAML sequence or a single scalar (treated
// as a one-element list), matching compose-go's permissive decoding of
// fields like `command`/`dns` that users commonly write as a bare string.
type StringList []string

func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*s = StringList{node.Value}
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	*s = list
	return nil
}

// EnvValue accepts a string, a number, or a list (space-joined), per
// spec.md §6's `env` field.
type EnvValue string

func (e *EnvValue) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*e = EnvValue(node.Value)
		return nil
	case yaml.SequenceNode:
		var parts []string
		if err := node.Decode(&parts); err != nil {
			return err
		}
		joined := ""
		for i, p := range parts {
			if i > 0 {
				joined += " "
			}
			joined += p
		}
		*e = EnvValue(joined)
		return nil
	default:
		return errors.Errorf("line %d: env value must be scalar or list", node.Line)
	}
}

// Load parses an environment description from r. path is used only for
// error messages ("-" denotes stdin, per spec.md §6's CLI surface).
func Load(r io.Reader, path string) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, merrors.WrapConfigurationError(errors.Wrapf(err, "reading %s", path))
	}
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, merrors.WrapConfigurationError(errors.Wrapf(err, "parsing %s", path))
	}
	if doc.Name == "" {
		return nil, merrors.NewConfigurationError("%s: missing required top-level \"name\"", path)
	}
	if doc.ShipProvider == "" {
		doc.ShipProvider = "static"
	}
	return &doc, nil
}

// LoadFile opens path ("-" for stdin) and loads it, per the `-f` CLI flag
// described in spec.md §6.
func LoadFile(path string) (*Document, error) {
	if path == "-" {
		return Load(os.Stdin, "-")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, merrors.WrapConfigurationError(errors.Wrapf(err, "opening %s", path))
	}
	defer f.Close()
	return Load(f, path)
}
