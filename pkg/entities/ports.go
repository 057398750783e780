package entities

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Protocol is the transport protocol of a port mapping.
type Protocol string

const (
	TCP Protocol = "tcp"
	UDP Protocol = "udp"
)

// Port is a single exposed or external port with its protocol, formatted
// the way the remote engine expects it ("80/tcp"). It intentionally
// mirrors docker/go-connections/nat.Port's string shape without importing
// that package here: nat.Port is reconstructed at the pkg/engine boundary
// once a Port needs to become part of an engine API call, keeping the
// entity model free of engine-facing types (§3's "immutable-after-
// construction data model" should not carry transport concerns).
type Port struct {
	Number   int
	RangeEnd int // equal to Number unless this is a port-range spec
	Protocol Protocol
}

func (p Port) String() string {
	if p.RangeEnd != 0 && p.RangeEnd != p.Number {
		return fmt.Sprintf("%d-%d/%s", p.Number, p.RangeEnd, p.Protocol)
	}
	return fmt.Sprintf("%d/%s", p.Number, p.Protocol)
}

// ExternalPort binds a Port to a specific host-side port and, optionally,
// a specific interface to bind on.
type ExternalPort struct {
	Interface string
	Port      Port
}

// PortMapping is the normalized form of a named port entry, expanded per
// spec.md §3: `{exposed, external}`. External is nil when the port is only
// exposed inside the overlay/bridge network and not published to the Ship.
type PortMapping struct {
	Name     string
	Exposed  Port
	External *ExternalPort
}

// ParsePortSpec normalizes one named port entry's configuration string
// into a PortMapping, per the grammar in spec.md §4.2:
//
//	<p>             -> exposed tcp p, not published
//	<p>/tcp|udp     -> exposed p with explicit protocol, not published
//	<p1>-<p2>       -> exposed port range, not published
//	<exposed>:<external> -> exposed published on the host as the external port
//	                        (optionally <exposed>:<iface>@<external>)
//
// Any other form is a ConfigurationError (returned as a plain error here;
// callers in pkg/conductor wrap it).
func ParsePortSpec(name, spec string) (PortMapping, error) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return PortMapping{}, errors.Errorf("port %q: empty port spec", name)
	}

	if strings.Contains(spec, ":") {
		parts := strings.SplitN(spec, ":", 2)
		exposedSpec, externalSpec := parts[0], parts[1]

		exposed, err := parsePortToken(exposedSpec)
		if err != nil {
			return PortMapping{}, errors.Wrapf(err, "port %q: exposed side", name)
		}

		iface := ""
		externalStr := externalSpec
		if strings.Contains(externalSpec, "/") {
			// <iface>/<port> is not part of the grammar; reject loudly
			// rather than silently misparsing.
			return PortMapping{}, errors.Errorf("port %q: unexpected '/' in external port %q", name, externalSpec)
		}
		if idx := strings.LastIndex(externalStr, "@"); idx >= 0 {
			iface = externalStr[:idx]
			externalStr = externalStr[idx+1:]
		}
		external, err := parsePortToken(externalStr)
		if err != nil {
			return PortMapping{}, errors.Wrapf(err, "port %q: external side", name)
		}
		if external.Protocol != exposed.Protocol {
			return PortMapping{}, errors.Errorf("port %q: protocol mismatch between exposed %s and external %s", name, exposed, external)
		}

		return PortMapping{
			Name:    name,
			Exposed: exposed,
			External: &ExternalPort{
				Interface: iface,
				Port:      external,
			},
		}, nil
	}

	exposed, err := parsePortToken(spec)
	if err != nil {
		return PortMapping{}, errors.Wrapf(err, "port %q", name)
	}
	return PortMapping{Name: name, Exposed: exposed}, nil
}

func parsePortToken(token string) (Port, error) {
	proto := TCP
	numPart := token
	if idx := strings.LastIndex(token, "/"); idx >= 0 {
		switch strings.ToLower(token[idx+1:]) {
		case "tcp":
			proto = TCP
		case "udp":
			proto = UDP
		default:
			return Port{}, errors.Errorf("unknown protocol in %q", token)
		}
		numPart = token[:idx]
	}

	if strings.Contains(numPart, "-") {
		bounds := strings.SplitN(numPart, "-", 2)
		start, err := strconv.Atoi(bounds[0])
		if err != nil {
			return Port{}, errors.Wrapf(err, "invalid port range %q", numPart)
		}
		end, err := strconv.Atoi(bounds[1])
		if err != nil {
			return Port{}, errors.Wrapf(err, "invalid port range %q", numPart)
		}
		if end < start {
			return Port{}, errors.Errorf("invalid port range %q: end before start", numPart)
		}
		return Port{Number: start, RangeEnd: end, Protocol: proto}, nil
	}

	n, err := strconv.Atoi(numPart)
	if err != nil {
		return Port{}, errors.Wrapf(err, "invalid port %q", numPart)
	}
	if n < 1 || n > 65535 {
		return Port{}, errors.Errorf("port %d out of range", n)
	}
	return Port{Number: n, RangeEnd: n, Protocol: proto}, nil
}
