package entities

import "time"

// EndpointKind selects how a Ship's container engine is reached, per
// spec.md §3/§6.
type EndpointKind string

const (
	EndpointTCP    EndpointKind = "tcp"
	EndpointSocket EndpointKind = "socket"
	EndpointSSH    EndpointKind = "ssh_tunnel"
)

// SSHTunnel describes an ssh_tunnel endpoint: the engine is reached by
// forwarding a local socket over SSH to the Ship's engine endpoint.
type SSHTunnel struct {
	User string
	Key  string
	Port int
}

// TLSOptions mirrors the per-ship tls_* configuration keys from spec.md §6.
type TLSOptions struct {
	Enabled    bool
	CertPath   string
	KeyPath    string
	CACertPath string
	Verify     bool
}

// Ship is a host running a container engine. Per spec.md §3, a Ship owns
// exactly one connection/client to its engine, constructed once at
// Conductor build and shared by every Container placed on it.
type Ship struct {
	Name       string
	IP         string
	Endpoint   EndpointKind
	DockerPort int    // used when Endpoint == EndpointTCP
	SocketPath string // used when Endpoint == EndpointSocket
	Tunnel     *SSHTunnel
	APIVersion string
	Timeout    time.Duration
	TLS        TLSOptions
}
