package lifecycle

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/maestroship/maestro/pkg/entities"
)

const tcpDialTimeout = 1 * time.Second

type tcpCheck struct {
	portName string
	port     entities.Port
	retries  int
}

func newTCPCheck(cfg Config, ports map[string]entities.PortMapping) (entities.LifecycleCheck, error) {
	if cfg.Port == "" {
		return nil, errors.New("tcp check requires a port name")
	}
	port, err := resolvePort(cfg.Port, ports)
	if err != nil {
		return nil, err
	}
	if port.Protocol != entities.TCP {
		return nil, errors.Errorf("tcp check references UDP port %q", cfg.Port)
	}
	retries := cfg.Retries
	if retries == 0 {
		retries = defaultRetries
	}
	return &tcpCheck{portName: cfg.Port, port: port, retries: retries}, nil
}

func (c *tcpCheck) String() string { return fmt.Sprintf("tcp:%s", c.portName) }

func (c *tcpCheck) Test(ctx context.Context, container *entities.Container) bool {
	addr := net.JoinHostPort(container.Ship.IP, fmt.Sprintf("%d", c.port.Number))

	for attempt := 0; attempt < c.retries; attempt++ {
		if ctx.Err() != nil {
			return false
		}
		d := net.Dialer{Timeout: tcpDialTimeout}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err == nil {
			_ = conn.Close()
			return true
		}
		if !sleepWithContext(ctx, retryBackoff) {
			return false
		}
	}
	return false
}
