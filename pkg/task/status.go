package task

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/maestroship/maestro/pkg/output"
)

// PortProbe is one declared port's reachability, as reported by
// FullStatus.
type PortProbe struct {
	Name string
	Up   bool
}

// StatusReport is StatusTask's result: short id, resolved image tag,
// running/down, and time since the container's last state transition, per
// spec.md §4.5.
type StatusReport struct {
	Container  string
	Exists     bool
	Running    bool
	ShortID    string
	Image      string
	Since      time.Duration
	PortProbes []PortProbe
}

// Status runs StatusTask.
func (t *Task) Status(ctx context.Context) (StatusReport, error) {
	var report StatusReport
	err := t.runAudited("status", func() error {
		r, err := t.status(ctx)
		report = r
		return err
	})
	return report, err
}

func (t *Task) status(ctx context.Context) (StatusReport, error) {
	status, err := t.inspect(ctx)
	if err != nil {
		return StatusReport{}, err
	}

	report := StatusReport{
		Container: t.Container.Name,
		Exists:    status.Exists,
		Running:   status.Running,
		ShortID:   status.ShortID,
		Image:     t.Container.Image,
	}

	transition := status.StartedAt
	if !status.Running {
		transition = status.FinishedAt
	}
	if !transition.IsZero() {
		report.Since = time.Since(transition).Round(time.Second)
	}

	text := "down"
	if status.Running {
		text = fmt.Sprintf("up (%s)", report.Since)
	}
	t.publish(output.Succeeded(t.Container.Name, text))
	return report, nil
}

// FullStatus additionally probes each declared port with a TCP dial, per
// spec.md §4.5. `status -F` calls it for each container from the same
// Play that plain status uses, so it follows that play's dependency
// ordering and concurrency; it is not run as a separate sequential pass.
func (t *Task) FullStatus(ctx context.Context) (StatusReport, error) {
	report, err := t.status(ctx)
	if err != nil {
		return report, err
	}
	if !report.Running {
		return report, nil
	}

	for name, pm := range t.Container.Ports {
		host := t.Container.Ship.IP
		port := pm.Exposed.Number
		if pm.External != nil {
			port = pm.External.Port.Number
		}
		report.PortProbes = append(report.PortProbes, PortProbe{
			Name: name,
			Up:   tcpPing(ctx, host, port),
		})
	}
	return report, nil
}

func tcpPing(ctx context.Context, host string, port int) bool {
	d := net.Dialer{Timeout: 2 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", fmt.Sprintf("%s:%d", host, port))
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
