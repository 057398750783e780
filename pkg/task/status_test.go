package task

import (
	"context"
	"net"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/maestroship/maestro/pkg/entities"
)

func TestStatusReportsDownContainer(t *testing.T) {
	client := &fakeClient{}
	writer := &fakeWriter{}
	tk := newTestTask(client, writer)

	report, err := tk.Status(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, report.Exists, false)
	assert.Equal(t, report.Running, false)
}

func TestStatusReportsRunningContainerWithUptime(t *testing.T) {
	client := &fakeClient{exists: true, running: true, shortID: "abc123", startedAt: time.Now().Add(-5 * time.Minute)}
	writer := &fakeWriter{}
	tk := newTestTask(client, writer)

	report, err := tk.Status(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, report.Running, true)
	assert.Equal(t, report.ShortID, "abc123")
	assert.Assert(t, report.Since >= 5*time.Minute)
}

func TestFullStatusSkipsPortProbesWhenNotRunning(t *testing.T) {
	client := &fakeClient{}
	writer := &fakeWriter{}
	tk := newTestTask(client, writer)
	tk.Container.Ports = map[string]entities.PortMapping{
		"http": {Name: "http", Exposed: entities.Port{Number: 8080, Protocol: entities.TCP}},
	}

	report, err := tk.FullStatus(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, len(report.PortProbes), 0)
}

func TestFullStatusProbesReachablePort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NilError(t, err)
	defer ln.Close()
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port

	client := &fakeClient{exists: true, running: true, startedAt: time.Now()}
	writer := &fakeWriter{}
	tk := newTestTask(client, writer)
	tk.Container.Ship.IP = "127.0.0.1"
	tk.Container.Ports = map[string]entities.PortMapping{
		"http": {Name: "http", Exposed: entities.Port{Number: port, Protocol: entities.TCP}},
	}

	report, err := tk.FullStatus(context.Background())
	assert.NilError(t, err)
	assert.Assert(t, len(report.PortProbes) == 1)
	assert.Equal(t, report.PortProbes[0].Name, "http")
	assert.Assert(t, report.PortProbes[0].Up)
}

func TestFullStatusReportsDownPortAsUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NilError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close() // closed immediately: nothing listens on port anymore

	client := &fakeClient{exists: true, running: true, startedAt: time.Now()}
	writer := &fakeWriter{}
	tk := newTestTask(client, writer)
	tk.Container.Ship.IP = "127.0.0.1"
	tk.Container.Ports = map[string]entities.PortMapping{
		"http": {Name: "http", Exposed: entities.Port{Number: port, Protocol: entities.TCP}},
	}

	report, err := tk.FullStatus(context.Background())
	assert.NilError(t, err)
	assert.Assert(t, len(report.PortProbes) == 1)
	assert.Assert(t, !report.PortProbes[0].Up)
}
