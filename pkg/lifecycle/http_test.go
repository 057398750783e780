package lifecycle

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/maestroship/maestro/pkg/entities"
)

func listenHTTP(t *testing.T, handler http.HandlerFunc) (port int, shutdown func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NilError(t, err)
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	return ln.Addr().(*net.TCPAddr).Port, func() { srv.Close() }
}

func TestHTTPCheckSucceedsOn200(t *testing.T) {
	port, shutdown := listenHTTP(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	defer shutdown()

	check, err := newHTTPCheck(Config{Type: "http", Port: fmt.Sprintf("%d", port)}, nil)
	assert.NilError(t, err)

	container := &entities.Container{Ship: &entities.Ship{IP: "127.0.0.1"}}
	assert.Assert(t, check.Test(context.Background(), container))
}

func TestHTTPCheckUsesNamedPort(t *testing.T) {
	port, shutdown := listenHTTP(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	defer shutdown()

	ports := map[string]entities.PortMapping{
		"http": {Name: "http", Exposed: entities.Port{Number: port, Protocol: entities.TCP}},
	}
	check, err := newHTTPCheck(Config{Type: "http", Port: "http"}, ports)
	assert.NilError(t, err)

	container := &entities.Container{Ship: &entities.Ship{IP: "127.0.0.1"}}
	assert.Assert(t, check.Test(context.Background(), container))
}

func TestHTTPCheckMatchesBodyRegexp(t *testing.T) {
	port, shutdown := listenHTTP(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("status: ready"))
	})
	defer shutdown()

	check, err := newHTTPCheck(Config{Type: "http", Port: fmt.Sprintf("%d", port), Match: "^status: ready$"}, nil)
	assert.NilError(t, err)

	container := &entities.Container{Ship: &entities.Ship{IP: "127.0.0.1"}}
	assert.Assert(t, check.Test(context.Background(), container))
}

func TestHTTPCheckMatchFailsWhenBodyDiffers(t *testing.T) {
	port, shutdown := listenHTTP(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("status: starting"))
	})
	defer shutdown()

	check, err := newHTTPCheck(Config{Type: "http", Port: fmt.Sprintf("%d", port), Match: "^status: ready$", Timeout: 1}, nil)
	assert.NilError(t, err)

	container := &entities.Container{Ship: &entities.Ship{IP: "127.0.0.1"}}
	assert.Assert(t, !check.Test(context.Background(), container))
}

func TestHTTPCheckFailsOnNon200WithoutMatch(t *testing.T) {
	port, shutdown := listenHTTP(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	defer shutdown()

	check, err := newHTTPCheck(Config{Type: "http", Port: fmt.Sprintf("%d", port), Timeout: 1}, nil)
	assert.NilError(t, err)

	container := &entities.Container{Ship: &entities.Ship{IP: "127.0.0.1"}}
	assert.Assert(t, !check.Test(context.Background(), container))
}

func TestHTTPCheckTimesOutAgainstUnreachableHost(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	assert.NilError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	check, err := newHTTPCheck(Config{Type: "http", Port: fmt.Sprintf("%d", port), Timeout: 1}, nil)
	assert.NilError(t, err)

	container := &entities.Container{Ship: &entities.Ship{IP: "127.0.0.1"}}
	start := time.Now()
	assert.Assert(t, !check.Test(context.Background(), container))
	assert.Assert(t, time.Since(start) < 3*time.Second)
}

func TestHTTPCheckHonorsHostOverride(t *testing.T) {
	port, shutdown := listenHTTP(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	defer shutdown()

	check, err := newHTTPCheck(Config{Type: "http", Port: fmt.Sprintf("%d", port), Host: "127.0.0.1"}, nil)
	assert.NilError(t, err)

	container := &entities.Container{Ship: &entities.Ship{IP: "10.255.255.1"}}
	assert.Assert(t, check.Test(context.Background(), container))
}

func TestHTTPCheckRejectsUnknownNamedPort(t *testing.T) {
	_, err := newHTTPCheck(Config{Type: "http", Port: "missing"}, map[string]entities.PortMapping{})
	assert.ErrorContains(t, err, "unknown port")
}
