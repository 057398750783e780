package lifecycle

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/maestroship/maestro/pkg/entities"
)

type httpCheck struct {
	label       string
	literalPort int // used when cfg.Port parses as a bare number rather than a named port
	portName    string
	port        entities.Port
	method      string
	path        string
	scheme      string
	host        string
	match       *regexp.Regexp
	deadline    time.Duration
	client      *http.Client
}

func newHTTPCheck(cfg Config, ports map[string]entities.PortMapping) (entities.LifecycleCheck, error) {
	method := cfg.Method
	if method == "" {
		method = http.MethodGet
	}
	scheme := cfg.Scheme
	if scheme == "" {
		scheme = "http"
	}
	path := cfg.Path
	if path == "" {
		path = "/"
	}

	match, err := compileMatch(cfg.Match)
	if err != nil {
		return nil, err
	}

	deadline := defaultHTTPDeadline
	if cfg.Timeout > 0 {
		deadline = time.Duration(cfg.Timeout) * time.Second
	}

	check := &httpCheck{
		method:   method,
		path:     path,
		scheme:   scheme,
		host:     cfg.Host,
		match:    match,
		deadline: deadline,
		client:   &http.Client{Timeout: 5 * time.Second},
	}

	if n, err := strconv.Atoi(cfg.Port); err == nil {
		check.literalPort = n
		check.label = fmt.Sprintf("http:%d", n)
		return check, nil
	}

	port, err := resolvePort(cfg.Port, ports)
	if err != nil {
		return nil, err
	}
	check.portName = cfg.Port
	check.port = port
	check.label = fmt.Sprintf("http:%s", cfg.Port)
	return check, nil
}

func (c *httpCheck) String() string { return c.label }

func (c *httpCheck) targetPort() int {
	if c.literalPort != 0 {
		return c.literalPort
	}
	return c.port.Number
}

func (c *httpCheck) Test(ctx context.Context, container *entities.Container) bool {
	deadline := time.Now().Add(c.deadline)
	host := container.Ship.IP
	if c.host != "" {
		host = c.host
	}
	url := fmt.Sprintf("%s://%s:%d%s", c.scheme, host, c.targetPort(), c.path)

	for time.Now().Before(deadline) {
		if ctx.Err() != nil {
			return false
		}
		if c.attempt(ctx, url) {
			return true
		}
		if !sleepWithContext(ctx, retryBackoff) {
			return false
		}
	}
	return false
}

func (c *httpCheck) attempt(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, c.method, url, nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if c.match != nil {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		return c.match.Match(body)
	}
	return resp.StatusCode == http.StatusOK
}
