package task

import (
	"context"
	"sync"
	"time"

	"github.com/maestroship/maestro/pkg/audit"
	"github.com/maestroship/maestro/pkg/engine"
	"github.com/maestroship/maestro/pkg/entities"
	"github.com/maestroship/maestro/pkg/output"
)

// fakeClient is a programmable engine.Client used to drive Task state
// machines without a real Docker engine. Create/Start/Stop/Remove mutate
// the same in-memory status Inspect reports, so a test can assert on the
// sequence of published events and on terminal state together.
type fakeClient struct {
	mu sync.Mutex

	exists     bool
	running    bool
	imageID    string
	shortID    string
	startedAt  time.Time
	finishedAt time.Time

	images     []engine.ImageRecord
	pullEvents []engine.PullEvent
	logTail    string

	createErr error
	startErr  error
	stopErr   error
	removeErr error
	pullErr   error
	loginErr  error

	createCalls int
	startCalls  int
	stopCalls   int
	removeCalls int
	pullCalls   int
	loginCalls  []engine.AuthConfig
}

func (f *fakeClient) Inspect(ctx context.Context, name string) (*entities.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &entities.Status{
		Exists:     f.exists,
		Running:    f.running,
		ShortID:    f.shortID,
		ImageID:    f.imageID,
		StartedAt:  f.startedAt,
		FinishedAt: f.finishedAt,
	}, nil
}

func (f *fakeClient) Images(ctx context.Context, repo string) ([]engine.ImageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.images, nil
}

func (f *fakeClient) Create(ctx context.Context, spec engine.CreateSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return "", f.createErr
	}
	f.exists = true
	f.shortID = "abc123"
	return "abc123", nil
}

func (f *fakeClient) Start(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.startCalls++
	if f.startErr != nil {
		return f.startErr
	}
	f.running = true
	f.startedAt = time.Now()
	return nil
}

func (f *fakeClient) Stop(ctx context.Context, id string, timeout time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopCalls++
	if f.stopErr != nil {
		return f.stopErr
	}
	f.running = false
	f.finishedAt = time.Now()
	return nil
}

func (f *fakeClient) Remove(ctx context.Context, id string, removeVolumes bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeCalls++
	if f.removeErr != nil {
		return f.removeErr
	}
	f.exists = false
	return nil
}

func (f *fakeClient) Logs(ctx context.Context, id string, tail int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.logTail, nil
}

func (f *fakeClient) Pull(ctx context.Context, image string, auth *engine.AuthConfig) (<-chan engine.PullEvent, error) {
	f.mu.Lock()
	f.pullCalls++
	f.mu.Unlock()
	if f.pullErr != nil {
		return nil, f.pullErr
	}
	ch := make(chan engine.PullEvent, len(f.pullEvents))
	for _, e := range f.pullEvents {
		ch <- e
	}
	close(ch)
	return ch, nil
}

func (f *fakeClient) Login(ctx context.Context, registry string, auth engine.AuthConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls = append(f.loginCalls, auth)
	return f.loginErr
}

func (f *fakeClient) ExecCreate(ctx context.Context, containerID string, cmd []string) (string, error) {
	return "exec1", nil
}

func (f *fakeClient) ExecStart(ctx context.Context, execID string) error { return nil }

func (f *fakeClient) ExecInspect(ctx context.Context, execID string) (engine.ExecResult, error) {
	return engine.ExecResult{ExitCode: 0, Running: false}, nil
}

func (f *fakeClient) Close() error { return nil }

// fakeWriter records every published event for assertions.
type fakeWriter struct {
	mu     sync.Mutex
	events []output.Event
}

func (w *fakeWriter) Start(context.Context) error { return nil }
func (w *fakeWriter) Stop()                       {}

func (w *fakeWriter) Event(e output.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, e)
}

func (w *fakeWriter) texts() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.events))
	for i, e := range w.events {
		out[i] = e.Text
	}
	return out
}

// fakeCheck is a programmable entities.LifecycleCheck used to gate (or
// force past) a Task's checkForState gates without a real tcp/http probe.
type fakeCheck struct {
	name   string
	result bool
}

func (c fakeCheck) Test(ctx context.Context, container *entities.Container) bool { return c.result }
func (c fakeCheck) String() string                                              { return c.name }

// clientFromContextCheck records whether engine.FromContext(ctx) resolved
// to a non-nil Client, the way the rexec variant does, without needing a
// real exec round trip.
type clientFromContextCheck struct {
	name     string
	sawClient *bool
}

func (c clientFromContextCheck) Test(ctx context.Context, container *entities.Container) bool {
	*c.sawClient = engine.FromContext(ctx) != nil
	return true
}
func (c clientFromContextCheck) String() string { return c.name }

func newTestTask(client *fakeClient, writer *fakeWriter) *Task {
	ship := &entities.Ship{Name: "ship1", IP: "10.0.0.1"}
	container := &entities.Container{
		Name:      "web.1",
		Image:     "org/web:latest",
		Ship:      ship,
		Env:       map[string]string{},
		Lifecycle: map[string][]entities.LifecycleCheck{},
	}
	return &Task{
		Container: container,
		Client:    client,
		Writer:    writer,
		Auditor:   audit.NopAuditor{},
	}
}
