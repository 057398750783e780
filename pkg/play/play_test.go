package play

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gotest.tools/v3/assert"

	"github.com/maestroship/maestro/internal/graph"
	"github.com/maestroship/maestro/internal/merrors"
	"github.com/maestroship/maestro/pkg/conductor"
	"github.com/maestroship/maestro/pkg/config"
	"github.com/maestroship/maestro/pkg/entities"
)

const chainEnv = `
name: demo
ships:
  ship1: {ip: 10.0.0.1}
services:
  db:
    image: org/db:latest
    instances:
      db.1: {ship: ship1}
  web:
    image: org/web:latest
    requires: [db]
    instances:
      web.1: {ship: ship1}
`

func buildChainConductor(t *testing.T) *conductor.Conductor {
	t.Helper()
	doc, err := config.Load(strings.NewReader(chainEnv), "env.yaml")
	assert.NilError(t, err)
	c, err := conductor.Build(doc)
	assert.NilError(t, err)
	return c
}

func gather(t *testing.T, c *conductor.Conductor, dir graph.Direction) []*entities.Container {
	t.Helper()
	containers, err := c.GatherAndOrder([]string{"web.1", "db.1"}, dir)
	assert.NilError(t, err)
	return containers
}

func TestRunRespectsDependencyOrder(t *testing.T) {
	c := buildChainConductor(t)
	containers := gather(t, c, graph.Forward)

	var mu sync.Mutex
	var order []string
	dbStarted := make(chan struct{})

	fn := func(_ context.Context, ct *entities.Container) error {
		if ct.Name == "db.1" {
			time.Sleep(20 * time.Millisecond)
			close(dbStarted)
		} else {
			<-dbStarted
		}
		mu.Lock()
		order = append(order, ct.Name)
		mu.Unlock()
		return nil
	}

	p := New(c, containers, fn, Options{Direction: graph.Forward})
	err := p.Run(context.Background())
	assert.NilError(t, err)
	assert.DeepEqual(t, order, []string{"db.1", "web.1"})
}

func TestRunConcurrencyBoundIsEnforced(t *testing.T) {
	env := `
name: demo
ships:
  ship1: {ip: 10.0.0.1}
services:
  worker:
    image: org/worker:latest
    instances:
      worker.1: {ship: ship1}
      worker.2: {ship: ship1}
      worker.3: {ship: ship1}
`
	doc, err := config.Load(strings.NewReader(env), "env.yaml")
	assert.NilError(t, err)
	c, err := conductor.Build(doc)
	assert.NilError(t, err)
	containers, err := c.GatherAndOrder([]string{"worker.1", "worker.2", "worker.3"}, graph.Forward)
	assert.NilError(t, err)

	var current, max int32
	fn := func(_ context.Context, _ *entities.Container) error {
		n := atomic.AddInt32(&current, 1)
		for {
			m := atomic.LoadInt32(&max)
			if n <= m || atomic.CompareAndSwapInt32(&max, m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		return nil
	}

	p := New(c, containers, fn, Options{Direction: graph.Forward, Concurrency: 1})
	err = p.Run(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, atomic.LoadInt32(&max), int32(1))
}

func TestRunAbortsDependentsOnDependencyFailure(t *testing.T) {
	c := buildChainConductor(t)
	containers := gather(t, c, graph.Forward)

	var webCalled int32
	failFn := func(_ context.Context, ct *entities.Container) error {
		if ct.Name == "db.1" {
			return errFailDb
		}
		atomic.AddInt32(&webCalled, 1)
		return nil
	}

	p := New(c, containers, failFn, Options{Direction: graph.Forward})
	err := p.Run(context.Background())
	assert.ErrorContains(t, err, "db failed")
	assert.Equal(t, atomic.LoadInt32(&webCalled), int32(0))
}

func TestRunIgnoreDependenciesBypassesFailure(t *testing.T) {
	c := buildChainConductor(t)
	containers := gather(t, c, graph.Forward)

	var webCalled int32
	fn := func(_ context.Context, ct *entities.Container) error {
		if ct.Name == "db.1" {
			return errFailDb
		}
		atomic.AddInt32(&webCalled, 1)
		return nil
	}

	p := New(c, containers, fn, Options{Direction: graph.Forward, IgnoreDependencies: true})
	err := p.Run(context.Background())
	assert.ErrorContains(t, err, "db failed")
	assert.Equal(t, atomic.LoadInt32(&webCalled), int32(1))
}

func TestRunSignalsManualAbortOnContextCancel(t *testing.T) {
	c := buildChainConductor(t)
	containers := gather(t, c, graph.Forward)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})

	fn := func(ctx context.Context, ct *entities.Container) error {
		if ct.Name == "db.1" {
			close(started)
			<-ctx.Done()
		}
		return nil
	}

	p := New(c, containers, fn, Options{Direction: graph.Forward})
	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()

	<-started
	cancel()

	err := <-errCh
	assert.Assert(t, merrors.IsManualAbort(err))
}

func TestRunStopFailureIsNonFatal(t *testing.T) {
	env := `
name: demo
ships:
  ship1: {ip: 10.0.0.1}
services:
  worker:
    image: org/worker:latest
    instances:
      worker.1: {ship: ship1}
      worker.2: {ship: ship1}
`
	doc, err := config.Load(strings.NewReader(env), "env.yaml")
	assert.NilError(t, err)
	c, err := conductor.Build(doc)
	assert.NilError(t, err)
	containers, err := c.GatherAndOrder([]string{"worker.1", "worker.2"}, graph.Forward)
	assert.NilError(t, err)

	var worker2Called int32
	fn := func(_ context.Context, ct *entities.Container) error {
		if ct.Name == "worker.1" {
			return merrors.StopFailure{Container: ct.Name, Reason: "post-stop checks failed"}
		}
		atomic.AddInt32(&worker2Called, 1)
		return nil
	}

	p := New(c, containers, fn, Options{Direction: graph.Forward})
	err = p.Run(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, atomic.LoadInt32(&worker2Called), int32(1))
}

var errFailDb = errDbFailed{}

type errDbFailed struct{}

func (errDbFailed) Error() string { return "db failed" }
