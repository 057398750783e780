// Package play implements the concurrent scheduler of spec.md §4.4: one
// worker goroutine per container, coordinated through a mutex/condition
// variable, a single-writer first-error cell, a "done" set, and a bounded
// counting semaphore for concurrency. Grounded on the scheduling shape
// described in the original maestro/plays/base.py (a condition-variable
// dependency barrier plus a semaphore, not docker-compose's recursive
// errgroup tree in pkg/compose/create.go) because spec.md §5 calls for
// exactly that coordination primitive set.
package play

import (
	"context"
	"sync"

	"github.com/maestroship/maestro/internal/graph"
	"github.com/maestroship/maestro/internal/merrors"
	"github.com/maestroship/maestro/pkg/audit"
	"github.com/maestroship/maestro/pkg/conductor"
	"github.com/maestroship/maestro/pkg/entities"
	"github.com/maestroship/maestro/pkg/output"
)

// TaskFunc drives a single container through its state machine; Play
// neither knows nor cares which verb it implements.
type TaskFunc func(ctx context.Context, c *entities.Container) error

// Options configure one Play run, per spec.md §4.4's documented inputs.
type Options struct {
	Direction          graph.Direction
	IgnoreDependencies bool
	Concurrency        int // 0 means unbounded (len(containers))
	Auditor            audit.Auditor
	Writer             output.Writer
}

// Play drives Containers through a TaskFunc respecting dependency order
// and a concurrency bound, per spec.md §4.4/§5.
type Play struct {
	containers []*entities.Container
	names      []string
	deps       map[string][]string
	fn         TaskFunc
	opts       Options

	mu       sync.Mutex
	cond     *sync.Cond
	done     map[string]bool
	failed   map[string]bool
	firstErr error
	aborted  bool

	sem chan struct{}
}

// New builds a Play over containers (already gathered and ordered by
// pkg/conductor.GatherAndOrder) restricting each container's dependency
// wait-list to the given set via pkg/conductor.RestrictedDeps.
func New(c *conductor.Conductor, containers []*entities.Container, fn TaskFunc, opts Options) *Play {
	names := make([]string, 0, len(containers))
	for _, ct := range containers {
		names = append(names, ct.Name)
	}

	deps := make(map[string][]string, len(names))
	for _, name := range names {
		deps[name] = c.RestrictedDeps(name, names, opts.Direction)
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = len(containers)
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	p := &Play{
		containers: containers,
		names:      names,
		deps:       deps,
		fn:         fn,
		opts:       opts,
		done:       map[string]bool{},
		failed:     map[string]bool{},
		sem:        make(chan struct{}, concurrency),
	}
	p.cond = sync.NewCond(&p.mu)
	if p.opts.Auditor == nil {
		p.opts.Auditor = audit.NopAuditor{}
	}
	return p
}

// Run executes the play to completion, per spec.md §4.4's "Completion":
// waits for every worker, then returns the first captured error, if any.
func (p *Play) Run(ctx context.Context) error {
	if err := p.opts.Auditor.Action(audit.LevelPlay, "play", "run"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Converts SIGINT/cancellation of the parent context into the
	// synthetic "Manual abort" first-error, per spec.md §4.4's last
	// invariant.
	go func() {
		<-ctx.Done()
		p.signalAbort(merrors.ErrManualAbort)
	}()

	var wg sync.WaitGroup
	for _, c := range p.containers {
		c := c
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.runWorker(runCtx, c)
		}()
	}
	wg.Wait()

	p.mu.Lock()
	err := p.firstErr
	p.mu.Unlock()

	if err != nil {
		p.opts.Auditor.Error("play", "run", err.Error())
		return err
	}
	p.opts.Auditor.Success(audit.LevelPlay, "play", "run")
	return nil
}

func (p *Play) runWorker(ctx context.Context, c *entities.Container) {
	p.publish(output.Waiting(c.Name))

	ok := p.waitForDeps(c.Name)
	if !ok {
		p.publish(output.Aborted(c.Name))
		return
	}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		p.publish(output.Aborted(c.Name))
		return
	}
	defer func() { <-p.sem }()

	err := p.fn(ctx, c)

	p.mu.Lock()
	switch {
	case err == nil:
		p.done[c.Name] = true
	case merrors.IsStopFailure(err):
		// Non-fatal per spec.md §7/§8 scenario 6: the container's stop
		// failed, but the play continues and the exit code stays 0 if
		// nothing else raises, so neither firstErr nor aborted is set.
		p.failed[c.Name] = true
	default:
		p.failed[c.Name] = true
		if p.firstErr == nil {
			p.firstErr = err
			p.aborted = true
		}
	}
	p.cond.Broadcast()
	p.mu.Unlock()
}

// waitForDeps blocks until every restricted dependency of name is in
// `done`, ignore_dependencies is set, abort has been signaled, or one of
// those dependencies has failed. It returns false on abort or on a failed
// dependency.
func (p *Play) waitForDeps(name string) bool {
	if p.opts.IgnoreDependencies {
		return true
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for {
		if p.aborted {
			return false
		}
		if p.depsSatisfiedLocked(name) {
			return true
		}
		if p.anyDepFailedLocked(name) {
			return false
		}
		p.cond.Wait()
	}
}

func (p *Play) depsSatisfiedLocked(name string) bool {
	for _, dep := range p.deps[name] {
		if !p.done[dep] {
			return false
		}
	}
	return true
}

func (p *Play) anyDepFailedLocked(name string) bool {
	for _, dep := range p.deps[name] {
		if p.failed[dep] {
			return true
		}
	}
	return false
}

func (p *Play) signalAbort(err error) {
	p.mu.Lock()
	if p.firstErr == nil {
		p.firstErr = err
	}
	p.aborted = true
	p.mu.Unlock()
	p.cond.Broadcast()
}

func (p *Play) publish(e output.Event) {
	if p.opts.Writer != nil {
		p.opts.Writer.Event(e)
	}
}
