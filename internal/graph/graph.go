// Package graph implements the service-level dependency DAG used by the
// conductor: adjacency in both directions (requires / needed_for), cycle
// detection, and the iterative-peel topological ordering described in
// spec.md §4.3. The vertex/edge bookkeeping follows
// pkg/compose/dependencies.go (Graph/Vertex, mutex-guarded maps,
// HasCycles); the traversal strategy is rewritten because the conductor
// needs a single deterministic linear order with a stable name-sorted
// tie-break, not the teacher's recursive errgroup walk.
package graph

import (
	"fmt"
	"sort"
	"sync"
)

// Graph is a directed graph of named vertices with a "requires" edge from
// source to destination. The reverse index (who requires me) is
// maintained alongside so either direction can be walked without
// recomputation.
type Graph struct {
	mu       sync.RWMutex
	vertices map[string]*vertex
}

type vertex struct {
	name     string
	requires map[string]struct{} // forward edges: things this vertex depends on
	neededBy map[string]struct{} // reverse edges: things depending on this vertex
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{vertices: map[string]*vertex{}}
}

// AddVertex registers name if not already present.
func (g *Graph) AddVertex(name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.addVertexLocked(name)
}

func (g *Graph) addVertexLocked(name string) *vertex {
	if v, ok := g.vertices[name]; ok {
		return v
	}
	v := &vertex{name: name, requires: map[string]struct{}{}, neededBy: map[string]struct{}{}}
	g.vertices[name] = v
	return v
}

// AddEdge records that `from` requires `to`. Both vertices must already
// have been registered with AddVertex; an unknown endpoint is a
// programmer error in the caller (the conductor validates references
// before building edges) and returns an error rather than panicking.
func (g *Graph) AddEdge(from, to string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	src, ok := g.vertices[from]
	if !ok {
		return fmt.Errorf("unknown vertex %q", from)
	}
	dst, ok := g.vertices[to]
	if !ok {
		return fmt.Errorf("unknown vertex %q", to)
	}
	src.requires[to] = struct{}{}
	dst.neededBy[from] = struct{}{}
	return nil
}

// Requires returns the names this vertex directly depends on.
func (g *Graph) Requires(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return keys(g.vertices[name].requires)
}

// NeededFor returns the names directly depending on this vertex.
func (g *Graph) NeededFor(name string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return keys(g.vertices[name].neededBy)
}

func keys(m map[string]struct{}) []string {
	res := make([]string, 0, len(m))
	for k := range m {
		res = append(res, k)
	}
	sort.Strings(res)
	return res
}

// HasCycle reports whether the full graph contains a dependency cycle,
// returning the cycle path (vertex names, first repeated at the end) on
// the first one found.
func (g *Graph) HasCycle() (bool, []string) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := map[string]int{}
	var path []string

	var visit func(string) []string
	visit = func(name string) []string {
		color[name] = gray
		path = append(path, name)
		for _, dep := range keys(g.vertices[name].requires) {
			switch color[dep] {
			case gray:
				return append(append([]string{}, path...), dep)
			case white:
				if cyc := visit(dep); cyc != nil {
					return cyc
				}
			}
		}
		path = path[:len(path)-1]
		color[name] = black
		return nil
	}

	names := make([]string, 0, len(g.vertices))
	for n := range g.vertices {
		names = append(names, n)
	}
	sort.Strings(names)

	for _, n := range names {
		if color[n] == white {
			if cyc := visit(n); cyc != nil {
				return true, cyc
			}
		}
	}
	return false, nil
}

// Direction selects which adjacency the topological peel should consult:
// Forward walks "requires" edges (used by start/pull/status), Reverse
// walks "needed_for" edges (used by stop/restart so dependents act before
// their dependencies, per spec.md §4.3).
type Direction int

const (
	Forward Direction = iota
	Reverse
)

// TopologicalOrder orders the subset `set` (a restriction of the full
// graph) such that, for every vertex, all of its set-restricted
// dependencies (per direction) appear earlier in the result. It implements
// the iterative-peel algorithm from spec.md §4.3: repeatedly move into
// `ordered` every vertex whose unresolved dependency set (restricted to
// `set`) is empty; within one pass, candidates are considered in stable
// name-sorted order. If a pass makes no progress, the restricted subgraph
// has a cycle and ordering fails.
func (g *Graph) TopologicalOrder(set []string, dir Direction) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	inSet := make(map[string]struct{}, len(set))
	for _, n := range set {
		inSet[n] = struct{}{}
	}

	remaining := make(map[string]struct{}, len(set))
	for _, n := range set {
		remaining[n] = struct{}{}
	}

	ordered := make([]string, 0, len(set))
	done := map[string]struct{}{}

	deps := func(name string) []string {
		if dir == Forward {
			return keys(g.vertices[name].requires)
		}
		return keys(g.vertices[name].neededBy)
	}

	for len(remaining) > 0 {
		var ready []string
		for n := range remaining {
			resolved := true
			for _, d := range deps(n) {
				if _, relevant := inSet[d]; !relevant {
					continue
				}
				if _, isDone := done[d]; !isDone {
					resolved = false
					break
				}
			}
			if resolved {
				ready = append(ready, n)
			}
		}
		if len(ready) == 0 {
			var stuck []string
			for n := range remaining {
				stuck = append(stuck, n)
			}
			sort.Strings(stuck)
			return nil, fmt.Errorf("cannot resolve dependencies: cycle involving %v", stuck)
		}
		sort.Strings(ready)
		for _, n := range ready {
			ordered = append(ordered, n)
			done[n] = struct{}{}
			delete(remaining, n)
		}
	}

	return ordered, nil
}

// TransitiveClosure returns `seed` plus every vertex reachable from it by
// walking `dir` edges repeatedly (used to expand a user selection into the
// full set of containers that must be considered for ordering, per
// spec.md §4.3 "Transitive gathering").
func (g *Graph) TransitiveClosure(seed []string, dir Direction) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[string]struct{}{}
	var stack []string
	for _, s := range seed {
		if _, ok := visited[s]; !ok {
			visited[s] = struct{}{}
			stack = append(stack, s)
		}
	}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		var adj []string
		if dir == Forward {
			adj = keys(g.vertices[n].requires)
		} else {
			adj = keys(g.vertices[n].neededBy)
		}
		for _, a := range adj {
			if _, ok := visited[a]; !ok {
				visited[a] = struct{}{}
				stack = append(stack, a)
			}
		}
	}

	res := make([]string, 0, len(visited))
	for n := range visited {
		res = append(res, n)
	}
	sort.Strings(res)
	return res
}
