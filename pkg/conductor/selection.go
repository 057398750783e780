package conductor

import (
	"sort"

	"github.com/maestroship/maestro/internal/graph"
	"github.com/maestroship/maestro/internal/merrors"
	"github.com/maestroship/maestro/pkg/entities"
)

// ExpandThings implements spec.md §4.3's selection expansion: each token
// names either a service (expanding to every registered container) or a
// container (expanding to itself); an unrecognized token is a
// configuration error. The result is de-duplicated and name-sorted so
// it composes deterministically with GatherAndOrder.
func (c *Conductor) ExpandThings(things []string) ([]string, error) {
	if len(things) == 0 {
		things = c.defaultThings()
	}

	seen := map[string]bool{}
	var out []string
	for _, token := range things {
		if svc, ok := c.Services[token]; ok {
			for name := range svc.Instances {
				if !seen[name] {
					seen[name] = true
					out = append(out, name)
				}
			}
			continue
		}
		if _, ok := c.Containers[token]; ok {
			if !seen[token] {
				seen[token] = true
				out = append(out, token)
			}
			continue
		}
		return nil, merrors.NewConfigurationError("unknown service or container %q", token)
	}

	sort.Strings(out)
	return out, nil
}

// defaultThings is every container of every non-omitted service, matching
// the CLI's "no things given" default (spec.md §6's `status`/`pull`/etc.
// behave over the whole environment when no selection is given; a
// service's `omit` flag excludes it from this default, per spec.md §3).
func (c *Conductor) defaultThings() []string {
	var names []string
	for svcName := range c.Services {
		names = append(names, svcName)
	}
	sort.Strings(names)

	var out []string
	for _, svcName := range names {
		svc := c.Services[svcName]
		if svc.Omit {
			continue
		}
		for name := range svc.Instances {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// GatherAndOrder performs spec.md §4.3's transitive gathering and
// topological ordering: the initial container set is expanded to include
// every container belonging to a service reachable via the chosen
// direction, then linearized so each container's restricted dependencies
// (same direction) precede it. Reverse operations (stop, restart) pass
// graph.Reverse so dependents are ordered before their dependencies.
func (c *Conductor) GatherAndOrder(things []string, dir graph.Direction) ([]*entities.Container, error) {
	gathered := c.ContainerGraph.TransitiveClosure(things, dir)

	ordered, err := c.ContainerGraph.TopologicalOrder(gathered, dir)
	if err != nil {
		return nil, merrors.WrapConfigurationError(err)
	}

	containers := make([]*entities.Container, 0, len(ordered))
	for _, name := range ordered {
		containers = append(containers, c.Containers[name])
	}
	return containers, nil
}

// RestrictedDeps returns name's dependencies per dir, restricted to the
// given container set — the per-container "wait for" list a Play worker
// blocks on (spec.md §4.4).
func (c *Conductor) RestrictedDeps(name string, set []string, dir graph.Direction) []string {
	inSet := make(map[string]struct{}, len(set))
	for _, n := range set {
		inSet[n] = struct{}{}
	}

	var all []string
	if dir == graph.Forward {
		all = c.ContainerGraph.Requires(name)
	} else {
		all = c.ContainerGraph.NeededFor(name)
	}

	var out []string
	for _, d := range all {
		if _, ok := inSet[d]; ok {
			out = append(out, d)
		}
	}
	return out
}
