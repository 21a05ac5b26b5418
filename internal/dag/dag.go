// Package dag implements topological ordering with cycle detection over the
// stage dependency graph, using Kahn's algorithm with deterministic
// tie-breaking.
package dag

import (
	"sort"

	stagekiterrors "github.com/stagekit-dev/stagekit/pkg/errors"
)

// Graph is a mapping from node name to the set of upstream names it depends on.
type Graph struct {
	upstreams map[string][]string
	nodes     map[string]bool
}

// New builds a Graph from a mapping of stage name -> its declared upstreams.
func New(upstreams map[string][]string) *Graph {
	nodes := make(map[string]bool, len(upstreams))
	for name := range upstreams {
		nodes[name] = true
	}
	for _, ups := range upstreams {
		for _, u := range ups {
			nodes[u] = true
		}
	}
	return &Graph{upstreams: upstreams, nodes: nodes}
}

// TopologicalOrder returns a linear order in which every upstream appears
// before its dependents. Ties are broken by sorting names, for determinism.
func (g *Graph) TopologicalOrder() ([]string, error) {
	emitted := make(map[string]bool, len(g.nodes))
	order := make([]string, 0, len(g.nodes))

	remaining := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		remaining = append(remaining, name)
	}
	sort.Strings(remaining)

	for len(remaining) > 0 {
		var ready []string
		var notReady []string
		for _, name := range remaining {
			if allEmitted(g.upstreams[name], emitted) {
				ready = append(ready, name)
			} else {
				notReady = append(notReady, name)
			}
		}

		if len(ready) == 0 {
			sort.Strings(notReady)
			return nil, &stagekiterrors.CircularDependencyError{Remaining: notReady}
		}

		sort.Strings(ready)
		for _, name := range ready {
			emitted[name] = true
			order = append(order, name)
		}
		remaining = notReady
	}

	return order, nil
}

func allEmitted(deps []string, emitted map[string]bool) bool {
	for _, d := range deps {
		if !emitted[d] {
			return false
		}
	}
	return true
}
