// Package resolve orders derived nodes so that every node comes after the
// derived nodes it depends on.
//
// The ordering is a stable greedy topological sort: each pass scans the
// remaining nodes in input order and moves the first node whose derived
// sources are all resolved to the output, then starts over. Ties therefore
// always go to the node that appeared first in the input, and an input that
// is already dependency-respecting comes back unchanged.
//
// Nodes that can never be resolved (a cycle, or a derived source that no
// node defines) are not an error. They are left out of the order and listed
// in [Result.Excluded] so callers can report them.
//
// Primary sources play no part here; whether they are visible is a question
// for the scheduler at placement time.
package resolve

import (
	"slices"

	"github.com/matzehuels/growtree/pkg/graph"
)

// Exclusion names a node the resolver could not order and the derived
// sources that were never resolved.
type Exclusion struct {
	ID      string
	Missing []string
}

// Result is the outcome of [Resolve].
type Result struct {
	// Order lists the resolvable nodes, dependencies first.
	Order []graph.DerivedNode
	// Excluded lists the remaining nodes in input order.
	Excluded []Exclusion
}

// IDs returns the IDs of Order.
func (r Result) IDs() []string {
	ids := make([]string, len(r.Order))
	for i, n := range r.Order {
		ids[i] = n.ID
	}
	return ids
}

// Resolve sorts nodes by their derived-source dependencies.
// The input slice is not modified.
func Resolve(nodes []graph.DerivedNode) Result {
	remaining := slices.Clone(nodes)
	resolved := make(map[string]bool, len(nodes))
	order := make([]graph.DerivedNode, 0, len(nodes))

	for len(remaining) > 0 {
		i := slices.IndexFunc(remaining, func(n graph.DerivedNode) bool {
			return ready(n, resolved)
		})
		if i < 0 {
			break
		}
		n := remaining[i]
		order = append(order, n)
		resolved[n.ID] = true
		remaining = slices.Delete(remaining, i, i+1)
	}

	var excluded []Exclusion
	for _, n := range remaining {
		excluded = append(excluded, Exclusion{ID: n.ID, Missing: missing(n, resolved)})
	}
	return Result{Order: order, Excluded: excluded}
}

func ready(n graph.DerivedNode, resolved map[string]bool) bool {
	for _, s := range n.Sources {
		if s.Kind == graph.RefDerived && !resolved[s.ID] {
			return false
		}
	}
	return true
}

func missing(n graph.DerivedNode, resolved map[string]bool) []string {
	var out []string
	for _, s := range n.Sources {
		if s.Kind == graph.RefDerived && !resolved[s.ID] {
			out = append(out, s.ID)
		}
	}
	return out
}
