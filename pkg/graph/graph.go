package graph

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddPrimary] and [Graph.AddDerived]
	// when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned when a node with the same ID already
	// exists. Primary and derived nodes share one namespace.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrInvalidDepth is returned for a negative depth.
	ErrInvalidDepth = errors.New("depth must not be negative")

	// ErrDepthMismatch is returned by [Graph.Validate] when a node's depth is
	// not its parent's depth plus one. Nodes whose parent is absent are not
	// checked.
	ErrDepthMismatch = errors.New("depth must be parent depth + 1")

	// ErrNoSources is returned by [Graph.AddDerived] for a derived node with
	// an empty source list.
	ErrNoSources = errors.New("derived node has no sources")

	// ErrInvalidCategory is returned for a category other than
	// interpretation or action.
	ErrInvalidCategory = errors.New("invalid category")

	// ErrInvalidReference is returned for a source reference with an unknown
	// kind or an empty ID.
	ErrInvalidReference = errors.New("invalid source reference")
)

// Graph holds the primary hierarchy and the derived overlay of one run.
//
// Nodes keep their insertion order; that order is significant to both the
// reveal scan (siblings) and the dependency resolver (ties).
//
// The zero value is not usable - use New.
type Graph struct {
	primary  []PrimaryNode
	derived  []DerivedNode
	pIndex   map[string]int
	dIndex   map[string]int
	children map[string][]string
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		pIndex:   make(map[string]int),
		dIndex:   make(map[string]int),
		children: make(map[string][]string),
	}
}

// AddPrimary appends a primary node. The parent need not exist yet, or at all.
func (g *Graph) AddPrimary(n PrimaryNode) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if g.has(n.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
	}
	if n.Depth < 0 {
		return fmt.Errorf("%w: %s has depth %d", ErrInvalidDepth, n.ID, n.Depth)
	}
	n.Content = maps.Clone(n.Content)
	g.pIndex[n.ID] = len(g.primary)
	g.primary = append(g.primary, n)
	if n.ParentID != "" {
		g.children[n.ParentID] = append(g.children[n.ParentID], n.ID)
	}
	return nil
}

// AddDerived appends a derived node. Sources and targets may name nodes that
// are not in the graph; the resolver and scheduler deal with those.
func (g *Graph) AddDerived(n DerivedNode) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if g.has(n.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
	}
	if len(n.Sources) == 0 {
		return fmt.Errorf("%w: %s", ErrNoSources, n.ID)
	}
	if !n.Category.Valid() {
		return fmt.Errorf("%w: %s has %q", ErrInvalidCategory, n.ID, n.Category)
	}
	for _, s := range n.Sources {
		if !s.Valid() {
			return fmt.Errorf("%w: %s", ErrInvalidReference, n.ID)
		}
	}
	n.Sources = slices.Clone(n.Sources)
	n.Targets = slices.Clone(n.Targets)
	n.Content = maps.Clone(n.Content)
	g.dIndex[n.ID] = len(g.derived)
	g.derived = append(g.derived, n)
	return nil
}

func (g *Graph) has(id string) bool {
	_, p := g.pIndex[id]
	_, d := g.dIndex[id]
	return p || d
}

// Primary returns the primary node with the given ID.
func (g *Graph) Primary(id string) (PrimaryNode, bool) {
	i, ok := g.pIndex[id]
	if !ok {
		return PrimaryNode{}, false
	}
	return g.primary[i], true
}

// Derived returns the derived node with the given ID.
func (g *Graph) Derived(id string) (DerivedNode, bool) {
	i, ok := g.dIndex[id]
	if !ok {
		return DerivedNode{}, false
	}
	return g.derived[i], true
}

// PrimaryNodes returns the primary nodes in insertion order.
func (g *Graph) PrimaryNodes() []PrimaryNode { return slices.Clone(g.primary) }

// DerivedNodes returns the derived nodes in insertion order.
func (g *Graph) DerivedNodes() []DerivedNode { return slices.Clone(g.derived) }

// PrimaryCount returns the number of primary nodes.
func (g *Graph) PrimaryCount() int { return len(g.primary) }

// DerivedCount returns the number of derived nodes.
func (g *Graph) DerivedCount() int { return len(g.derived) }

// Children returns the IDs of the primary nodes whose parent is id, in
// insertion order.
func (g *Graph) Children(id string) []string { return slices.Clone(g.children[id]) }

// Roots returns the primary nodes whose parent is empty or absent from the
// graph, in insertion order.
func (g *Graph) Roots() []string {
	var out []string
	for _, n := range g.primary {
		if n.ParentID == "" {
			out = append(out, n.ID)
			continue
		}
		if _, ok := g.pIndex[n.ParentID]; !ok {
			out = append(out, n.ID)
		}
	}
	return out
}

// MaxDepth returns the largest primary depth, or -1 for an empty hierarchy.
func (g *Graph) MaxDepth() int {
	deepest := -1
	for _, n := range g.primary {
		deepest = max(deepest, n.Depth)
	}
	return deepest
}

// PreOrder returns primary IDs in depth-first pre-order discovery: roots in
// insertion order, children in insertion order. Nodes that cannot be reached
// from a root (parent cycles) follow in insertion order.
func (g *Graph) PreOrder() []string {
	out := make([]string, 0, len(g.primary))
	seen := make(map[string]bool, len(g.primary))

	var stack []string
	visit := func(root string) {
		stack = append(stack[:0], root)
		for len(stack) > 0 {
			id := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if seen[id] {
				continue
			}
			seen[id] = true
			out = append(out, id)
			kids := g.children[id]
			for i := len(kids) - 1; i >= 0; i-- {
				if !seen[kids[i]] {
					stack = append(stack, kids[i])
				}
			}
		}
	}

	for _, id := range g.Roots() {
		visit(id)
	}
	for _, n := range g.primary {
		if !seen[n.ID] {
			seen[n.ID] = true
			out = append(out, n.ID)
		}
	}
	return out
}

// PrimaryOrder returns primary nodes sorted by depth ascending, then by
// pre-order discovery index. This is the order the reveal scan walks.
func (g *Graph) PrimaryOrder() []PrimaryNode {
	rank := make(map[string]int, len(g.primary))
	for i, id := range g.PreOrder() {
		rank[id] = i
	}
	out := slices.Clone(g.primary)
	slices.SortStableFunc(out, func(a, b PrimaryNode) int {
		if a.Depth != b.Depth {
			return a.Depth - b.Depth
		}
		return rank[a.ID] - rank[b.ID]
	})
	return out
}

// Validate checks depth consistency between every primary node and its parent,
// when the parent is present. Dangling references are not errors.
func (g *Graph) Validate() error {
	for _, n := range g.primary {
		if n.ParentID == "" {
			continue
		}
		p, ok := g.Primary(n.ParentID)
		if !ok {
			continue
		}
		if n.Depth != p.Depth+1 {
			return fmt.Errorf("%w: %s at depth %d, parent %s at depth %d",
				ErrDepthMismatch, n.ID, n.Depth, p.ID, p.Depth)
		}
	}
	return nil
}
