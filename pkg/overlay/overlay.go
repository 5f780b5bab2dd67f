// Package overlay holds the per-run record of which derived nodes and edges
// have been drawn.
//
// The cache is the single source of truth for create-or-skip: a node or
// edge is created only when the cache does not know it yet, so repeated draw
// passes over the same input create nothing new. The scheduler owns one
// Cache and resets it at the start of every run.
package overlay

import (
	"slices"

	"github.com/matzehuels/growtree/pkg/graph"
)

// PlacedNode is a derived node with its final position.
type PlacedNode struct {
	Node     graph.DerivedNode
	Position graph.Position
	Fallback bool
}

// ID returns the derived node ID.
func (p PlacedNode) ID() string { return p.Node.ID }

// Cache records placed derived nodes and created edges in insertion order.
// It is not safe for concurrent use.
type Cache struct {
	nodes     map[string]int
	nodeOrder []PlacedNode
	edges     map[graph.Edge]struct{}
	edgeOrder []graph.Edge
}

// New creates an empty Cache.
func New() *Cache {
	return &Cache{
		nodes: make(map[string]int),
		edges: make(map[graph.Edge]struct{}),
	}
}

// HasNode reports whether a derived node with id has been placed.
func (c *Cache) HasNode(id string) bool {
	_, ok := c.nodes[id]
	return ok
}

// PutNode records n and reports whether it was new. An existing entry is
// left untouched.
func (c *Cache) PutNode(n PlacedNode) bool {
	if c.HasNode(n.ID()) {
		return false
	}
	c.nodes[n.ID()] = len(c.nodeOrder)
	c.nodeOrder = append(c.nodeOrder, n)
	return true
}

// Node returns the placed node with id.
func (c *Cache) Node(id string) (PlacedNode, bool) {
	i, ok := c.nodes[id]
	if !ok {
		return PlacedNode{}, false
	}
	return c.nodeOrder[i], true
}

// HasEdge reports whether the ordered edge e exists.
func (c *Cache) HasEdge(e graph.Edge) bool {
	_, ok := c.edges[e]
	return ok
}

// PutEdge records e and reports whether it was new.
func (c *Cache) PutEdge(e graph.Edge) bool {
	if c.HasEdge(e) {
		return false
	}
	c.edges[e] = struct{}{}
	c.edgeOrder = append(c.edgeOrder, e)
	return true
}

// Nodes returns placed nodes in placement order.
func (c *Cache) Nodes() []PlacedNode { return slices.Clone(c.nodeOrder) }

// Edges returns edges in creation order.
func (c *Cache) Edges() []graph.Edge { return slices.Clone(c.edgeOrder) }

// NodeCount returns the number of placed nodes.
func (c *Cache) NodeCount() int { return len(c.nodeOrder) }

// EdgeCount returns the number of edges.
func (c *Cache) EdgeCount() int { return len(c.edgeOrder) }

// Reset empties the cache for a new run.
func (c *Cache) Reset() {
	clear(c.nodes)
	clear(c.edges)
	c.nodeOrder = nil
	c.edgeOrder = nil
}
