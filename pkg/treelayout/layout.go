// Package treelayout assigns canvas positions to the primary hierarchy.
//
// The layout is a compact tidy tree: leaves are laid out left to right in
// pre-order, each parent is centered over its first and last child, and
// every depth gets its own row. Leaves that share a parent sit closer
// together than leaves of different parents. The root of the first tree is
// shifted to x = 0.
//
// Only positions are computed here. Which nodes are visible at any given
// moment is the scheduler's business.
package treelayout

import (
	"math"

	"github.com/matzehuels/growtree/pkg/graph"
)

// Options controls spacing. Zero fields take the defaults.
type Options struct {
	NodeWidth   float64 // Horizontal unit between adjacent leaves
	LevelHeight float64 // Vertical distance between depths
	SiblingSep  float64 // Leaf gap, in NodeWidth units, within one parent
	CousinSep   float64 // Leaf gap, in NodeWidth units, across parents
}

// DefaultOptions returns the stock spacing.
func DefaultOptions() Options {
	return Options{NodeWidth: 25, LevelHeight: 80, SiblingSep: 1.2, CousinSep: 2}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.NodeWidth <= 0 {
		o.NodeWidth = d.NodeWidth
	}
	if o.LevelHeight <= 0 {
		o.LevelHeight = d.LevelHeight
	}
	if o.SiblingSep <= 0 {
		o.SiblingSep = d.SiblingSep
	}
	if o.CousinSep <= 0 {
		o.CousinSep = d.CousinSep
	}
	return o
}

// Layout holds the computed positions. It satisfies reveal.Layout.
type Layout struct {
	pos   map[string]graph.Position
	order []string
}

// Position returns the position of a primary node.
func (l *Layout) Position(id string) (graph.Position, bool) {
	p, ok := l.pos[id]
	return p, ok
}

// Len returns the number of positioned nodes.
func (l *Layout) Len() int { return len(l.order) }

// Bounds returns the bounding box of all positions. An empty layout returns
// zeros.
func (l *Layout) Bounds() (minX, minY, maxX, maxY float64) {
	if len(l.order) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range l.pos {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}

type builder struct {
	g       *graph.Graph
	opts    Options
	x       map[string]float64
	seen    map[string]bool
	cursor  float64
	lastPar string
	placed  bool
}

// Compute lays out every primary node of g.
func Compute(g *graph.Graph, opts Options) *Layout {
	b := &builder{
		g:    g,
		opts: opts.withDefaults(),
		x:    make(map[string]float64),
		seen: make(map[string]bool),
	}
	for _, root := range g.Roots() {
		b.visit(root, "\x00root")
	}
	// Parent cycles are unreachable from any root; line them up as leaves.
	for _, n := range g.PrimaryNodes() {
		if !b.seen[n.ID] {
			b.seen[n.ID] = true
			b.x[n.ID] = b.leaf("\x00cycle")
		}
	}

	l := &Layout{pos: make(map[string]graph.Position, len(b.x))}
	order := g.PreOrder()
	shift := 0.0
	if len(order) > 0 {
		shift = b.x[order[0]]
	}
	for _, id := range order {
		n, _ := g.Primary(id)
		l.pos[id] = graph.Position{
			X: b.x[id] - shift,
			Y: float64(n.Depth) * b.opts.LevelHeight,
		}
		l.order = append(l.order, id)
	}
	return l
}

// visit returns the x of id after laying out its subtree.
func (b *builder) visit(id, parent string) float64 {
	b.seen[id] = true
	var first, last float64
	n := 0
	for _, c := range b.g.Children(id) {
		if b.seen[c] {
			continue
		}
		cx := b.visit(c, id)
		if n == 0 {
			first = cx
		}
		last = cx
		n++
	}
	if n == 0 {
		b.x[id] = b.leaf(parent)
	} else {
		b.x[id] = (first + last) / 2
	}
	return b.x[id]
}

// leaf assigns the next leaf slot.
func (b *builder) leaf(parent string) float64 {
	if b.placed {
		sep := b.opts.CousinSep
		if parent == b.lastPar {
			sep = b.opts.SiblingSep
		}
		b.cursor += sep * b.opts.NodeWidth
	}
	b.placed = true
	b.lastPar = parent
	return b.cursor
}
