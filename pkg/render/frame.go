package render

import (
	"math"

	"github.com/matzehuels/growtree/pkg/graph"
	"github.com/matzehuels/growtree/pkg/reveal"
)

// PrimaryMark is a visible primary node.
type PrimaryMark struct {
	ID       string
	Label    string
	ParentID string
	Depth    int
	Position graph.Position
}

// DerivedMark is a placed derived node.
type DerivedMark struct {
	ID       string
	Label    string
	Category graph.Category
	Position graph.Position
	Fallback bool
}

// Frame is a snapshot of everything on the canvas at one moment of a run.
type Frame struct {
	RunID     string
	Primary   []PrimaryMark
	Derived   []DerivedMark
	TreeLinks []graph.Edge // parent -> child, both visible
	Links     []graph.Edge // overlay edges in creation order
}

// Snapshot captures the current state of s. Primary nodes without a layout
// position are left out.
func Snapshot(s *reveal.Scheduler, layout reveal.Layout) Frame {
	g := s.Graph()
	f := Frame{RunID: s.RunID()}

	placed := make(map[string]bool)
	for _, id := range s.VisibleIDs() {
		n, ok := g.Primary(id)
		if !ok {
			continue
		}
		pos, ok := layout.Position(id)
		if !ok {
			continue
		}
		f.Primary = append(f.Primary, PrimaryMark{
			ID: id, Label: n.Label(), ParentID: n.ParentID, Depth: n.Depth, Position: pos,
		})
		placed[id] = true
	}
	for _, m := range f.Primary {
		if m.ParentID != "" && placed[m.ParentID] {
			f.TreeLinks = append(f.TreeLinks, graph.Edge{Source: m.ParentID, Target: m.ID})
		}
	}

	for _, p := range s.Cache().Nodes() {
		f.Derived = append(f.Derived, DerivedMark{
			ID:       p.ID(),
			Label:    p.Node.Label(),
			Category: p.Node.Category.Effective(),
			Position: p.Position,
			Fallback: p.Fallback,
		})
	}
	f.Links = s.Cache().Edges()
	return f
}

// positions indexes every node position in the frame.
func (f Frame) positions() map[string]graph.Position {
	out := make(map[string]graph.Position, len(f.Primary)+len(f.Derived))
	for _, m := range f.Primary {
		out[m.ID] = m.Position
	}
	for _, m := range f.Derived {
		out[m.ID] = m.Position
	}
	return out
}

// Bounds returns the bounding box of all marks.
func (f Frame) Bounds() (minX, minY, maxX, maxY float64) {
	if len(f.Primary)+len(f.Derived) == 0 {
		return 0, 0, 0, 0
	}
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	for _, p := range f.positions() {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY
}
