package graph

import (
	"fmt"
	"math"
)

// Category classifies a derived node. Only the two values below exist.
type Category string

const (
	// CategoryInterpretation marks a derived node that interprets data.
	// It is also what the zero Category renders as.
	CategoryInterpretation Category = "interpretation"
	// CategoryAction marks a derived node that prescribes a processing step.
	CategoryAction Category = "action"
)

// ParseCategory maps a wire string to a Category. The empty string yields
// [CategoryInterpretation]; anything else unknown is [ErrInvalidCategory].
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case "", CategoryInterpretation:
		return CategoryInterpretation, nil
	case CategoryAction:
		return CategoryAction, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
}

// Effective returns c with the zero value mapped to interpretation.
func (c Category) Effective() Category {
	if c == "" {
		return CategoryInterpretation
	}
	return c
}

// Valid reports whether c is the zero value or one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case "", CategoryInterpretation, CategoryAction:
		return true
	}
	return false
}

// PrimaryNode is a vertex of the primary hierarchy.
type PrimaryNode struct {
	ID       string         // Unique identifier
	ParentID string         // Parent identifier ("" for a forest root)
	Depth    int            // Distance from the forest root (roots are 0)
	Title    string         // Display title (defaults to ID)
	Content  map[string]any // Opaque payload shown in tooltips
}

// IsRoot reports whether n has no parent.
func (n PrimaryNode) IsRoot() bool { return n.ParentID == "" }

// Label returns the title if set, otherwise the ID.
func (n PrimaryNode) Label() string {
	if n.Title != "" {
		return n.Title
	}
	return n.ID
}

// DerivedNode is an inference computed from primary and other derived nodes.
type DerivedNode struct {
	ID       string
	Title    string
	Category Category
	// Sources are the nodes this one was derived from. Never empty.
	Sources []Reference
	// Targets name derived nodes this one leads to. Edges towards targets are
	// only drawn once the target has been placed.
	Targets []string
	Content map[string]any
}

// Label returns the title if set, otherwise the ID.
func (n DerivedNode) Label() string {
	if n.Title != "" {
		return n.Title
	}
	return n.ID
}

// HasDerivedSource reports whether any source is derived.
func (n DerivedNode) HasDerivedSource() bool {
	for _, s := range n.Sources {
		if s.IsDerived() {
			return true
		}
	}
	return false
}

// Position is a point on the drawing canvas. Y grows downward.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance between p and q.
func (p Position) Distance(q Position) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Add returns p translated by (dx, dy).
func (p Position) Add(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Edge is a directed connection. Its identity is the ordered pair.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Key returns the canonical "source->target" string.
func (e Edge) Key() string { return e.Source + "->" + e.Target }
