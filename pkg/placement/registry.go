package placement

import (
	"errors"
	"fmt"

	"github.com/matzehuels/growtree/pkg/graph"
)

// ErrAlreadyPlaced is returned when a node ID is registered twice.
// Positions are permanent for the lifetime of a run.
var ErrAlreadyPlaced = errors.New("node already has a position")

// Registry records every position assigned during a run, primary and derived
// alike. Placement checks candidates for clearance against it.
//
// The zero value is not usable - use NewRegistry.
type Registry struct {
	pos   map[string]graph.Position
	order []string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{pos: make(map[string]graph.Position)}
}

// Add records the position of id.
func (r *Registry) Add(id string, p graph.Position) error {
	if _, ok := r.pos[id]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyPlaced, id)
	}
	r.pos[id] = p
	r.order = append(r.order, id)
	return nil
}

// Position returns the recorded position of id.
func (r *Registry) Position(id string) (graph.Position, bool) {
	p, ok := r.pos[id]
	return p, ok
}

// Has reports whether id has a position.
func (r *Registry) Has(id string) bool {
	_, ok := r.pos[id]
	return ok
}

// Clear reports whether p is at least minDist away from every recorded position.
func (r *Registry) Clear(p graph.Position, minDist float64) bool {
	for _, id := range r.order {
		if p.Distance(r.pos[id]) < minDist {
			return false
		}
	}
	return true
}

// Len returns the number of recorded positions.
func (r *Registry) Len() int { return len(r.order) }

// IDs returns the registered IDs in registration order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Reset forgets every position.
func (r *Registry) Reset() {
	clear(r.pos)
	r.order = r.order[:0]
}
