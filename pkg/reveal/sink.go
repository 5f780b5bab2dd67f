package reveal

import (
	"github.com/charmbracelet/log"

	"github.com/matzehuels/growtree/pkg/graph"
)

// Sink receives the visible effects of a run, in order.
//
// Calls happen on the goroutine that drives Tick. Implementations must not
// call back into the scheduler.
type Sink interface {
	// Reveal is called when a primary node becomes visible.
	Reveal(id string)
	// PlaceDerived is called once per derived node with its final position.
	PlaceDerived(id string, pos graph.Position)
	// CreateEdge is called once per ordered edge.
	CreateEdge(source, target string)
	// RunComplete is called exactly once per run.
	RunComplete()
}

// EventKind names the kind of a recorded [Event].
type EventKind string

const (
	EventReveal   EventKind = "reveal"
	EventPlace    EventKind = "place"
	EventEdge     EventKind = "edge"
	EventComplete EventKind = "complete"
)

// Event is one sink call, as recorded by [Recorder].
type Event struct {
	Seq      int             `json:"seq"`
	Kind     EventKind       `json:"kind"`
	NodeID   string          `json:"node,omitempty"`
	Position *graph.Position `json:"position,omitempty"`
	Source   string          `json:"source,omitempty"`
	Target   string          `json:"target,omitempty"`
}

// Recorder is a Sink that keeps every call as an Event.
type Recorder struct {
	Events []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) add(e Event) {
	e.Seq = len(r.Events)
	r.Events = append(r.Events, e)
}

func (r *Recorder) Reveal(id string) { r.add(Event{Kind: EventReveal, NodeID: id}) }

func (r *Recorder) PlaceDerived(id string, pos graph.Position) {
	r.add(Event{Kind: EventPlace, NodeID: id, Position: &pos})
}

func (r *Recorder) CreateEdge(source, target string) {
	r.add(Event{Kind: EventEdge, Source: source, Target: target})
}

func (r *Recorder) RunComplete() { r.add(Event{Kind: EventComplete}) }

// Revealed returns the IDs of reveal events in order.
func (r *Recorder) Revealed() []string { return r.ids(EventReveal) }

// PlacedIDs returns the IDs of place events in order.
func (r *Recorder) PlacedIDs() []string { return r.ids(EventPlace) }

// Edges returns the recorded edges in order.
func (r *Recorder) Edges() []graph.Edge {
	var out []graph.Edge
	for _, e := range r.Events {
		if e.Kind == EventEdge {
			out = append(out, graph.Edge{Source: e.Source, Target: e.Target})
		}
	}
	return out
}

// Count returns the number of events of kind k.
func (r *Recorder) Count(k EventKind) int {
	n := 0
	for _, e := range r.Events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// Reset drops all recorded events.
func (r *Recorder) Reset() { r.Events = nil }

func (r *Recorder) ids(k EventKind) []string {
	var out []string
	for _, e := range r.Events {
		if e.Kind == k {
			out = append(out, e.NodeID)
		}
	}
	return out
}

// MultiSink fans every call out to each sink in order.
type MultiSink []Sink

func (m MultiSink) Reveal(id string) {
	for _, s := range m {
		s.Reveal(id)
	}
}

func (m MultiSink) PlaceDerived(id string, pos graph.Position) {
	for _, s := range m {
		s.PlaceDerived(id, pos)
	}
}

func (m MultiSink) CreateEdge(source, target string) {
	for _, s := range m {
		s.CreateEdge(source, target)
	}
}

func (m MultiSink) RunComplete() {
	for _, s := range m {
		s.RunComplete()
	}
}

// LogSink writes every call to a logger.
type LogSink struct {
	Logger *log.Logger
}

func (l LogSink) logger() *log.Logger {
	if l.Logger == nil {
		return log.Default()
	}
	return l.Logger
}

func (l LogSink) Reveal(id string) { l.logger().Info("reveal", "node", id) }

func (l LogSink) PlaceDerived(id string, pos graph.Position) {
	l.logger().Info("place", "node", id, "x", pos.X, "y", pos.Y)
}

func (l LogSink) CreateEdge(source, target string) {
	l.logger().Debug("edge", "source", source, "target", target)
}

func (l LogSink) RunComplete() { l.logger().Info("run complete") }

// nopSink discards everything.
type nopSink struct{}

func (nopSink) Reveal(string)                       {}
func (nopSink) PlaceDerived(string, graph.Position) {}
func (nopSink) CreateEdge(string, string)           {}
func (nopSink) RunComplete()                        {}
