package events

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/growtree/pkg/graph"
)

// RunIdentifier reports the current run. *reveal.Scheduler satisfies it.
type RunIdentifier interface {
	RunID() string
}

// Sink publishes scheduler output. It satisfies reveal.Sink. Publish
// failures are logged and never stop the run.
type Sink struct {
	ctx    context.Context
	pub    Publisher
	run    RunIdentifier
	logger *log.Logger
	now    func() time.Time
	seq    int
	errs   int
}

// NewSink creates a Sink publishing through pub. Call [Sink.Attach] with the
// scheduler before the first tick.
func NewSink(ctx context.Context, pub Publisher, logger *log.Logger) *Sink {
	if pub == nil {
		pub = NoopPublisher{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Sink{ctx: ctx, pub: pub, logger: logger, now: time.Now}
}

// Attach binds the sink to the run it reports on.
func (s *Sink) Attach(run RunIdentifier) { s.run = run }

// Errors returns the number of failed publishes.
func (s *Sink) Errors() int { return s.errs }

func (s *Sink) Reveal(id string) {
	s.publish(TopicReveal, RunEvent{NodeID: id})
}

func (s *Sink) PlaceDerived(id string, pos graph.Position) {
	s.publish(TopicPlace, RunEvent{NodeID: id, Position: &pos})
}

func (s *Sink) CreateEdge(source, target string) {
	s.publish(TopicEdge, RunEvent{Source: source, Target: target})
}

func (s *Sink) RunComplete() {
	s.publish(TopicComplete, RunEvent{})
	s.seq = 0
}

func (s *Sink) publish(topic string, e RunEvent) {
	if s.run != nil {
		e.RunID = s.run.RunID()
	}
	e.Seq = s.seq
	e.Time = s.now().UTC()
	s.seq++
	if err := s.pub.Publish(s.ctx, topic, e); err != nil {
		s.errs++
		s.logger.Warn("publish failed", "topic", topic, "err", err)
	}
}
