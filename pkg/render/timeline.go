package render

import (
	"encoding/json"
	"fmt"
	"io"

	gerrors "github.com/matzehuels/growtree/pkg/errors"
	"github.com/matzehuels/growtree/pkg/reveal"
)

// Timeline is the replayable record of a run: every sink event in order,
// plus the diagnostics the scheduler collected.
type Timeline struct {
	RunID       string               `json:"run_id"`
	Ticks       int                  `json:"ticks"`
	Complete    bool                 `json:"complete"`
	Events      []reveal.Event       `json:"events"`
	Diagnostics []gerrors.Diagnostic `json:"diagnostics,omitempty"`
	// Stalled names the node an incomplete run was waiting on.
	Stalled *gerrors.Diagnostic `json:"stalled,omitempty"`
}

// NewTimeline assembles a timeline from a scheduler and the recorder that
// was its sink.
func NewTimeline(s *reveal.Scheduler, rec *reveal.Recorder) Timeline {
	events := rec.Events
	if events == nil {
		events = []reveal.Event{}
	}
	return Timeline{
		RunID:       s.RunID(),
		Ticks:       s.Ticks(),
		Complete:    s.Phase() == reveal.PhaseDone,
		Events:      events,
		Diagnostics: s.Diagnostics(),
	}
}

// Stall describes a run that stopped on last without completing, or returns
// nil when last finished the run.
func Stall(last reveal.Step, ticks int) *gerrors.Diagnostic {
	if last.Outcome.Done() {
		return nil
	}
	return &gerrors.Diagnostic{
		Code:   last.Code,
		NodeID: last.NodeID,
		Detail: fmt.Sprintf("run stopped after %d ticks", ticks),
	}
}

// WriteJSON writes the timeline as indented JSON.
func (t Timeline) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(t)
}
