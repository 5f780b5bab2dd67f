package reveal

import (
	"fmt"
	"time"

	gerrors "github.com/matzehuels/growtree/pkg/errors"
)

// Phase is the stage a run is in.
type Phase int

const (
	// PhasePrimary reveals the primary hierarchy level by level.
	PhasePrimary Phase = iota
	// PhaseDerived places derived nodes in resolver order.
	PhaseDerived
	// PhaseDone means RunComplete has been emitted.
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhasePrimary:
		return "primary"
	case PhaseDerived:
		return "derived"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// Outcome says what a single [Scheduler.Tick] did.
type Outcome int

const (
	// OutcomeRevealed: a primary node became visible.
	OutcomeRevealed Outcome = iota
	// OutcomePlaced: a derived node was placed.
	OutcomePlaced
	// OutcomeDeferred: the candidate's preconditions do not hold yet; the
	// same candidate is retried on the next tick.
	OutcomeDeferred
	// OutcomeDropped: the candidate hit the deferral cap and was skipped.
	OutcomeDropped
	// OutcomeBatch: a bulk draw pass placed every placeable derived node.
	OutcomeBatch
	// OutcomeComplete: the run finished and RunComplete was emitted.
	OutcomeComplete
	// OutcomeIdle: the run had already finished; nothing happened.
	OutcomeIdle
)

var outcomeNames = [...]string{
	OutcomeRevealed: "revealed",
	OutcomePlaced:   "placed",
	OutcomeDeferred: "deferred",
	OutcomeDropped:  "dropped",
	OutcomeBatch:    "batch",
	OutcomeComplete: "complete",
	OutcomeIdle:     "idle",
}

func (o Outcome) String() string {
	if o >= 0 && int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Done reports whether the run has finished.
func (o Outcome) Done() bool { return o == OutcomeComplete || o == OutcomeIdle }

// Step is the result of one tick.
type Step struct {
	Outcome Outcome
	// NodeID is the node the tick acted on, empty for batch, complete and
	// idle steps.
	NodeID string
	// Delay is how long a driver should wait before the next tick.
	Delay time.Duration
	// Code explains a deferral or drop.
	Code gerrors.Code
	// Placed lists the nodes placed by a bulk draw pass.
	Placed []string
}

func (s Step) String() string {
	switch {
	case s.Code != "":
		return fmt.Sprintf("%s %s (%s)", s.Outcome, s.NodeID, s.Code)
	case s.Outcome == OutcomeBatch:
		return fmt.Sprintf("%s %d nodes", s.Outcome, len(s.Placed))
	case s.NodeID != "":
		return fmt.Sprintf("%s %s", s.Outcome, s.NodeID)
	default:
		return s.Outcome.String()
	}
}
