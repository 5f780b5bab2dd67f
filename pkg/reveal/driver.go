package reveal

import (
	"context"
	"time"
)

// Clock schedules the next tick for [Run].
type Clock interface {
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock returns a Clock backed by the time package.
func RealClock() Clock { return realClock{} }

// DefaultDrainLimit bounds [Drain] when it is called with maxTicks <= 0.
const DefaultDrainLimit = 1_000_000

// Run ticks s until the run completes, waiting each step's delay on clock
// between ticks. A nil clock uses real time. Run returns nil on completion and
// ctx.Err() if the context ends first; a stalled run only ends that way.
func Run(ctx context.Context, s *Scheduler, clock Clock) error {
	if clock == nil {
		clock = realClock{}
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		step := s.Tick()
		if step.Outcome.Done() {
			return nil
		}
		if step.Delay <= 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(step.Delay):
		}
	}
}

// DrainContext ticks s synchronously, ignoring delays, until the run
// completes, maxTicks ticks have been made or ctx ends. maxTicks <= 0 uses
// s.TickBudget(). It returns the last step, which for a stalled run names the
// node it is waiting on, and ctx.Err() if the context ended first.
func DrainContext(ctx context.Context, s *Scheduler, maxTicks int) (last Step, ticks int, err error) {
	if maxTicks <= 0 {
		maxTicks = s.TickBudget()
	}
	for ticks < maxTicks {
		if err := ctx.Err(); err != nil {
			return last, ticks, err
		}
		last = s.Tick()
		ticks++
		if last.Outcome.Done() {
			break
		}
	}
	return last, ticks, nil
}

// Drain ticks s synchronously, ignoring delays, until the run completes or
// maxTicks ticks have been made. It returns the number of ticks made and
// whether the run completed.
func Drain(s *Scheduler, maxTicks int) (ticks int, done bool) {
	if maxTicks <= 0 {
		maxTicks = DefaultDrainLimit
	}
	for ticks < maxTicks {
		step := s.Tick()
		ticks++
		if step.Outcome.Done() {
			return ticks, true
		}
	}
	return ticks, false
}
