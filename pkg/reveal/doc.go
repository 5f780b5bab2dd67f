// Package reveal schedules the incremental disclosure of a graph.
//
// # Overview
//
// A run shows a primary hierarchy one node at a time, top level first, and
// then lays the derived overlay on top of it. The [Scheduler] owns all run
// state: the visible set, a (level, index) cursor into the primary nodes,
// the resolver's derived order, the placement registry and the overlay
// cache. Everything it decides is reported to a [Sink].
//
// # Ticks
//
// [Scheduler.Tick] performs exactly one unit of work and returns a [Step]:
//
//   - reveal the next primary node whose parent is visible,
//   - place the next derived node whose sources are all on the canvas,
//   - or defer, when the next candidate is not ready.
//
// Deferral never skips: the candidate stays at the head and is tried again
// on the next tick, after Step.Delay. A parent or source that never appears
// therefore stalls the run, unless Options.MaxDeferrals is set, in which case
// the candidate is dropped after that many attempts and the run moves on.
//
// When both phases are exhausted the sink's RunComplete is called once and
// later ticks are idle.
//
// # Cadence
//
// Steps carry the delay a driver should wait before the next tick. Reveals
// and placements wait RunBudget divided by the primary count, but never less
// than MinNodeDelay; deferrals wait RetryInterval.
//
// # Drivers
//
// Tick never sleeps, so the same scheduler can be driven by real timers
// ([Run]), synchronously ([Drain]) or by a UI event loop.
//
//	s := reveal.New(g, layout, reveal.LogSink{}, reveal.Options{})
//	if err := reveal.Run(ctx, s, nil); err != nil {
//	    return err
//	}
//
// # Bulk Mode
//
// With Options.BulkDerived the derived overlay is drawn by a single
// [Scheduler.DrawOverlay] pass once the hierarchy is complete. The pass is
// create-or-skip: nodes that are not ready are skipped for good, and running
// it again over an unchanged graph creates nothing.
package reveal
