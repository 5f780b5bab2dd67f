// Package placement positions derived nodes next to their sources while
// keeping a minimum distance from every node already on the canvas.
//
// # Initial Position
//
// A derived node starts at the mean x of its sources plus an optional
// per-node offset, and below its lowest source by one, two or three
// vertical steps:
//
//   - 3 for nodes listed in Config.TerminalIDs,
//   - 2 when any source is itself a derived node,
//   - 1 otherwise.
//
// # Collision Avoidance
//
// If the initial point is closer than Config.MinDistance to a registered
// position, a spiral search walks outwards from it. Attempt k sits at angle
// k*AngleStep and radius RadiusStep*ceil(k/RingSize), so every RingSize
// attempts the ring grows. The first clear candidate wins.
//
// When the search is exhausted the node is pushed below the initial point
// with a random horizontal jitter. This is the only nondeterministic step;
// the jitter source is seeded through [New]. The resulting position may
// overlap and is flagged with Placement.Fallback.
//
// # Registry
//
// Every accepted position, including the primary positions the scheduler
// registers on reveal, lives in a [Registry] for the rest of the run.
// Registering an ID twice fails with [ErrAlreadyPlaced].
package placement
