// Package pkg provides the core libraries for growtree.
//
// # Overview
//
// Growtree animates a primary hierarchy of data nodes and the inference
// nodes derived from them. The tree is revealed level by level; afterwards
// each inference is placed next to the nodes it was derived from, without
// overlapping anything already on the canvas, and connected to them.
//
// # Architecture
//
// The typical data flow:
//
//	Neo4j rows / JSON document
//	         ↓
//	    [source], [graph]       build and validate the graph
//	         ↓
//	    [treelayout]            position the primary tree
//	         ↓
//	    [reveal]                tick by tick: reveal, resolve, place
//	      ├── [resolve]         dependency order of derived nodes
//	      ├── [placement]       spiral search for free positions
//	      └── [overlay]         placed nodes and edges of a run
//	         ↓
//	    [render], [events]      SVG/DOT/timeline output, NATS publishing
//
// # Quick Start
//
//	g, _ := graph.ImportJSON("doc.json")
//	layout := treelayout.Compute(g, treelayout.DefaultOptions())
//	s := reveal.New(g, layout, nil, reveal.Options{})
//	reveal.Drain(s, 0)
//	svg := render.RenderSVG(render.Snapshot(s, layout))
//
// # Supporting Packages
//
// [cache] stores fetched documents and rendered output on disk or in Redis.
// [observability] exposes hooks for metrics. [errors] defines error and
// diagnostic codes. [buildinfo] carries version information.
//
// [source]: https://pkg.go.dev/github.com/matzehuels/growtree/pkg/source
// [graph]: https://pkg.go.dev/github.com/matzehuels/growtree/pkg/graph
// [treelayout]: https://pkg.go.dev/github.com/matzehuels/growtree/pkg/treelayout
// [reveal]: https://pkg.go.dev/github.com/matzehuels/growtree/pkg/reveal
// [resolve]: https://pkg.go.dev/github.com/matzehuels/growtree/pkg/resolve
// [placement]: https://pkg.go.dev/github.com/matzehuels/growtree/pkg/placement
// [overlay]: https://pkg.go.dev/github.com/matzehuels/growtree/pkg/overlay
// [render]: https://pkg.go.dev/github.com/matzehuels/growtree/pkg/render
// [events]: https://pkg.go.dev/github.com/matzehuels/growtree/pkg/events
// [cache]: https://pkg.go.dev/github.com/matzehuels/growtree/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/growtree/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/growtree/pkg/errors
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/growtree/pkg/buildinfo
package pkg
