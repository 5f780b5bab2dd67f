// Package graph defines the node model consumed by the reveal scheduler.
//
// # Overview
//
// A growtree run animates two kinds of nodes:
//
//   - [PrimaryNode]: a vertex of the static input hierarchy. Every primary
//     node except forest roots names its parent, and carries its depth in the
//     hierarchy (roots are at depth 0).
//   - [DerivedNode]: an "inference" computed from other nodes. Its Sources
//     name the nodes it was derived from and its Targets name the derived
//     nodes it leads to.
//
// Sources are [Reference] values: a tagged union of [Primary] and [Derived]
// identifiers. Code that needs to know what a reference points at switches
// on [Reference.Kind]; identifiers are opaque strings and are never parsed.
//
// # Building a Graph
//
//	g := graph.New()
//	g.AddPrimary(graph.PrimaryNode{ID: "root", Depth: 0})
//	g.AddPrimary(graph.PrimaryNode{ID: "collar", ParentID: "root", Depth: 1})
//	g.AddDerived(graph.DerivedNode{
//	    ID:      "underground",
//	    Title:   "Underground Drilling",
//	    Sources: []graph.Reference{graph.Primary("collar")},
//	})
//
// [Graph.PrimaryOrder] returns primary nodes in reveal-scan order: by depth,
// then by pre-order discovery index within the forest.
//
// # Dangling References
//
// Graph deliberately accepts parents, sources and targets that name nodes it
// does not contain. The scheduler turns those into deferrals or exclusions at
// run time instead of refusing the input; see package reveal.
//
// # JSON Documents
//
// [ReadJSON] and [WriteJSON] exchange graphs as JSON documents with
// "primary" and "derived" arrays. Documents are validated before a Graph is
// built, and validation failures are reported as coded errors.
//
// # Concurrency
//
// Graph values are not safe for concurrent mutation. Once built, a Graph is
// only read, and concurrent readers are fine.
package graph
