// Package render turns a run into files.
//
// A [Frame] is a snapshot of the canvas: visible primary nodes at their
// layout positions, placed derived nodes, tree links and overlay links.
// Frames are drawn by:
//
//   - [RenderSVG]: the native renderer. Tree links are vertical cubic
//     curves, overlay links are arcs, derived nodes are colored by category.
//   - [ToDOT] and [RenderGraphviz]: Graphviz DOT, rendered to SVG by the
//     embedded Graphviz.
//
// A [Timeline] is the ordered event record of a whole run, for replay in a
// browser. [ToPDF] and [ToPNG] convert any SVG using rsvg-convert.
//
//	rec := reveal.NewRecorder()
//	s := reveal.New(g, layout, rec, reveal.Options{})
//	reveal.Drain(s, reveal.DefaultDrainLimit)
//	svg := render.RenderSVG(render.Snapshot(s, layout))
package render
