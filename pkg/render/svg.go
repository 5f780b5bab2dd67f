package render

import (
	"bytes"
	"fmt"
	"html"
	"math"

	"github.com/matzehuels/growtree/pkg/graph"
)

// Category colors: fill and stroke.
var categoryColors = map[graph.Category][2]string{
	graph.CategoryInterpretation: {"#2196F3", "#1976D2"},
	graph.CategoryAction:         {"#9C27B0", "#7B1FA2"},
}

const svgStyle = `
    .link { fill: none; stroke: #999; stroke-width: 1.5px; }
    .inference-link { fill: none; stroke: #FF9800; stroke-width: 1.5px; stroke-dasharray: 4 3; }
    .node circle { fill: #fff; stroke: #4CAF50; stroke-width: 2px; }
    .node text, .inference-node text { font: 12px sans-serif; fill: #333; }
    .inference-node.fallback circle { stroke-dasharray: 2 2; }`

// SVGOption configures [RenderSVG].
type SVGOption func(*svgRenderer)

type svgRenderer struct {
	padding float64
	title   string
	labels  bool
}

// WithPadding sets the margin around the drawing.
func WithPadding(p float64) SVGOption { return func(r *svgRenderer) { r.padding = p } }

// WithTitle adds a <title> element.
func WithTitle(t string) SVGOption { return func(r *svgRenderer) { r.title = t } }

// WithoutLabels omits node labels.
func WithoutLabels() SVGOption { return func(r *svgRenderer) { r.labels = false } }

// RenderSVG draws a frame: the primary tree with vertical curves, derived
// nodes as colored dots, and overlay edges as arcs.
func RenderSVG(f Frame, opts ...SVGOption) []byte {
	r := svgRenderer{padding: 60, labels: true}
	for _, opt := range opts {
		opt(&r)
	}

	minX, minY, maxX, maxY := f.Bounds()
	w := maxX - minX + 2*r.padding
	h := maxY - minY + 2*r.padding
	ox, oy := r.padding-minX, r.padding-minY

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.1f %.1f" width="%.0f" height="%.0f">`+"\n",
		w, h, w, h)
	if r.title != "" {
		fmt.Fprintf(&buf, "  <title>%s</title>\n", html.EscapeString(r.title))
	}
	fmt.Fprintf(&buf, "  <style>%s\n  </style>\n", svgStyle)
	fmt.Fprintf(&buf, `  <g transform="translate(%.1f,%.1f)">`+"\n", ox, oy)

	pos := f.positions()
	for _, e := range f.TreeLinks {
		fmt.Fprintf(&buf, `    <path class="link" d="%s"/>`+"\n", treePath(pos[e.Source], pos[e.Target]))
	}
	for _, e := range f.Links {
		s, ok1 := pos[e.Source]
		t, ok2 := pos[e.Target]
		if !ok1 || !ok2 {
			continue
		}
		fmt.Fprintf(&buf, `    <path class="inference-link" data-source="%s" data-target="%s" d="%s"/>`+"\n",
			html.EscapeString(e.Source), html.EscapeString(e.Target), arcPath(s, t))
	}

	for _, m := range f.Primary {
		fmt.Fprintf(&buf, `    <g class="node" id="node-%s" transform="translate(%.1f,%.1f)">`+"\n",
			html.EscapeString(m.ID), m.Position.X, m.Position.Y)
		buf.WriteString(`      <circle r="6"/>` + "\n")
		if r.labels {
			fmt.Fprintf(&buf, `      <text dy="-15" text-anchor="middle">%s</text>`+"\n", html.EscapeString(m.Label))
		}
		buf.WriteString("    </g>\n")
	}
	for _, m := range f.Derived {
		colors, ok := categoryColors[m.Category]
		if !ok {
			colors = categoryColors[graph.CategoryInterpretation]
		}
		class := "inference-node"
		if m.Fallback {
			class += " fallback"
		}
		fmt.Fprintf(&buf, `    <g class="%s" data-inference-id="%s" transform="translate(%.1f,%.1f)">`+"\n",
			class, html.EscapeString(m.ID), m.Position.X, m.Position.Y)
		fmt.Fprintf(&buf, `      <circle r="8" style="fill:%s;stroke:%s;stroke-width:2px"/>`+"\n", colors[0], colors[1])
		if r.labels {
			fmt.Fprintf(&buf, `      <text dy="-15" text-anchor="middle">%s</text>`+"\n", html.EscapeString(m.Label))
		}
		buf.WriteString("    </g>\n")
	}

	buf.WriteString("  </g>\n</svg>\n")
	return buf.Bytes()
}

// treePath is a vertical cubic curve from parent to child.
func treePath(s, t graph.Position) string {
	my := (s.Y + t.Y) / 2
	return fmt.Sprintf("M%.1f,%.1f C%.1f,%.1f %.1f,%.1f %.1f,%.1f", s.X, s.Y, s.X, my, t.X, my, t.X, t.Y)
}

// arcPath is a shallow arc with radius 1.5 times the chord.
func arcPath(s, t graph.Position) string {
	dr := math.Hypot(t.X-s.X, t.Y-s.Y) * 1.5
	return fmt.Sprintf("M%.1f,%.1fA%.1f,%.1f 0 0,1 %.1f,%.1f", s.X, s.Y, dr, dr, t.X, t.Y)
}
