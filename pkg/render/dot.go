package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/growtree/pkg/graph"
)

// DOTOptions configures [ToDOT].
type DOTOptions struct {
	// Pinned emits pos attributes so neato keeps the computed layout.
	Pinned bool
}

// ToDOT converts a frame to Graphviz DOT. Tree links are solid, overlay
// links dashed, and derived nodes are filled with their category color.
func ToDOT(f Frame, opts DOTOptions) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=white, color=\"#4CAF50\", fontsize=10, width=0.2, fixedsize=false];\n")
	buf.WriteString("  edge [color=\"#999999\"];\n")
	buf.WriteString("\n")

	for _, m := range f.Primary {
		fmt.Fprintf(&buf, "  %q [label=%q%s];\n", m.ID, m.Label, pin(m.Position.X, m.Position.Y, opts.Pinned))
	}
	for _, m := range f.Derived {
		colors, ok := categoryColors[m.Category]
		if !ok {
			colors = categoryColors[graph.CategoryInterpretation]
		}
		style := "filled"
		if m.Fallback {
			style = "filled,dashed"
		}
		fmt.Fprintf(&buf, "  %q [label=%q, style=%q, fillcolor=%q, color=%q, fontcolor=white%s];\n",
			m.ID, m.Label, style, colors[0], colors[1], pin(m.Position.X, m.Position.Y, opts.Pinned))
	}

	buf.WriteString("\n")
	for _, e := range f.TreeLinks {
		fmt.Fprintf(&buf, "  %q -> %q [arrowhead=none];\n", e.Source, e.Target)
	}
	for _, e := range f.Links {
		fmt.Fprintf(&buf, "  %q -> %q [style=dashed, color=\"#FF9800\", constraint=false];\n", e.Source, e.Target)
	}
	buf.WriteString("}\n")
	return buf.String()
}

// pin formats a Graphviz position in points; y is flipped because Graphviz
// grows upward.
func pin(x, y float64, on bool) string {
	if !on {
		return ""
	}
	return fmt.Sprintf(", pos=\"%.1f,%.1f!\"", x, -y)
}

// RenderGraphviz renders DOT to SVG with the embedded Graphviz.
func RenderGraphviz(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="(-?[0-9.]+)\s+(-?[0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the pt-sized root element Graphviz emits with a
// unitless one that scales in a browser.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
