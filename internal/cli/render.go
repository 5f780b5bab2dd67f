package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/growtree/pkg/cache"
	gerrors "github.com/matzehuels/growtree/pkg/errors"
	"github.com/matzehuels/growtree/pkg/render"
	"github.com/matzehuels/growtree/pkg/reveal"
)

// renderOpts holds options for the render command.
type renderOpts struct {
	run      runFlags
	output   string
	formats  string
	noCache  bool
	redisURL string
	noLabels bool
	title    string
	pinned   bool
	scale    float64
}

// renderCommand creates the render command for drawing a completed run.
func (c *CLI) renderCommand() *cobra.Command {
	var opts renderOpts

	cmd := &cobra.Command{
		Use:   "render [document.json]",
		Short: "Run to completion and write the final frame",
		Long: `Run the scheduler to completion without delays and write the final frame.

Formats: svg, dot, graphviz (DOT laid out by Graphviz), json (event timeline), pdf, png.
Without a document the graph is loaded from Neo4j.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeDocument,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return c.runRender(cmd, path, opts)
		},
	}

	opts.run.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (single format) or base path")
	cmd.Flags().StringVarP(&opts.formats, "format", "f", "", "output formats, comma-separated (default: svg)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().StringVar(&opts.redisURL, "redis", "", "cache in Redis at this URL instead of on disk")
	cmd.Flags().BoolVar(&opts.noLabels, "no-labels", false, "omit node labels")
	cmd.Flags().StringVar(&opts.title, "title", "", "SVG title")
	cmd.Flags().BoolVar(&opts.pinned, "pinned", true, "pin DOT node positions to the computed layout")
	cmd.Flags().Float64Var(&opts.scale, "scale", 2, "PNG zoom factor")
	_ = cmd.RegisterFlagCompletionFunc("format", completeFormats)

	return cmd
}

func (c *CLI) runRender(cmd *cobra.Command, path string, opts renderOpts) error {
	ctx := cmd.Context()
	formats := parseFormats(opts.formats)
	for _, f := range formats {
		if !validFormat(f) {
			return gerrors.New(gerrors.ErrCodeInvalidFormat, "unknown format %q", f)
		}
	}

	sw := startStopwatch(c.Logger)
	g, doc, err := c.loadDocument(ctx, path)
	if err != nil {
		return err
	}

	store, keyer, err := c.newCache(ctx, opts.noCache, opts.redisURL)
	if err != nil {
		return err
	}
	defer store.Close()

	runOpts := opts.run.options(cmd, c.cfg.RevealOptions())
	rec := reveal.NewRecorder()
	s, layout := c.newScheduler(g, rec, runOpts)

	// The run is only made if some format misses the cache.
	var (
		ran   bool
		frame render.Frame
	)
	run := func() error {
		if ran {
			return nil
		}
		ran = true
		last, ticks, err := reveal.DrainContext(ctx, s, 0)
		if err != nil {
			return err
		}
		if stall := render.Stall(last, ticks); stall != nil {
			printWarning("Run stalled on %s (%s) after %d ticks", stall.NodeID, stall.Code, ticks)
		}
		frame = render.Snapshot(s, layout)
		return nil
	}

	base := outputBase(opts.output, path, len(formats))
	docHash := cache.Hash(doc)
	configHash := settingsHash(runOpts.Placement)
	layoutHash := settingsHash(c.cfg.LayoutOptions())

	for _, format := range formats {
		key := keyer.RenderKey(docHash, cache.RenderKeyOpts{
			Format:       format,
			Seed:         runOpts.Seed,
			BulkDerived:  runOpts.BulkDerived,
			MaxDeferrals: runOpts.MaxDeferrals,
			Labels:       !opts.noLabels,
			Title:        opts.title,
			Pinned:       opts.pinned,
			Scale:        opts.scale,
			Config:       configHash,
			Layout:       layoutHash,
		})

		data, hit, err := store.Get(ctx, key)
		if err != nil {
			c.Logger.Warn("Cache read failed", "format", format, "error", err)
		}
		if !hit {
			if err := run(); err != nil {
				return err
			}
			if data, err = c.encode(ctx, format, frame, s, rec, opts); err != nil {
				return err
			}
			if err := store.Set(ctx, key, data, c.cfg.Cache.TTL.Duration); err != nil {
				c.Logger.Warn("Cache write failed", "format", format, "error", err)
			}
		}

		out := outputPath(base, opts.output, format, len(formats))
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", out, err)
		}
		c.Logger.Debug("Wrote output", "format", format, "cached", hit)
		printFile(out)
	}

	if ran {
		for _, d := range s.Diagnostics() {
			printWarning("%s %s", d.Code, d.NodeID)
		}
	}
	sw.done("Rendered", "primary", g.PrimaryCount(), "derived", g.DerivedCount())
	return nil
}

// encode renders one format of a finished run.
func (c *CLI) encode(ctx context.Context, format string, f render.Frame, s *reveal.Scheduler, rec *reveal.Recorder, opts renderOpts) ([]byte, error) {
	var svgOpts []render.SVGOption
	if opts.noLabels {
		svgOpts = append(svgOpts, render.WithoutLabels())
	}
	if opts.title != "" {
		svgOpts = append(svgOpts, render.WithTitle(opts.title))
	}

	switch format {
	case formatSVG:
		return render.RenderSVG(f, svgOpts...), nil
	case formatDOT:
		return []byte(render.ToDOT(f, render.DOTOptions{Pinned: opts.pinned})), nil
	case formatGraphviz:
		return render.RenderGraphviz(ctx, render.ToDOT(f, render.DOTOptions{Pinned: opts.pinned}))
	case formatJSON:
		var buf bytes.Buffer
		if err := render.NewTimeline(s, rec).WriteJSON(&buf); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case formatPDF:
		return render.ToPDF(ctx, render.RenderSVG(f, svgOpts...))
	case formatPNG:
		return render.ToPNG(ctx, render.RenderSVG(f, svgOpts...), opts.scale)
	}
	return nil, gerrors.New(gerrors.ErrCodeInvalidFormat, "unknown format %q", format)
}

func validFormat(f string) bool { return slices.Contains(renderFormats, f) }

// formatExt maps a format to its file extension.
func formatExt(format string) string {
	switch format {
	case formatGraphviz:
		return "gv.svg"
	default:
		return format
	}
}

// outputBase picks the path stem outputs are written under.
func outputBase(output, input string, n int) string {
	if output != "" {
		if n == 1 {
			return output
		}
		return strings.TrimSuffix(output, filepath.Ext(output))
	}
	if input == "" {
		return appName
	}
	return strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
}

// outputPath returns the file for one format. A single format with an
// explicit -o is written exactly there.
func outputPath(base, output, format string, n int) string {
	if output != "" && n == 1 {
		return output
	}
	return base + "." + formatExt(format)
}

// settingsHash fingerprints settings that move nodes, so cached renders
// are invalidated when the config changes.
func settingsHash(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return cache.Hash(data)
}
