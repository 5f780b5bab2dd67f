package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/matzehuels/growtree/pkg/graph"
	"github.com/matzehuels/growtree/pkg/reveal"
	"github.com/matzehuels/growtree/pkg/source"
	"github.com/matzehuels/growtree/pkg/treelayout"
)

// runFlags are the scheduler overrides shared by play, render and serve.
type runFlags struct {
	seed         uint64
	bulk         bool
	maxDeferrals int
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "placement jitter seed (default: config)")
	cmd.Flags().BoolVar(&f.bulk, "bulk", false, "place all derived nodes in one pass after the tree is revealed")
	cmd.Flags().IntVar(&f.maxDeferrals, "max-deferrals", -1, "drop a derived node after this many deferrals (0 = never, default: config)")
}

// options merges the flags that were set over the config.
func (f *runFlags) options(cmd *cobra.Command, base reveal.Options) reveal.Options {
	if cmd.Flags().Changed("seed") {
		base.Seed = f.seed
	}
	if cmd.Flags().Changed("bulk") {
		base.BulkDerived = f.bulk
	}
	if cmd.Flags().Changed("max-deferrals") && f.maxDeferrals >= 0 {
		base.MaxDeferrals = f.maxDeferrals
	}
	return base
}

// newScheduler lays out g and builds a scheduler over it.
func (c *CLI) newScheduler(g *graph.Graph, sink reveal.Sink, opts reveal.Options) (*reveal.Scheduler, *treelayout.Layout) {
	layout := treelayout.Compute(g, c.cfg.LayoutOptions())
	if opts.Logger == nil {
		opts.Logger = c.Logger
	}
	return reveal.New(g, layout, sink, opts), layout
}

// loadDocument reads the graph from path, or from Neo4j when path is empty.
// The returned bytes are the document as JSON.
func (c *CLI) loadDocument(ctx context.Context, path string) (*graph.Graph, []byte, error) {
	if path != "" {
		return loadGraph(path)
	}
	return c.fetchGraph(ctx)
}

// fetchGraph loads the hierarchy and inferences from Neo4j over a new
// connection.
func (c *CLI) fetchGraph(ctx context.Context) (*graph.Graph, []byte, error) {
	client, err := source.Connect(ctx, c.cfg.SourceConfig())
	if err != nil {
		return nil, nil, err
	}
	defer client.Close(ctx)
	return c.fetchWith(ctx, client)
}

func (c *CLI) fetchWith(ctx context.Context, client *source.Client) (*graph.Graph, []byte, error) {
	nodes, err := client.DataNodes(ctx)
	if err != nil {
		return nil, nil, err
	}
	inferences, err := client.Inferences(ctx)
	if err != nil {
		return nil, nil, err
	}
	c.Logger.Debug("Loaded rows", "data_nodes", len(nodes), "inferences", len(inferences))

	g, err := source.BuildGraph(nodes, inferences, source.BuildOptions{Logger: c.Logger})
	if err != nil {
		return nil, nil, err
	}
	data, err := graph.Marshal(g)
	if err != nil {
		return nil, nil, err
	}
	return g, data, nil
}
