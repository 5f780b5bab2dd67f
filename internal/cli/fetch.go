package cli

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/growtree/pkg/graph"
)

// fetchCommand creates the fetch command for exporting a Neo4j graph to a
// document file.
func (c *CLI) fetchCommand() *cobra.Command {
	var (
		output   string
		noCache  bool
		refresh  bool
		redisURL string
	)

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Load the hierarchy and inferences from Neo4j into a document",
		Long: `Load DataNode and Inference nodes from Neo4j and write them as a graph document.

Documents are cached per database; use --refresh to query again.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			ctx := cmd.Context()

			store, keyer, err := c.newCache(ctx, noCache, redisURL)
			if err != nil {
				return err
			}
			defer store.Close()
			key := keyer.DocumentKey(c.cfg.Neo4j.URI, c.cfg.Neo4j.Database)

			sw := startStopwatch(c.Logger)
			doc, cached, err := store.Get(ctx, key)
			if err != nil {
				c.Logger.Warn("Cache read failed", "error", err)
			}
			if refresh {
				cached = false
			}

			var g *graph.Graph
			if cached {
				if g, err = graph.ReadJSON(bytes.NewReader(doc)); err != nil {
					c.Logger.Warn("Discarding cached document", "error", err)
					cached = false
				}
			}
			if !cached {
				spin := newSpinnerWithContext(ctx, fmt.Sprintf("Querying %s...", c.cfg.Neo4j.URI))
				spin.Start()
				g, doc, err = c.fetchGraph(ctx)
				spin.Stop()
				if err != nil {
					return err
				}
				if err := store.Set(ctx, key, doc, c.cfg.Cache.TTL.Duration); err != nil {
					c.Logger.Warn("Cache write failed", "error", err)
				}
			}

			if output == "" || output == "-" {
				_, err := os.Stdout.Write(doc)
				return err
			}
			if err := os.WriteFile(output, doc, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			printSuccess("Fetched %s", c.cfg.Neo4j.Database)
			printStats(g.PrimaryCount(), g.DerivedCount(), cached)
			printFile(output)
			sw.done("Fetched document", "database", c.cfg.Neo4j.Database)
			printNextStep("Animate it", "growtree play "+output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore a cached document")
	cmd.Flags().StringVar(&redisURL, "redis", "", "cache in Redis at this URL instead of on disk")
	return cmd
}
