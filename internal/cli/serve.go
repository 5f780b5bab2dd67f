package cli

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/growtree/internal/metrics"
	"github.com/matzehuels/growtree/internal/server"
	gerrors "github.com/matzehuels/growtree/pkg/errors"
	"github.com/matzehuels/growtree/pkg/events"
	"github.com/matzehuels/growtree/pkg/graph"
	"github.com/matzehuels/growtree/pkg/source"
)

const shutdownTimeout = 5 * time.Second

// serveCommand creates the serve command for the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		flags   runFlags
		addr    string
		natsURL string
		reload  bool
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "serve [document.json]",
		Short: "Serve the document and runs over HTTP",
		Long: `Serve the graph document at /api/data and fresh runs at /api/run.

Without a document the graph is loaded from Neo4j, once at startup or on every
request with --reload. A document file is re-read whenever it changes with
--watch. Runs are published to NATS when a URL is configured.`,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeDocument,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.loadConfig(); err != nil {
				return err
			}
			if addr == "" {
				addr = c.cfg.Server.Addr
			}
			if natsURL == "" {
				natsURL = c.cfg.Server.NATSURL
			}
			path := ""
			if len(args) == 1 {
				path = args[0]
			}

			ctx := cmd.Context()
			if watch && path == "" {
				return gerrors.New(gerrors.ErrCodeInvalidInput, "--watch needs a document file")
			}
			load, closeLoad, err := c.documentLoader(ctx, path, reload, watch)
			if err != nil {
				return err
			}
			defer closeLoad()

			collector := metrics.New(appName)
			collector.Install()

			opts := server.Options{
				Load:    load,
				Run:     flags.options(cmd, c.cfg.RevealOptions()),
				Layout:  c.cfg.LayoutOptions(),
				Metrics: collector.Handler(),
				Logger:  c.Logger,

				RunsPerSecond: c.cfg.Server.RunsPerSecond,
				RunBurst:      c.cfg.Server.RunBurst,
			}
			if natsURL != "" {
				pub, err := events.NewNATSPublisher(natsURL)
				if err != nil {
					return err
				}
				defer pub.Close()
				opts.Publisher = pub
				c.Logger.Info("Publishing runs", "nats", natsURL)
			}

			return c.listen(ctx, addr, server.New(opts).Handler())
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: config)")
	cmd.Flags().StringVar(&natsURL, "nats", "", "publish run events to this NATS server")
	cmd.Flags().BoolVar(&reload, "reload", false, "query Neo4j on every request instead of once")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload the document file when it changes")
	return cmd
}

// documentLoader returns the loader the server calls per request and a
// function releasing what it holds. Files are read once unless watched;
// Neo4j is queried once unless reload is set, in which case one connection
// is kept for the life of the server.
func (c *CLI) documentLoader(ctx context.Context, path string, reload, watch bool) (server.Loader, func(), error) {
	switch {
	case path == "" && reload:
		client, err := source.Connect(ctx, c.cfg.SourceConfig())
		if err != nil {
			return nil, nil, err
		}
		var mu sync.Mutex
		load := func(ctx context.Context) (*graph.Graph, []byte, error) {
			mu.Lock()
			defer mu.Unlock()
			return c.fetchWith(ctx, client)
		}
		return load, func() { client.Close(context.Background()) }, nil

	case path != "" && watch:
		w, err := server.WatchFile(ctx, path, loadGraph, c.Logger)
		if err != nil {
			return nil, nil, err
		}
		printInfo("Watching %s", path)
		return w.Load, func() { w.Close() }, nil
	}

	spin := newSpinnerWithContext(ctx, "Loading document...")
	spin.Start()
	g, doc, err := c.loadDocument(ctx, path)
	if err != nil {
		spin.StopWithError("Failed to load document")
		return nil, nil, err
	}
	spin.StopWithSuccess("Loaded document")
	printStats(g.PrimaryCount(), g.DerivedCount(), false)
	load := func(context.Context) (*graph.Graph, []byte, error) { return g, doc, nil }
	return load, func() {}, nil
}

// listen serves h until ctx is cancelled, then shuts down gracefully.
func (c *CLI) listen(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	printInfo("Listening on %s", StyleLink.Render("http://"+displayAddr(addr)))

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	printSuccess("Server stopped")
	return nil
}

func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
