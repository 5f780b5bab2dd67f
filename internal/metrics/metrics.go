// Package metrics implements the observability hooks with Prometheus.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/growtree/pkg/observability"
)

// Collector holds every growtree metric on its own registry.
type Collector struct {
	registry *prometheus.Registry

	runsStarted   prometheus.Counter
	runsCompleted prometheus.Counter
	runTicks      prometheus.Histogram
	runDuration   prometheus.Histogram
	reveals       prometheus.Counter
	placements    *prometheus.CounterVec
	attempts      prometheus.Histogram
	deferrals     *prometheus.CounterVec
	drops         *prometheus.CounterVec

	cacheOps   *prometheus.CounterVec
	cacheBytes prometheus.Counter

	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates a Collector with metrics under namespace.
func New(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_started_total",
			Help: "Total number of reveal runs started",
		}),
		runsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "runs_completed_total",
			Help: "Total number of reveal runs completed",
		}),
		runTicks: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "run_ticks",
			Help:    "Ticks taken by a completed run",
			Buckets: prometheus.ExponentialBuckets(4, 2, 12),
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "run_duration_seconds",
			Help:    "Wall time of a completed run",
			Buckets: prometheus.DefBuckets,
		}),
		reveals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "primary_reveals_total",
			Help: "Total number of primary nodes revealed",
		}),
		placements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "derived_placements_total",
			Help: "Total number of derived nodes placed",
		}, []string{"fallback"}),
		attempts: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "placement_attempts",
			Help:    "Spiral candidates tried per placement",
			Buckets: []float64{0, 1, 2, 4, 8, 12, 24, 36, 50},
		}),
		deferrals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "deferrals_total",
			Help: "Total number of deferred ticks",
		}, []string{"code"}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "drops_total",
			Help: "Total number of candidates dropped",
		}, []string{"code"}),
		cacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_operations_total",
			Help: "Total number of cache operations",
		}, []string{"key_type", "result"}),
		cacheBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "cache_written_bytes_total",
			Help: "Total bytes written to the cache",
		}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "source_queries_total",
			Help: "Total number of graph database queries",
		}, []string{"query", "status"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "source_query_duration_seconds",
			Help:    "Graph database query duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		c.runsStarted, c.runsCompleted, c.runTicks, c.runDuration,
		c.reveals, c.placements, c.attempts, c.deferrals, c.drops,
		c.cacheOps, c.cacheBytes,
		c.queries, c.queryDuration,
		c.httpRequests, c.httpDuration,
		collectors.NewGoCollector(),
	)
	return c
}

// Install registers c for every hook category.
func (c *Collector) Install() {
	observability.SetRunHooks(c)
	observability.SetCacheHooks(c)
	observability.SetSourceHooks(c)
	observability.SetHTTPHooks(c)
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) OnRunStart(string, int, int) { c.runsStarted.Inc() }

func (c *Collector) OnReveal(string, string, int) { c.reveals.Inc() }

func (c *Collector) OnPlace(_, _ string, attempts int, fallback bool) {
	c.placements.WithLabelValues(strconv.FormatBool(fallback)).Inc()
	c.attempts.Observe(float64(attempts))
}

func (c *Collector) OnDefer(_, _, code string) { c.deferrals.WithLabelValues(code).Inc() }

func (c *Collector) OnDrop(_, _, code string) { c.drops.WithLabelValues(code).Inc() }

func (c *Collector) OnRunComplete(_ string, ticks int, d time.Duration) {
	c.runsCompleted.Inc()
	c.runTicks.Observe(float64(ticks))
	c.runDuration.Observe(d.Seconds())
}

func (c *Collector) OnCacheHit(_ context.Context, keyType string) {
	c.cacheOps.WithLabelValues(keyType, "hit").Inc()
}

func (c *Collector) OnCacheMiss(_ context.Context, keyType string) {
	c.cacheOps.WithLabelValues(keyType, "miss").Inc()
}

func (c *Collector) OnCacheSet(_ context.Context, keyType string, size int) {
	c.cacheOps.WithLabelValues(keyType, "set").Inc()
	c.cacheBytes.Add(float64(size))
}

func (c *Collector) OnQuery(_ context.Context, name string, _ int, d time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.queries.WithLabelValues(name, status).Inc()
	c.queryDuration.WithLabelValues(name).Observe(d.Seconds())
}

func (c *Collector) OnRequest(_ context.Context, method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var (
	_ observability.RunHooks    = (*Collector)(nil)
	_ observability.CacheHooks  = (*Collector)(nil)
	_ observability.SourceHooks = (*Collector)(nil)
	_ observability.HTTPHooks   = (*Collector)(nil)
)
