// Package server serves graph documents and completed runs over HTTP.
//
// Routes:
//
//	GET /api/data   the graph document as JSON
//	GET /api/run    a fresh run drained to completion; ?format=json|svg|dot,
//	                ?seed=N, ?bulk=true; rate limited when configured.
//	                A run that stalls is cut off after Scheduler.TickBudget
//	                ticks and answered with X-Run-Complete: false
//	GET /healthz    liveness
//	GET /metrics    Prometheus metrics, when a handler is configured
//
// Every run started by /api/run is also published through the configured
// events.Publisher, so watchers see it live.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/matzehuels/growtree/pkg/buildinfo"
	gerrors "github.com/matzehuels/growtree/pkg/errors"
	"github.com/matzehuels/growtree/pkg/events"
	"github.com/matzehuels/growtree/pkg/graph"
	"github.com/matzehuels/growtree/pkg/observability"
	"github.com/matzehuels/growtree/pkg/render"
	"github.com/matzehuels/growtree/pkg/reveal"
	"github.com/matzehuels/growtree/pkg/treelayout"
)

// Loader returns the current graph and its JSON document.
type Loader func(ctx context.Context) (*graph.Graph, []byte, error)

// Options configures a Server.
type Options struct {
	Load           Loader
	Run            reveal.Options
	Layout         treelayout.Options
	Publisher      events.Publisher // nil disables publishing
	Metrics        http.Handler     // nil disables /metrics
	AllowedOrigins []string         // default: any
	Logger         *log.Logger

	// RunsPerSecond caps /api/run for all clients together, allowing bursts
	// of RunBurst. Zero disables the limit.
	RunsPerSecond float64
	RunBurst      int
}

// Server holds the HTTP handlers.
type Server struct {
	opts    Options
	logger  *log.Logger
	limiter *rate.Limiter
}

// New creates a Server. opts.Load is required.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	s := &Server{opts: opts, logger: opts.Logger}
	if opts.RunsPerSecond > 0 {
		burst := max(opts.RunBurst, 1)
		s.limiter = rate.NewLimiter(rate.Limit(opts.RunsPerSecond), burst)
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "X-Run-ID", "X-Run-Complete", "X-Run-Stalled-On"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.health)
	if s.opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.opts.Metrics)
	}
	r.Route("/api", func(r chi.Router) {
		r.Get("/data", s.data)
		r.Get("/run", s.run)
	})
	return r
}

// requestLogger logs each request and reports it to the HTTP hooks under its
// route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		d := time.Since(start)
		observability.HTTP().OnRequest(r.Context(), r.Method, route, status, d)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", d,
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}

type healthBody struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthBody{Status: "ok", Build: buildinfo.Get()})
}

func (s *Server) data(w http.ResponseWriter, r *http.Request) {
	_, doc, err := s.opts.Load(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(doc)
}

func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	if s.limiter != nil && !s.limiter.Allow() {
		w.Header().Set("Retry-After", "1")
		s.writeError(w, r, gerrors.New(gerrors.ErrCodeRateLimited, "too many runs, retry shortly"))
		return
	}
	opts, format, err := s.runOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	g, _, err := s.opts.Load(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	rec := reveal.NewRecorder()
	sinks := reveal.MultiSink{rec}
	var pub *events.Sink
	if s.opts.Publisher != nil {
		pub = events.NewSink(r.Context(), s.opts.Publisher, s.logger)
		sinks = append(sinks, pub)
	}

	layout := treelayout.Compute(g, s.opts.Layout)
	sched := reveal.New(g, layout, sinks, opts)
	if pub != nil {
		pub.Attach(sched)
	}
	last, ticks, err := reveal.DrainContext(r.Context(), sched, 0)
	if err != nil {
		s.logger.Debug("Run abandoned", "run", sched.RunID(), "ticks", ticks, "error", err)
		return
	}
	stall := render.Stall(last, ticks)
	w.Header().Set("X-Run-ID", sched.RunID())
	w.Header().Set("X-Run-Complete", strconv.FormatBool(stall == nil))
	if stall != nil {
		w.Header().Set("X-Run-Stalled-On", stall.NodeID)
		s.logger.Warn("Run stalled", "run", sched.RunID(), "node", stall.NodeID, "reason", stall.Code, "ticks", ticks)
	}

	switch format {
	case "svg":
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(render.RenderSVG(render.Snapshot(sched, layout)))
	case "dot":
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_, _ = w.Write([]byte(render.ToDOT(render.Snapshot(sched, layout), render.DOTOptions{Pinned: true})))
	default:
		tl := render.NewTimeline(sched, rec)
		tl.Stalled = stall
		var buf bytes.Buffer
		if err := tl.WriteJSON(&buf); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(buf.Bytes())
	}
}

// runOptions applies query overrides to the configured run options.
func (s *Server) runOptions(r *http.Request) (reveal.Options, string, error) {
	opts := s.opts.Run
	opts.Logger = s.logger
	q := r.URL.Query()

	format := q.Get("format")
	switch format {
	case "", "json", "svg", "dot":
	default:
		return opts, "", gerrors.New(gerrors.ErrCodeInvalidFormat, "unknown format %q", format)
	}
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return opts, "", gerrors.Wrap(gerrors.ErrCodeInvalidInput, err, "seed")
		}
		opts.Seed = seed
	}
	if v := q.Get("bulk"); v != "" {
		bulk, err := strconv.ParseBool(v)
		if err != nil {
			return opts, "", gerrors.Wrap(gerrors.ErrCodeInvalidInput, err, "bulk")
		}
		opts.BulkDerived = bulk
	}
	return opts, format, nil
}

type errorBody struct {
	Error string       `json:"error"`
	Code  gerrors.Code `json:"code,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := gerrors.GetCode(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Error: gerrors.UserMessage(err), Code: code})
}

func statusFor(code gerrors.Code) int {
	switch code {
	case gerrors.ErrCodeInvalidInput, gerrors.ErrCodeInvalidFormat, gerrors.ErrCodeInvalidDocument:
		return http.StatusBadRequest
	case gerrors.ErrCodeNotFound, gerrors.ErrCodeFileNotFound:
		return http.StatusNotFound
	case gerrors.ErrCodeNetwork:
		return http.StatusBadGateway
	case gerrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case gerrors.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case gerrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
