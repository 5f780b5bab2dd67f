package reveal

import (
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	gerrors "github.com/matzehuels/growtree/pkg/errors"
	"github.com/matzehuels/growtree/pkg/graph"
	"github.com/matzehuels/growtree/pkg/observability"
	"github.com/matzehuels/growtree/pkg/overlay"
	"github.com/matzehuels/growtree/pkg/placement"
	"github.com/matzehuels/growtree/pkg/resolve"
)

// Default cadence values.
const (
	DefaultRunBudget     = 10 * time.Second
	DefaultMinNodeDelay  = 100 * time.Millisecond
	DefaultRetryInterval = 50 * time.Millisecond
)

// Layout supplies the canvas positions of primary nodes.
type Layout interface {
	Position(id string) (graph.Position, bool)
}

// Positions is a fixed Layout.
type Positions map[string]graph.Position

// Position implements Layout.
func (p Positions) Position(id string) (graph.Position, bool) {
	pos, ok := p[id]
	return pos, ok
}

// Options configures a Scheduler. Zero durations take the package defaults.
type Options struct {
	// RunBudget is spread evenly over the primary nodes.
	RunBudget time.Duration
	// MinNodeDelay is the lower bound of the per-node delay.
	MinNodeDelay time.Duration
	// RetryInterval is the delay after a deferral.
	RetryInterval time.Duration

	// BulkDerived places every placeable derived node in a single tick once
	// the hierarchy is complete, instead of one node per tick.
	BulkDerived bool

	// MaxDeferrals drops a candidate after this many consecutive deferrals.
	// Zero retries forever, so a reference to a node that never appears
	// stalls the run.
	MaxDeferrals int

	Placement placement.Config
	// Seed drives the placement fallback jitter.
	Seed uint64

	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.RunBudget <= 0 {
		o.RunBudget = DefaultRunBudget
	}
	if o.MinNodeDelay <= 0 {
		o.MinNodeDelay = DefaultMinNodeDelay
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = DefaultRetryInterval
	}
	if o.MaxDeferrals < 0 {
		o.MaxDeferrals = 0
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

// Scheduler decides, one tick at a time, which node becomes visible next.
//
// Primary nodes are revealed level by level in (depth, pre-order) order, each
// only after its parent. Derived nodes follow in resolver order, each only
// after all of its sources are on the canvas. A candidate whose preconditions
// fail is not skipped: the tick reports a deferral and the same candidate is
// tried again next time.
//
// Tick never sleeps and never reads the clock; drivers such as [Run] and
// [Drain] decide what to do with Step.Delay.
//
// A Scheduler is not safe for concurrent use.
type Scheduler struct {
	g      *graph.Graph
	layout Layout
	sink   Sink
	opts   Options
	log    *log.Logger

	engine  *placement.Engine
	reg     *placement.Registry
	cache   *overlay.Cache
	pool    []graph.PrimaryNode
	derived []graph.DerivedNode
	delay   time.Duration

	// run state
	runID     string
	phase     Phase
	level     int
	index     int
	maxDepth  int
	dcursor   int
	visible   map[string]bool
	order     []string
	deferrals map[string]int
	diags     []gerrors.Diagnostic
	ticks     int
	started   time.Time
}

// New creates a Scheduler and starts its first run. A nil sink discards all
// output.
func New(g *graph.Graph, layout Layout, sink Sink, opts Options) *Scheduler {
	opts = opts.withDefaults()
	if sink == nil {
		sink = nopSink{}
	}
	if layout == nil {
		layout = Positions{}
	}
	s := &Scheduler{
		g:        g,
		layout:   layout,
		sink:     sink,
		opts:     opts,
		engine:   placement.New(opts.Placement, opts.Seed),
		reg:      placement.NewRegistry(),
		cache:    overlay.New(),
		pool:     g.PrimaryOrder(),
		maxDepth: g.MaxDepth(),
		delay:    perNodeDelay(opts, g.PrimaryCount()),
	}
	s.Reset()
	return s
}

func perNodeDelay(o Options, primaryCount int) time.Duration {
	return max(o.MinNodeDelay, o.RunBudget/time.Duration(max(primaryCount, 1)))
}

// Reset abandons the current run and starts a new one: nothing is visible,
// the registry and overlay cache are empty, the derived order is resolved
// again and a fresh run ID is assigned.
func (s *Scheduler) Reset() {
	s.runID = uuid.NewString()
	s.log = s.opts.Logger.With("run", shortID(s.runID))
	s.phase = PhasePrimary
	s.level, s.index, s.dcursor, s.ticks = 0, 0, 0, 0
	s.visible = make(map[string]bool, len(s.pool))
	s.order = s.order[:0]
	s.deferrals = make(map[string]int)
	s.diags = nil
	s.reg.Reset()
	s.cache.Reset()
	s.engine.Reseed(s.opts.Seed)
	s.started = time.Now()

	res := resolve.Resolve(s.g.DerivedNodes())
	s.derived = res.Order
	for _, e := range res.Excluded {
		s.diags = append(s.diags, gerrors.Diagnostic{
			Code:   gerrors.DiagUnresolvableDependency,
			NodeID: e.ID,
			Detail: "unresolved derived sources: " + strings.Join(e.Missing, ", "),
		})
		s.log.Warn("excluding derived node", "node", e.ID, "missing", e.Missing)
	}

	observability.Run().OnRunStart(s.runID, len(s.pool), s.g.DerivedCount())
}

// Tick performs one unit of work and reports what happened.
func (s *Scheduler) Tick() Step {
	s.ticks++
	switch s.phase {
	case PhasePrimary:
		if step, ok := s.tickPrimary(); ok {
			return step
		}
		s.phase = PhaseDerived
		s.log.Debug("hierarchy complete", "visible", len(s.order))
		return s.tickDerived()
	case PhaseDerived:
		return s.tickDerived()
	default:
		return Step{Outcome: OutcomeIdle}
	}
}

// tickPrimary returns false once every level has been scanned.
func (s *Scheduler) tickPrimary() (Step, bool) {
	for s.level <= s.maxDepth {
		i := s.nextAtLevel()
		if i < 0 {
			s.level++
			s.index = 0
			continue
		}
		n := s.pool[i]
		if n.ParentID != "" && !s.visible[n.ParentID] {
			return s.deferOrDrop(n.ID, gerrors.DiagMissingParent, func() { s.index = i + 1 }), true
		}
		s.index = i + 1
		s.reveal(n)
		return Step{Outcome: OutcomeRevealed, NodeID: n.ID, Delay: s.delay}, true
	}
	return Step{}, false
}

// nextAtLevel scans forward from the cursor for a node at the current level.
func (s *Scheduler) nextAtLevel() int {
	for i := s.index; i < len(s.pool); i++ {
		if s.pool[i].Depth == s.level {
			return i
		}
	}
	return -1
}

func (s *Scheduler) reveal(n graph.PrimaryNode) {
	s.visible[n.ID] = true
	s.order = append(s.order, n.ID)
	delete(s.deferrals, n.ID)
	if pos, ok := s.layout.Position(n.ID); ok {
		if err := s.reg.Add(n.ID, pos); err != nil {
			s.log.Debug("primary already registered", "node", n.ID, "err", err)
		}
	}
	s.sink.Reveal(n.ID)
	observability.Run().OnReveal(s.runID, n.ID, n.Depth)
}

func (s *Scheduler) tickDerived() Step {
	if s.opts.BulkDerived {
		if s.dcursor < len(s.derived) {
			placed := s.drawOverlay(true)
			s.dcursor = len(s.derived)
			return Step{Outcome: OutcomeBatch, Placed: placed, Delay: s.delay}
		}
		return s.complete()
	}

	// Skip nodes already drawn by DrawOverlay.
	for s.dcursor < len(s.derived) && s.cache.HasNode(s.derived[s.dcursor].ID) {
		s.dcursor++
	}
	if s.dcursor >= len(s.derived) {
		return s.complete()
	}
	n := s.derived[s.dcursor]
	sources, code := s.sources(n)
	if code != "" {
		return s.deferOrDrop(n.ID, code, func() { s.dcursor++ })
	}
	s.dcursor++
	if !s.place(n, sources) {
		return Step{Outcome: OutcomeDropped, NodeID: n.ID, Code: gerrors.ErrCodeInternal, Delay: s.opts.RetryInterval}
	}
	return Step{Outcome: OutcomePlaced, NodeID: n.ID, Delay: s.delay}
}

func (s *Scheduler) complete() Step {
	s.phase = PhaseDone
	s.sink.RunComplete()
	elapsed := time.Since(s.started)
	s.log.Info("run complete",
		"revealed", len(s.order),
		"placed", s.cache.NodeCount(),
		"edges", s.cache.EdgeCount(),
		"ticks", s.ticks,
	)
	observability.Run().OnRunComplete(s.runID, s.ticks, elapsed)
	return Step{Outcome: OutcomeComplete}
}

// deferOrDrop counts a failed precondition for id. Below the cap it reports a
// deferral; at the cap consume advances past the candidate.
func (s *Scheduler) deferOrDrop(id string, code gerrors.Code, consume func()) Step {
	s.deferrals[id]++
	n := s.deferrals[id]
	if s.opts.MaxDeferrals > 0 && n >= s.opts.MaxDeferrals {
		consume()
		s.diags = append(s.diags, gerrors.Diagnostic{
			Code:   gerrors.DiagDeferralLimit,
			NodeID: id,
			Detail: string(code),
		})
		s.log.Warn("dropping node", "node", id, "reason", code, "deferrals", n)
		observability.Run().OnDrop(s.runID, id, string(code))
		return Step{Outcome: OutcomeDropped, NodeID: id, Code: gerrors.DiagDeferralLimit, Delay: s.opts.RetryInterval}
	}
	s.log.Debug("deferring node", "node", id, "reason", code, "deferrals", n)
	observability.Run().OnDefer(s.runID, id, string(code))
	return Step{Outcome: OutcomeDeferred, NodeID: id, Code: code, Delay: s.opts.RetryInterval}
}

// sources collects the positions of n's sources. A non-empty code names the
// first unmet precondition.
func (s *Scheduler) sources(n graph.DerivedNode) ([]placement.Source, gerrors.Code) {
	out := make([]placement.Source, 0, len(n.Sources))
	for _, ref := range n.Sources {
		switch ref.Kind {
		case graph.RefDerived:
			p, ok := s.cache.Node(ref.ID)
			if !ok {
				return nil, gerrors.DiagMissingDerivedSource
			}
			out = append(out, placement.Source{ID: ref.ID, Kind: ref.Kind, Position: p.Position})
		case graph.RefPrimary:
			if !s.visible[ref.ID] {
				return nil, gerrors.DiagMissingPrimarySource
			}
			pos, ok := s.reg.Position(ref.ID)
			if !ok {
				return nil, gerrors.DiagMissingPrimarySource
			}
			out = append(out, placement.Source{ID: ref.ID, Kind: ref.Kind, Position: pos})
		}
	}
	return out, ""
}

// place positions n, records it and emits its node and edges.
func (s *Scheduler) place(n graph.DerivedNode, sources []placement.Source) bool {
	pl, err := s.engine.Place(n.ID, sources, s.reg)
	if err != nil {
		s.log.Error("placement failed", "node", n.ID, "err", err)
		return false
	}
	s.cache.PutNode(overlay.PlacedNode{Node: n, Position: pl.Position, Fallback: pl.Fallback})
	delete(s.deferrals, n.ID)
	s.sink.PlaceDerived(n.ID, pl.Position)
	if pl.Fallback {
		s.diags = append(s.diags, gerrors.Diagnostic{
			Code:   gerrors.DiagPlacementExhausted,
			NodeID: n.ID,
			Detail: "no collision-free position found",
		})
		s.log.Warn("could not find collision-free position", "node", n.ID,
			"x", pl.Initial.X, "y", pl.Initial.Y)
	}
	observability.Run().OnPlace(s.runID, n.ID, pl.Attempts, pl.Fallback)

	for _, src := range sources {
		s.edge(src.ID, n.ID)
	}
	for _, t := range n.Targets {
		if s.cache.HasNode(t) {
			s.edge(n.ID, t)
		}
	}
	return true
}

func (s *Scheduler) edge(source, target string) {
	if s.cache.PutEdge(graph.Edge{Source: source, Target: target}) {
		s.sink.CreateEdge(source, target)
	}
}

// DrawOverlay walks the resolver order once and places every derived node
// whose sources are all on the canvas. Nodes that are already placed, or not
// yet placeable, are skipped and not retried. It returns the IDs placed by
// this call. A second call over an unchanged node set places nothing and
// creates no edges.
func (s *Scheduler) DrawOverlay() []string {
	return s.drawOverlay(false)
}

func (s *Scheduler) drawOverlay(record bool) []string {
	var placed []string
	for _, n := range s.derived {
		if s.cache.HasNode(n.ID) {
			continue
		}
		sources, code := s.sources(n)
		if code != "" {
			if record {
				s.diags = append(s.diags, gerrors.Diagnostic{Code: code, NodeID: n.ID, Detail: "skipped by draw pass"})
			}
			s.log.Debug("skipping node", "node", n.ID, "reason", code)
			continue
		}
		if s.place(n, sources) {
			placed = append(placed, n.ID)
		}
	}
	return placed
}

// RunID identifies the current run.
func (s *Scheduler) RunID() string { return s.runID }

// Phase returns the current phase.
func (s *Scheduler) Phase() Phase { return s.phase }

// Level returns the primary level being revealed.
func (s *Scheduler) Level() int { return s.level }

// Visible reports whether the primary node id has been revealed.
func (s *Scheduler) Visible(id string) bool { return s.visible[id] }

// VisibleIDs returns the revealed primary nodes in reveal order.
func (s *Scheduler) VisibleIDs() []string { return slices.Clone(s.order) }

// Cache returns the overlay cache of the current run. Callers must not
// modify it.
func (s *Scheduler) Cache() *overlay.Cache { return s.cache }

// Position returns the canvas position of any revealed or placed node.
func (s *Scheduler) Position(id string) (graph.Position, bool) { return s.reg.Position(id) }

// Diagnostics returns the exclusions, fallbacks and drops of the current run.
func (s *Scheduler) Diagnostics() []gerrors.Diagnostic { return slices.Clone(s.diags) }

// Deferrals returns the current deferral count per pending node.
func (s *Scheduler) Deferrals() map[string]int { return maps.Clone(s.deferrals) }

// TickBudget returns the most ticks a run that can finish needs: one per node
// and per allowed deferral, doubled for phase changes. A run still going
// after that many ticks is stalled.
func (s *Scheduler) TickBudget() int {
	nodes := s.g.PrimaryCount() + s.g.DerivedCount() + 2
	return 2 * nodes * (s.opts.MaxDeferrals + 1)
}

// Ticks returns the number of ticks in the current run.
func (s *Scheduler) Ticks() int { return s.ticks }

// PerNodeDelay returns the delay reported after a reveal or placement.
func (s *Scheduler) PerNodeDelay() time.Duration { return s.delay }

// Graph returns the scheduled graph.
func (s *Scheduler) Graph() *graph.Graph { return s.g }

// Progress returns counts for progress displays.
type Progress struct {
	Revealed, Primary int
	Placed, Derived   int
}

// Progress reports how far the current run has come. Derived counts only
// nodes the resolver could order.
func (s *Scheduler) Progress() Progress {
	return Progress{
		Revealed: len(s.order),
		Primary:  len(s.pool),
		Placed:   s.cache.NodeCount(),
		Derived:  len(s.derived),
	}
}

// Fraction returns overall completion in [0, 1].
func (p Progress) Fraction() float64 {
	total := p.Primary + p.Derived
	if total == 0 {
		return 1
	}
	return float64(p.Revealed+p.Placed) / float64(total)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
