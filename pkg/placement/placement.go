package placement

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/matzehuels/growtree/pkg/graph"
)

// ErrNoSources is returned by [Engine.Place] when called without sources.
var ErrNoSources = errors.New("placement needs at least one source")

// Config controls derived node placement. Zero numeric fields take the
// defaults from [DefaultConfig].
type Config struct {
	MinDistance     float64 // Required clearance between positions
	MaxAttempts     int     // Spiral candidates tried before falling back
	AngleStep       float64 // Radians between consecutive spiral candidates
	RadiusStep      float64 // Radius growth per spiral ring
	RingSize        int     // Candidates per ring
	VerticalSpacing float64 // Vertical distance per depth class
	FallbackJitter  float64 // Width of the random horizontal fallback offset
	FallbackPush    float64 // Downward fallback offset

	// TerminalIDs are placed in the lowest depth class regardless of sources.
	TerminalIDs []string
	// Offsets shifts the initial x of specific nodes.
	Offsets map[string]float64
}

// DefaultConfig returns the stock placement parameters.
func DefaultConfig() Config {
	return Config{
		MinDistance:     100,
		MaxAttempts:     50,
		AngleStep:       math.Pi / 6,
		RadiusStep:      60,
		RingSize:        12,
		VerticalSpacing: 120,
		FallbackJitter:  200,
		FallbackPush:    150,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinDistance <= 0 {
		c.MinDistance = d.MinDistance
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.AngleStep == 0 {
		c.AngleStep = d.AngleStep
	}
	if c.RadiusStep <= 0 {
		c.RadiusStep = d.RadiusStep
	}
	if c.RingSize <= 0 {
		c.RingSize = d.RingSize
	}
	if c.VerticalSpacing == 0 {
		c.VerticalSpacing = d.VerticalSpacing
	}
	if c.FallbackJitter == 0 {
		c.FallbackJitter = d.FallbackJitter
	}
	if c.FallbackPush == 0 {
		c.FallbackPush = d.FallbackPush
	}
	return c
}

// Source is a placed node a derived node is positioned against.
type Source struct {
	ID       string
	Kind     graph.RefKind
	Position graph.Position
}

// Placement describes where a node ended up and how.
type Placement struct {
	Position graph.Position
	Initial  graph.Position
	// Attempts is the spiral candidate index that was accepted, 0 when the
	// initial point was clear. Exhausted searches report MaxAttempts.
	Attempts int
	// Fallback is set when no clear candidate existed. Fallback positions
	// may violate MinDistance.
	Fallback bool
}

// Engine positions derived nodes near their sources without overlapping
// anything already in the registry.
//
// Engine is not safe for concurrent use.
type Engine struct {
	cfg      Config
	terminal map[string]bool
	rng      *rand.Rand
}

// New creates an Engine. The seed drives the fallback jitter, which is the
// only random step.
func New(cfg Config, seed uint64) *Engine {
	cfg = cfg.withDefaults()
	terminal := make(map[string]bool, len(cfg.TerminalIDs))
	for _, id := range cfg.TerminalIDs {
		terminal[id] = true
	}
	return &Engine{
		cfg:      cfg,
		terminal: terminal,
		rng:      rand.New(rand.NewPCG(seed, seed^0xdeadbeef)),
	}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	c := e.cfg
	c.TerminalIDs = slices.Clone(c.TerminalIDs)
	return c
}

// Reseed restarts the fallback jitter sequence.
func (e *Engine) Reseed(seed uint64) {
	e.rng = rand.New(rand.NewPCG(seed, seed^0xdeadbeef))
}

// DepthClass returns the vertical band multiplier for id: 3 for terminal
// nodes, 2 when any source is derived, 1 otherwise.
func (e *Engine) DepthClass(id string, sources []Source) int {
	if e.terminal[id] {
		return 3
	}
	for _, s := range sources {
		if s.Kind == graph.RefDerived {
			return 2
		}
	}
	return 1
}

// Initial returns the preferred position of id before collision handling:
// the sources' mean x plus the configured offset, below the lowest source.
func (e *Engine) Initial(id string, sources []Source) graph.Position {
	var sumX float64
	maxY := math.Inf(-1)
	for _, s := range sources {
		sumX += s.Position.X
		maxY = max(maxY, s.Position.Y)
	}
	x := sumX/float64(len(sources)) + e.cfg.Offsets[id]
	y := maxY + float64(e.DepthClass(id, sources))*e.cfg.VerticalSpacing
	return graph.Position{X: x, Y: y}
}

// Candidate returns the spiral point for the given attempt around origin.
func (e *Engine) Candidate(origin graph.Position, attempt int) graph.Position {
	angle := e.cfg.AngleStep * float64(attempt)
	ring := (attempt + e.cfg.RingSize - 1) / e.cfg.RingSize
	radius := e.cfg.RadiusStep * float64(ring)
	return origin.Add(radius*math.Cos(angle), radius*math.Sin(angle))
}

// Place computes a position for id and records it in reg.
//
// The initial point is used if it clears MinDistance from every registered
// position. Otherwise spiral candidates 1..MaxAttempts are tried in turn.
// When all fail, the position falls back to a jittered point below the
// initial one and Placement.Fallback is set.
func (e *Engine) Place(id string, sources []Source, reg *Registry) (Placement, error) {
	if len(sources) == 0 {
		return Placement{}, fmt.Errorf("%w: %s", ErrNoSources, id)
	}
	if reg.Has(id) {
		return Placement{}, fmt.Errorf("%w: %s", ErrAlreadyPlaced, id)
	}

	initial := e.Initial(id, sources)
	pl := e.search(initial, reg)
	if err := reg.Add(id, pl.Position); err != nil {
		return Placement{}, err
	}
	return pl, nil
}

func (e *Engine) search(initial graph.Position, reg *Registry) Placement {
	if reg.Clear(initial, e.cfg.MinDistance) {
		return Placement{Position: initial, Initial: initial}
	}
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		p := e.Candidate(initial, attempt)
		if reg.Clear(p, e.cfg.MinDistance) {
			return Placement{Position: p, Initial: initial, Attempts: attempt}
		}
	}
	dx := (e.rng.Float64() - 0.5) * e.cfg.FallbackJitter
	return Placement{
		Position: initial.Add(dx, e.cfg.FallbackPush),
		Initial:  initial,
		Attempts: e.cfg.MaxAttempts,
		Fallback: true,
	}
}
