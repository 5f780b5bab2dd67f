// Package config loads growtree settings.
//
// Settings come from, in increasing precedence: built-in defaults, a TOML
// file, a .env file in the working directory, and the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	gerrors "github.com/matzehuels/growtree/pkg/errors"
	"github.com/matzehuels/growtree/pkg/placement"
	"github.com/matzehuels/growtree/pkg/reveal"
	"github.com/matzehuels/growtree/pkg/source"
	"github.com/matzehuels/growtree/pkg/treelayout"
)

// FileName is the config file looked up by [Load].
const FileName = "growtree.toml"

// Duration is a time.Duration written as "10s" or "150ms" in TOML.
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

type Config struct {
	Run       RunConfig       `toml:"run"`
	Placement PlacementConfig `toml:"placement"`
	Layout    LayoutConfig    `toml:"layout"`
	Neo4j     Neo4jConfig     `toml:"neo4j"`
	Cache     CacheConfig     `toml:"cache"`
	Server    ServerConfig    `toml:"server"`
}

type RunConfig struct {
	Budget        Duration `toml:"budget"`
	MinNodeDelay  Duration `toml:"min_node_delay"`
	RetryInterval Duration `toml:"retry_interval"`
	BulkDerived   bool     `toml:"bulk_derived"`
	MaxDeferrals  int      `toml:"max_deferrals" validate:"gte=0"`
	Seed          uint64   `toml:"seed"`
}

type PlacementConfig struct {
	MinDistance     float64            `toml:"min_distance" validate:"gte=0"`
	MaxAttempts     int                `toml:"max_attempts" validate:"gte=0"`
	AngleStep       float64            `toml:"angle_step"`
	RadiusStep      float64            `toml:"radius_step" validate:"gte=0"`
	RingSize        int                `toml:"ring_size" validate:"gte=0"`
	VerticalSpacing float64            `toml:"vertical_spacing"`
	Terminals       []string           `toml:"terminals" validate:"dive,required"`
	Offsets         map[string]float64 `toml:"offsets"`
}

type LayoutConfig struct {
	NodeWidth   float64 `toml:"node_width" validate:"gte=0"`
	LevelHeight float64 `toml:"level_height" validate:"gte=0"`
	SiblingSep  float64 `toml:"sibling_sep" validate:"gte=0"`
	CousinSep   float64 `toml:"cousin_sep" validate:"gte=0"`
}

type Neo4jConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
}

type CacheConfig struct {
	Dir      string   `toml:"dir"`
	RedisURL string   `toml:"redis_url" validate:"omitempty,url"`
	Prefix   string   `toml:"prefix"`
	TTL      Duration `toml:"ttl"`
}

type ServerConfig struct {
	Addr    string `toml:"addr" validate:"required"`
	NATSURL string `toml:"nats_url" validate:"omitempty,url"`

	// RunsPerSecond limits /api/run across all clients; 0 disables the limit.
	RunsPerSecond float64 `toml:"runs_per_second" validate:"gte=0"`
	RunBurst      int     `toml:"run_burst" validate:"gte=0"`
}

// Default returns the built-in settings.
func Default() Config {
	pc := placement.DefaultConfig()
	lo := treelayout.DefaultOptions()
	return Config{
		Run: RunConfig{
			Budget:        Duration{reveal.DefaultRunBudget},
			MinNodeDelay:  Duration{reveal.DefaultMinNodeDelay},
			RetryInterval: Duration{reveal.DefaultRetryInterval},
		},
		Placement: PlacementConfig{
			MinDistance:     pc.MinDistance,
			MaxAttempts:     pc.MaxAttempts,
			AngleStep:       pc.AngleStep,
			RadiusStep:      pc.RadiusStep,
			RingSize:        pc.RingSize,
			VerticalSpacing: pc.VerticalSpacing,
		},
		Layout: LayoutConfig{
			NodeWidth:   lo.NodeWidth,
			LevelHeight: lo.LevelHeight,
			SiblingSep:  lo.SiblingSep,
			CousinSep:   lo.CousinSep,
		},
		Neo4j: Neo4jConfig{
			URI:      "neo4j://127.0.0.1:7687",
			User:     "neo4j",
			Database: "neo4j",
		},
		Cache:  CacheConfig{Prefix: "growtree:", TTL: Duration{24 * time.Hour}},
		Server: ServerConfig{Addr: ":5000", RunsPerSecond: 5, RunBurst: 10},
	}
}

// Load reads settings. An explicit path must exist; otherwise the first
// growtree.toml found in the user config directory or the working directory
// is used, and defaults apply when there is none. The returned path is the
// file that was read, or "".
func Load(path string) (Config, string, error) {
	cfg := Default()
	if path == "" {
		path = find()
	} else if _, err := os.Stat(path); err != nil {
		return cfg, "", gerrors.Wrap(gerrors.ErrCodeFileNotFound, err, "config file %s", path)
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, path, gerrors.Wrap(gerrors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, path, gerrors.Wrap(gerrors.ErrCodeInvalidConfig, err, "load .env")
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, path, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, path, err
	}
	return cfg, path, nil
}

func find() string {
	var candidates []string
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "growtree", FileName))
	}
	candidates = append(candidates, FileName)
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}

// Environment variables read by [Config.ApplyEnv].
const (
	EnvNeo4jURI      = "NEO4J_URI"
	EnvNeo4jUser     = "NEO4J_USER"
	EnvNeo4jPassword = "NEO4J_PASSWORD"
	EnvNeo4jDatabase = "NEO4J_DATABASE"
	EnvRedisURL      = "GROWTREE_REDIS_URL"
	EnvNATSURL       = "GROWTREE_NATS_URL"
	EnvAddr          = "GROWTREE_ADDR"
	EnvSeed          = "GROWTREE_SEED"
)

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		EnvNeo4jURI:      &c.Neo4j.URI,
		EnvNeo4jUser:     &c.Neo4j.User,
		EnvNeo4jPassword: &c.Neo4j.Password,
		EnvNeo4jDatabase: &c.Neo4j.Database,
		EnvRedisURL:      &c.Cache.RedisURL,
		EnvNATSURL:       &c.Server.NATSURL,
		EnvAddr:          &c.Server.Addr,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	if v, ok := lookup(EnvSeed); ok && v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return gerrors.Wrap(gerrors.ErrCodeInvalidConfig, err, "%s", EnvSeed)
		}
		c.Run.Seed = seed
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks value ranges.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return gerrors.New(gerrors.ErrCodeInvalidConfig, "invalid %s: failed %q", fe.Namespace(), fe.Tag())
		}
		return gerrors.Wrap(gerrors.ErrCodeInvalidConfig, err, "validate config")
	}
	for _, d := range []Duration{c.Run.Budget, c.Run.MinNodeDelay, c.Run.RetryInterval, c.Cache.TTL} {
		if d.Duration < 0 {
			return gerrors.New(gerrors.ErrCodeInvalidConfig, "durations must not be negative, got %s", d)
		}
	}
	return nil
}

// RevealOptions converts the run and placement settings.
func (c Config) RevealOptions() reveal.Options {
	p := c.Placement
	return reveal.Options{
		RunBudget:     c.Run.Budget.Duration,
		MinNodeDelay:  c.Run.MinNodeDelay.Duration,
		RetryInterval: c.Run.RetryInterval.Duration,
		BulkDerived:   c.Run.BulkDerived,
		MaxDeferrals:  c.Run.MaxDeferrals,
		Seed:          c.Run.Seed,
		Placement: placement.Config{
			MinDistance:     p.MinDistance,
			MaxAttempts:     p.MaxAttempts,
			AngleStep:       p.AngleStep,
			RadiusStep:      p.RadiusStep,
			RingSize:        p.RingSize,
			VerticalSpacing: p.VerticalSpacing,
			TerminalIDs:     p.Terminals,
			Offsets:         p.Offsets,
		},
	}
}

// LayoutOptions converts the tree layout settings.
func (c Config) LayoutOptions() treelayout.Options {
	return treelayout.Options{
		NodeWidth:   c.Layout.NodeWidth,
		LevelHeight: c.Layout.LevelHeight,
		SiblingSep:  c.Layout.SiblingSep,
		CousinSep:   c.Layout.CousinSep,
	}
}

// SourceConfig converts the Neo4j settings.
func (c Config) SourceConfig() source.Config {
	return source.Config(c.Neo4j)
}

// String renders the config as TOML with the password masked.
func (c Config) String() string {
	if c.Neo4j.Password != "" {
		c.Neo4j.Password = "********"
	}
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return b.String()
}
