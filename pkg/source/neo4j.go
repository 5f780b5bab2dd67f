package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sony/gobreaker"

	"github.com/matzehuels/growtree/pkg/cache"
	gerrors "github.com/matzehuels/growtree/pkg/errors"
	"github.com/matzehuels/growtree/pkg/observability"
)

const dataNodesQuery = `
MATCH (n:DataNode)
OPTIONAL MATCH (n)-[:CONTAINS]->(child:DataNode)
WITH n, collect(DISTINCT child.id) AS children
RETURN n.id AS id, n.title AS title, n.type AS type, n.render_type AS render_type,
       n.column AS column, n.stats AS stats, n.distribution AS distribution,
       n.value AS value, children
ORDER BY n.id`

const inferencesQuery = `
MATCH (i:Inference)
OPTIONAL MATCH (d:DataNode)-[:SUPPORTS]->(i)
WITH i, collect(DISTINCT d.id) AS data_sources
OPTIONAL MATCH (p:Inference)-[:LEADS_TO]->(i)
WITH i, data_sources, collect(DISTINCT p.id) AS inference_sources
OPTIONAL MATCH (i)-[:LEADS_TO]->(t:Inference)
WITH i, data_sources, inference_sources, collect(DISTINCT t.id) AS targets
RETURN i.id AS id, i.title AS title, i.type AS type, i.evidence AS evidence,
       i.implications AS implications, i.recommendations AS recommendations,
       i.metadata AS metadata, data_sources, inference_sources, targets
ORDER BY i.id`

// Content keys copied from data node and inference properties.
var (
	dataNodeProps  = []string{"type", "render_type", "column", "stats", "distribution", "value"}
	inferenceProps = []string{"evidence", "implications", "recommendations", "metadata"}
)

// DataNodeRow is one DataNode with the ids it CONTAINS.
type DataNodeRow struct {
	ID       string
	Title    string
	Children []string
	Props    map[string]any
}

// InferenceRow is one Inference. DataSources and InferenceSources are kept
// apart so references never need to be told apart by name.
type InferenceRow struct {
	ID               string
	Title            string
	Type             string
	DataSources      []string
	InferenceSources []string
	Targets          []string
	Props            map[string]any
}

// Config holds connection settings.
type Config struct {
	URI      string
	User     string
	Password string
	Database string
}

type querier interface {
	query(ctx context.Context, cypher string) ([]*neo4j.Record, error)
	close(ctx context.Context) error
}

// Breaker settings: after breakerTrips consecutive failed queries the client
// fails fast for breakerCooldown before letting one probe through.
const (
	breakerTrips    = 3
	breakerCooldown = 30 * time.Second
)

// Client reads growtree graphs from Neo4j. A Client is safe for concurrent
// use; long-lived clients stop querying an unreachable server for a while
// after repeated failures.
type Client struct {
	q  querier
	cb *gobreaker.CircuitBreaker
}

func newClient(name string, q querier) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     breakerCooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= breakerTrips
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &Client{q: q, cb: cb}
}

// Connect opens a driver and verifies connectivity.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.URI == "" {
		return nil, gerrors.New(gerrors.ErrCodeInvalidConfig, "neo4j uri is not set")
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeInvalidConfig, err, "create neo4j driver")
	}
	err = cache.RetryWithBackoff(ctx, func() error {
		if err := driver.VerifyConnectivity(ctx); err != nil {
			if neo4j.IsConnectivityError(err) {
				return cache.Retryable(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		_ = driver.Close(ctx)
		return nil, gerrors.Wrap(gerrors.ErrCodeNetwork, err, "connect to %s", cfg.URI)
	}
	return newClient(cfg.URI, &driverQuerier{driver: driver, database: cfg.Database}), nil
}

// Close closes the driver.
func (c *Client) Close(ctx context.Context) error { return c.q.close(ctx) }

// DataNodes returns every DataNode ordered by id.
func (c *Client) DataNodes(ctx context.Context) ([]DataNodeRow, error) {
	records, err := c.run(ctx, "data_nodes", dataNodesQuery)
	if err != nil {
		return nil, err
	}
	rows := make([]DataNodeRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, DataNodeRow{
			ID:       stringValue(rec, "id"),
			Title:    stringValue(rec, "title"),
			Children: stringList(rec, "children"),
			Props:    props(rec, dataNodeProps),
		})
	}
	return rows, nil
}

// Inferences returns every Inference ordered by id.
func (c *Client) Inferences(ctx context.Context) ([]InferenceRow, error) {
	records, err := c.run(ctx, "inferences", inferencesQuery)
	if err != nil {
		return nil, err
	}
	rows := make([]InferenceRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, InferenceRow{
			ID:               stringValue(rec, "id"),
			Title:            stringValue(rec, "title"),
			Type:             stringValue(rec, "type"),
			DataSources:      stringList(rec, "data_sources"),
			InferenceSources: stringList(rec, "inference_sources"),
			Targets:          stringList(rec, "targets"),
			Props:            props(rec, inferenceProps),
		})
	}
	return rows, nil
}

func (c *Client) run(ctx context.Context, name, cypher string) ([]*neo4j.Record, error) {
	start := time.Now()
	out, err := c.cb.Execute(func() (any, error) {
		return c.q.query(ctx, cypher)
	})
	records, _ := out.([]*neo4j.Record)
	observability.Source().OnQuery(ctx, name, len(records), time.Since(start), err)
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, gerrors.Wrap(gerrors.ErrCodeNetwork, err, "neo4j unavailable, skipped %s", name)
	case err != nil:
		return nil, gerrors.Wrap(gerrors.ErrCodeNetwork, err, "query %s", name)
	}
	return records, nil
}

type driverQuerier struct {
	driver   neo4j.DriverWithContext
	database string
}

func (d *driverQuerier) query(ctx context.Context, cypher string) ([]*neo4j.Record, error) {
	opts := []neo4j.ExecuteQueryConfigurationOption{neo4j.ExecuteQueryWithReadersRouting()}
	if d.database != "" {
		opts = append(opts, neo4j.ExecuteQueryWithDatabase(d.database))
	}
	var records []*neo4j.Record
	err := cache.RetryWithBackoff(ctx, func() error {
		res, err := neo4j.ExecuteQuery(ctx, d.driver, cypher, nil, neo4j.EagerResultTransformer, opts...)
		if err != nil {
			if neo4j.IsRetryable(err) {
				return cache.Retryable(err)
			}
			return err
		}
		records = res.Records
		return nil
	})
	return records, err
}

func (d *driverQuerier) close(ctx context.Context) error { return d.driver.Close(ctx) }

func stringValue(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	switch s := v.(type) {
	case string:
		return s
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}

// stringList reads a collected list, dropping nulls and empty strings.
func stringList(rec *neo4j.Record, key string) []string {
	v, _ := rec.Get(key)
	items, _ := v.([]any)
	var out []string
	for _, it := range items {
		if s, ok := it.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

// props copies the non-null keys of rec. Properties stored as JSON text are
// decoded; text that is not JSON is kept as is.
func props(rec *neo4j.Record, keys []string) map[string]any {
	out := make(map[string]any)
	for _, k := range keys {
		v, ok := rec.Get(k)
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			var decoded any
			if json.Unmarshal([]byte(s), &decoded) == nil {
				switch decoded.(type) {
				case map[string]any, []any:
					v = decoded
				}
			}
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
