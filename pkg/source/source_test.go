package source

import (
	"context"
	"errors"
	"io"
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sony/gobreaker"

	gerrors "github.com/matzehuels/growtree/pkg/errors"
	"github.com/matzehuels/growtree/pkg/graph"
)

type fakeQuerier struct {
	results map[string][]*neo4j.Record
	err     error
	closed  bool
	calls   int
}

func (f *fakeQuerier) query(_ context.Context, cypher string) ([]*neo4j.Record, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	for marker, recs := range f.results {
		if strings.Contains(cypher, marker) {
			return recs, nil
		}
	}
	return nil, nil
}

func (f *fakeQuerier) close(context.Context) error { f.closed = true; return nil }

func record(kv ...any) *neo4j.Record {
	r := &neo4j.Record{}
	for i := 0; i < len(kv); i += 2 {
		r.Keys = append(r.Keys, kv[i].(string))
		r.Values = append(r.Values, kv[i+1])
	}
	return r
}

func quiet() *log.Logger { return log.New(io.Discard) }

func TestClientRows(t *testing.T) {
	q := &fakeQuerier{results: map[string][]*neo4j.Record{
		"DataNode)\nOPTIONAL": {
			record("id", "assay", "title", "Assay", "children", []any{"assay.ni", nil, ""},
				"stats", `{"mean": 1.2}`, "column", "ni", "value", nil),
		},
		"Inference)\nOPTIONAL": {
			record("id", "ni_lateritico", "title", "Laterite", "type", "interpretation",
				"data_sources", []any{"assay.ni"}, "inference_sources", []any{},
				"targets", []any{"krigagem"}, "implications", `["a","b"]`, "metadata", "plain text"),
		},
	}}
	c := newClient("test", q)
	ctx := context.Background()

	nodes, err := c.DataNodes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := DataNodeRow{
		ID: "assay", Title: "Assay", Children: []string{"assay.ni"},
		Props: map[string]any{"stats": map[string]any{"mean": 1.2}, "column": "ni"},
	}
	if len(nodes) != 1 || !reflect.DeepEqual(nodes[0], want) {
		t.Errorf("DataNodes() = %+v, want %+v", nodes, want)
	}

	infs, err := c.Inferences(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(infs) != 1 {
		t.Fatalf("len(Inferences()) = %d", len(infs))
	}
	got := infs[0]
	if got.Type != "interpretation" || !reflect.DeepEqual(got.DataSources, []string{"assay.ni"}) ||
		got.InferenceSources != nil || !reflect.DeepEqual(got.Targets, []string{"krigagem"}) {
		t.Errorf("Inferences()[0] = %+v", got)
	}
	if !reflect.DeepEqual(got.Props["implications"], []any{"a", "b"}) || got.Props["metadata"] != "plain text" {
		t.Errorf("props = %v", got.Props)
	}

	if err := c.Close(ctx); err != nil || !q.closed {
		t.Errorf("Close() = %v, closed = %v", err, q.closed)
	}
}

func TestClientQueryError(t *testing.T) {
	c := newClient("test", &fakeQuerier{err: errors.New("connection refused")})
	_, err := c.DataNodes(context.Background())
	if !gerrors.Is(err, gerrors.ErrCodeNetwork) {
		t.Errorf("DataNodes() error = %v, want NETWORK_ERROR", err)
	}
}

func TestClientBreakerOpens(t *testing.T) {
	q := &fakeQuerier{err: errors.New("connection refused")}
	c := newClient("test", q)
	ctx := context.Background()

	for range breakerTrips {
		if _, err := c.DataNodes(ctx); err == nil {
			t.Fatal("expected error")
		}
	}
	calls := q.calls
	_, err := c.Inferences(ctx)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Inferences() error = %v, want open breaker", err)
	}
	if !gerrors.Is(err, gerrors.ErrCodeNetwork) {
		t.Errorf("Inferences() error = %v, want NETWORK_ERROR", err)
	}
	if q.calls != calls {
		t.Error("open breaker still queried the server")
	}
}

func TestConnectRequiresURI(t *testing.T) {
	_, err := Connect(context.Background(), Config{})
	if !gerrors.Is(err, gerrors.ErrCodeInvalidConfig) {
		t.Errorf("Connect() error = %v, want INVALID_CONFIG", err)
	}
}

func TestBuildGraph(t *testing.T) {
	nodes := []DataNodeRow{
		{ID: "assay", Title: "Assay", Children: []string{"assay.ni", "assay.co"}},
		{ID: "assay.co", Title: "Co"},
		{ID: "assay.ni", Title: "Ni", Children: []string{"assay.ni.stats"}},
		{ID: "assay.ni.stats"},
		{ID: "collar", Title: "Collar"},
	}
	infs := []InferenceRow{
		{ID: "ni_lateritico", Title: "Laterite", DataSources: []string{"assay.ni"}, Targets: []string{"capping"}},
		{ID: "capping", Title: "Capping", Type: "action",
			DataSources: []string{"assay.co"}, InferenceSources: []string{"ni_lateritico"}},
		{ID: "", Title: "no id", DataSources: []string{"collar"}},
		{ID: "orphan", Title: "No sources"},
		{ID: "weird", Title: "Weird", Type: "prophecy", DataSources: []string{"collar"}},
		{ID: "capping", Title: "Dup", DataSources: []string{"collar"}},
	}
	g, err := BuildGraph(nodes, infs, BuildOptions{Logger: quiet()})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	depths := map[string]int{"root": 0, "assay": 1, "collar": 1, "assay.ni": 2, "assay.co": 2, "assay.ni.stats": 3}
	for id, d := range depths {
		n, ok := g.Primary(id)
		if !ok {
			t.Errorf("%s missing", id)
			continue
		}
		if n.Depth != d {
			t.Errorf("%s depth = %d, want %d", id, n.Depth, d)
		}
	}
	if got := g.Children("root"); !reflect.DeepEqual(got, []string{"assay", "collar"}) {
		t.Errorf("Children(root) = %v", got)
	}
	if root, _ := g.Primary("root"); root.Title != "Input" {
		t.Errorf("root title = %q", root.Title)
	}

	if g.DerivedCount() != 2 {
		t.Fatalf("DerivedCount() = %d, want 2", g.DerivedCount())
	}
	capping, _ := g.Derived("capping")
	wantSources := []graph.Reference{graph.Primary("assay.co"), graph.Derived("ni_lateritico")}
	if capping.Category != graph.CategoryAction || !reflect.DeepEqual(capping.Sources, wantSources) {
		t.Errorf("capping = %+v", capping)
	}
}

func TestBuildGraphCycle(t *testing.T) {
	nodes := []DataNodeRow{
		{ID: "a", Children: []string{"b"}},
		{ID: "b", Children: []string{"a"}},
		{ID: "c"},
	}
	g, err := BuildGraph(nodes, nil, BuildOptions{RootID: "top", Logger: quiet()})
	if err != nil {
		t.Fatal(err)
	}
	if g.PrimaryCount() != 4 {
		t.Fatalf("PrimaryCount() = %d, want 4", g.PrimaryCount())
	}
	a, _ := g.Primary("a")
	b, _ := g.Primary("b")
	if a.ParentID != "top" || a.Depth != 1 || b.ParentID != "a" || b.Depth != 2 {
		t.Errorf("a = %+v, b = %+v", a, b)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestBuildGraphRootCollision(t *testing.T) {
	_, err := BuildGraph([]DataNodeRow{{ID: "root"}}, nil, BuildOptions{Logger: quiet()})
	if !errors.Is(err, graph.ErrDuplicateNodeID) {
		t.Errorf("BuildGraph() error = %v, want ErrDuplicateNodeID", err)
	}
}

func TestNeo4jIntegration(t *testing.T) {
	uri := os.Getenv("NEO4J_TEST_URI")
	if uri == "" {
		t.Skip("NEO4J_TEST_URI not set")
	}
	ctx := context.Background()
	c, err := Connect(ctx, Config{
		URI:      uri,
		User:     os.Getenv("NEO4J_TEST_USER"),
		Password: os.Getenv("NEO4J_TEST_PASSWORD"),
		Database: os.Getenv("NEO4J_TEST_DATABASE"),
	})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close(ctx)

	nodes, err := c.DataNodes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	infs, err := c.Inferences(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := BuildGraph(nodes, infs, BuildOptions{Logger: quiet()}); err != nil {
		t.Fatal(err)
	}
}
