package graph

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gerrors "github.com/matzehuels/growtree/pkg/errors"
)

func TestReadJSON(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantPrimary int
		wantDerived int
		wantCode    gerrors.Code
		check       func(t *testing.T, g *Graph)
	}{
		{
			name: "Valid",
			input: `{
				"primary": [
					{"id": "root", "depth": 0, "title": "Input"},
					{"id": "collar", "parent": "root", "depth": 1}
				],
				"derived": [
					{"id": "ni", "sources": [{"primary": "collar"}]},
					{"id": "capping", "category": "action",
					 "sources": [{"primary": "collar"}, {"derived": "ni"}],
					 "targets": ["krigagem"]}
				]
			}`,
			wantPrimary: 2,
			wantDerived: 2,
			check: func(t *testing.T, g *Graph) {
				n, ok := g.Derived("capping")
				if !ok {
					t.Fatal("capping not found")
				}
				if n.Category != CategoryAction {
					t.Errorf("Category = %q, want action", n.Category)
				}
				if len(n.Sources) != 2 || n.Sources[1] != Derived("ni") {
					t.Errorf("Sources = %v, want [primary:collar derived:ni]", n.Sources)
				}
				ni, _ := g.Derived("ni")
				if ni.Category != CategoryInterpretation {
					t.Errorf("default Category = %q, want interpretation", ni.Category)
				}
			},
		},
		{
			name:     "Malformed",
			input:    `{invalid`,
			wantCode: gerrors.ErrCodeInvalidFormat,
		},
		{
			name:     "MissingID",
			input:    `{"primary": [{"depth": 0}]}`,
			wantCode: gerrors.ErrCodeInvalidDocument,
		},
		{
			name:     "UnknownCategory",
			input:    `{"derived": [{"id": "d", "category": "guess", "sources": [{"primary": "a"}]}]}`,
			wantCode: gerrors.ErrCodeInvalidDocument,
		},
		{
			name:     "NoSources",
			input:    `{"derived": [{"id": "d", "sources": []}]}`,
			wantCode: gerrors.ErrCodeInvalidDocument,
		},
		{
			name:     "AmbiguousReference",
			input:    `{"derived": [{"id": "d", "sources": [{"primary": "a", "derived": "b"}]}]}`,
			wantCode: gerrors.ErrCodeInvalidDocument,
		},
		{
			name:     "EmptyReference",
			input:    `{"derived": [{"id": "d", "sources": [{}]}]}`,
			wantCode: gerrors.ErrCodeInvalidDocument,
		},
		{
			name:     "DepthMismatch",
			input:    `{"primary": [{"id": "r"}, {"id": "a", "parent": "r", "depth": 3}]}`,
			wantCode: gerrors.ErrCodeInvalidDocument,
		},
		{
			name:        "DanglingParent",
			input:       `{"primary": [{"id": "a", "parent": "ghost", "depth": 1}]}`,
			wantPrimary: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ReadJSON(strings.NewReader(tt.input))
			if tt.wantCode != "" {
				if !gerrors.Is(err, tt.wantCode) {
					t.Fatalf("ReadJSON() error = %v, want code %s", err, tt.wantCode)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadJSON: %v", err)
			}
			if got := g.PrimaryCount(); got != tt.wantPrimary {
				t.Errorf("primary = %d, want %d", got, tt.wantPrimary)
			}
			if got := g.DerivedCount(); got != tt.wantDerived {
				t.Errorf("derived = %d, want %d", got, tt.wantDerived)
			}
			if tt.check != nil {
				tt.check(t, g)
			}
		})
	}
}

func TestWriteJSONPreservesOrder(t *testing.T) {
	g := New()
	_ = g.AddPrimary(PrimaryNode{ID: "z"})
	_ = g.AddPrimary(PrimaryNode{ID: "a", ParentID: "z", Depth: 1})
	_ = g.AddDerived(DerivedNode{ID: "d2", Sources: []Reference{Primary("a")}})
	_ = g.AddDerived(DerivedNode{ID: "d1", Sources: []Reference{Derived("d2")}})

	var buf bytes.Buffer
	if err := WriteJSON(g, &buf); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	back, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	derived := back.DerivedNodes()
	if derived[0].ID != "d2" || derived[1].ID != "d1" {
		t.Errorf("derived order = [%s %s], want [d2 d1]", derived[0].ID, derived[1].ID)
	}
	if derived[1].Sources[0] != Derived("d2") {
		t.Errorf("d1 source = %v, want derived:d2", derived[1].Sources[0])
	}
}

func TestImportJSONNotFound(t *testing.T) {
	_, err := ImportJSON(filepath.Join(t.TempDir(), "nonexistent.json"))
	if !gerrors.Is(err, gerrors.ErrCodeFileNotFound) {
		t.Errorf("ImportJSON() error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestExportImportJSON(t *testing.T) {
	g := New()
	_ = g.AddPrimary(PrimaryNode{ID: "root", Title: "Input"})

	path := filepath.Join(t.TempDir(), "graph.json")
	if err := ExportJSON(g, path); err != nil {
		t.Fatalf("ExportJSON: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
	back, err := ImportJSON(path)
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	n, ok := back.Primary("root")
	if !ok || n.Title != "Input" {
		t.Errorf("Primary(root) = %+v, %v", n, ok)
	}
}

func TestReferenceJSON(t *testing.T) {
	data, err := json.Marshal([]Reference{Primary("a"), Derived("b")})
	if err != nil {
		t.Fatal(err)
	}
	if got, want := string(data), `[{"primary":"a"},{"derived":"b"}]`; got != want {
		t.Errorf("Marshal = %s, want %s", got, want)
	}

	var r Reference
	if err := json.Unmarshal([]byte(`{"primary":"x","derived":"y"}`), &r); err == nil {
		t.Error("expected error for reference with both kinds")
	}
	if _, err := json.Marshal(Reference{}); err == nil {
		t.Error("expected error marshaling zero reference")
	}
}
