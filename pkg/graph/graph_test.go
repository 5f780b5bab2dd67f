package graph

import (
	"errors"
	"slices"
	"testing"
)

func TestAddPrimary(t *testing.T) {
	tests := []struct {
		name    string
		nodes   []PrimaryNode
		wantErr error
	}{
		{
			name:  "Valid",
			nodes: []PrimaryNode{{ID: "root"}, {ID: "a", ParentID: "root", Depth: 1}},
		},
		{
			name:    "EmptyID",
			nodes:   []PrimaryNode{{ID: ""}},
			wantErr: ErrInvalidNodeID,
		},
		{
			name:    "Duplicate",
			nodes:   []PrimaryNode{{ID: "a"}, {ID: "a"}},
			wantErr: ErrDuplicateNodeID,
		},
		{
			name:    "NegativeDepth",
			nodes:   []PrimaryNode{{ID: "a", Depth: -1}},
			wantErr: ErrInvalidDepth,
		},
		{
			name:  "UnknownParentAccepted",
			nodes: []PrimaryNode{{ID: "a", ParentID: "ghost", Depth: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			var err error
			for _, n := range tt.nodes {
				if err = g.AddPrimary(n); err != nil {
					break
				}
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("AddPrimary() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddDerived(t *testing.T) {
	tests := []struct {
		name    string
		node    DerivedNode
		wantErr error
	}{
		{
			name: "Valid",
			node: DerivedNode{ID: "d", Sources: []Reference{Primary("a")}},
		},
		{
			name:    "EmptyID",
			node:    DerivedNode{Sources: []Reference{Primary("a")}},
			wantErr: ErrInvalidNodeID,
		},
		{
			name:    "CollidesWithPrimary",
			node:    DerivedNode{ID: "a", Sources: []Reference{Primary("a")}},
			wantErr: ErrDuplicateNodeID,
		},
		{
			name:    "NoSources",
			node:    DerivedNode{ID: "d"},
			wantErr: ErrNoSources,
		},
		{
			name:    "BadCategory",
			node:    DerivedNode{ID: "d", Category: "guess", Sources: []Reference{Primary("a")}},
			wantErr: ErrInvalidCategory,
		},
		{
			name:    "ZeroReference",
			node:    DerivedNode{ID: "d", Sources: []Reference{{}}},
			wantErr: ErrInvalidReference,
		},
		{
			name: "DanglingSourceAccepted",
			node: DerivedNode{ID: "d", Sources: []Reference{Derived("missing")}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			if err := g.AddPrimary(PrimaryNode{ID: "a"}); err != nil {
				t.Fatal(err)
			}
			err := g.AddDerived(tt.node)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("AddDerived() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddDerivedCopiesSlices(t *testing.T) {
	g := New()
	src := []Reference{Primary("a")}
	if err := g.AddDerived(DerivedNode{ID: "d", Sources: src}); err != nil {
		t.Fatal(err)
	}
	src[0] = Derived("x")

	n, _ := g.Derived("d")
	if n.Sources[0] != Primary("a") {
		t.Errorf("Sources[0] = %v, want primary:a", n.Sources[0])
	}
}

func TestPrimaryOrder(t *testing.T) {
	g := New()
	for _, n := range []PrimaryNode{
		{ID: "root"},
		{ID: "b", ParentID: "root", Depth: 1},
		{ID: "a", ParentID: "root", Depth: 1},
		{ID: "b1", ParentID: "b", Depth: 2},
		{ID: "a1", ParentID: "a", Depth: 2},
		{ID: "orphan", ParentID: "ghost", Depth: 1},
	} {
		if err := g.AddPrimary(n); err != nil {
			t.Fatal(err)
		}
	}

	var got []string
	for _, n := range g.PrimaryOrder() {
		got = append(got, n.ID)
	}
	want := []string{"root", "b", "a", "orphan", "b1", "a1"}
	if !slices.Equal(got, want) {
		t.Errorf("PrimaryOrder() = %v, want %v", got, want)
	}
}

func TestPreOrder(t *testing.T) {
	g := New()
	for _, n := range []PrimaryNode{
		{ID: "r"},
		{ID: "x", ParentID: "r", Depth: 1},
		{ID: "y", ParentID: "r", Depth: 1},
		{ID: "x1", ParentID: "x", Depth: 2},
		// p and q form a parent cycle and are unreachable
		{ID: "p", ParentID: "q", Depth: 1},
		{ID: "q", ParentID: "p", Depth: 2},
	} {
		if err := g.AddPrimary(n); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{"r", "x", "x1", "y", "p", "q"}
	if got := g.PreOrder(); !slices.Equal(got, want) {
		t.Errorf("PreOrder() = %v, want %v", got, want)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		nodes   []PrimaryNode
		wantErr error
	}{
		{
			name:  "Consistent",
			nodes: []PrimaryNode{{ID: "r"}, {ID: "a", ParentID: "r", Depth: 1}},
		},
		{
			name:    "Mismatch",
			nodes:   []PrimaryNode{{ID: "r"}, {ID: "a", ParentID: "r", Depth: 2}},
			wantErr: ErrDepthMismatch,
		},
		{
			name:  "UnknownParentSkipped",
			nodes: []PrimaryNode{{ID: "a", ParentID: "ghost", Depth: 4}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := New()
			for _, n := range tt.nodes {
				if err := g.AddPrimary(n); err != nil {
					t.Fatal(err)
				}
			}
			if err := g.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMaxDepth(t *testing.T) {
	g := New()
	if got := g.MaxDepth(); got != -1 {
		t.Errorf("MaxDepth() on empty = %d, want -1", got)
	}
	_ = g.AddPrimary(PrimaryNode{ID: "r"})
	_ = g.AddPrimary(PrimaryNode{ID: "a", ParentID: "r", Depth: 1})
	_ = g.AddPrimary(PrimaryNode{ID: "b", ParentID: "a", Depth: 2})
	if got := g.MaxDepth(); got != 2 {
		t.Errorf("MaxDepth() = %d, want 2", got)
	}
}

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"", CategoryInterpretation, false},
		{"interpretation", CategoryInterpretation, false},
		{"action", CategoryAction, false},
		{"Action", "", true},
		{"validation", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCategory(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCategory(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPositionDistance(t *testing.T) {
	p := Position{X: 0, Y: 0}
	q := Position{X: 3, Y: 4}
	if got := p.Distance(q); got != 5 {
		t.Errorf("Distance() = %v, want 5", got)
	}
}
