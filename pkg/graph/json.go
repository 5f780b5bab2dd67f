package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	gerrors "github.com/matzehuels/growtree/pkg/errors"
)

// document is the wire form of a Graph.
type document struct {
	Primary []primaryJSON `json:"primary" validate:"dive"`
	Derived []derivedJSON `json:"derived" validate:"dive"`
}

type primaryJSON struct {
	ID      string         `json:"id" validate:"required"`
	Parent  string         `json:"parent,omitempty"`
	Depth   int            `json:"depth" validate:"min=0"`
	Title   string         `json:"title,omitempty"`
	Content map[string]any `json:"content,omitempty"`
}

type derivedJSON struct {
	ID       string         `json:"id" validate:"required"`
	Title    string         `json:"title,omitempty"`
	Category string         `json:"category,omitempty" validate:"omitempty,oneof=interpretation action"`
	Sources  []refJSON      `json:"sources" validate:"required,min=1,dive"`
	Targets  []string       `json:"targets,omitempty" validate:"dive,required"`
	Content  map[string]any `json:"content,omitempty"`
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func documentValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// ReadJSON decodes a graph document from r.
//
// The input is a JSON object with "primary" and "derived" arrays:
//
//	{
//	  "primary": [{"id": "root", "depth": 0}, {"id": "a", "parent": "root", "depth": 1}],
//	  "derived": [{"id": "d", "category": "action", "sources": [{"primary": "a"}]}]
//	}
//
// Every node needs an "id". Derived nodes need at least one source, and each
// source sets exactly one of "primary" or "derived". Category defaults to
// "interpretation".
//
// Malformed JSON yields an ErrCodeInvalidFormat error; a document that
// decodes but breaks these rules, or that fails [Graph.Validate], yields
// ErrCodeInvalidDocument. ReadJSON does not close r.
func ReadJSON(r io.Reader) (*Graph, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeInvalidFormat, err, "decode graph document")
	}
	if err := documentValidator().Struct(doc); err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeInvalidDocument, err, "%s", describeValidation(err))
	}

	g := New()
	for _, p := range doc.Primary {
		n := PrimaryNode{ID: p.ID, ParentID: p.Parent, Depth: p.Depth, Title: p.Title, Content: p.Content}
		if err := g.AddPrimary(n); err != nil {
			return nil, gerrors.Wrap(gerrors.ErrCodeInvalidDocument, err, "primary %s", p.ID)
		}
	}
	for _, d := range doc.Derived {
		cat, err := ParseCategory(d.Category)
		if err != nil {
			return nil, gerrors.Wrap(gerrors.ErrCodeInvalidDocument, err, "derived %s", d.ID)
		}
		n := DerivedNode{ID: d.ID, Title: d.Title, Category: cat, Targets: d.Targets, Content: d.Content}
		for _, s := range d.Sources {
			n.Sources = append(n.Sources, s.reference())
		}
		if err := g.AddDerived(n); err != nil {
			return nil, gerrors.Wrap(gerrors.ErrCodeInvalidDocument, err, "derived %s", d.ID)
		}
	}
	if err := g.Validate(); err != nil {
		return nil, gerrors.Wrap(gerrors.ErrCodeInvalidDocument, err, "hierarchy")
	}
	return g, nil
}

// ImportJSON reads a graph document from the file at path.
func ImportJSON(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, gerrors.Wrap(gerrors.ErrCodeFileNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// WriteJSON encodes g as an indented graph document. Nodes are written in
// insertion order, so ReadJSON(WriteJSON(g)) reproduces g.
func WriteJSON(g *Graph, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toDocument(g)); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// ExportJSON writes g to the file at path.
func ExportJSON(g *Graph, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return WriteJSON(g, f)
}

// Marshal returns the document encoding of g.
func Marshal(g *Graph) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteJSON(g, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toDocument(g *Graph) document {
	doc := document{
		Primary: make([]primaryJSON, 0, len(g.primary)),
		Derived: make([]derivedJSON, 0, len(g.derived)),
	}
	for _, n := range g.primary {
		doc.Primary = append(doc.Primary, primaryJSON{
			ID: n.ID, Parent: n.ParentID, Depth: n.Depth, Title: n.Title, Content: n.Content,
		})
	}
	for _, n := range g.derived {
		d := derivedJSON{
			ID: n.ID, Title: n.Title, Category: string(n.Category.Effective()),
			Targets: n.Targets, Content: n.Content,
		}
		for _, s := range n.Sources {
			switch s.Kind {
			case RefPrimary:
				d.Sources = append(d.Sources, refJSON{Primary: s.ID})
			case RefDerived:
				d.Sources = append(d.Sources, refJSON{Derived: s.ID})
			}
		}
		doc.Derived = append(doc.Derived, d)
	}
	return doc
}

// describeValidation flattens validator errors into "field: rule" pairs.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "document.")
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", field, fe.Tag()))
		}
	}
	return "invalid document: " + strings.Join(parts, "; ")
}
