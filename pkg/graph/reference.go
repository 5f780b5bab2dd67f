package graph

import (
	"encoding/json"
	"errors"
	"fmt"
)

// RefKind tags a [Reference] with the kind of node it points at.
type RefKind uint8

const (
	// RefPrimary points at a node of the primary hierarchy.
	RefPrimary RefKind = iota + 1
	// RefDerived points at another derived node.
	RefDerived
)

// String returns "primary" or "derived".
func (k RefKind) String() string {
	switch k {
	case RefPrimary:
		return "primary"
	case RefDerived:
		return "derived"
	default:
		return fmt.Sprintf("RefKind(%d)", uint8(k))
	}
}

// Reference identifies the source of a derived node.
// The zero value is invalid; build references with [Primary] or [Derived].
type Reference struct {
	Kind RefKind
	ID   string
}

// Primary returns a reference to the primary node id.
func Primary(id string) Reference { return Reference{Kind: RefPrimary, ID: id} }

// Derived returns a reference to the derived node id.
func Derived(id string) Reference { return Reference{Kind: RefDerived, ID: id} }

// IsPrimary reports whether r points at a primary node.
func (r Reference) IsPrimary() bool { return r.Kind == RefPrimary }

// IsDerived reports whether r points at a derived node.
func (r Reference) IsDerived() bool { return r.Kind == RefDerived }

// Valid reports whether r has a known kind and a non-empty ID.
func (r Reference) Valid() bool {
	return (r.Kind == RefPrimary || r.Kind == RefDerived) && r.ID != ""
}

// String returns "kind:id", e.g. "derived:variograma".
func (r Reference) String() string { return r.Kind.String() + ":" + r.ID }

// errInvalidReference is returned when decoding a reference that does not
// name exactly one of primary or derived.
var errInvalidReference = errors.New("reference must set exactly one of primary or derived")

// refJSON is the wire form of a Reference: {"primary": "id"} or {"derived": "id"}.
type refJSON struct {
	Primary string `json:"primary,omitempty" validate:"required_without=Derived,excluded_with=Derived"`
	Derived string `json:"derived,omitempty" validate:"required_without=Primary"`
}

func (r refJSON) reference() Reference {
	if r.Primary != "" {
		return Primary(r.Primary)
	}
	return Derived(r.Derived)
}

// MarshalJSON encodes r as {"primary": id} or {"derived": id}.
func (r Reference) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case RefPrimary:
		return json.Marshal(refJSON{Primary: r.ID})
	case RefDerived:
		return json.Marshal(refJSON{Derived: r.ID})
	default:
		return nil, errInvalidReference
	}
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (r *Reference) UnmarshalJSON(data []byte) error {
	var w refJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if (w.Primary == "") == (w.Derived == "") {
		return errInvalidReference
	}
	*r = w.reference()
	return nil
}
