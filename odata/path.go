package odata

import (
	"fmt"
	"strings"
)

// SegmentKind discriminates resource path segments.
type SegmentKind int

const (
	// SegmentSet addresses an entity set, optionally narrowed to a
	// single entity by an identifier: Things or Things(6).
	SegmentSet SegmentKind = iota

	// SegmentProperty addresses a declared entity property at the end
	// of a path: Things(6)/name.
	SegmentProperty

	// SegmentCustomProperty addresses a key inside a JSON-valued
	// property, optionally with an array index:
	// Things(6)/properties/floor or .../spec[2].
	SegmentCustomProperty
)

// PathSegment is one element of a resource path.
type PathSegment struct {
	Kind SegmentKind

	// Name is the entity-set name for SegmentSet (e.g. "Datastreams"),
	// or the property/key name otherwise.
	Name string

	// ID narrows a SegmentSet to one entity. Nil addresses the whole
	// collection.
	ID any

	// Index is the optional array index of a custom sub-property step.
	Index *int
}

// String renders the segment in source form.
func (s PathSegment) String() string {
	var sb strings.Builder
	sb.WriteString(s.Name)
	if s.Kind == SegmentSet && s.ID != nil {
		fmt.Fprintf(&sb, "(%v)", s.ID)
	}
	if s.Kind == SegmentCustomProperty && s.Index != nil {
		fmt.Fprintf(&sb, "[%d]", *s.Index)
	}
	return sb.String()
}

// ResourcePath is the ordered segment list identifying what a request
// targets.
type ResourcePath []PathSegment

// String renders the path in source form.
func (p ResourcePath) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return "/" + strings.Join(parts, "/")
}

// LastSet returns the index of the last SegmentSet in the path, or -1.
// Segments after it are property steps on the addressed entity.
func (p ResourcePath) LastSet() int {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i].Kind == SegmentSet {
			return i
		}
	}
	return -1
}

// IsCollection reports whether the path addresses a collection: its
// last set segment has no identifier and no property steps follow.
func (p ResourcePath) IsCollection() bool {
	i := p.LastSet()
	if i < 0 || i != len(p)-1 {
		return false
	}
	return p[i].ID == nil
}
