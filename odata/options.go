package odata

import "strings"

// ExpandItem is one $expand branch: a navigation path and the branch's
// own nested query options (nil for defaults).
type ExpandItem struct {
	// Path is the navigation property chain, e.g. ["Datastreams"] or
	// ["Datastreams", "Observations"].
	Path []string

	Options *QueryOptions
}

// String renders the branch in source form.
func (e ExpandItem) String() string {
	s := strings.Join(e.Path, "/")
	if !e.Options.IsZero() {
		s += "(...)"
	}
	return s
}

// QueryOptions is the parsed query-option set of one request or one
// $expand branch. Nil pointers mean the option is absent.
type QueryOptions struct {
	Filter  Expression
	OrderBy []OrderTerm
	Expand  []ExpandItem
	Select  []string
	Top     *int
	Skip    *int
	Count   *bool
}

// IsZero reports whether no option is set. A nil receiver is zero.
// $expand short-circuiting is only allowed for zero option sets.
func (o *QueryOptions) IsZero() bool {
	if o == nil {
		return true
	}
	return o.Filter == nil &&
		len(o.OrderBy) == 0 &&
		len(o.Expand) == 0 &&
		len(o.Select) == 0 &&
		o.Top == nil &&
		o.Skip == nil &&
		o.Count == nil
}

// WantsCount reports whether $count=true was requested.
func (o *QueryOptions) WantsCount() bool {
	return o != nil && o.Count != nil && *o.Count
}
