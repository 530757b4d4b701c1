package compiler

import (
	"github.com/syssam/sensorql"
	"github.com/syssam/sensorql/dialect/sql"
	"github.com/syssam/sensorql/graph"
	"github.com/syssam/sensorql/odata"
)

// Compiled is a fully composed query, ready for execution. Compilation
// is a pure function of the path, the options and the static entity
// graph; the same inputs always produce a structurally identical
// Compiled.
type Compiled struct {
	// Entity is the main queried entity type, fixed by the end of the
	// resource path.
	Entity graph.EntityType

	// Single reports that the path addresses one entity, not a
	// collection.
	Single bool

	// Selector is the row query. For collections its limit is set one
	// past the effective page size so the executor can detect a
	// following page without a count query.
	Selector *sql.Selector

	// Plan maps selected column aliases back to abstract properties.
	Plan []ColumnPlan

	// Top and Skip are the effective, policy-clamped page bounds.
	// Meaningless when Single.
	Top, Skip int

	// Options echoes the request's query options.
	Options *odata.QueryOptions

	main *TableRef
}

// compile builds the Compiled query for one (path, options) pair under
// the given policy.
func compile(d string, path odata.ResourcePath, opts *odata.QueryOptions, settings sensorql.Settings) (*Compiled, error) {
	st := newState(d)
	tail, err := st.buildPath(path)
	if err != nil {
		return nil, err
	}
	single, err := pathSingle(path, tail)
	if err != nil {
		return nil, err
	}
	c := &Compiled{
		Entity:   st.main.Entity,
		Single:   single,
		Options:  opts,
		main:     st.main,
		Selector: st.sel,
	}
	if err := applySelection(st, tail, opts); err != nil {
		return nil, err
	}
	if err := applyFilter(st, opts); err != nil {
		return nil, err
	}
	specs, ordered, err := applyOrder(st, opts, settings)
	if err != nil {
		return nil, err
	}
	if c.Single {
		// Two rows from a single-entity path is a keying or join bug,
		// fetch up to two so the executor can tell.
		st.sel.Limit(2)
	} else {
		top, skip, err := pageBounds(opts, settings)
		if err != nil {
			return nil, err
		}
		c.Top, c.Skip = top, skip
		st.sel.Limit(top + 1)
		if skip > 0 {
			st.sel.Offset(skip)
		}
	}
	if ordered {
		emitOrder(st, specs)
	}
	c.Plan = st.plan
	return c, nil
}

// pathSingle reports whether the path addresses one entity. An
// identifier or a property tail is decisive; otherwise a navigation
// segment inherits the declared relationship cardinality, validated
// against the name form used (Thing vs Things).
func pathSingle(path odata.ResourcePath, tail []odata.PathSegment) (bool, error) {
	if len(tail) > 0 {
		return true, nil
	}
	last := path.LastSet()
	seg := path[last]
	if seg.ID != nil {
		return true, nil
	}
	if last == 0 {
		return false, nil
	}
	prev, ok := graph.FromName(path[last-1].Name)
	if !ok {
		return false, sensorql.NewRejectedQuery(path[last-1].Name, "unknown entity set")
	}
	_, many, err := graph.NavTarget(prev, seg.Name)
	if err != nil {
		return false, err
	}
	return !many, nil
}

// applySelection narrows the selection to a trailing property segment,
// the $select list, or every mapped property.
func applySelection(st *state, tail []odata.PathSegment, opts *odata.QueryOptions) error {
	switch {
	case len(tail) > 0:
		if err := selectPropertyTail(st, tail); err != nil {
			return err
		}
	case opts != nil && len(opts.Select) > 0:
		for _, p := range opts.Select {
			if err := st.selectProperty(st.main, p); err != nil {
				return err
			}
		}
	default:
		st.selectAll(st.main)
	}
	// The identifier is always fetched: results carry it and the
	// tie-break may order by it.
	return st.selectProperty(st.main, "id")
}

// selectPropertyTail narrows the selection to the trailing property
// steps of the resource path. Deeper segments address a composite
// member, an interval bound or a key inside the property's JSON
// document and compile into the selected expression itself.
func selectPropertyTail(st *state, tail []odata.PathSegment) error {
	property := tail[0].Name
	if len(tail) == 1 {
		return st.selectProperty(st.main, property)
	}
	cols, err := graph.Resolve(st.main.Entity, property)
	if err != nil {
		return err
	}
	src := odata.ResourcePath(tail).String()
	ev := &evaluator{st: st}
	v := valueOfColumns(st, st.main, property, cols, src)
	alias := property
	for _, seg := range tail[1:] {
		elem := odata.PathElem{Kind: odata.ElemCustom, Name: seg.Name, Index: seg.Index}
		if seg.Kind == odata.SegmentProperty {
			elem.Kind = odata.ElemProperty
		}
		if v, err = ev.member(v, st.main, property, cols, elem, src); err != nil {
			return err
		}
		alias += "_" + seg.Name
	}
	fr := v.f
	typ := scalarColumnType(v.k)
	if v.k == kComposite {
		if len(v.entries) != 1 {
			return sensorql.NewRejectedQuery(src, "property path does not address a single value")
		}
		fr = v.entries[0].f
		typ = v.entries[0].typ
	}
	st.sel.AppendSelectAs(fr.sql, alias, fr.args...)
	st.plan = append(st.plan, ColumnPlan{
		Alias:    alias,
		Property: tail[len(tail)-1].Name,
		Type:     typ,
	})
	return nil
}

// applyFilter compiles $filter into the WHERE clause.
func applyFilter(st *state, opts *odata.QueryOptions) error {
	if opts == nil || opts.Filter == nil {
		return nil
	}
	ev := &evaluator{st: st}
	fr, err := ev.predicate(opts.Filter)
	if err != nil {
		return err
	}
	st.sel.Where(sql.ExprP(fr.sql, fr.args...))
	return nil
}

// orderSpec is one compiled ordering term awaiting emission.
type orderSpec struct {
	fr   frag
	desc bool
}

// applyOrder compiles $orderby. Interval results expand to start/end
// terms and composites to their members in declared order. Emission is
// deferred so the composer can pick the set-semantics strategy after
// all joins are known; ordered reports whether ORDER BY applies at all.
func applyOrder(st *state, opts *odata.QueryOptions, settings sensorql.Settings) (specs []orderSpec, ordered bool, err error) {
	ev := &evaluator{st: st}
	var terms []odata.OrderTerm
	if opts != nil {
		terms = opts.OrderBy
	}
	if len(terms) == 0 && !settings.AlwaysOrder {
		return nil, false, nil
	}
	for _, t := range terms {
		v, err := ev.eval(t.Expr)
		if err != nil {
			return nil, false, err
		}
		for _, fr := range orderFrags(v) {
			specs = append(specs, orderSpec{fr: fr, desc: t.Desc})
		}
	}
	return specs, true, nil
}

// emitOrder writes the ordering terms and the identifier tie-break.
// Under fan-out DISTINCT an ordering expression outside the select list
// would widen the row identity, so set semantics switch to grouping on
// the main identifier with the foreign terms aggregated to their
// per-group minimum.
func emitOrder(st *state, specs []orderSpec) {
	grouped := false
	if st.sel.IsDistinct() {
		for _, o := range specs {
			if !st.isSelected(o.fr.sql) {
				grouped = true
				break
			}
		}
	}
	if grouped {
		st.sel.ClearDistinct()
		st.sel.GroupBy(st.main.ID())
	}
	for _, o := range specs {
		expr := o.fr.sql
		if grouped && !st.isSelected(expr) {
			expr = "MIN(" + expr + ")"
		}
		st.sel.OrderExpr(sql.Expr(expr, o.fr.args...), o.desc)
	}
	st.sel.OrderBy(st.main.ID())
}

// orderFrags flattens one evaluated ordering expression into the SQL
// terms it contributes.
func orderFrags(v value) []frag {
	switch v.k {
	case kInterval:
		return []frag{v.start, v.end}
	case kComposite:
		frs := make([]frag, len(v.entries))
		for i, e := range v.entries {
			frs[i] = e.f
		}
		return frs
	default:
		return []frag{v.f}
	}
}

// pageBounds resolves $top and $skip against the policy.
func pageBounds(opts *odata.QueryOptions, settings sensorql.Settings) (top, skip int, err error) {
	var t, s *int
	if opts != nil {
		t, s = opts.Top, opts.Skip
	}
	if t != nil && *t < 0 {
		return 0, 0, sensorql.NewRejectedQuery("$top", "$top must not be negative, got %d", *t)
	}
	if s != nil {
		if *s < 0 {
			return 0, 0, sensorql.NewRejectedQuery("$skip", "$skip must not be negative, got %d", *s)
		}
		skip = *s
	}
	return settings.ClampTop(t), skip, nil
}

// CountQuery returns the count statement matching the compiled query:
// the same join graph and predicate without ordering, limit or offset.
// Under limit-sample counting the scan is capped at threshold+1 rows;
// capped reports whether a result above the threshold must be treated
// as a lower-bound estimate.
func (c *Compiled) CountQuery(settings sensorql.Settings) (query string, args []any, capped bool) {
	if settings.CountMode == sensorql.CountLimitSample {
		// DISTINCT and identifier grouping survive the clone, so the
		// capped scan counts distinct identifiers under fan-out just
		// like the exact path does.
		sub := c.Selector.Clone()
		sub.ClearOrder()
		sub.Select(c.main.ID())
		sub.Limit(int(settings.EstimateThreshold) + 1)
		sub.Offset(0)
		q, a := sub.Query()
		return "SELECT COUNT(*) FROM (" + q + ") AS " + countAlias(c.Selector.Dialect()), a, true
	}
	q, a := c.Selector.CountQuery(c.main.ID()).Query()
	return q, a, false
}

func countAlias(d string) string {
	return sql.QuoteIdent(d, "total")
}
