package compiler

import (
	"fmt"

	"github.com/syssam/sensorql"
	"github.com/syssam/sensorql/dialect/sql"
	"github.com/syssam/sensorql/graph"
	"github.com/syssam/sensorql/odata"
)

// state is the per-request compilation state: the selector being
// accumulated, the main table reference, the walking reference and the
// alias counter. It is never shared across requests or across
// concurrently executing expand branches.
type state struct {
	dialect string
	sel     *sql.Selector
	main    *TableRef
	cur     *TableRef
	aliases int
	plan    []ColumnPlan
	sets    map[string]struct{} // selected expressions in quoted form, for dedup
}

// ColumnPlan records one selected column: its alias in the result set
// and the abstract property it carries, used by the materializer to
// reassemble composite properties.
type ColumnPlan struct {
	Alias    string
	Property string
	Suffix   string
	Type     graph.ColumnType
}

func newState(d string) *state {
	return &state{
		dialect: d,
		sel:     sql.Dialect(d).Select(),
		sets:    make(map[string]struct{}),
	}
}

// nextAlias allocates the next table alias (t0, t1, ...).
func (st *state) nextAlias() string {
	a := fmt.Sprintf("t%d", st.aliases)
	st.aliases++
	return a
}

// qc renders the alias-qualified, dialect-quoted form of a column on
// the given binding, for embedding in expression fragments.
func (st *state) qc(r *TableRef, column string) string {
	return sql.QuoteIdent(st.dialect, r.C(column))
}

// bindFirst emits the initial FROM clause for the query's main entity
// type. The binding becomes the permanent main table reference; the
// walking reference starts as an independent copy so later joins never
// move the main anchor.
func (st *state) bindFirst(et graph.EntityType) *TableRef {
	t := sql.Table(et.Table()).As(st.nextAlias())
	st.sel.From(t)
	ref := &TableRef{Entity: et, Table: t}
	st.main = ref
	st.cur = ref.Copy()
	return ref
}

// joinFrom extends the given binding with a join onto the entity type
// per the graph's relationship definition, updating the binding in
// place and registering the join (and fan-out DISTINCT) on the live
// selector. A missing relationship definition is fatal: the entity
// graph is static and validated at startup.
func (st *state) joinFrom(ref *TableRef, to graph.EntityType) error {
	if ref.Empty() {
		return sensorql.NewSchemaDefect("join requested before any table was bound")
	}
	// A path repeating the entity type reuses the existing binding.
	if ref.Entity == to {
		return nil
	}
	rel, err := graph.Rel(ref.Entity, to)
	if err != nil {
		return err
	}
	target := sql.Table(to.Table()).As(st.nextAlias())
	switch {
	case rel.JoinTable != "":
		jt := sql.Table(rel.JoinTable).As(st.nextAlias())
		st.sel.Join(jt).On(jt.C(rel.JoinFKFrom), ref.ID())
		st.sel.Join(target).On(target.C(to.IDColumn()), jt.C(rel.JoinFKTo))
	case rel.FKOnTarget:
		st.sel.Join(target).On(target.C(rel.FK), ref.ID())
	default:
		st.sel.Join(target).On(target.C(to.IDColumn()), ref.C(rel.FK))
	}
	if rel.Many {
		st.sel.Distinct()
	}
	ref.Entity = to
	ref.Table = target
	return nil
}

// constrainID adds the identifier equality predicate of an
// entity-with-identifier segment on the given binding.
func (st *state) constrainID(ref *TableRef, id any) {
	st.sel.Where(sql.EQ(ref.ID(), id))
}

// buildPath walks the resource path's set segments from last to first:
// the path end determines the main queried entity, earlier segments
// become joins filtering back toward the path root. Property segments
// trailing the last set segment are returned for the composer to
// narrow the selection.
func (st *state) buildPath(path odata.ResourcePath) ([]odata.PathSegment, error) {
	last := path.LastSet()
	if last < 0 {
		return nil, sensorql.NewRejectedQuery(path.String(), "resource path addresses no entity set")
	}
	tail := path[last+1:]
	for i := last; i >= 0; i-- {
		seg := path[i]
		if seg.Kind != odata.SegmentSet {
			return nil, sensorql.NewRejectedQuery(path.String(), "property segment %q may only end a resource path", seg.Name)
		}
		et, ok := graph.FromName(seg.Name)
		if !ok {
			return nil, sensorql.NewRejectedQuery(seg.Name, "unknown entity set")
		}
		if st.cur.Empty() {
			st.bindFirst(et)
		} else if err := st.joinFrom(st.cur, et); err != nil {
			return nil, err
		}
		if seg.ID != nil {
			st.constrainID(st.cur, seg.ID)
		}
	}
	return tail, nil
}

// selectProperty appends the physical columns of one abstract property
// to the selection, recording the column plan for the materializer.
// Columns already selected are skipped.
func (st *state) selectProperty(ref *TableRef, property string) error {
	cols, err := graph.Resolve(ref.Entity, property)
	if err != nil {
		return err
	}
	for _, c := range cols {
		st.addSelection(ref, property, c)
	}
	return nil
}

// addSelection selects a single resolved column under a deterministic
// alias, skipping duplicates.
func (st *state) addSelection(ref *TableRef, property string, c graph.Column) {
	expr := ref.C(c.Name)
	key := sql.QuoteIdent(st.dialect, expr)
	if _, ok := st.sets[key]; ok {
		return
	}
	st.sets[key] = struct{}{}
	alias := property
	if c.Suffix != "" {
		alias = property + "_" + c.Suffix
	}
	st.sel.AppendSelectAs(expr, alias)
	st.plan = append(st.plan, ColumnPlan{
		Alias:    alias,
		Property: property,
		Suffix:   c.Suffix,
		Type:     c.Type,
	})
}

// selectAll selects every mapped property of the binding's entity
// type, used when the query carries no explicit $select.
func (st *state) selectAll(ref *TableRef) {
	for _, p := range graph.ResolveAll(ref.Entity) {
		for _, c := range p.Cols {
			st.addSelection(ref, p.Name, c)
		}
	}
}

// isSelected reports whether the expression, given in either raw or
// quoted form, is already in the select list.
func (st *state) isSelected(expr string) bool {
	_, ok := st.sets[sql.QuoteIdent(st.dialect, expr)]
	return ok
}
