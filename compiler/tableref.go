package compiler

import (
	"github.com/syssam/sensorql/dialect/sql"
	"github.com/syssam/sensorql/graph"
)

// TableRef is the join-walk binding: the entity type, aliased table
// handle and identifier column the path currently points at. It is
// created fresh per compiled query and mutated step by step as the
// builder walks the path. Query options (filter, orderby) walk from an
// independent Copy so expression evaluation never corrupts the
// builder's own in-progress state.
type TableRef struct {
	Entity graph.EntityType
	Table  *sql.SelectTable
}

// Empty reports whether no table has been bound yet.
func (r *TableRef) Empty() bool { return r == nil || r.Table == nil }

// ID returns the alias-qualified identifier column.
func (r *TableRef) ID() string { return r.Table.C(r.Entity.IDColumn()) }

// C returns the alias-qualified form of a column.
func (r *TableRef) C(column string) string { return r.Table.C(column) }

// Copy returns an independent binding starting at the same position.
// The underlying SelectTable handle is shared: it is immutable once
// aliased.
func (r *TableRef) Copy() *TableRef {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
