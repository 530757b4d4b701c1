package sql

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/sensorql/dialect"
)

// Querier wraps the Query method, implemented by every composable
// statement fragment.
type Querier interface {
	// Query returns the element query and its arguments.
	Query() (string, []any)
}

// raw is a pre-rendered query fragment. Placeholders inside it use the
// neutral `?` form and are rewritten per dialect when the enclosing
// statement is built.
type raw struct {
	s    string
	args []any
}

// Query implements Querier.
func (r raw) Query() (string, []any) { return r.s, r.args }

// Expr returns a raw SQL fragment with `?` placeholders and its bound
// arguments. Fragments compose: an argument may itself be a Querier,
// in which case it is inlined instead of bound.
func Expr(s string, args ...any) Querier {
	return raw{s: s, args: args}
}

// ExprFunc builds a fragment through a Builder callback.
func ExprFunc(fn func(*Builder)) Querier {
	b := &Builder{}
	fn(b)
	return raw{s: b.String(), args: b.args}
}

// Builder is the base SQL writer shared by all statement builders. It
// writes the neutral `?` placeholder; the statement entry points rewrite
// placeholders to the dialect's form.
type Builder struct {
	sb      strings.Builder
	dialect string
	args    []any
}

// WriteString appends the given string to the query buffer.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// WriteByte appends the given byte to the query buffer.
func (b *Builder) WriteByte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

// Quote quotes the given identifier for the configured dialect.
func (b *Builder) Quote(ident string) string {
	quote := `"`
	if b.dialect == dialect.MySQL {
		quote = "`"
	}
	return quote + ident + quote
}

// Ident appends the given string as a quoted identifier. Strings that
// are already qualified, aliased or contain function calls are written
// verbatim.
func (b *Builder) Ident(s string) *Builder {
	switch {
	case s == "*":
		b.WriteString(s)
	case strings.ContainsAny(s, `("'` + "`") || strings.Contains(s, " AS "):
		// Raw expression or already-quoted identifier.
		b.WriteString(s)
	case strings.Contains(s, "."):
		parts := strings.Split(s, ".")
		for i, p := range parts {
			if i > 0 {
				b.WriteByte('.')
			}
			b.WriteString(b.Quote(p))
		}
	default:
		b.WriteString(b.Quote(s))
	}
	return b
}

// Arg appends an argument placeholder and binds the value. A Querier
// value is inlined with its own arguments instead.
func (b *Builder) Arg(v any) *Builder {
	if q, ok := v.(Querier); ok {
		s, args := q.Query()
		b.WriteString(s)
		b.args = append(b.args, args...)
		return b
	}
	b.WriteByte('?')
	b.args = append(b.args, v)
	return b
}

// Args appends a comma-separated list of argument placeholders.
func (b *Builder) Args(vs ...any) *Builder {
	for i, v := range vs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Arg(v)
	}
	return b
}

// Join writes the given queriers without a separator.
func (b *Builder) Join(qs ...Querier) *Builder {
	for _, q := range qs {
		s, args := q.Query()
		b.WriteString(s)
		b.args = append(b.args, args...)
	}
	return b
}

// Nested writes the callback output wrapped in parentheses.
func (b *Builder) Nested(fn func(*Builder)) *Builder {
	b.WriteByte('(')
	fn(b)
	b.WriteByte(')')
	return b
}

// String returns the accumulated query text.
func (b *Builder) String() string { return b.sb.String() }

// SelectTable is an aliased table used in FROM and JOIN clauses.
type SelectTable struct {
	name string
	as   string
}

// Table returns a new table handle for the given table name.
func Table(name string) *SelectTable {
	return &SelectTable{name: name}
}

// As assigns the table alias.
func (t *SelectTable) As(alias string) *SelectTable {
	t.as = alias
	return t
}

// Name returns the underlying table name.
func (t *SelectTable) Name() string { return t.name }

// Alias returns the table alias, or the table name if unaliased.
func (t *SelectTable) Alias() string {
	if t.as != "" {
		return t.as
	}
	return t.name
}

// C returns the column identifier qualified by the table alias.
func (t *SelectTable) C(column string) string {
	return t.Alias() + "." + column
}

// Columns qualifies the given column names by the table alias.
func (t *SelectTable) Columns(columns ...string) []string {
	qualified := make([]string, len(columns))
	for i, c := range columns {
		qualified[i] = t.C(c)
	}
	return qualified
}

// ref renders the FROM/JOIN form of the table ("name" AS "alias").
func (t *SelectTable) ref(b *Builder) {
	b.Ident(t.name)
	if t.as != "" && t.as != t.name {
		b.WriteString(" AS ")
		b.WriteString(b.Quote(t.as))
	}
}

// join kinds.
const (
	innerJoin = "JOIN"
	leftJoin  = "LEFT JOIN"
)

type join struct {
	kind  string
	table *SelectTable
	on    *Predicate
}

type selection struct {
	expr string
	args []any
	as   string
}

type orderTerm struct {
	expr string
	args []any
	desc bool
}

// Selector builds a SELECT statement. It accumulates selected
// expressions, the FROM table, JOIN clauses, the WHERE predicate,
// ORDER BY terms, DISTINCT, and LIMIT/OFFSET.
type Selector struct {
	dialect   string
	selection []selection
	from      *SelectTable
	joins     []join
	where     *Predicate
	order     []orderTerm
	groupBy   []string
	distinct  bool
	limit     *int
	offset    *int
}

// Dialect sets the dialect for builders created through the returned
// factory.
type DialectBuilder struct {
	dialect string
}

// Dialect creates a builder factory for the given dialect.
func Dialect(name string) *DialectBuilder {
	return &DialectBuilder{dialect: name}
}

// Select returns a Selector for the configured dialect.
func (d *DialectBuilder) Select(columns ...string) *Selector {
	s := &Selector{dialect: d.dialect}
	return s.Select(columns...)
}

// Select replaces the selected columns.
func (s *Selector) Select(columns ...string) *Selector {
	s.selection = s.selection[:0]
	return s.AppendSelect(columns...)
}

// AppendSelect adds columns to the selection.
func (s *Selector) AppendSelect(columns ...string) *Selector {
	for _, c := range columns {
		s.selection = append(s.selection, selection{expr: c})
	}
	return s
}

// AppendSelectAs adds an aliased expression to the selection.
func (s *Selector) AppendSelectAs(expr string, as string, args ...any) *Selector {
	s.selection = append(s.selection, selection{expr: expr, args: args, as: as})
	return s
}

// AppendSelectExpr adds a raw expression to the selection.
func (s *Selector) AppendSelectExpr(q Querier) *Selector {
	expr, args := q.Query()
	s.selection = append(s.selection, selection{expr: expr, args: args})
	return s
}

// SelectedColumns returns the rendered selected expressions.
func (s *Selector) SelectedColumns() []string {
	cols := make([]string, len(s.selection))
	for i, sel := range s.selection {
		cols[i] = sel.expr
	}
	return cols
}

// HasSelected reports whether the given expression is already selected.
func (s *Selector) HasSelected(expr string) bool {
	for _, sel := range s.selection {
		if sel.expr == expr {
			return true
		}
	}
	return false
}

// From sets the FROM table.
func (s *Selector) From(t *SelectTable) *Selector {
	s.from = t
	return s
}

// FromTable returns the FROM table, or nil when unset.
func (s *Selector) FromTable() *SelectTable { return s.from }

// Join appends an INNER JOIN on the given table. The returned selector
// expects a following On or OnP call.
func (s *Selector) Join(t *SelectTable) *Selector {
	s.joins = append(s.joins, join{kind: innerJoin, table: t})
	return s
}

// LeftJoin appends a LEFT JOIN on the given table.
func (s *Selector) LeftJoin(t *SelectTable) *Selector {
	s.joins = append(s.joins, join{kind: leftJoin, table: t})
	return s
}

// On sets an equality join condition on the last joined table.
// Multiple calls AND the conditions.
func (s *Selector) On(c1, c2 string) *Selector {
	return s.OnP(ColumnsEQ(c1, c2))
}

// OnP sets (or ANDs) a predicate join condition on the last joined table.
func (s *Selector) OnP(p *Predicate) *Selector {
	if len(s.joins) == 0 {
		return s
	}
	j := &s.joins[len(s.joins)-1]
	if j.on != nil {
		j.on = And(j.on, p)
	} else {
		j.on = p
	}
	return s
}

// Where sets (or ANDs) the WHERE predicate.
func (s *Selector) Where(p *Predicate) *Selector {
	if p == nil {
		return s
	}
	if s.where != nil {
		s.where = And(s.where, p)
	} else {
		s.where = p
	}
	return s
}

// P returns the current WHERE predicate.
func (s *Selector) P() *Predicate { return s.where }

// OrderBy appends ascending order terms for the given columns.
func (s *Selector) OrderBy(columns ...string) *Selector {
	for _, c := range columns {
		s.order = append(s.order, orderTerm{expr: c})
	}
	return s
}

// OrderExpr appends an order term for a raw expression.
func (s *Selector) OrderExpr(q Querier, desc bool) *Selector {
	expr, args := q.Query()
	s.order = append(s.order, orderTerm{expr: expr, args: args, desc: desc})
	return s
}

// OrderColumns returns the rendered ORDER BY expressions.
func (s *Selector) OrderColumns() []string {
	cols := make([]string, len(s.order))
	for i, o := range s.order {
		cols[i] = o.expr
	}
	return cols
}

// ClearOrder removes all ORDER BY terms.
func (s *Selector) ClearOrder() *Selector {
	s.order = nil
	return s
}

// Distinct marks the selection DISTINCT.
func (s *Selector) Distinct() *Selector {
	s.distinct = true
	return s
}

// ClearDistinct removes the DISTINCT flag.
func (s *Selector) ClearDistinct() *Selector {
	s.distinct = false
	return s
}

// IsDistinct reports whether the selection is DISTINCT.
func (s *Selector) IsDistinct() bool { return s.distinct }

// GroupBy replaces the GROUP BY columns.
func (s *Selector) GroupBy(columns ...string) *Selector {
	s.groupBy = append([]string{}, columns...)
	return s
}

// IsGrouped reports whether a GROUP BY clause is set.
func (s *Selector) IsGrouped() bool { return len(s.groupBy) > 0 }

// Limit sets the LIMIT clause.
func (s *Selector) Limit(n int) *Selector {
	s.limit = &n
	return s
}

// Offset sets the OFFSET clause.
func (s *Selector) Offset(n int) *Selector {
	s.offset = &n
	return s
}

// Dialect returns the selector dialect.
func (s *Selector) Dialect() string { return s.dialect }

// Clone returns an independent copy of the selector.
func (s *Selector) Clone() *Selector {
	if s == nil {
		return nil
	}
	c := *s
	c.where = s.where.clone()
	c.selection = append([]selection(nil), s.selection...)
	c.joins = append([]join(nil), s.joins...)
	c.order = append([]orderTerm(nil), s.order...)
	c.groupBy = append([]string(nil), s.groupBy...)
	if s.limit != nil {
		v := *s.limit
		c.limit = &v
	}
	if s.offset != nil {
		v := *s.offset
		c.offset = &v
	}
	return &c
}

// CountQuery returns a copy of the selector rewritten as a COUNT query
// over the same join graph and predicate, without ordering, limit or
// offset. Under DISTINCT or identifier grouping the count collapses to
// the given key column.
func (s *Selector) CountQuery(key string) *Selector {
	c := s.Clone()
	c.order = nil
	c.limit = nil
	c.offset = nil
	if c.distinct || len(c.groupBy) > 0 {
		c.distinct = false
		c.groupBy = nil
		c.selection = []selection{{expr: "COUNT(DISTINCT " + renderIdent(c.dialect, key) + ")"}}
	} else {
		c.selection = []selection{{expr: "COUNT(*)"}}
	}
	return c
}

// Query builds the SELECT statement and returns it with its arguments.
func (s *Selector) Query() (string, []any) {
	b := &Builder{dialect: s.dialect}
	b.WriteString("SELECT ")
	if s.distinct {
		b.WriteString("DISTINCT ")
	}
	if len(s.selection) == 0 {
		b.WriteString("*")
	}
	for i, sel := range s.selection {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(sel.expr)
		b.args = append(b.args, sel.args...)
		if sel.as != "" {
			b.WriteString(" AS ")
			b.WriteString(b.Quote(sel.as))
		}
	}
	if s.from != nil {
		b.WriteString(" FROM ")
		s.from.ref(b)
	}
	for _, j := range s.joins {
		b.WriteByte(' ')
		b.WriteString(j.kind)
		b.WriteByte(' ')
		j.table.ref(b)
		if j.on != nil {
			b.WriteString(" ON ")
			j.on.Query(b)
		}
	}
	if s.where != nil {
		b.WriteString(" WHERE ")
		s.where.Query(b)
	}
	for i, g := range s.groupBy {
		if i == 0 {
			b.WriteString(" GROUP BY ")
		} else {
			b.WriteString(", ")
		}
		b.Ident(g)
	}
	for i, o := range s.order {
		if i == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.WriteString(", ")
		}
		b.Ident(o.expr)
		b.args = append(b.args, o.args...)
		if o.desc {
			b.WriteString(" DESC")
		}
	}
	if s.limit != nil {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(*s.limit))
	}
	if s.offset != nil {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(*s.offset))
	}
	return rewritePlaceholders(s.dialect, b.String()), b.args
}

// QuoteIdent quotes a possibly-qualified identifier for the dialect.
// Callers building raw fragments use it to embed alias-qualified
// columns safely.
func QuoteIdent(d, s string) string {
	return renderIdent(d, s)
}

// renderIdent quotes a possibly-qualified identifier for the dialect.
func renderIdent(d, s string) string {
	b := &Builder{dialect: d}
	b.Ident(s)
	return b.String()
}

// rewritePlaceholders converts neutral `?` placeholders to the
// dialect's form ($1, $2, ... for PostgreSQL).
func rewritePlaceholders(d, query string) string {
	if d != dialect.Postgres {
		return query
	}
	var (
		sb strings.Builder
		n  int
	)
	sb.Grow(len(query) + 8)
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteByte(query[i])
	}
	return sb.String()
}

// Predicate is a composable WHERE/ON condition.
type Predicate struct {
	fns []func(*Builder)
}

// P returns a new predicate built from the given builder functions.
func P(fns ...func(*Builder)) *Predicate {
	return &Predicate{fns: fns}
}

// Query writes the predicate into the given builder.
func (p *Predicate) Query(b *Builder) {
	for _, fn := range p.fns {
		fn(b)
	}
}

// clone returns a copy of the predicate function list.
func (p *Predicate) clone() *Predicate {
	if p == nil {
		return nil
	}
	return &Predicate{fns: append([]func(*Builder){}, p.fns...)}
}

// Append adds a builder function to the predicate.
func (p *Predicate) Append(fn func(*Builder)) *Predicate {
	p.fns = append(p.fns, fn)
	return p
}

// And combines the given predicates with AND, each wrapped in
// parentheses.
func And(preds ...*Predicate) *Predicate {
	p := P()
	return p.Append(func(b *Builder) {
		for i, pred := range preds {
			if i > 0 {
				b.WriteString(" AND ")
			}
			b.Nested(pred.Query)
		}
	})
}

// Or combines the given predicates with OR, each wrapped in parentheses.
func Or(preds ...*Predicate) *Predicate {
	p := P()
	return p.Append(func(b *Builder) {
		for i, pred := range preds {
			if i > 0 {
				b.WriteString(" OR ")
			}
			b.Nested(pred.Query)
		}
	})
}

// Not negates the given predicate.
func Not(pred *Predicate) *Predicate {
	p := P()
	return p.Append(func(b *Builder) {
		b.WriteString("NOT ")
		b.Nested(pred.Query)
	})
}

// binaryP builds a column-operator-value predicate. The value may be a
// Querier, in which case it is inlined.
func binaryP(col, op string, v any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col)
		b.WriteString(" " + op + " ")
		b.Arg(v)
	})
}

// EQ returns a column = value predicate.
func EQ(col string, v any) *Predicate { return binaryP(col, "=", v) }

// NEQ returns a column <> value predicate.
func NEQ(col string, v any) *Predicate { return binaryP(col, "<>", v) }

// GT returns a column > value predicate.
func GT(col string, v any) *Predicate { return binaryP(col, ">", v) }

// GTE returns a column >= value predicate.
func GTE(col string, v any) *Predicate { return binaryP(col, ">=", v) }

// LT returns a column < value predicate.
func LT(col string, v any) *Predicate { return binaryP(col, "<", v) }

// LTE returns a column <= value predicate.
func LTE(col string, v any) *Predicate { return binaryP(col, "<=", v) }

// In returns a column IN (values...) predicate.
func In(col string, vs ...any) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col)
		if len(vs) == 0 {
			// An empty IN list matches nothing.
			b.WriteString(" IN (NULL)")
			return
		}
		b.WriteString(" IN (")
		b.Args(vs...)
		b.WriteByte(')')
	})
}

// IsNull returns a column IS NULL predicate.
func IsNull(col string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col)
		b.WriteString(" IS NULL")
	})
}

// NotNull returns a column IS NOT NULL predicate.
func NotNull(col string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(col)
		b.WriteString(" IS NOT NULL")
	})
}

// ColumnsEQ returns a column = column predicate (used in ON clauses).
func ColumnsEQ(c1, c2 string) *Predicate {
	return P(func(b *Builder) {
		b.Ident(c1)
		b.WriteString(" = ")
		b.Ident(c2)
	})
}

// ExprP returns a predicate from a raw fragment with `?` placeholders.
func ExprP(expr string, args ...any) *Predicate {
	return P(func(b *Builder) {
		b.WriteString(expr)
		b.args = append(b.args, args...)
	})
}

// QuerierP adapts a Querier into a predicate.
func QuerierP(q Querier) *Predicate {
	expr, args := q.Query()
	return ExprP(expr, args...)
}

// Queries renders a predicate standalone, mainly for tests.
func (p *Predicate) Queries(d string) (string, []any) {
	b := &Builder{dialect: d}
	p.Query(b)
	return rewritePlaceholders(d, b.String()), b.args
}

// F formats a fragment with already-rendered identifier operands. It is
// a convenience for building function-call expressions.
func F(format string, a ...any) string {
	return fmt.Sprintf(format, a...)
}
