package odata

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sosodev/duration"
)

// Expression is implemented by every node of the $filter/$orderby tree.
// The set of implementations is closed to this package.
type Expression interface {
	// String renders the node back to OData source form.
	String() string

	exprMarker()
}

// ElemKind discriminates the elements of a property path expression.
type ElemKind int

const (
	// ElemNav steps over a navigation property (Datastream/Thing).
	ElemNav ElemKind = iota
	// ElemProperty addresses a declared entity property.
	ElemProperty
	// ElemCustom addresses a key inside a JSON-valued property.
	ElemCustom
)

// PathElem is one element of a property path inside an expression.
type PathElem struct {
	Kind  ElemKind
	Name  string
	Index *int // optional array index on custom elements
}

// String renders the element in source form.
func (e PathElem) String() string {
	if e.Kind == ElemCustom && e.Index != nil {
		return fmt.Sprintf("%s[%d]", e.Name, *e.Index)
	}
	return e.Name
}

// Path is a property path leaf: id, Thing/name, properties/floor[0].
type Path struct {
	Elems []PathElem
}

// String renders the path in source form.
func (p *Path) String() string {
	parts := make([]string, len(p.Elems))
	for i, e := range p.Elems {
		parts[i] = e.String()
	}
	return strings.Join(parts, "/")
}

func (p *Path) exprMarker() {}

// Call applies an operator or function to its arguments.
type Call struct {
	Op   Op
	Args []Expression
}

// String renders the call in source form: infix operators between their
// operands, functions as name(args).
func (c *Call) String() string {
	switch {
	case c.Op == OpNot && len(c.Args) == 1:
		return "not " + c.Args[0].String()
	case c.Op.Infix() && len(c.Args) == 2:
		return fmt.Sprintf("%s %s %s", c.Args[0], c.Op, c.Args[1])
	default:
		parts := make([]string, len(c.Args))
		for i, a := range c.Args {
			parts[i] = a.String()
		}
		return fmt.Sprintf("%s(%s)", c.Op, strings.Join(parts, ", "))
	}
}

func (c *Call) exprMarker() {}

// BoolLit is a boolean literal.
type BoolLit struct {
	Value bool
}

// String renders the literal.
func (l *BoolLit) String() string { return strconv.FormatBool(l.Value) }

func (l *BoolLit) exprMarker() {}

// IntegerLit is an integer literal.
type IntegerLit struct {
	Value int64
}

// String renders the literal.
func (l *IntegerLit) String() string { return strconv.FormatInt(l.Value, 10) }

func (l *IntegerLit) exprMarker() {}

// DoubleLit is a decimal/double literal. The value is held exactly so
// arithmetic on literals (notably mod) does not lose precision.
type DoubleLit struct {
	Value decimal.Decimal
}

// String renders the literal.
func (l *DoubleLit) String() string { return l.Value.String() }

func (l *DoubleLit) exprMarker() {}

// StringLit is a string literal.
type StringLit struct {
	Value string
}

// String renders the literal in quoted source form.
func (l *StringLit) String() string {
	return "'" + strings.ReplaceAll(l.Value, "'", "''") + "'"
}

func (l *StringLit) exprMarker() {}

// DateLit is a calendar-date literal (2016-01-01).
type DateLit struct {
	Value time.Time // normalized to midnight UTC
}

// String renders the literal.
func (l *DateLit) String() string { return l.Value.Format("2006-01-02") }

func (l *DateLit) exprMarker() {}

// TimeOfDayLit is a wall-clock time literal (13:45:00).
type TimeOfDayLit struct {
	Value time.Time // date part is meaningless
}

// String renders the literal.
func (l *TimeOfDayLit) String() string { return l.Value.Format("15:04:05") }

func (l *TimeOfDayLit) exprMarker() {}

// DateTimeLit is an instant literal. UTC records whether the source
// carried a Z/zero offset; date-part extraction functions require it.
type DateTimeLit struct {
	Value time.Time
	UTC   bool
}

// String renders the literal in RFC 3339 form.
func (l *DateTimeLit) String() string { return l.Value.Format(time.RFC3339Nano) }

func (l *DateTimeLit) exprMarker() {}

// DurationLit is an ISO 8601 duration literal (duration'P1D').
type DurationLit struct {
	Value *duration.Duration
}

// String renders the literal.
func (l *DurationLit) String() string { return "duration'" + l.Value.String() + "'" }

func (l *DurationLit) exprMarker() {}

// IntervalLit is a closed-start, open-end time interval literal
// (2016-01-01T06:00:00Z/2016-01-01T09:00:00Z).
type IntervalLit struct {
	Start time.Time
	End   time.Time
}

// String renders the literal.
func (l *IntervalLit) String() string {
	return l.Start.Format(time.RFC3339Nano) + "/" + l.End.Format(time.RFC3339Nano)
}

func (l *IntervalLit) exprMarker() {}

// GeoKind discriminates geometry literal kinds.
type GeoKind int

const (
	GeoPoint GeoKind = iota
	GeoLineString
	GeoPolygon
)

// String returns the WKT keyword of the kind.
func (k GeoKind) String() string {
	switch k {
	case GeoPoint:
		return "POINT"
	case GeoLineString:
		return "LINESTRING"
	case GeoPolygon:
		return "POLYGON"
	default:
		return "GEOMETRY"
	}
}

// GeometryLit is a geography literal (geography'POINT (30 10)'). WKT
// holds the full well-known-text body including the keyword.
type GeometryLit struct {
	Kind GeoKind
	WKT  string
}

// String renders the literal.
func (l *GeometryLit) String() string { return "geography'" + l.WKT + "'" }

func (l *GeometryLit) exprMarker() {}

// OrderTerm is one $orderby term.
type OrderTerm struct {
	Expr Expression
	Desc bool
}

// String renders the term in source form.
func (t OrderTerm) String() string {
	if t.Desc {
		return t.Expr.String() + " desc"
	}
	return t.Expr.String()
}
