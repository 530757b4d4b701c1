package compiler

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/syssam/sensorql"
	"github.com/syssam/sensorql/dialect"
	"github.com/syssam/sensorql/graph"
	"github.com/syssam/sensorql/odata"
)

// decimalFromInt aliases the literal constructor used for integer
// folding.
var decimalFromInt = decimal.NewFromInt

// evaluator turns expression AST nodes into typed SQL fragments. It
// shares the compilation state so property paths that navigate to
// related entities can register joins on the live selector.
type evaluator struct {
	st *state
}

func (ev *evaluator) dialect() string { return ev.st.dialect }

// predicate evaluates a $filter root expression to a boolean fragment.
func (ev *evaluator) predicate(e odata.Expression) (frag, error) {
	v, err := ev.eval(e)
	if err != nil {
		return frag{}, err
	}
	return v.boolValue(ev.dialect())
}

// eval dispatches on the node type.
func (ev *evaluator) eval(e odata.Expression) (value, error) {
	switch n := e.(type) {
	case *odata.BoolLit:
		return value{k: kBool, f: argf(n.Value), lit: true, b: n.Value, src: n.String()}, nil
	case *odata.IntegerLit:
		return value{k: kNumber, f: argf(n.Value), lit: true, num: decimalFromInt(n.Value), src: n.String()}, nil
	case *odata.DoubleLit:
		return value{k: kNumber, f: argf(n.Value.String()), lit: true, num: n.Value, src: n.String()}, nil
	case *odata.StringLit:
		return value{k: kString, f: argf(n.Value), lit: true, s: n.Value, src: n.String()}, nil
	case *odata.DateLit:
		return value{k: kInstant, f: instantArg(n.Value), lit: true, utc: true, t: n.Value, src: n.String()}, nil
	case *odata.TimeOfDayLit:
		return value{k: kString, f: argf(n.Value.Format("15:04:05")), lit: true, s: n.Value.Format("15:04:05"), src: n.String()}, nil
	case *odata.DateTimeLit:
		// The bound argument is normalized to UTC either way; the flag
		// survives so UTC-only extraction functions can reject the
		// original offset form.
		return value{k: kInstant, f: instantArg(n.Value), lit: true, utc: n.UTC, t: n.Value, src: n.String()}, nil
	case *odata.DurationLit:
		// Duration fragments carry total seconds; the literal keeps its
		// ISO form for dialect-specific interval arithmetic.
		secs := decimal.NewFromFloat(n.Value.ToTimeDuration().Seconds())
		return value{k: kDuration, f: argf(secs.String()), lit: true, dur: n.Value, src: n.String()}, nil
	case *odata.IntervalLit:
		return value{k: kInterval, start: instantArg(n.Start), end: instantArg(n.End), lit: true, src: n.String()}, nil
	case *odata.GeometryLit:
		return ev.geometryLit(n)
	case *odata.Path:
		return ev.evalPath(n)
	case *odata.Call:
		return ev.evalCall(n)
	default:
		return value{}, sensorql.NewSchemaDefect("unhandled expression node %T", e)
	}
}

// evalPath resolves a property path: navigation elements register
// joins on a copy of the current binding, the property element maps to
// physical columns, and trailing elements address composite members or
// keys inside JSON documents.
func (ev *evaluator) evalPath(p *odata.Path) (value, error) {
	st := ev.st
	ref := st.main.Copy()
	i := 0
	for ; i < len(p.Elems) && p.Elems[i].Kind == odata.ElemNav; i++ {
		to, _, err := graph.NavTarget(ref.Entity, p.Elems[i].Name)
		if err != nil {
			return value{}, err
		}
		if err := st.joinFrom(ref, to); err != nil {
			return value{}, err
		}
	}
	if i == len(p.Elems) {
		return value{}, sensorql.NewRejectedQuery(p.String(), "property path ends on a navigation")
	}
	elem := p.Elems[i]
	property := elem.Name
	cols, err := graph.Resolve(ref.Entity, property)
	if err != nil {
		return value{}, err
	}
	v := valueOfColumns(st, ref, property, cols, p.String())
	i++
	for ; i < len(p.Elems); i++ {
		v, err = ev.member(v, ref, property, cols, p.Elems[i], p.String())
		if err != nil {
			return value{}, err
		}
	}
	return v, nil
}

// valueOfColumns lifts a resolved column set into a value: one scalar
// column directly, a start/end pair as an interval, anything else as a
// deferred composite.
func valueOfColumns(st *state, ref *TableRef, property string, cols []graph.Column, src string) value {
	if len(cols) == 1 && cols[0].Type != graph.ColJSON {
		return value{k: columnKind(cols[0].Type), f: f(st.qc(ref, cols[0].Name)), src: src}
	}
	if len(cols) == 2 && cols[0].Suffix == graph.SuffixStart && cols[1].Suffix == graph.SuffixEnd {
		return value{
			k:     kInterval,
			start: f(st.qc(ref, cols[0].Name)),
			end:   f(st.qc(ref, cols[1].Name)),
			src:   src,
		}
	}
	entries := make([]entry, len(cols))
	for i, c := range cols {
		entries[i] = entry{suffix: c.Suffix, typ: c.Type, f: f(st.qc(ref, c.Name))}
	}
	return value{k: kComposite, entries: entries, src: src}
}

// member resolves one trailing path element on an already-resolved
// property value: a declared sub-property of a composite, the
// start/end bound of an interval, or a key lookup inside a JSON
// document.
func (ev *evaluator) member(v value, ref *TableRef, property string, cols []graph.Column, elem odata.PathElem, src string) (value, error) {
	if v.k == kInterval && elem.Kind != odata.ElemCustom {
		switch elem.Name {
		case graph.SuffixStart:
			return value{k: kInstant, f: v.start, src: src}, nil
		case graph.SuffixEnd:
			return value{k: kInstant, f: v.end, src: src}, nil
		}
		return value{}, sensorql.NewRejectedQuery(src, "interval property %q has no member %q", property, elem.Name)
	}
	if v.k == kComposite && elem.Kind != odata.ElemCustom {
		if c, err := graph.ResolveSuffix(ref.Entity, property, elem.Name, cols); err == nil {
			return value{k: columnKind(c.Type), f: f(ev.st.qc(ref, c.Name)), src: src}, nil
		}
	}
	// Key lookup inside a JSON document.
	doc, err := v.as(ev.dialect(), kComposite)
	if err == nil {
		for _, e := range doc.entries {
			if e.typ == graph.ColJSON {
				fr := jsonMember(ev.dialect(), e.f, elem)
				return value{k: kComposite, entries: []entry{{typ: graph.ColJSON, f: fr}}, src: src}, nil
			}
		}
	}
	return value{}, sensorql.NewRejectedQuery(src, "property %q has no member %q", property, elem.Name)
}

// evalCall dispatches operators by family.
func (ev *evaluator) evalCall(c *odata.Call) (value, error) {
	switch c.Op {
	case odata.OpAnd, odata.OpOr, odata.OpNot:
		return ev.logical(c)
	case odata.OpEq, odata.OpNe, odata.OpLt, odata.OpLe, odata.OpGt, odata.OpGe:
		return ev.compare(c)
	case odata.OpAdd, odata.OpSub, odata.OpMul, odata.OpDiv, odata.OpMod:
		return ev.arith(c)
	case odata.OpConcat, odata.OpStartsWith, odata.OpEndsWith, odata.OpSubstringOf,
		odata.OpContains, odata.OpIndexOf, odata.OpLength, odata.OpSubstring,
		odata.OpToLower, odata.OpToUpper, odata.OpTrim:
		return ev.stringCall(c)
	case odata.OpYear, odata.OpMonth, odata.OpDay, odata.OpHour, odata.OpMinute,
		odata.OpSecond, odata.OpFractionalSeconds, odata.OpDate, odata.OpTime,
		odata.OpTotalOffsetMinutes, odata.OpNow, odata.OpMinDateTime, odata.OpMaxDateTime:
		return ev.dateCall(c)
	case odata.OpRound, odata.OpFloor, odata.OpCeiling:
		return ev.mathCall(c)
	case odata.OpBefore, odata.OpAfter, odata.OpMeets, odata.OpDuring,
		odata.OpOverlaps, odata.OpStarts, odata.OpFinishes:
		return ev.allen(c)
	case odata.OpGeoDistance, odata.OpGeoLength, odata.OpGeoIntersects,
		odata.OpSTEquals, odata.OpSTDisjoint, odata.OpSTTouches, odata.OpSTWithin,
		odata.OpSTOverlaps, odata.OpSTCrosses, odata.OpSTIntersects,
		odata.OpSTContains, odata.OpSTRelate:
		return ev.geoCall(c)
	default:
		return value{}, sensorql.NewSchemaDefect("unhandled operator %s", c.Op)
	}
}

func (ev *evaluator) logical(c *odata.Call) (value, error) {
	if c.Op == odata.OpNot {
		if err := arity(c, 1); err != nil {
			return value{}, err
		}
		a, err := ev.eval(c.Args[0])
		if err != nil {
			return value{}, err
		}
		bf, err := a.boolValue(ev.dialect())
		if err != nil {
			return value{}, err
		}
		return boolV(combine("NOT (%s)", bf), c.String()), nil
	}
	if err := arity(c, 2); err != nil {
		return value{}, err
	}
	op := "AND"
	if c.Op == odata.OpOr {
		op = "OR"
	}
	a, err := ev.eval(c.Args[0])
	if err != nil {
		return value{}, err
	}
	b, err := ev.eval(c.Args[1])
	if err != nil {
		return value{}, err
	}
	af, err := a.boolValue(ev.dialect())
	if err != nil {
		return value{}, err
	}
	bf, err := b.boolValue(ev.dialect())
	if err != nil {
		return value{}, err
	}
	return boolV(combine("(%s "+op+" %s)", af, bf), c.String()), nil
}

// compare renders the six comparison operators. Temporal operands take
// the interval-aware path; everything else is unified to a common
// scalar kind first.
func (ev *evaluator) compare(c *odata.Call) (value, error) {
	if err := arity(c, 2); err != nil {
		return value{}, err
	}
	a, err := ev.eval(c.Args[0])
	if err != nil {
		return value{}, err
	}
	b, err := ev.eval(c.Args[1])
	if err != nil {
		return value{}, err
	}
	if temporal(a.k) || temporal(b.k) {
		return ev.compareTemporal(c.Op, a, b, c.String())
	}
	af, bf, err := ev.unify(a, b)
	if err != nil {
		return value{}, err
	}
	return boolV(combine("%s "+sqlCmp(c.Op)+" %s", af, bf), c.String()), nil
}

// unify coerces two non-temporal operands to a common kind and returns
// their fragments. A composite yields the representation matching the
// scalar side; when both sides are composites or the kinds disagree,
// the comparison falls back to text.
func (ev *evaluator) unify(a, b value) (frag, frag, error) {
	d := ev.dialect()
	switch {
	case a.k == kComposite && b.k != kComposite:
		av, err := a.as(d, b.k)
		if err != nil {
			return frag{}, frag{}, err
		}
		return av.f, b.f, nil
	case b.k == kComposite && a.k != kComposite:
		bv, err := b.as(d, a.k)
		if err != nil {
			return frag{}, frag{}, err
		}
		return a.f, bv.f, nil
	case a.k == b.k && a.k != kComposite:
		return a.f, b.f, nil
	}
	av, err := a.as(d, kString)
	if err != nil {
		return frag{}, frag{}, err
	}
	bv, err := b.as(d, kString)
	if err != nil {
		return frag{}, frag{}, err
	}
	return av.f, bv.f, nil
}

// arith renders the arithmetic operators. Two numeric literals fold to
// a constant; temporal operands route to duration arithmetic.
func (ev *evaluator) arith(c *odata.Call) (value, error) {
	if err := arity(c, 2); err != nil {
		return value{}, err
	}
	a, err := ev.eval(c.Args[0])
	if err != nil {
		return value{}, err
	}
	b, err := ev.eval(c.Args[1])
	if err != nil {
		return value{}, err
	}
	if temporal(a.k) || a.k == kDuration || temporal(b.k) || b.k == kDuration {
		return ev.temporalArith(c.Op, a, b, c.String())
	}
	if a.lit && b.lit && a.k == kNumber && b.k == kNumber {
		return foldNumeric(c.Op, a, b, c.String())
	}
	an, err := a.as(ev.dialect(), kNumber)
	if err != nil {
		return value{}, err
	}
	bn, err := b.as(ev.dialect(), kNumber)
	if err != nil {
		return value{}, err
	}
	var fr frag
	switch c.Op {
	case odata.OpAdd:
		fr = combine("(%s + %s)", an.f, bn.f)
	case odata.OpSub:
		fr = combine("(%s - %s)", an.f, bn.f)
	case odata.OpMul:
		fr = combine("(%s * %s)", an.f, bn.f)
	case odata.OpDiv:
		fr = combine("(%s / %s)", an.f, bn.f)
	case odata.OpMod:
		fr = combine("MOD(%s, %s)", an.f, bn.f)
	}
	return value{k: kNumber, f: fr, src: c.String()}, nil
}

// foldNumeric computes a numeric operator over two literal operands at
// compile time, keeping exact decimal semantics.
func foldNumeric(op odata.Op, a, b value, src string) (value, error) {
	var n decimal.Decimal
	switch op {
	case odata.OpAdd:
		n = a.num.Add(b.num)
	case odata.OpSub:
		n = a.num.Sub(b.num)
	case odata.OpMul:
		n = a.num.Mul(b.num)
	case odata.OpDiv:
		if b.num.IsZero() {
			return value{}, sensorql.NewRejectedQuery(src, "division by zero")
		}
		n = a.num.Div(b.num)
	case odata.OpMod:
		if b.num.IsZero() {
			return value{}, sensorql.NewRejectedQuery(src, "division by zero")
		}
		n = a.num.Mod(b.num)
	}
	return value{k: kNumber, f: argf(n.String()), lit: true, num: n, src: src}, nil
}

// temporal reports whether the kind participates in temporal
// comparison.
func temporal(k kind) bool { return k == kInstant || k == kInterval }

// sqlCmp maps a comparison operator to its SQL token.
func sqlCmp(op odata.Op) string {
	switch op {
	case odata.OpEq:
		return "="
	case odata.OpNe:
		return "<>"
	case odata.OpLt:
		return "<"
	case odata.OpLe:
		return "<="
	case odata.OpGt:
		return ">"
	default:
		return ">="
	}
}

// boolV wraps a boolean fragment into a value.
func boolV(fr frag, src string) value {
	return value{k: kBool, f: fr, src: src}
}

// arity checks the operator's argument count.
func arity(c *odata.Call, n int) error {
	if len(c.Args) != n {
		return sensorql.NewRejectedQuery(c.String(), "%s takes %d argument(s), got %d", c.Op, n, len(c.Args))
	}
	return nil
}

// arityRange checks an operator accepting between lo and hi arguments.
func arityRange(c *odata.Call, lo, hi int) error {
	if len(c.Args) < lo || len(c.Args) > hi {
		return sensorql.NewRejectedQuery(c.String(), "%s takes %d to %d arguments, got %d", c.Op, lo, hi, len(c.Args))
	}
	return nil
}

// jsonMember renders a single-step key or index lookup inside a JSON
// document.
func jsonMember(d string, doc frag, elem odata.PathElem) frag {
	key := elem.Name
	idx := -1
	if elem.Index != nil {
		idx = *elem.Index
	}
	if d == dialect.Postgres {
		fr := combine("(%s -> ?)", doc)
		fr.args = append(fr.args, key)
		if idx >= 0 {
			fr = combine("(%s -> ?)", fr)
			fr.args = append(fr.args, idx)
		}
		return fr
	}
	// MySQL and SQLite share the JSON path function form.
	path := "$." + key
	if idx >= 0 {
		path = fmt.Sprintf("$.%s[%d]", key, idx)
	}
	fr := combine("JSON_EXTRACT(%s, ?)", doc)
	fr.args = append(fr.args, path)
	return fr
}

// instantArg binds a literal instant, normalized to UTC.
func instantArg(t time.Time) frag { return argf(t.UTC()) }
