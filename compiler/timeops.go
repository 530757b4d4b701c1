package compiler

import (
	"github.com/syssam/sensorql"
	"github.com/syssam/sensorql/dialect"
	"github.com/syssam/sensorql/odata"
)

// Temporal semantics. Intervals are half-open [start, end). An instant
// used where an interval is expected promotes to the degenerate
// [t, t]; two instants compared with a relation that has no point
// meaning degenerate to equality, except before/after which become
// strict ordering.

// compareTemporal renders eq/ne/lt/le/gt/ge over temporal operands.
// Intervals order by start, ties broken by end.
func (ev *evaluator) compareTemporal(op odata.Op, a, b value, src string) (value, error) {
	a, err := ev.toTemporal(a)
	if err != nil {
		return value{}, err
	}
	b, err = ev.toTemporal(b)
	if err != nil {
		return value{}, err
	}
	if a.k == kInstant && b.k == kInstant {
		return boolV(combine("%s "+sqlCmp(op)+" %s", a.f, b.f), src), nil
	}
	as, ae, ok := a.intervalBounds()
	if !ok {
		return value{}, sensorql.NewRejectedQuery(src, "cannot compare %s value with a time interval", a.k)
	}
	bs, be, ok := b.intervalBounds()
	if !ok {
		return value{}, sensorql.NewRejectedQuery(src, "cannot compare %s value with a time interval", b.k)
	}
	// Mixed instant/interval ordering compares the interval as its
	// start; the end bound plays no part.
	if a.k == kInstant || b.k == kInstant {
		return boolV(combine("%s "+sqlCmp(op)+" %s", as, bs), src), nil
	}
	switch op {
	case odata.OpEq:
		return boolV(combine("(%s = %s AND %s = %s)", as, bs, ae, be), src), nil
	case odata.OpNe:
		return boolV(combine("(%s <> %s OR %s <> %s)", as, bs, ae, be), src), nil
	case odata.OpLt:
		return boolV(combine("(%s < %s OR (%s = %s AND %s < %s))", as, bs, as, bs, ae, be), src), nil
	case odata.OpLe:
		return boolV(combine("(%s < %s OR (%s = %s AND %s <= %s))", as, bs, as, bs, ae, be), src), nil
	case odata.OpGt:
		return boolV(combine("(%s > %s OR (%s = %s AND %s > %s))", as, bs, as, bs, ae, be), src), nil
	default:
		return boolV(combine("(%s > %s OR (%s = %s AND %s >= %s))", as, bs, as, bs, ae, be), src), nil
	}
}

// allen renders the seven interval relation operators.
func (ev *evaluator) allen(c *odata.Call) (value, error) {
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
	a, err = ev.toTemporal(a)
	if err != nil {
		return value{}, err
	}
	b, err = ev.toTemporal(b)
	if err != nil {
		return value{}, err
	}
	src := c.String()

	// Two instants have no extent; the relations degenerate.
	if a.k == kInstant && b.k == kInstant {
		switch c.Op {
		case odata.OpBefore:
			return boolV(combine("%s < %s", a.f, b.f), src), nil
		case odata.OpAfter:
			return boolV(combine("%s > %s", a.f, b.f), src), nil
		case odata.OpDuring:
			return value{}, sensorql.NewRejectedQuery(src, "during requires a time interval as its second operand")
		default:
			return boolV(combine("%s = %s", a.f, b.f), src), nil
		}
	}

	as, ae, _ := a.intervalBounds()
	bs, be, _ := b.intervalBounds()
	switch c.Op {
	case odata.OpBefore:
		// A promoted instant has no extent; touching it is not before
		// it, so the comparison tightens to strict.
		if a.k == kInstant || b.k == kInstant {
			return boolV(combine("%s < %s", ae, bs), src), nil
		}
		return boolV(combine("%s <= %s", ae, bs), src), nil
	case odata.OpAfter:
		if a.k == kInstant || b.k == kInstant {
			return boolV(combine("%s > %s", as, be), src), nil
		}
		return boolV(combine("%s >= %s", as, be), src), nil
	case odata.OpMeets:
		return boolV(combine("(%s = %s OR %s = %s)", ae, bs, be, as), src), nil
	case odata.OpDuring:
		if b.k != kInterval {
			return value{}, sensorql.NewRejectedQuery(src, "during requires a time interval as its second operand")
		}
		if a.k == kInstant {
			return boolV(combine("(%s >= %s AND %s < %s)", a.f, bs, a.f, be), src), nil
		}
		return boolV(combine("(%s >= %s AND %s <= %s)", as, bs, ae, be), src), nil
	case odata.OpOverlaps:
		if a.k == kInstant {
			return boolV(combine("(%s >= %s AND %s < %s)", a.f, bs, a.f, be), src), nil
		}
		if b.k == kInstant {
			return boolV(combine("(%s >= %s AND %s < %s)", b.f, as, b.f, ae), src), nil
		}
		return boolV(combine("(%s < %s AND %s < %s)", as, be, bs, ae), src), nil
	case odata.OpStarts:
		return boolV(combine("(%s = %s AND %s <= %s)", as, bs, ae, be), src), nil
	default: // finishes
		return boolV(combine("(%s = %s AND %s >= %s)", ae, be, as, bs), src), nil
	}
}

// toTemporal coerces a value into the temporal domain: instants and
// intervals pass through, composites surface their instant
// representation.
func (ev *evaluator) toTemporal(v value) (value, error) {
	if temporal(v.k) {
		return v, nil
	}
	return v.as(ev.dialect(), kInstant)
}

// temporalArith renders arithmetic involving instants, intervals and
// durations: a time-like value +/- duration shifts it (both bounds of
// an interval move together), instant - instant yields a duration in
// seconds, an interval on the left of a subtraction measures the time
// back to the other operand's start, duration +/- duration combines
// durations.
func (ev *evaluator) temporalArith(op odata.Op, a, b value, src string) (value, error) {
	d := ev.dialect()
	switch {
	case a.k == kInstant && b.k == kDuration && (op == odata.OpAdd || op == odata.OpSub):
		return value{k: kInstant, f: shiftInstant(d, a.f, b, op == odata.OpSub), src: src}, nil
	case a.k == kDuration && b.k == kInstant && op == odata.OpAdd:
		return value{k: kInstant, f: shiftInstant(d, b.f, a, false), src: src}, nil
	case a.k == kInterval && b.k == kDuration && (op == odata.OpAdd || op == odata.OpSub):
		return value{
			k:     kInterval,
			start: shiftInstant(d, a.start, b, op == odata.OpSub),
			end:   shiftInstant(d, a.end, b, op == odata.OpSub),
			src:   src,
		}, nil
	case a.k == kDuration && b.k == kInterval && op == odata.OpAdd:
		return value{
			k:     kInterval,
			start: shiftInstant(d, b.start, a, false),
			end:   shiftInstant(d, b.end, a, false),
			src:   src,
		}, nil
	case a.k == kInterval && temporal(b.k) && op == odata.OpSub:
		bs, _, _ := b.intervalBounds()
		return value{k: kDuration, f: instantDiff(d, a.start, bs), src: src}, nil
	case a.k == kInstant && b.k == kInstant && op == odata.OpSub:
		return value{k: kDuration, f: instantDiff(d, a.f, b.f), src: src}, nil
	case a.k == kDuration && b.k == kDuration && (op == odata.OpAdd || op == odata.OpSub):
		sign := "+"
		if op == odata.OpSub {
			sign = "-"
		}
		return value{k: kDuration, f: combine("(%s "+sign+" %s)", a.f, b.f), src: src}, nil
	}
	return value{}, sensorql.NewRejectedQuery(src, "cannot apply %s to %s and %s", op, a.k, b.k)
}

// shiftInstant renders instant +/- duration. A literal duration keeps
// its ISO form on PostgreSQL for calendar-exact arithmetic; computed
// durations are applied as seconds.
func shiftInstant(d string, instant frag, dur value, negate bool) frag {
	sign := "+"
	if negate {
		sign = "-"
	}
	switch d {
	case dialect.Postgres:
		if dur.lit && dur.dur != nil {
			fr := combine("(%s "+sign+" CAST(? AS INTERVAL))", instant)
			fr.args = append(fr.args, dur.dur.String())
			return fr
		}
		return combine("(%s "+sign+" make_interval(secs => %s))", instant, dur.f)
	case dialect.MySQL:
		if negate {
			return combine("DATE_SUB(%s, INTERVAL (%s * 1000000) MICROSECOND)", instant, dur.f)
		}
		return combine("DATE_ADD(%s, INTERVAL (%s * 1000000) MICROSECOND)", instant, dur.f)
	default:
		if negate {
			return combine("datetime(%s, '-' || %s || ' seconds')", instant, dur.f)
		}
		return combine("datetime(%s, '+' || %s || ' seconds')", instant, dur.f)
	}
}

// instantDiff renders (a - b) in seconds.
func instantDiff(d string, a, b frag) frag {
	switch d {
	case dialect.Postgres:
		return combine("EXTRACT(EPOCH FROM (%s - %s))", a, b)
	case dialect.MySQL:
		return combine("(TIMESTAMPDIFF(MICROSECOND, %s, %s) / 1000000.0)", b, a)
	default:
		return combine("((julianday(%s) - julianday(%s)) * 86400.0)", a, b)
	}
}
