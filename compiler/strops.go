package compiler

import (
	"github.com/shopspring/decimal"

	"github.com/syssam/sensorql"
	"github.com/syssam/sensorql/dialect"
	"github.com/syssam/sensorql/odata"
)

// stringCall renders the string function family. Operands are coerced
// to the string kind first, so numeric and boolean representations of
// composite properties participate through their text form.
func (ev *evaluator) stringCall(c *odata.Call) (value, error) {
	d := ev.dialect()
	src := c.String()
	switch c.Op {
	case odata.OpConcat:
		if err := arity(c, 2); err != nil {
			return value{}, err
		}
		a, b, err := ev.twoStrings(c)
		if err != nil {
			return value{}, err
		}
		if d == dialect.MySQL {
			return value{k: kString, f: combine("CONCAT(%s, %s)", a, b), src: src}, nil
		}
		return value{k: kString, f: combine("(%s || %s)", a, b), src: src}, nil

	case odata.OpStartsWith:
		if err := arity(c, 2); err != nil {
			return value{}, err
		}
		a, b, err := ev.twoStrings(c)
		if err != nil {
			return value{}, err
		}
		return boolV(combine("(%s = 1)", position(d, a, b)), src), nil

	case odata.OpEndsWith:
		if err := arity(c, 2); err != nil {
			return value{}, err
		}
		a, b, err := ev.twoStrings(c)
		if err != nil {
			return value{}, err
		}
		if d == dialect.SQLite {
			return boolV(combine("(SUBSTR(%s, -LENGTH(%s)) = %s)", a, b, b), src), nil
		}
		return boolV(combine("(RIGHT(%s, LENGTH(%s)) = %s)", a, b, b), src), nil

	case odata.OpContains, odata.OpSubstringOf:
		if err := arity(c, 2); err != nil {
			return value{}, err
		}
		a, b, err := ev.twoStrings(c)
		if err != nil {
			return value{}, err
		}
		// substringof takes (needle, haystack); contains the reverse.
		if c.Op == odata.OpSubstringOf {
			a, b = b, a
		}
		return boolV(combine("(%s > 0)", position(d, a, b)), src), nil

	case odata.OpIndexOf:
		if err := arity(c, 2); err != nil {
			return value{}, err
		}
		a, b, err := ev.twoStrings(c)
		if err != nil {
			return value{}, err
		}
		// Zero-based, -1 when absent, matching the query language.
		return value{k: kNumber, f: combine("(%s - 1)", position(d, a, b)), src: src}, nil

	case odata.OpLength:
		if err := arity(c, 1); err != nil {
			return value{}, err
		}
		a, err := ev.oneString(c)
		if err != nil {
			return value{}, err
		}
		if d == dialect.MySQL {
			return value{k: kNumber, f: combine("CHAR_LENGTH(%s)", a), src: src}, nil
		}
		return value{k: kNumber, f: combine("LENGTH(%s)", a), src: src}, nil

	case odata.OpSubstring:
		if err := arityRange(c, 2, 3); err != nil {
			return value{}, err
		}
		a, err := ev.oneString(c)
		if err != nil {
			return value{}, err
		}
		start, err := ev.argAs(c, 1, kNumber)
		if err != nil {
			return value{}, err
		}
		// The query language counts from zero, SQL from one.
		if len(c.Args) == 3 {
			n, err := ev.argAs(c, 2, kNumber)
			if err != nil {
				return value{}, err
			}
			return value{k: kString, f: combine("SUBSTR(%s, %s + 1, %s)", a, start, n), src: src}, nil
		}
		return value{k: kString, f: combine("SUBSTR(%s, %s + 1)", a, start), src: src}, nil

	case odata.OpToLower, odata.OpToUpper, odata.OpTrim:
		if err := arity(c, 1); err != nil {
			return value{}, err
		}
		a, err := ev.oneString(c)
		if err != nil {
			return value{}, err
		}
		fn := map[odata.Op]string{
			odata.OpToLower: "LOWER",
			odata.OpToUpper: "UPPER",
			odata.OpTrim:    "TRIM",
		}[c.Op]
		return value{k: kString, f: combine(fn+"(%s)", a), src: src}, nil
	}
	return value{}, sensorql.NewSchemaDefect("unhandled string operator %s", c.Op)
}

// position renders the dialect's 1-based substring search of needle in
// haystack. MySQL's LOCATE takes the needle first, the other dialects
// take the haystack first.
func position(d string, haystack, needle frag) frag {
	switch d {
	case dialect.Postgres:
		return combine("STRPOS(%s, %s)", haystack, needle)
	case dialect.MySQL:
		return combine("LOCATE(%s, %s)", needle, haystack)
	default:
		return combine("INSTR(%s, %s)", haystack, needle)
	}
}

// dateCall renders date-part extraction and the temporal constants.
func (ev *evaluator) dateCall(c *odata.Call) (value, error) {
	d := ev.dialect()
	src := c.String()
	switch c.Op {
	case odata.OpNow:
		if err := arity(c, 0); err != nil {
			return value{}, err
		}
		return value{k: kInstant, f: f("CURRENT_TIMESTAMP"), src: src}, nil
	case odata.OpMinDateTime, odata.OpMaxDateTime:
		if err := arity(c, 0); err != nil {
			return value{}, err
		}
		return value{k: kInstant, f: argf(timeSentinel(d, c.Op == odata.OpMaxDateTime)), src: src}, nil
	}
	if err := arity(c, 1); err != nil {
		return value{}, err
	}
	av, err := ev.eval(c.Args[0])
	if err != nil {
		return value{}, err
	}
	// Date parts are defined against UTC; a literal carrying another
	// offset would silently shift the answer.
	if av.k == kInstant && av.lit && !av.utc {
		return value{}, sensorql.NewRejectedQuery(src, "%s requires a UTC datetime", c.Op)
	}
	iv, err := av.as(d, kInstant)
	if err != nil {
		return value{}, err
	}
	a := iv.f
	switch c.Op {
	case odata.OpYear, odata.OpMonth, odata.OpDay, odata.OpHour, odata.OpMinute:
		return value{k: kNumber, f: extract(d, c.Op, a), src: src}, nil
	case odata.OpSecond:
		if d == dialect.SQLite {
			return value{k: kNumber, f: combine("CAST(strftime('%%S', %s) AS INTEGER)", a), src: src}, nil
		}
		return value{k: kNumber, f: combine("FLOOR(EXTRACT(SECOND FROM %s))", a), src: src}, nil
	case odata.OpFractionalSeconds:
		switch d {
		case dialect.Postgres:
			return value{k: kNumber, f: combine("(EXTRACT(SECOND FROM %s) - FLOOR(EXTRACT(SECOND FROM %s)))", a, a), src: src}, nil
		case dialect.MySQL:
			return value{k: kNumber, f: combine("(MICROSECOND(%s) / 1000000.0)", a), src: src}, nil
		default:
			return value{k: kNumber, f: combine("(CAST(strftime('%%f', %s) AS REAL) - CAST(strftime('%%S', %s) AS INTEGER))", a, a), src: src}, nil
		}
	case odata.OpDate:
		switch d {
		case dialect.Postgres:
			return value{k: kInstant, f: combine("date_trunc('day', %s)", a), src: src}, nil
		case dialect.MySQL:
			return value{k: kInstant, f: combine("CAST(DATE(%s) AS DATETIME)", a), src: src}, nil
		default:
			return value{k: kInstant, f: combine("datetime(date(%s))", a), src: src}, nil
		}
	case odata.OpTime:
		switch d {
		case dialect.Postgres:
			return value{k: kString, f: combine("to_char(%s, 'HH24:MI:SS')", a), src: src}, nil
		case dialect.MySQL:
			return value{k: kString, f: combine("TIME_FORMAT(%s, '%%H:%%i:%%s')", a), src: src}, nil
		default:
			return value{k: kString, f: combine("strftime('%%H:%%M:%%S', %s)", a), src: src}, nil
		}
	case odata.OpTotalOffsetMinutes:
		// Instants are stored normalized to UTC.
		return value{k: kNumber, f: f("0"), src: src}, nil
	}
	return value{}, sensorql.NewSchemaDefect("unhandled date operator %s", c.Op)
}

// extract renders the plain date-part extraction functions.
func extract(d string, op odata.Op, a frag) frag {
	part := map[odata.Op]string{
		odata.OpYear:   "YEAR",
		odata.OpMonth:  "MONTH",
		odata.OpDay:    "DAY",
		odata.OpHour:   "HOUR",
		odata.OpMinute: "MINUTE",
	}[op]
	if d == dialect.SQLite {
		fmtCode := map[odata.Op]string{
			odata.OpYear:   "%%Y",
			odata.OpMonth:  "%%m",
			odata.OpDay:    "%%d",
			odata.OpHour:   "%%H",
			odata.OpMinute: "%%M",
		}[op]
		return combine("CAST(strftime('"+fmtCode+"', %s) AS INTEGER)", a)
	}
	return combine("EXTRACT("+part+" FROM %s)", a)
}

// timeSentinel returns the backend's representable time extremes.
func timeSentinel(d string, max bool) string {
	if d == dialect.Postgres {
		if max {
			return "infinity"
		}
		return "-infinity"
	}
	if max {
		return "9999-12-31 23:59:59"
	}
	return "1000-01-01 00:00:00"
}

// mathCall renders round/floor/ceiling. Literal operands fold.
func (ev *evaluator) mathCall(c *odata.Call) (value, error) {
	if err := arity(c, 1); err != nil {
		return value{}, err
	}
	a, err := ev.eval(c.Args[0])
	if err != nil {
		return value{}, err
	}
	an, err := a.as(ev.dialect(), kNumber)
	if err != nil {
		return value{}, err
	}
	src := c.String()
	if a.lit && a.k == kNumber {
		var n decimal.Decimal
		switch c.Op {
		case odata.OpRound:
			n = a.num.Round(0)
		case odata.OpFloor:
			n = a.num.Floor()
		default:
			n = a.num.Ceil()
		}
		return value{k: kNumber, f: argf(n.String()), lit: true, num: n, src: src}, nil
	}
	fn := map[odata.Op]string{
		odata.OpRound:   "ROUND",
		odata.OpFloor:   "FLOOR",
		odata.OpCeiling: "CEILING",
	}[c.Op]
	return value{k: kNumber, f: combine(fn+"(%s)", an.f), src: src}, nil
}

// twoStrings evaluates the two operands of a binary string operator.
func (ev *evaluator) twoStrings(c *odata.Call) (frag, frag, error) {
	a, err := ev.argAs(c, 0, kString)
	if err != nil {
		return frag{}, frag{}, err
	}
	b, err := ev.argAs(c, 1, kString)
	if err != nil {
		return frag{}, frag{}, err
	}
	return a, b, nil
}

// oneString evaluates the single operand of a unary string operator.
func (ev *evaluator) oneString(c *odata.Call) (frag, error) {
	return ev.argAs(c, 0, kString)
}

// argAs evaluates argument i and coerces it to the wanted kind.
func (ev *evaluator) argAs(c *odata.Call, i int, want kind) (frag, error) {
	v, err := ev.eval(c.Args[i])
	if err != nil {
		return frag{}, err
	}
	cv, err := v.as(ev.dialect(), want)
	if err != nil {
		return frag{}, err
	}
	return cv.f, nil
}
