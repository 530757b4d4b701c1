package compiler

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sosodev/duration"

	"github.com/syssam/sensorql"
	"github.com/syssam/sensorql/dialect"
	"github.com/syssam/sensorql/graph"
)

// frag is a rendered SQL fragment with neutral `?` placeholders and its
// bound arguments. Identifiers inside the text are already quoted for
// the target dialect.
type frag struct {
	sql  string
	args []any
}

// f builds a fragment from literal SQL text.
func f(sql string, args ...any) frag {
	return frag{sql: sql, args: args}
}

// argf builds a single-placeholder fragment binding the given value.
func argf(v any) frag {
	return frag{sql: "?", args: []any{v}}
}

// combine renders a format string whose %s verbs are the given
// fragments, concatenating their arguments in order. The format must
// reference fragments in argument order.
func combine(format string, fs ...frag) frag {
	texts := make([]any, len(fs))
	var args []any
	for i, fr := range fs {
		texts[i] = fr.sql
		args = append(args, fr.args...)
	}
	return frag{sql: fmt.Sprintf(format, texts...), args: args}
}

// kind tags the typed result of evaluating one expression node.
type kind uint8

const (
	kNumber kind = iota
	kString
	kBool
	kInstant
	kDuration
	kInterval
	kGeometry
	kComposite
)

// String returns the tag name, used in client-facing type errors.
func (k kind) String() string {
	switch k {
	case kNumber:
		return "number"
	case kString:
		return "string"
	case kBool:
		return "boolean"
	case kInstant:
		return "instant"
	case kDuration:
		return "duration"
	case kInterval:
		return "interval"
	case kGeometry:
		return "geometry"
	case kComposite:
		return "composite"
	default:
		return "value(?)"
	}
}

// entry is one named sub-expression of a composite value.
type entry struct {
	suffix string
	typ    graph.ColumnType
	f      frag
}

// value is the tagged union produced by the expression evaluator.
// Scalar kinds carry their fragment in f; intervals carry start/end;
// composites carry named entries whose final coercion is deferred to
// the consuming operator.
type value struct {
	k kind
	f frag

	start, end frag // interval bounds

	entries []entry // composite sub-expressions

	// Literal metadata, set when the value came from a constant node.
	lit bool
	utc bool // instant literals: source carried a Z/zero offset
	t   time.Time
	num decimal.Decimal
	s   string
	b   bool
	dur *duration.Duration

	// src is the node's source form, echoed in type-mismatch errors.
	src string
}

// columnKind maps a resolver column tag to the evaluator kind.
func columnKind(t graph.ColumnType) kind {
	switch t {
	case graph.ColNumber, graph.ColID:
		return kNumber
	case graph.ColString:
		return kString
	case graph.ColBool:
		return kBool
	case graph.ColInstant:
		return kInstant
	case graph.ColGeometry:
		return kGeometry
	default:
		// JSON columns stay composite so comparison context decides
		// their coercion.
		return kComposite
	}
}

// scalarColumnType maps an evaluator kind back to a resolver column
// tag, for plan entries built from compiled expressions.
func scalarColumnType(k kind) graph.ColumnType {
	switch k {
	case kNumber:
		return graph.ColNumber
	case kString:
		return graph.ColString
	case kBool:
		return graph.ColBool
	case kInstant:
		return graph.ColInstant
	case kGeometry:
		return graph.ColGeometry
	default:
		return graph.ColJSON
	}
}

// castable reports whether a value of kind from can be cast losslessly
// enough to kind to, and the cast direction spec's coercion table
// allows. The only lossy cast offered is to string.
func castable(from, to kind) bool {
	if from == to {
		return true
	}
	if to == kString {
		return from == kNumber || from == kBool
	}
	return false
}

// castFrag renders the SQL cast of a fragment to the given kind.
func castFrag(d string, fr frag, to kind) frag {
	var t string
	switch to {
	case kNumber:
		t = "NUMERIC"
		if d == dialect.MySQL {
			t = "DECIMAL(65,30)"
		}
	case kString:
		t = "TEXT"
		if d == dialect.MySQL {
			t = "CHAR"
		}
	case kBool:
		t = "BOOLEAN"
		if d == dialect.MySQL {
			t = "UNSIGNED"
		}
	case kInstant:
		t = "TIMESTAMP"
		if d == dialect.Postgres {
			t = "TIMESTAMPTZ"
		}
	default:
		return fr
	}
	return combine("CAST(%s AS "+t+")", fr)
}

// jsonScalar renders the extraction of a JSON fragment as a scalar of
// the wanted kind. On PostgreSQL the document is unwrapped to text
// first (#>> '{}') so string comparisons see the raw value, not the
// quoted JSON form.
func jsonScalar(d string, fr frag, to kind) frag {
	var text frag
	switch d {
	case dialect.Postgres:
		text = combine("(%s #>> '{}')", fr)
	default:
		text = fr
	}
	if to == kString {
		return text
	}
	return castFrag(d, text, to)
}

// as coerces the value to the wanted kind for the given dialect:
// exact tag match first, then composite sub-expression search (exact
// entry type, then castable entry), then the scalar lossy cast to
// string. The error names the offending property path.
func (v value) as(d string, want kind) (value, error) {
	if v.k == want {
		return v, nil
	}
	if v.k == kComposite {
		// Exact entry type first.
		for _, e := range v.entries {
			if e.typ != graph.ColJSON && columnKind(e.typ) == want {
				return value{k: want, f: e.f, src: v.src}, nil
			}
		}
		// A JSON representation can behave as any scalar kind.
		for _, e := range v.entries {
			if e.typ == graph.ColJSON && want != kInterval && want != kGeometry && want != kDuration {
				return value{k: want, f: jsonScalar(d, e.f, want), src: v.src}, nil
			}
		}
		// Lossy cast of a non-JSON entry.
		for _, e := range v.entries {
			if castable(columnKind(e.typ), want) {
				return value{k: want, f: castFrag(d, e.f, want), src: v.src}, nil
			}
		}
		return value{}, sensorql.NewRejectedQuery(v.src, "no %s representation for property", want)
	}
	if castable(v.k, want) {
		return value{k: want, f: castFrag(d, v.f, want), src: v.src}, nil
	}
	return value{}, sensorql.NewRejectedQuery(v.src, "cannot use %s value where %s is required", v.k, want)
}

// boolValue ensures the value is a usable boolean predicate fragment.
func (v value) boolValue(d string) (frag, error) {
	bv, err := v.as(d, kBool)
	if err != nil {
		return frag{}, err
	}
	return bv.f, nil
}

// intervalBounds returns the start/end fragments, promoting an instant
// to the degenerate [t, t] interval when allowed.
func (v value) intervalBounds() (frag, frag, bool) {
	switch v.k {
	case kInterval:
		return v.start, v.end, true
	case kInstant:
		return v.f, v.f, true
	default:
		return frag{}, frag{}, false
	}
}
