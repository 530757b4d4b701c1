package compiler

import (
	"testing"

	"github.com/sosodev/duration"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sensorql"
	"github.com/syssam/sensorql/dialect"
	"github.com/syssam/sensorql/odata"
)

func call(op odata.Op, args ...odata.Expression) *odata.Call {
	return &odata.Call{Op: op, Args: args}
}

func str(s string) *odata.StringLit { return &odata.StringLit{Value: s} }

func num(n int64) *odata.IntegerLit { return &odata.IntegerLit{Value: n} }

func boolean(b bool) *odata.BoolLit { return &odata.BoolLit{Value: b} }

func navPath(names ...string) *odata.Path {
	elems := make([]odata.PathElem, len(names))
	for i, n := range names {
		elems[i] = odata.PathElem{Kind: odata.ElemNav, Name: n}
	}
	elems[len(elems)-1].Kind = odata.ElemProperty
	return &odata.Path{Elems: elems}
}

func interval(start, end string) *odata.IntervalLit {
	return &odata.IntervalLit{Start: instant(start).Value, End: instant(end).Value}
}

func mustDuration(s string) *odata.DurationLit {
	d, err := duration.Parse(s)
	if err != nil {
		panic(err)
	}
	return &odata.DurationLit{Value: d}
}

// filterQuery compiles a collection query over the given set with the
// filter applied and returns the rendered statement.
func filterQuery(t *testing.T, d, setName string, filter odata.Expression) (string, []any) {
	t.Helper()
	c, err := compile(d, odata.ResourcePath{set(setName)}, &odata.QueryOptions{Filter: filter}, sensorql.DefaultSettings())
	require.NoError(t, err)
	return c.Selector.Query()
}

func rejected(t *testing.T, setName string, filter odata.Expression) error {
	t.Helper()
	_, err := compile(dialect.Postgres, odata.ResourcePath{set(setName)}, &odata.QueryOptions{Filter: filter}, sensorql.DefaultSettings())
	require.Error(t, err)
	assert.True(t, sensorql.IsRejected(err), "want rejected query, got %v", err)
	return err
}

func TestFilterIntervalComparison(t *testing.T) {
	t.Parallel()
	lit := instant("2016-01-01T07:00:00Z")
	query, args := filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpLt, pathProp("phenomenonTime"), lit))

	// Against an instant the interval orders by its start alone.
	assert.Contains(t, query, `WHERE "t0"."phenomenon_time_start" < $1`)
	assert.Equal(t, []any{lit.Value}, args)

	// Two intervals order by start, ties broken by end.
	span := interval("2016-01-01T06:00:00Z", "2016-01-01T09:00:00Z")
	query, args = filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpLt, pathProp("phenomenonTime"), span))
	assert.Contains(t, query,
		`WHERE ("t0"."phenomenon_time_start" < $1 OR ("t0"."phenomenon_time_start" = $2 AND "t0"."phenomenon_time_end" < $3))`)
	assert.Equal(t, []any{span.Start, span.Start, span.End}, args)
}

func TestFilterInstantComparisonMatchesBefore(t *testing.T) {
	t.Parallel()
	lit := instant("2016-01-01T07:00:00Z")
	ltQuery, _ := filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpLt, pathProp("resultTime"), lit))
	beforeQuery, _ := filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpBefore, pathProp("resultTime"), lit))

	// On two instants, before degenerates to the strict order lt uses.
	want := `WHERE "t0"."result_time" < $1`
	assert.Contains(t, ltQuery, want)
	assert.Contains(t, beforeQuery, want)
}

func TestFilterBeforeMatchesLtOnIntervalColumn(t *testing.T) {
	t.Parallel()
	lit := instant("2016-01-01T07:00:00Z")
	ltQuery, _ := filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpLt, pathProp("phenomenonTime"), lit))
	beforeQuery, _ := filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpBefore, pathProp("phenomenonTime"), lit))

	// A degenerate stored interval [t, t] must satisfy neither form
	// against the instant t, so both bounds compare strictly and the
	// two filters select the same rows.
	assert.Contains(t, ltQuery, `WHERE "t0"."phenomenon_time_start" < $1`)
	assert.Contains(t, beforeQuery, `WHERE "t0"."phenomenon_time_end" < $1`)
}

func TestFilterAllenRelations(t *testing.T) {
	t.Parallel()
	span := interval("2016-01-01T06:00:00Z", "2016-01-01T09:00:00Z")

	// Against an instant the bound compares strictly; between two
	// intervals a shared boundary still counts as before.
	query, _ := filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpBefore, pathProp("phenomenonTime"), instant("2016-01-01T07:00:00Z")))
	assert.Contains(t, query, `WHERE "t0"."phenomenon_time_end" < $1`)

	query, _ = filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpBefore, pathProp("phenomenonTime"), span))
	assert.Contains(t, query, `WHERE "t0"."phenomenon_time_end" <= $1`)

	query, _ = filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpAfter, pathProp("phenomenonTime"), instant("2016-01-01T07:00:00Z")))
	assert.Contains(t, query, `WHERE "t0"."phenomenon_time_start" > $1`)

	query, _ = filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpDuring, pathProp("resultTime"), span))
	assert.Contains(t, query, `WHERE ("t0"."result_time" >= $1 AND "t0"."result_time" < $2)`)

	query, _ = filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpDuring, pathProp("phenomenonTime"), span))
	assert.Contains(t, query, `WHERE ("t0"."phenomenon_time_start" >= $1 AND "t0"."phenomenon_time_end" <= $2)`)

	query, _ = filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpMeets, pathProp("phenomenonTime"), span))
	assert.Contains(t, query, `WHERE ("t0"."phenomenon_time_end" = $1 OR $2 = "t0"."phenomenon_time_start")`)

	query, _ = filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpOverlaps, pathProp("phenomenonTime"), span))
	assert.Contains(t, query, `WHERE ("t0"."phenomenon_time_start" < $1 AND $2 < "t0"."phenomenon_time_end")`)
}

func TestFilterDuringRequiresInterval(t *testing.T) {
	t.Parallel()
	// An instant as the second operand has no extent to contain anything.
	rejected(t, "Observations",
		call(odata.OpDuring, pathProp("phenomenonTime"), instant("2016-01-01T07:00:00Z")))
	rejected(t, "Observations",
		call(odata.OpDuring, pathProp("resultTime"), instant("2016-01-01T07:00:00Z")))
}

func TestFilterIntervalMember(t *testing.T) {
	t.Parallel()
	query, _ := filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpLe, pathProp("phenomenonTime", "start"), instant("2016-01-01T07:00:00Z")))
	assert.Contains(t, query, `WHERE "t0"."phenomenon_time_start" <= $1`)

	rejected(t, "Observations",
		call(odata.OpLe, pathProp("phenomenonTime", "middle"), instant("2016-01-01T07:00:00Z")))
}

func TestFilterResultRepresentations(t *testing.T) {
	t.Parallel()
	// The comparison operand picks the physical representation.
	query, args := filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpEq, pathProp("result"), num(3)))
	assert.Contains(t, query, `WHERE "t0"."result_number" = $1`)
	assert.Equal(t, []any{int64(3)}, args)

	query, _ = filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpEq, pathProp("result"), str("dry")))
	assert.Contains(t, query, `WHERE "t0"."result_string" = $1`)

	query, _ = filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpEq, pathProp("result"), boolean(true)))
	assert.Contains(t, query, `WHERE "t0"."result_boolean" = $1`)
}

func TestFilterCompositeSuffix(t *testing.T) {
	t.Parallel()
	query, _ := filterQuery(t, dialect.Postgres, "Datastreams",
		call(odata.OpEq, pathProp("unitOfMeasurement", "symbol"), str("C")))
	assert.Contains(t, query, `WHERE "t0"."unit_symbol" = $1`)
}

func TestFilterJSONKey(t *testing.T) {
	t.Parallel()
	p := &odata.Path{Elems: []odata.PathElem{
		{Kind: odata.ElemProperty, Name: "properties"},
		{Kind: odata.ElemCustom, Name: "reference"},
	}}
	query, args := filterQuery(t, dialect.Postgres, "Things", call(odata.OpEq, p, str("first")))
	assert.Contains(t, query,
		`WHERE (("t0"."properties" -> $1) #>> '{}') = $2`)
	assert.Equal(t, []any{"reference", "first"}, args)

	// The same lookup on MySQL goes through JSON_EXTRACT.
	query, args = filterQuery(t, dialect.MySQL, "Things", call(odata.OpEq, p, str("first")))
	assert.Contains(t, query, "JSON_EXTRACT(`t0`.`properties`, ?)")
	assert.Equal(t, []any{"$.reference", "first"}, args)
}

func TestFilterStringCoercionIsSymmetric(t *testing.T) {
	t.Parallel()
	query, _ := filterQuery(t, dialect.Postgres, "Things",
		call(odata.OpEq, pathProp("name"), num(3)))
	assert.Contains(t, query, `WHERE "t0"."name" = CAST($1 AS TEXT)`)

	query, _ = filterQuery(t, dialect.Postgres, "Things",
		call(odata.OpEq, num(3), pathProp("name")))
	assert.Contains(t, query, `WHERE CAST($1 AS TEXT) = "t0"."name"`)
}

func TestFilterLiteralFolding(t *testing.T) {
	t.Parallel()
	query, args := filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpEq, pathProp("result"), call(odata.OpMod, num(7), num(3))))
	assert.Contains(t, query, `WHERE "t0"."result_number" = $1`)
	assert.Equal(t, []any{"1"}, args)

	rejected(t, "Observations",
		call(odata.OpEq, pathProp("result"), call(odata.OpMod, num(7), num(0))))
	rejected(t, "Observations",
		call(odata.OpEq, pathProp("result"), call(odata.OpDiv, num(7), num(0))))
}

func TestFilterArithmetic(t *testing.T) {
	t.Parallel()
	query, args := filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpGt, call(odata.OpAdd, pathProp("result"), num(1)), num(5)))
	assert.Contains(t, query, `WHERE ("t0"."result_number" + $1) > $2`)
	assert.Equal(t, []any{int64(1), int64(5)}, args)

	query, _ = filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpEq, call(odata.OpMod, pathProp("result"), num(2)), num(0)))
	assert.Contains(t, query, `WHERE MOD("t0"."result_number", $1) = $2`)
}

func TestFilterStringFunctions(t *testing.T) {
	t.Parallel()
	query, args := filterQuery(t, dialect.Postgres, "Things",
		call(odata.OpStartsWith, pathProp("name"), str("S")))
	assert.Contains(t, query, `WHERE (STRPOS("t0"."name", $1) = 1)`)
	assert.Equal(t, []any{"S"}, args)

	// substringof takes (needle, haystack), contains the reverse.
	query, _ = filterQuery(t, dialect.Postgres, "Things",
		call(odata.OpSubstringOf, str("net"), pathProp("name")))
	assert.Contains(t, query, `WHERE (STRPOS("t0"."name", $1) > 0)`)
	query, _ = filterQuery(t, dialect.Postgres, "Things",
		call(odata.OpContains, pathProp("name"), str("net")))
	assert.Contains(t, query, `WHERE (STRPOS("t0"."name", $1) > 0)`)

	query, _ = filterQuery(t, dialect.Postgres, "Things",
		call(odata.OpEq, call(odata.OpIndexOf, pathProp("name"), str("x")), num(2)))
	assert.Contains(t, query, `WHERE (STRPOS("t0"."name", $1) - 1) = $2`)

	query, _ = filterQuery(t, dialect.Postgres, "Things",
		call(odata.OpGt, call(odata.OpLength, pathProp("name")), num(3)))
	assert.Contains(t, query, `WHERE LENGTH("t0"."name") > $1`)

	query, _ = filterQuery(t, dialect.Postgres, "Things",
		call(odata.OpEq, call(odata.OpSubstring, pathProp("name"), num(1), num(2)), str("en")))
	assert.Contains(t, query, `WHERE SUBSTR("t0"."name", $1 + 1, $2) = $3`)
}

func TestFilterStringFunctionsDialects(t *testing.T) {
	t.Parallel()
	// LOCATE takes the needle first, unlike STRPOS and INSTR.
	query, _ := filterQuery(t, dialect.MySQL, "Things",
		call(odata.OpStartsWith, pathProp("name"), str("S")))
	assert.Contains(t, query, "WHERE (LOCATE(?, `t0`.`name`) = 1)")

	query, _ = filterQuery(t, dialect.SQLite, "Things",
		call(odata.OpStartsWith, pathProp("name"), str("S")))
	assert.Contains(t, query, `WHERE (INSTR("t0"."name", ?) = 1)`)

	query, _ = filterQuery(t, dialect.SQLite, "Things",
		call(odata.OpEndsWith, pathProp("name"), str("x")))
	assert.Contains(t, query, `WHERE (SUBSTR("t0"."name", -LENGTH(?)) = ?)`)

	query, _ = filterQuery(t, dialect.MySQL, "Things",
		call(odata.OpEq, call(odata.OpConcat, pathProp("name"), str("!")), str("x!")))
	assert.Contains(t, query, "WHERE CONCAT(`t0`.`name`, ?) = ?")
}

func TestFilterDateFunctions(t *testing.T) {
	t.Parallel()
	query, args := filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpEq, call(odata.OpYear, pathProp("resultTime")), num(2016)))
	assert.Contains(t, query, `WHERE EXTRACT(YEAR FROM "t0"."result_time") = $1`)
	assert.Equal(t, []any{int64(2016)}, args)

	query, _ = filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpEq, call(odata.OpDate, pathProp("resultTime")), &odata.DateLit{Value: instant("2016-01-01T00:00:00Z").Value}))
	assert.Contains(t, query, `WHERE date_trunc('day', "t0"."result_time") = $1`)

	query, args = filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpLe, pathProp("resultTime"), call(odata.OpNow)))
	assert.Contains(t, query, `WHERE "t0"."result_time" <= CURRENT_TIMESTAMP`)
	assert.Empty(t, args)

	query, _ = filterQuery(t, dialect.SQLite, "Observations",
		call(odata.OpEq, call(odata.OpYear, pathProp("resultTime")), num(2016)))
	assert.Contains(t, query, `WHERE CAST(strftime('%Y', "t0"."result_time") AS INTEGER) = ?`)
}

func TestFilterDurationArithmetic(t *testing.T) {
	t.Parallel()
	lit := instant("2016-01-01T07:00:00Z")
	query, args := filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpLt, call(odata.OpAdd, pathProp("resultTime"), mustDuration("PT1H")), lit))
	// A literal duration keeps its ISO form for calendar-exact shifts.
	assert.Contains(t, query, `WHERE ("t0"."result_time" + CAST($1 AS INTERVAL)) < $2`)
	assert.Equal(t, []any{"PT1H", lit.Value}, args)

	query, _ = filterQuery(t, dialect.MySQL, "Observations",
		call(odata.OpLt, call(odata.OpSub, pathProp("resultTime"), mustDuration("PT1H")), lit))
	assert.Contains(t, query, "WHERE DATE_SUB(`t0`.`result_time`, INTERVAL (? * 1000000) MICROSECOND) < ?")
}

func TestFilterIntervalArithmetic(t *testing.T) {
	t.Parallel()
	lit := instant("2016-01-01T07:00:00Z")

	// Shifting an interval moves both bounds; against an instant the
	// comparison still orders by the shifted start.
	query, args := filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpLt, call(odata.OpAdd, pathProp("phenomenonTime"), mustDuration("PT1H")), lit))
	assert.Contains(t, query, `WHERE ("t0"."phenomenon_time_start" + CAST($1 AS INTERVAL)) < $2`)
	assert.Equal(t, []any{"PT1H", lit.Value}, args)

	// An interval on the left of a subtraction measures the time back
	// to the other operand's start, in seconds.
	query, args = filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpGt, call(odata.OpSub, pathProp("phenomenonTime"), lit), mustDuration("PT1H")))
	assert.Contains(t, query, `WHERE EXTRACT(EPOCH FROM ("t0"."phenomenon_time_start" - $1)) > $2`)
	assert.Equal(t, []any{lit.Value, "3600"}, args)
}

func TestFilterLogicalComposition(t *testing.T) {
	t.Parallel()
	query, _ := filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpOr,
			call(odata.OpEq, pathProp("result"), num(3)),
			call(odata.OpEq, pathProp("result"), num(4))))
	assert.Contains(t, query, `WHERE ("t0"."result_number" = $1 OR "t0"."result_number" = $2)`)

	query, _ = filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpNot, call(odata.OpEq, pathProp("result"), num(3))))
	assert.Contains(t, query, `WHERE NOT ("t0"."result_number" = $1)`)
}

func TestFilterNavigationJoin(t *testing.T) {
	t.Parallel()
	c, err := compile(dialect.Postgres, odata.ResourcePath{set("Observations")}, &odata.QueryOptions{
		Filter: call(odata.OpEq, navPath("Datastream", "name"), str("air")),
	}, sensorql.DefaultSettings())
	require.NoError(t, err)
	query, args := c.Selector.Query()
	assert.Contains(t, query, `JOIN "datastreams" AS "t1" ON "t1"."id" = "t0"."datastream_id"`)
	assert.Contains(t, query, `WHERE "t1"."name" = $1`)
	assert.Equal(t, []any{"air"}, args)
	assert.False(t, c.Selector.IsDistinct())
}

func TestFilterNavigationFanOut(t *testing.T) {
	t.Parallel()
	c, err := compile(dialect.Postgres, odata.ResourcePath{set("Things")}, &odata.QueryOptions{
		Filter: call(odata.OpEq, navPath("Datastreams", "name"), str("air")),
	}, sensorql.DefaultSettings())
	require.NoError(t, err)
	query, _ := c.Selector.Query()
	assert.Contains(t, query, `JOIN "datastreams" AS "t1" ON "t1"."thing_id" = "t0"."id"`)
	// A to-many traversal fans out, so rows deduplicate.
	assert.True(t, c.Selector.IsDistinct())
}

func TestFilterGeospatial(t *testing.T) {
	t.Parallel()
	point := &odata.GeometryLit{Kind: odata.GeoPoint, WKT: "POINT (30 10)"}
	query, args := filterQuery(t, dialect.Postgres, "Locations",
		call(odata.OpSTWithin, pathProp("location"), point))
	// The geometry column of the paired representation binds spatial
	// operators; comparisons elsewhere see the JSON document.
	assert.Contains(t, query, `WHERE ST_Within("t0"."geom", ST_GeomFromText($1, $2))`)
	assert.Equal(t, []any{"POINT (30 10)", srid}, args)

	query, _ = filterQuery(t, dialect.Postgres, "Locations",
		call(odata.OpLt, call(odata.OpGeoDistance, pathProp("location"), point), &odata.DoubleLit{Value: decimalFromInt(2)}))
	assert.Contains(t, query, `WHERE ST_Distance("t0"."geom", ST_GeomFromText($1, $2)) < $3`)
}

func TestFilterGeometryValidation(t *testing.T) {
	t.Parallel()
	bad := &odata.GeometryLit{Kind: odata.GeoPoint, WKT: "POINT (30"}
	rejected(t, "Locations", call(odata.OpSTWithin, pathProp("location"), bad))

	// Body and declared kind must agree.
	mismatch := &odata.GeometryLit{Kind: odata.GeoPolygon, WKT: "POINT (30 10)"}
	rejected(t, "Locations", call(odata.OpSTWithin, pathProp("location"), mismatch))
}

func TestFilterTypeMismatches(t *testing.T) {
	t.Parallel()
	point := &odata.GeometryLit{Kind: odata.GeoPoint, WKT: "POINT (30 10)"}
	rejected(t, "Things",
		call(odata.OpLt, call(odata.OpGeoDistance, pathProp("name"), point), num(2)))
	rejected(t, "Things", call(odata.OpEq, pathProp("altitude"), num(3)))
	rejected(t, "Observations",
		call(odata.OpEq, &odata.Path{Elems: []odata.PathElem{{Kind: odata.ElemNav, Name: "Datastream"}}}, num(1)))
}

func TestFilterDateTimeOffsets(t *testing.T) {
	t.Parallel()
	local := &odata.DateTimeLit{Value: instant("2016-01-01T07:00:00Z").Value, UTC: false}

	// Plain comparisons accept any offset; the bound value is
	// normalized to UTC.
	query, args := filterQuery(t, dialect.Postgres, "Observations",
		call(odata.OpLt, pathProp("resultTime"), local))
	assert.Contains(t, query, `WHERE "t0"."result_time" < $1`)
	assert.Equal(t, []any{local.Value.UTC()}, args)

	// Date-part extraction is defined against UTC only.
	rejected(t, "Observations",
		call(odata.OpEq, call(odata.OpYear, local), num(2016)))
}
