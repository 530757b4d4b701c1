package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sensorql/dialect"
)

func TestSelectorBasic(t *testing.T) {
	t.Parallel()
	t1 := Table("things").As("t0")
	query, args := Dialect(dialect.Postgres).
		Select(t1.C("id"), t1.C("name")).
		From(t1).
		Where(EQ(t1.C("id"), 3)).
		Query()
	assert.Equal(t, `SELECT "t0"."id", "t0"."name" FROM "things" AS "t0" WHERE "t0"."id" = $1`, query)
	assert.Equal(t, []any{3}, args)
}

func TestSelectorJoin(t *testing.T) {
	t.Parallel()
	obs := Table("observations").As("t0")
	ds := Table("datastreams").As("t1")
	query, args := Dialect(dialect.Postgres).
		Select(obs.C("id")).
		From(obs).
		Join(ds).
		On(ds.C("id"), obs.C("datastream_id")).
		Where(EQ(ds.C("id"), 9)).
		OrderBy(obs.C("id")).
		Limit(101).
		Offset(10).
		Query()
	assert.Equal(t,
		`SELECT "t0"."id" FROM "observations" AS "t0" JOIN "datastreams" AS "t1" ON "t1"."id" = "t0"."datastream_id" WHERE "t1"."id" = $1 ORDER BY "t0"."id" LIMIT 101 OFFSET 10`,
		query)
	assert.Equal(t, []any{9}, args)
}

func TestSelectorDistinctAndAlias(t *testing.T) {
	t.Parallel()
	t1 := Table("locations").As("t0")
	query, args := Dialect(dialect.MySQL).
		Select().
		AppendSelectAs(t1.C("id"), "id").
		From(t1).
		Distinct().
		Query()
	assert.Equal(t, "SELECT DISTINCT `t0`.`id` AS `id` FROM `locations` AS `t0`", query)
	assert.Empty(t, args)
}

func TestPredicateComposition(t *testing.T) {
	t.Parallel()
	p := And(
		Or(EQ("a", 1), EQ("b", 2)),
		Not(IsNull("c")),
	)
	query, args := p.Queries(dialect.SQLite)
	assert.Equal(t, `(("a" = ?) OR ("b" = ?)) AND (NOT ("c" IS NULL))`, query)
	assert.Equal(t, []any{1, 2}, args)
}

func TestPlaceholderRewrite(t *testing.T) {
	t.Parallel()
	t1 := Table("things").As("t0")
	query, args := Dialect(dialect.Postgres).
		Select(t1.C("id")).
		From(t1).
		Where(And(GT(t1.C("id"), 1), LT(t1.C("id"), 9))).
		Query()
	assert.Contains(t, query, "$1")
	assert.Contains(t, query, "$2")
	assert.NotContains(t, query, "?")
	assert.Equal(t, []any{1, 9}, args)

	// Non-postgres dialects keep the neutral form.
	query, _ = Dialect(dialect.SQLite).
		Select(t1.C("id")).
		From(t1).
		Where(GT(t1.C("id"), 1)).
		Query()
	assert.Contains(t, query, "?")
}

func TestInEmpty(t *testing.T) {
	t.Parallel()
	query, args := In("id").Queries(dialect.Postgres)
	assert.Equal(t, `"id" IN (NULL)`, query)
	assert.Empty(t, args)

	query, args = In("id", 1, 2).Queries(dialect.Postgres)
	assert.Equal(t, `"id" IN ($1, $2)`, query)
	assert.Equal(t, []any{1, 2}, args)
}

func TestExprComposition(t *testing.T) {
	t.Parallel()
	inner := Expr(`ST_GeomFromText(?, ?)`, "POINT (30 10)", 4326)
	p := ExprP(`ST_Intersects("t0"."geom", ST_GeomFromText(?, ?))`, "POINT (30 10)", 4326)
	query, args := p.Queries(dialect.Postgres)
	assert.Equal(t, `ST_Intersects("t0"."geom", ST_GeomFromText($1, $2))`, query)
	assert.Equal(t, []any{"POINT (30 10)", 4326}, args)

	s, a := inner.Query()
	assert.Equal(t, "ST_GeomFromText(?, ?)", s)
	assert.Len(t, a, 2)
}

func TestCountQuery(t *testing.T) {
	t.Parallel()
	t1 := Table("observations").As("t0")
	sel := Dialect(dialect.Postgres).
		Select(t1.C("id")).
		From(t1).
		Where(GT(t1.C("result_number"), 3)).
		OrderBy(t1.C("id")).
		Limit(101).
		Offset(10)

	query, args := sel.CountQuery(t1.C("id")).Query()
	assert.Equal(t, `SELECT COUNT(*) FROM "observations" AS "t0" WHERE "t0"."result_number" > $1`, query)
	assert.Equal(t, []any{3}, args)

	// Fan-out queries collapse the count onto distinct identifiers.
	sel.Distinct()
	query, _ = sel.CountQuery(t1.C("id")).Query()
	assert.Equal(t, `SELECT COUNT(DISTINCT "t0"."id") FROM "observations" AS "t0" WHERE "t0"."result_number" > $1`, query)
}

func TestSelectorClone(t *testing.T) {
	t.Parallel()
	t1 := Table("things").As("t0")
	orig := Dialect(dialect.Postgres).
		Select(t1.C("id")).
		From(t1).
		OrderBy(t1.C("id")).
		Limit(10)
	clone := orig.Clone()
	clone.ClearOrder().Limit(99).AppendSelect(t1.C("name"))

	q1, _ := orig.Query()
	q2, _ := clone.Query()
	assert.Contains(t, q1, "ORDER BY")
	assert.Contains(t, q1, "LIMIT 10")
	assert.NotContains(t, q2, "ORDER BY")
	assert.Contains(t, q2, "LIMIT 99")
	require.Len(t, clone.SelectedColumns(), 2)
	require.Len(t, orig.SelectedColumns(), 1)
}

func TestSelectorCloneIsolatesPredicate(t *testing.T) {
	t.Parallel()
	t1 := Table("things").As("t0")
	orig := Dialect(dialect.Postgres).
		Select(t1.C("id")).
		From(t1).
		Where(EQ(t1.C("name"), "lobby"))
	clone := orig.Clone()
	clone.P().Append(func(b *Builder) {
		b.WriteString(" AND ")
		b.Ident(t1.C("id"))
		b.WriteString(" = ")
		b.Arg(int64(7))
	})

	q1, args1 := orig.Query()
	assert.Equal(t, `SELECT "t0"."id" FROM "things" AS "t0" WHERE "t0"."name" = $1`, q1)
	assert.Equal(t, []any{"lobby"}, args1)

	q2, args2 := clone.Query()
	assert.Contains(t, q2, `"t0"."id" = $2`)
	assert.Len(t, args2, 2)
}

func TestQuoteIdent(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `"t0"."id"`, QuoteIdent(dialect.Postgres, "t0.id"))
	assert.Equal(t, "`t0`.`id`", QuoteIdent(dialect.MySQL, "t0.id"))
	// Expressions pass through untouched.
	assert.Equal(t, "COUNT(*)", QuoteIdent(dialect.Postgres, "COUNT(*)"))
}
