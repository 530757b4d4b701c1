// Package sql provides SQL statement building primitives and the
// database/sql driver implementation the query engine executes through.
//
// The compiler package assembles every SensorThings request into a
// Selector: selected column expressions, the FROM table, the JOIN chain
// derived from the resource path, the WHERE predicate compiled from
// $filter, ORDER BY terms, DISTINCT, and LIMIT/OFFSET.
//
// # Builder Types
//
//   - Builder: low-level SQL writer with identifier quoting and
//     placeholder binding
//   - Selector: SELECT statement builder with joins, predicates,
//     ordering and pagination
//   - Predicate: composable WHERE/ON condition
//
// # Dialect Support
//
// Statement generation adapts to the configured dialect. PostgreSQL
// rewrites placeholders to $1..$n; MySQL quotes identifiers with
// backticks:
//
//	import "github.com/syssam/sensorql/dialect"
//
//	s := sql.Dialect(dialect.Postgres).
//	    Select("t0.id", "t0.name").
//	    From(sql.Table("things").As("t0")).
//	    Where(sql.EQ("t0.id", 1))
//	query, args := s.Query()
//
// # Predicates
//
//	sql.EQ("t0.name", "station-4")   // "t0"."name" = $1
//	sql.GT("t0.result", 21.5)        // "t0"."result" > $1
//	sql.IsNull("t0.valid_time_end")  // "t0"."valid_time_end" IS NULL
//	sql.And(p1, p2)                  // (p1) AND (p2)
//
// # Joins
//
// Join conditions follow the ent convention of chained On calls:
//
//	s.Join(sql.Table("datastreams").As("t1")).
//	    On("t1.thing_id", "t0.id")
//
// # Raw fragments
//
// Compiled filter expressions are raw fragments with neutral `?`
// placeholders that are rewritten per dialect when the statement is
// built:
//
//	sql.Expr("ST_Distance(t0.geom, ST_GeomFromText(?, 4326))", wkt)
//
// # Execution
//
// Driver wraps database/sql; StatsDriver adds query statistics and
// slow-query logging driven by the server's policy settings.
package sql
