// Package dialect provides the database dialect abstraction the query
// engine executes through.
//
// It defines the interfaces and types used for database-specific
// operations, allowing the engine to target PostgreSQL, MySQL and
// SQLite. PostgreSQL is the primary backend: geospatial filter
// functions compile to PostGIS and are rejected on other dialects.
//
// # Dialect Constants
//
// Each dialect is identified by a constant string:
//
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//
// # Driver Interface
//
// The Driver interface abstracts the underlying connection:
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// The Tx interface extends ExecQuerier with Commit and Rollback, and
// ExecQuerier is the subset shared by both.
//
// # Usage
//
// Opening a database connection:
//
//	import (
//	    "github.com/syssam/sensorql/dialect"
//	    "github.com/syssam/sensorql/dialect/sql"
//	)
//
//	drv, err := sql.Open(dialect.Postgres, "postgres://...")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
// Wrapping a driver with debug logging:
//
//	drv = dialect.Debug(drv)
//
// # Sub-packages
//
//   - dialect/sql: SQL statement builders, the database/sql driver
//     implementation, and query statistics with slow-query logging.
package dialect
