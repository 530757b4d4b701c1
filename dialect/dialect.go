package dialect

import (
	"context"
	"log/slog"
	"time"
)

// Dialect names of the supported database backends.
const (
	// Postgres is the primary dialect: geospatial operators compile to
	// PostGIS functions and are only available here.
	Postgres = "postgres"
	// MySQL dialect.
	MySQL = "mysql"
	// SQLite dialect.
	SQLite = "sqlite"
)

// ExecQuerier wraps the two basic database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return rows.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface the engine executes compiled queries through.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps transaction operations.
type Tx interface {
	ExecQuerier
	Commit() error
	Rollback() error
}

// DebugDriver is a driver that logs all driver operations.
type DebugDriver struct {
	Driver              // underlying driver
	log    *slog.Logger // log function
}

// Debug gets a driver and an optional logger and returns a new debugged
// driver that prints all outgoing operations with slog.Default when no
// logger is given.
func Debug(d Driver, logger ...*slog.Logger) Driver {
	l := slog.Default()
	if len(logger) > 0 {
		l = logger[0]
	}
	return &DebugDriver{d, l}
}

// Exec logs its params and calls the underlying driver Exec method.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Exec(ctx, query, args, v)
	d.log.LogAttrs(ctx, slog.LevelDebug, "driver.Exec",
		slog.String("query", query),
		slog.Any("args", args),
		slog.Duration("duration", time.Since(start)),
	)
	return err
}

// Query logs its params and calls the underlying driver Query method.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := d.Driver.Query(ctx, query, args, v)
	d.log.LogAttrs(ctx, slog.LevelDebug, "driver.Query",
		slog.String("query", query),
		slog.Any("args", args),
		slog.Duration("duration", time.Since(start)),
	)
	return err
}

// Tx adds an identifier to the wrapped transaction and calls the
// underlying driver Tx command.
func (d *DebugDriver) Tx(ctx context.Context) (Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &DebugTx{tx, d.log}, nil
}

// DebugTx is a transaction implementation that logs all transaction operations.
type DebugTx struct {
	Tx                  // underlying transaction
	log    *slog.Logger // log function
}

// Exec logs its params and calls the underlying transaction Exec method.
func (d *DebugTx) Exec(ctx context.Context, query string, args, v any) error {
	d.log.LogAttrs(ctx, slog.LevelDebug, "tx.Exec",
		slog.String("query", query),
		slog.Any("args", args),
	)
	return d.Tx.Exec(ctx, query, args, v)
}

// Query logs its params and calls the underlying transaction Query method.
func (d *DebugTx) Query(ctx context.Context, query string, args, v any) error {
	d.log.LogAttrs(ctx, slog.LevelDebug, "tx.Query",
		slog.String("query", query),
		slog.Any("args", args),
	)
	return d.Tx.Query(ctx, query, args, v)
}

// Commit logs and commits the underlying transaction.
func (d *DebugTx) Commit() error {
	d.log.Debug("tx.Commit")
	return d.Tx.Commit()
}

// Rollback logs and rolls back the underlying transaction.
func (d *DebugTx) Rollback() error {
	d.log.Debug("tx.Rollback")
	return d.Tx.Rollback()
}
