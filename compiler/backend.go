package compiler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	sqlite "modernc.org/sqlite"

	"github.com/syssam/sensorql"
	"github.com/syssam/sensorql/dialect"
	"github.com/syssam/sensorql/dialect/sql"
)

// Row is one fetched result row, keyed by selected column alias.
type Row map[string]any

// Backend executes compiled statements against the storage layer. Both
// methods block until rows arrive; a zero-row result is a successful
// empty outcome, never an error.
type Backend interface {
	Execute(ctx context.Context, query string, args []any) ([]Row, error)
	ExecuteCount(ctx context.Context, query string, args []any) (int64, error)
}

// DriverBackend runs statements through a dialect.Driver, enforcing
// the policy query timeout and classifying driver failures so callers
// can tell a timeout from a hard failure.
type DriverBackend struct {
	drv     dialect.Driver
	timeout time.Duration
}

// NewDriverBackend wraps the given driver. The timeout is typically the
// policy's QueryTimeout; zero leaves executions unbounded.
func NewDriverBackend(drv dialect.Driver, timeout time.Duration) *DriverBackend {
	return &DriverBackend{drv: drv, timeout: timeout}
}

// Execute runs the row query and drains the result set into Row maps.
func (b *DriverBackend) Execute(ctx context.Context, query string, args []any) ([]Row, error) {
	ctx, cancel := b.bound(ctx)
	defer cancel()
	var rows sql.Rows
	if err := b.drv.Query(ctx, query, args, &rows); err != nil {
		return nil, b.wrap(ctx, err)
	}
	defer rows.Close()
	out, err := scanRows(&rows)
	if err != nil {
		return nil, b.wrap(ctx, err)
	}
	return out, nil
}

// ExecuteCount runs a single-value count query.
func (b *DriverBackend) ExecuteCount(ctx context.Context, query string, args []any) (int64, error) {
	ctx, cancel := b.bound(ctx)
	defer cancel()
	var rows sql.Rows
	if err := b.drv.Query(ctx, query, args, &rows); err != nil {
		return 0, b.wrap(ctx, err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, b.wrap(ctx, err)
		}
		return 0, sensorql.NewSchemaDefect("count query returned no row")
	}
	var n int64
	if err := rows.Scan(&n); err != nil {
		return 0, b.wrap(ctx, err)
	}
	return n, nil
}

// wrap classifies an execution failure. A context expired by the policy
// timeout marks the error as interrupted regardless of how the driver
// reported the cancellation.
func (b *DriverBackend) wrap(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return sensorql.NewBackendError(err, true)
	}
	return wrapBackendErr(err)
}

func (b *DriverBackend) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, b.timeout)
}

// scanRows drains a result set into alias-keyed maps. Byte slices are
// copied out: drivers reuse their scan buffers between rows.
func scanRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := make(Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				r[c] = string(b)
				continue
			}
			r[c] = vals[i]
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// PostgreSQL SQLSTATE codes signaling interrupted execution.
const (
	pgQueryCanceled = "57014"
	pgAdminShutdown = "57P01"
)

// MySQL error numbers signaling interrupted execution.
const (
	mysqlQueryInterrupted = 1317
	mysqlQueryTimeout     = 3024
)

// wrapBackendErr classifies a driver failure into the backend error
// kind, marking timeouts and cancellations so an external retry layer
// can distinguish them from hard failures.
func wrapBackendErr(err error) error {
	if err == nil {
		return nil
	}
	return sensorql.NewBackendError(err, isInterrupted(err))
}

// isInterrupted reports whether the error stems from a timeout or
// cancellation rather than a hard backend failure.
func isInterrupted(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		return code == pgQueryCanceled || code == pgAdminShutdown
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlQueryInterrupted || myErr.Number == mysqlQueryTimeout
	}
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) {
		// SQLITE_INTERRUPT(9): statement interrupted by sqlite3_interrupt.
		return sqErr.Code() == 9
	}
	// Fallback for drivers wrapped beyond recognition. database/sql
	// reports a context expiring mid-query as a plain-text cancellation.
	return strings.Contains(err.Error(), "canceling statement due to") ||
		strings.Contains(err.Error(), "canceling query due to user request") ||
		strings.Contains(err.Error(), "interrupted")
}
