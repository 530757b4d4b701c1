package sql

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sensorql/dialect"
)

func TestOpenDBDialect(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		want string
	}{
		{"postgres", dialect.Postgres},
		{"postgres10", dialect.Postgres},
		{"mysql", dialect.MySQL},
		{"mysql+unix", dialect.MySQL},
		{"sqlite3", dialect.SQLite},
	}
	for _, tt := range tests {
		drv := OpenDB(tt.name, nil)
		assert.Equal(t, tt.want, drv.Dialect())
	}
}

func TestConnQuery(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT id FROM things").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))

	drv := OpenDB(dialect.Postgres, db)
	var rows Rows
	require.NoError(t, drv.Query(context.Background(), "SELECT id FROM things", []any{}, &rows))
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		require.NoError(t, rows.Scan(&id))
		ids = append(ids, id)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []int64{1, 2}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnQueryBadTarget(t *testing.T) {
	t.Parallel()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	drv := OpenDB(dialect.Postgres, db)
	var wrong int
	err = drv.Query(context.Background(), "SELECT 1", []any{}, &wrong)
	assert.Error(t, err)

	var rows Rows
	err = drv.Query(context.Background(), "SELECT 1", "not-a-slice", &rows)
	assert.Error(t, err)
}

func TestTx(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectCommit()

	drv := OpenDB(dialect.Postgres, db)
	tx, err := drv.Tx(context.Background())
	require.NoError(t, err)

	var rows Rows
	require.NoError(t, tx.Query(context.Background(), "SELECT 1", []any{}, &rows))
	rows.Close()
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsDriver(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT slow").
		WillDelayFor(5 * time.Millisecond).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery("SELECT boom").
		WillReturnError(assert.AnError)

	var slowCalls int
	drv := NewStatsDriver(OpenDB(dialect.Postgres, db),
		WithSlowThreshold(time.Nanosecond),
		WithSlowQueryHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			slowCalls++
		}),
	)

	var rows Rows
	require.NoError(t, drv.Query(context.Background(), "SELECT slow", []any{}, &rows))
	rows.Close()
	require.Error(t, drv.Query(context.Background(), "SELECT boom", []any{}, &rows))

	stats := drv.QueryStats().Stats()
	assert.Equal(t, int64(2), stats.TotalQueries)
	assert.Equal(t, int64(1), stats.Errors)
	assert.GreaterOrEqual(t, stats.SlowQueries, int64(1))
	assert.GreaterOrEqual(t, slowCalls, 1)
	assert.Positive(t, stats.AvgQueryDuration())
}

func TestStatsDriverThresholdDisabled(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))

	drv := NewStatsDriver(OpenDB(dialect.Postgres, db), WithSlowThreshold(0))
	var rows Rows
	require.NoError(t, drv.Query(context.Background(), "SELECT 1", []any{}, &rows))
	rows.Close()
	assert.Zero(t, drv.QueryStats().Stats().SlowQueries)
}
