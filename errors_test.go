package sensorql_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sensorql"
)

// TestRejectedQueryError tests construction and matching of client errors.
func TestRejectedQueryError(t *testing.T) {
	t.Parallel()

	err := sensorql.NewRejectedQuery("geo.distance(name, 'x')", "no geometry coercion for %s", "string")
	require.Error(t, err)

	assert.True(t, sensorql.IsRejected(err))
	assert.True(t, errors.Is(err, sensorql.ErrRejected))
	assert.False(t, sensorql.IsSchemaDefect(err))
	assert.False(t, sensorql.IsBackendError(err))
	assert.Contains(t, err.Error(), "geo.distance(name, 'x')")
	assert.Contains(t, err.Error(), "no geometry coercion for string")

	var re *sensorql.RejectedQueryError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "geo.distance(name, 'x')", re.Expr)
}

// TestRejectedQueryErrorWrapped verifies matching through wrapping.
func TestRejectedQueryErrorWrapped(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("compile: %w", sensorql.NewRejectedQuery("", "unknown property %q", "foo"))
	assert.True(t, sensorql.IsRejected(err))
	assert.True(t, errors.Is(err, sensorql.ErrRejected))
}

// TestSchemaDefectError tests the fatal configuration error category.
func TestSchemaDefectError(t *testing.T) {
	t.Parallel()

	err := sensorql.NewSchemaDefect("do not know how to join %s onto %s", "Sensor", "Location")
	assert.True(t, sensorql.IsSchemaDefect(err))
	assert.True(t, errors.Is(err, sensorql.ErrSchemaDefect))
	assert.False(t, sensorql.IsRejected(err))
	assert.Contains(t, err.Error(), "do not know how to join Sensor onto Location")
}

// TestBackendError tests timeout and hard-failure classification.
func TestBackendError(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection reset")

	hard := sensorql.NewBackendError(cause, false)
	assert.True(t, sensorql.IsBackendError(hard))
	assert.False(t, sensorql.IsTimeout(hard))
	assert.ErrorIs(t, hard, cause)

	timeout := sensorql.NewBackendError(cause, true)
	assert.True(t, sensorql.IsBackendError(timeout))
	assert.True(t, sensorql.IsTimeout(timeout))
	assert.Contains(t, timeout.Error(), "timeout")
}

// TestIsNotFound verifies the not-found sentinel is distinct from all
// failure categories.
func TestIsNotFound(t *testing.T) {
	t.Parallel()

	assert.True(t, sensorql.IsNotFound(sensorql.ErrNotFound))
	assert.True(t, sensorql.IsNotFound(fmt.Errorf("single: %w", sensorql.ErrNotFound)))
	assert.False(t, sensorql.IsNotFound(sensorql.NewSchemaDefect("x")))
	assert.False(t, sensorql.IsRejected(sensorql.ErrNotFound))
	assert.False(t, sensorql.IsBackendError(sensorql.ErrNotFound))
}

// TestNilErrors verifies all predicates reject nil.
func TestNilErrors(t *testing.T) {
	t.Parallel()

	assert.False(t, sensorql.IsRejected(nil))
	assert.False(t, sensorql.IsSchemaDefect(nil))
	assert.False(t, sensorql.IsBackendError(nil))
	assert.False(t, sensorql.IsTimeout(nil))
	assert.False(t, sensorql.IsNotFound(nil))
}
