package sensorql

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for common outcomes.
var (
	// ErrNotFound is returned when a single-entity path matches no row.
	// This is a valid outcome, distinct from every failure category.
	ErrNotFound = errors.New("sensorql: entity not found")

	// ErrRejected is matched (via errors.Is) by every RejectedQueryError.
	ErrRejected = errors.New("sensorql: query rejected")

	// ErrSchemaDefect is matched by every SchemaDefectError.
	ErrSchemaDefect = errors.New("sensorql: schema defect")
)

// RejectedQueryError reports a request the engine refused to compile:
// an unknown property path, an operator applied to operand types it does
// not accept, or malformed temporal-interval usage. It always surfaces
// before any SQL is executed.
type RejectedQueryError struct {
	Reason string // human-readable reason
	Expr   string // the offending sub-expression, rendered back to source form
}

// Error returns the error string.
func (e *RejectedQueryError) Error() string {
	if e.Expr != "" {
		return fmt.Sprintf("sensorql: rejected query: %s in %q", e.Reason, e.Expr)
	}
	return fmt.Sprintf("sensorql: rejected query: %s", e.Reason)
}

// Is reports whether the target matches ErrRejected.
func (e *RejectedQueryError) Is(err error) bool {
	return err == ErrRejected
}

// NewRejectedQuery returns a RejectedQueryError with the offending
// expression rendered back to source form for the client.
func NewRejectedQuery(expr string, format string, args ...any) error {
	return &RejectedQueryError{Reason: fmt.Sprintf(format, args...), Expr: expr}
}

// IsRejected returns true if the error is a RejectedQueryError.
func IsRejected(err error) bool {
	if err == nil {
		return false
	}
	var e *RejectedQueryError
	return errors.As(err, &e) || errors.Is(err, ErrRejected)
}

// SchemaDefectError reports a gap in the static entity graph: a missing
// relationship between two adjacent path entity types, or a missing
// property mapping on a declared entity type. The graph is fixed at
// build time, so this is always a programming defect, never bad input.
// It also covers internal invariant violations such as a single-entity
// path returning multiple rows.
type SchemaDefectError struct {
	Detail string
}

// Error returns the error string.
func (e *SchemaDefectError) Error() string {
	return fmt.Sprintf("sensorql: schema defect: %s", e.Detail)
}

// Is reports whether the target matches ErrSchemaDefect.
func (e *SchemaDefectError) Is(err error) bool {
	return err == ErrSchemaDefect
}

// NewSchemaDefect returns a SchemaDefectError with the given detail.
func NewSchemaDefect(format string, args ...any) error {
	return &SchemaDefectError{Detail: fmt.Sprintf(format, args...)}
}

// IsSchemaDefect returns true if the error is a SchemaDefectError.
func IsSchemaDefect(err error) bool {
	if err == nil {
		return false
	}
	var e *SchemaDefectError
	return errors.As(err, &e) || errors.Is(err, ErrSchemaDefect)
}

// BackendError reports a failed execution of a compiled query: connection
// loss, a hard database error, or a timeout/cancellation. Zero rows is
// never a BackendError.
type BackendError struct {
	Err     error
	Timeout bool // true when the failure was a timeout or cancellation
}

// Error returns the error string.
func (e *BackendError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("sensorql: backend timeout: %v", e.Err)
	}
	return fmt.Sprintf("sensorql: backend failure: %v", e.Err)
}

// Unwrap returns the underlying driver error.
func (e *BackendError) Unwrap() error {
	return e.Err
}

// NewBackendError wraps a driver error, marking whether it was a
// timeout or cancellation.
func NewBackendError(err error, timeout bool) error {
	return &BackendError{Err: err, Timeout: timeout}
}

// IsBackendError returns true if the error is a BackendError.
func IsBackendError(err error) bool {
	if err == nil {
		return false
	}
	var e *BackendError
	return errors.As(err, &e)
}

// IsTimeout returns true if the error is a BackendError caused by a
// timeout or cancellation.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	var e *BackendError
	return errors.As(err, &e) && e.Timeout
}

// IsNotFound returns true if the error is the not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
