// Package compiler translates parsed SensorThings resource paths and
// query options into executable SQL and orchestrates their execution.
//
// The package is organized around three stages. The join graph builder
// walks the resource path from its end back to its root, binding the
// main queried table first and joining earlier segments as filters.
// The expression evaluator compiles $filter and $orderby trees into
// typed SQL fragments, deferring the coercion of composite properties
// to the consuming operator. The composer applies pagination, counting
// and the deterministic identifier tie-break, and the engine executes
// the result through a Backend, stitching $expand branches into the
// materialized entities.
//
// Compilation is a pure function of the inputs and the static entity
// graph; all per-request state lives in values owned by the request.
package compiler
