// Package sensorql is the query engine of an OGC SensorThings API server.
//
// It translates a parsed resource path (for example /Things(1)/Datastreams)
// together with its parsed query options ($filter, $orderby, $expand, $select,
// $top, $skip, $count) into executable SQL over the fixed SensorThings entity
// graph, runs the query through a storage backend, and returns materialized
// entities with pagination metadata.
//
// The engine is split into a small number of packages:
//
//   - graph:        the static entity graph (entity types, relationships,
//     property-to-column mappings).
//   - odata:        the consumed AST types for resource paths, query options
//     and filter/orderby expressions.
//   - dialect:      the database driver abstraction.
//   - dialect/sql:  SQL statement building and driver utilities.
//   - compiler:     path-to-join translation, the typed expression evaluator,
//     and the query composer with $expand orchestration.
//
// The root package holds the pieces every layer shares: the error taxonomy,
// the server-policy settings consumed by the composer, and the result types
// handed back to the transport layer.
//
// # Error taxonomy
//
// Failures fall into three categories, and transports are expected to map
// them without inspecting concrete types:
//
//   - RejectedQueryError: the client sent a request the engine cannot
//     compile (unknown property, illegal operator/type combination,
//     malformed interval usage). Maps to a 4xx response.
//   - SchemaDefectError: the static entity graph is missing a relationship
//     or property mapping. Always a programming defect, never user input.
//     Maps to a 5xx response and is logged loudly.
//   - BackendError: query execution failed. Carries whether the failure
//     was a timeout/cancellation so an outer retry layer can decide.
//
// Zero rows on a single-entity path is not an error: it is reported through
// the ErrNotFound sentinel so transports can answer 404.
package sensorql
