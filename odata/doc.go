// Package odata defines the parsed request representation the query
// engine consumes: resource paths, query options and the $filter /
// $orderby expression tree.
//
// The engine does not parse request text. An upstream parser (out of
// scope here) produces these values; the engine compiles them to SQL.
// Every node renders back to OData source form through String(), which
// the error surface uses to echo the offending sub-expression to the
// client.
//
// The node set is closed: Expression is implemented only by the types
// in this package, and the compiler dispatches over them exhaustively.
package odata
