// Package graph holds the static SensorThings entity graph: the closed
// set of entity types, their relational mapping (tables, id columns),
// the navigation relationships between them, and the property-to-column
// resolver.
//
// The graph is fixed and known at build time. Every join rule and
// property mapping is keyed by the EntityType enum, dispatched through
// exhaustive switches; a lookup that falls through indicates a
// programming defect (reported as sensorql.SchemaDefectError), never
// bad client input.
//
// # Entity Types
//
// The nine SensorThings entity types:
//
//	Thing, Location, HistoricalLocation, Datastream, MultiDatastream,
//	Sensor, ObservedProperty, Observation, FeatureOfInterest
//
// # Relationships
//
// Rel(from, to) returns the single relationship definition for two
// adjacent path entity types: a direct foreign key in either direction,
// or a mediating join table for many-to-many edges. The
// MultiDatastream-ObservedProperty edge is ranked: its join table
// carries an ordering column.
//
// # Properties
//
// Resolve maps an abstract property to its physical columns. Simple
// properties yield one column; composite properties yield a named
// column list:
//
//	Resolve(Observation, "phenomenonTime")
//	    // -> start: phenomenon_time_start, end: phenomenon_time_end
//	Resolve(Datastream, "unitOfMeasurement")
//	    // -> name: unit_name, symbol: unit_symbol, definition: unit_definition
//	Resolve(Observation, "result")
//	    // -> number/string/boolean/json candidate representations
//
// Each column carries a type tag the expression evaluator coerces by.
package graph
