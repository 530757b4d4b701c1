package graph

import "github.com/syssam/sensorql"

// Relationship describes how a target entity type joins onto a source
// entity type while walking a resource path. Exactly one definition
// exists per ordered pair of adjacent entity types; an undefined pair
// is a schema defect.
type Relationship struct {
	From EntityType
	To   EntityType

	// Many reports whether traversing From -> To can yield multiple
	// target rows per source row (fan-out, requiring DISTINCT).
	Many bool

	// FKOnTarget marks a direct join whose foreign-key column lives on
	// the target table (target.fk = source.id). When false and
	// JoinTable is empty, the foreign key lives on the source table
	// (target.id = source.fk).
	FKOnTarget bool

	// FK is the foreign-key column name of a direct join.
	FK string

	// JoinTable mediates a many-to-many edge. JoinFKFrom and JoinFKTo
	// are its columns referencing From.id and To.id.
	JoinTable  string
	JoinFKFrom string
	JoinFKTo   string

	// RankColumn orders a many-to-many edge (only the
	// MultiDatastream-ObservedProperty link is ranked).
	RankColumn string
}

// direct builds a direct foreign-key relationship.
func direct(from, to EntityType, many, fkOnTarget bool, fk string) Relationship {
	return Relationship{From: from, To: to, Many: many, FKOnTarget: fkOnTarget, FK: fk}
}

// viaTable builds a join-table mediated relationship.
func viaTable(from, to EntityType, table, fkFrom, fkTo, rank string) Relationship {
	return Relationship{
		From: from, To: to, Many: true,
		JoinTable: table, JoinFKFrom: fkFrom, JoinFKTo: fkTo,
		RankColumn: rank,
	}
}

// Join tables of the many-to-many edges.
const (
	thingsLocationsTable   = "things_locations"
	locationsHistLocTable  = "locations_historical_locations"
	multiDatastreamsOPsTbl = "multi_datastreams_observed_properties"
)

// Rel returns the relationship definition for traversing a resource
// path from one entity type to an adjacent one. A pair with no
// definition returns a SchemaDefectError: the entity graph is static,
// so this is a configuration bug, never a user input error.
func Rel(from, to EntityType) (Relationship, error) {
	switch from {
	case Thing:
		switch to {
		case Location:
			return viaTable(Thing, Location, thingsLocationsTable, Thing.fkColumn(), Location.fkColumn(), ""), nil
		case HistoricalLocation:
			return direct(Thing, HistoricalLocation, true, true, Thing.fkColumn()), nil
		case Datastream:
			return direct(Thing, Datastream, true, true, Thing.fkColumn()), nil
		case MultiDatastream:
			return direct(Thing, MultiDatastream, true, true, Thing.fkColumn()), nil
		}
	case Location:
		switch to {
		case Thing:
			return viaTable(Location, Thing, thingsLocationsTable, Location.fkColumn(), Thing.fkColumn(), ""), nil
		case HistoricalLocation:
			return viaTable(Location, HistoricalLocation, locationsHistLocTable, Location.fkColumn(), HistoricalLocation.fkColumn(), ""), nil
		}
	case HistoricalLocation:
		switch to {
		case Thing:
			return direct(HistoricalLocation, Thing, false, false, Thing.fkColumn()), nil
		case Location:
			return viaTable(HistoricalLocation, Location, locationsHistLocTable, HistoricalLocation.fkColumn(), Location.fkColumn(), ""), nil
		}
	case Datastream:
		switch to {
		case Thing:
			return direct(Datastream, Thing, false, false, Thing.fkColumn()), nil
		case Sensor:
			return direct(Datastream, Sensor, false, false, Sensor.fkColumn()), nil
		case ObservedProperty:
			return direct(Datastream, ObservedProperty, false, false, ObservedProperty.fkColumn()), nil
		case Observation:
			return direct(Datastream, Observation, true, true, Datastream.fkColumn()), nil
		}
	case MultiDatastream:
		switch to {
		case Thing:
			return direct(MultiDatastream, Thing, false, false, Thing.fkColumn()), nil
		case Sensor:
			return direct(MultiDatastream, Sensor, false, false, Sensor.fkColumn()), nil
		case ObservedProperty:
			return viaTable(MultiDatastream, ObservedProperty, multiDatastreamsOPsTbl, MultiDatastream.fkColumn(), ObservedProperty.fkColumn(), "rank"), nil
		case Observation:
			return direct(MultiDatastream, Observation, true, true, MultiDatastream.fkColumn()), nil
		}
	case Sensor:
		switch to {
		case Datastream:
			return direct(Sensor, Datastream, true, true, Sensor.fkColumn()), nil
		case MultiDatastream:
			return direct(Sensor, MultiDatastream, true, true, Sensor.fkColumn()), nil
		}
	case ObservedProperty:
		switch to {
		case Datastream:
			return direct(ObservedProperty, Datastream, true, true, ObservedProperty.fkColumn()), nil
		case MultiDatastream:
			return viaTable(ObservedProperty, MultiDatastream, multiDatastreamsOPsTbl, ObservedProperty.fkColumn(), MultiDatastream.fkColumn(), "rank"), nil
		}
	case Observation:
		switch to {
		case Datastream:
			return direct(Observation, Datastream, false, false, Datastream.fkColumn()), nil
		case MultiDatastream:
			return direct(Observation, MultiDatastream, false, false, MultiDatastream.fkColumn()), nil
		case FeatureOfInterest:
			return direct(Observation, FeatureOfInterest, false, false, FeatureOfInterest.fkColumn()), nil
		}
	case FeatureOfInterest:
		switch to {
		case Observation:
			return direct(FeatureOfInterest, Observation, true, true, FeatureOfInterest.fkColumn()), nil
		}
	}
	return Relationship{}, sensorql.NewSchemaDefect("do not know how to join %s onto %s", to, from)
}

// NavTarget resolves a navigation property name on the given entity
// type: "Thing" on Datastream, "Observations" on Datastream, and so
// on. The boolean reports whether the navigation addresses a
// collection. An unknown navigation name is a client error; a known
// name for which no relationship is defined is a schema defect.
func NavTarget(from EntityType, nav string) (EntityType, bool, error) {
	to, ok := FromName(nav)
	if !ok {
		return 0, false, sensorql.NewRejectedQuery(nav, "unknown navigation property on %s", from)
	}
	rel, err := Rel(from, to)
	if err != nil {
		// The name denotes a real entity type, but the two types are
		// not adjacent in the graph: the client built an invalid path.
		return 0, false, sensorql.NewRejectedQuery(nav, "%s has no navigation property %q", from, nav)
	}
	collection := nav == to.Set()
	if collection != rel.Many {
		return 0, false, sensorql.NewRejectedQuery(nav, "navigation property %q on %s must be addressed as %s", nav, from, navForm(rel.Many, to))
	}
	return to, rel.Many, nil
}

func navForm(many bool, to EntityType) string {
	if many {
		return to.Set()
	}
	return to.String()
}
