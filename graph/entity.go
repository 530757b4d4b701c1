package graph

import (
	"strconv"

	"github.com/go-openapi/inflect"
	"github.com/google/uuid"

	"github.com/syssam/sensorql"
)

// EntityType enumerates the SensorThings entity types. The set is
// closed and known at build time.
type EntityType int

const (
	Thing EntityType = iota
	Location
	HistoricalLocation
	Datastream
	MultiDatastream
	Sensor
	ObservedProperty
	Observation
	FeatureOfInterest
)

// entityNames is the singular name per entity type, in enum order.
var entityNames = [...]string{
	"Thing",
	"Location",
	"HistoricalLocation",
	"Datastream",
	"MultiDatastream",
	"Sensor",
	"ObservedProperty",
	"Observation",
	"FeatureOfInterest",
}

// String returns the singular entity type name.
func (t EntityType) String() string {
	if int(t) < len(entityNames) {
		return entityNames[t]
	}
	return "EntityType(" + strconv.Itoa(int(t)) + ")"
}

// Set returns the entity-set (collection) name, e.g. "Things",
// "FeaturesOfInterest".
func (t EntityType) Set() string {
	// "FeatureOfInterest" pluralizes on the head noun, not the tail.
	if t == FeatureOfInterest {
		return "FeaturesOfInterest"
	}
	return inflect.Pluralize(t.String())
}

// Table returns the physical table name: the underscored set name,
// e.g. "things", "multi_datastreams", "features_of_interest".
func (t EntityType) Table() string {
	return inflect.Underscore(t.Set())
}

// IDColumn returns the identifier column name of the entity table.
func (t EntityType) IDColumn() string { return "id" }

// fkColumn returns the conventional foreign-key column name that
// references this entity: "thing_id", "multi_datastream_id".
func (t EntityType) fkColumn() string {
	return inflect.Underscore(t.String()) + "_id"
}

// byName indexes entity types by their singular and set names.
var byName = func() map[string]EntityType {
	m := make(map[string]EntityType, 2*len(entityNames))
	for i := range entityNames {
		t := EntityType(i)
		m[t.String()] = t
		m[t.Set()] = t
	}
	return m
}()

// FromName resolves a singular entity name or an entity-set name.
// The boolean reports whether the name was known.
func FromName(name string) (EntityType, bool) {
	t, ok := byName[name]
	return t, ok
}

// Types returns all entity types in enum order.
func Types() []EntityType {
	ts := make([]EntityType, len(entityNames))
	for i := range ts {
		ts[i] = EntityType(i)
	}
	return ts
}

// IDKind selects the physical identifier representation of entity
// tables. The whole graph uses one kind, fixed by deployment.
type IDKind int

const (
	// IDInt64 is a bigserial/bigint identifier.
	IDInt64 IDKind = iota
	// IDString is a text identifier.
	IDString
	// IDUUID is a uuid identifier.
	IDUUID
)

// ParseID parses the textual form of an identifier into its typed
// value. A malformed identifier is a client error.
func ParseID(kind IDKind, s string) (any, error) {
	switch kind {
	case IDInt64:
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, sensorql.NewRejectedQuery(s, "malformed integer identifier")
		}
		return id, nil
	case IDString:
		return s, nil
	case IDUUID:
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, sensorql.NewRejectedQuery(s, "malformed uuid identifier")
		}
		return id, nil
	default:
		return nil, sensorql.NewSchemaDefect("unknown id kind %d", int(kind))
	}
}
