package graph

import "github.com/syssam/sensorql"

// ColumnType tags the value a physical column produces, used by the
// expression evaluator for operator coercion.
type ColumnType int

const (
	ColID ColumnType = iota
	ColNumber
	ColString
	ColBool
	ColInstant
	ColGeometry
	ColJSON
)

// String returns the tag name.
func (t ColumnType) String() string {
	switch t {
	case ColID:
		return "id"
	case ColNumber:
		return "number"
	case ColString:
		return "string"
	case ColBool:
		return "boolean"
	case ColInstant:
		return "instant"
	case ColGeometry:
		return "geometry"
	case ColJSON:
		return "json"
	default:
		return "column(?)"
	}
}

// Column is one physical column backing an abstract property.
type Column struct {
	// Suffix names the sub-expression of a composite property
	// ("start", "end", "symbol", ...). Empty for simple properties.
	Suffix string

	// Name is the bare column name; the compiler qualifies it with the
	// table alias of the current binding.
	Name string

	// Type is the coercion tag.
	Type ColumnType
}

// Composite suffixes shared across entity types.
const (
	SuffixStart = "start"
	SuffixEnd   = "end"
)

func simple(name string, t ColumnType) []Column {
	return []Column{{Name: name, Type: t}}
}

// interval builds the start/end column pair of a time-interval
// property.
func interval(prefix string) []Column {
	return []Column{
		{Suffix: SuffixStart, Name: prefix + "_start", Type: ColInstant},
		{Suffix: SuffixEnd, Name: prefix + "_end", Type: ColInstant},
	}
}

// geoJSON builds the paired geometry/document representation of a
// location-like property: geospatial operators bind the geometry
// column, everything else the JSON document.
func geoJSON(geomCol, jsonCol string) []Column {
	return []Column{
		{Suffix: "geometry", Name: geomCol, Type: ColGeometry},
		{Suffix: "json", Name: jsonCol, Type: ColJSON},
	}
}

// properties returns the ordered property-to-column table of the given
// entity type. The map form would lose declaration order, which
// ResolveAll and $select expansion rely on.
func properties(t EntityType) []struct {
	Name string
	Cols []Column
} {
	type prop = struct {
		Name string
		Cols []Column
	}
	switch t {
	case Thing:
		return []prop{
			{"id", simple("id", ColID)},
			{"name", simple("name", ColString)},
			{"description", simple("description", ColString)},
			{"properties", simple("properties", ColJSON)},
		}
	case Location:
		return []prop{
			{"id", simple("id", ColID)},
			{"name", simple("name", ColString)},
			{"description", simple("description", ColString)},
			{"encodingType", simple("encoding_type", ColString)},
			{"location", geoJSON("geom", "location")},
			{"properties", simple("properties", ColJSON)},
		}
	case HistoricalLocation:
		return []prop{
			{"id", simple("id", ColID)},
			{"time", simple("time", ColInstant)},
		}
	case Datastream:
		return []prop{
			{"id", simple("id", ColID)},
			{"name", simple("name", ColString)},
			{"description", simple("description", ColString)},
			{"observationType", simple("observation_type", ColString)},
			{"unitOfMeasurement", []Column{
				{Suffix: "name", Name: "unit_name", Type: ColString},
				{Suffix: "symbol", Name: "unit_symbol", Type: ColString},
				{Suffix: "definition", Name: "unit_definition", Type: ColString},
			}},
			{"observedArea", simple("observed_area", ColGeometry)},
			{"phenomenonTime", interval("phenomenon_time")},
			{"resultTime", interval("result_time")},
			{"properties", simple("properties", ColJSON)},
		}
	case MultiDatastream:
		return []prop{
			{"id", simple("id", ColID)},
			{"name", simple("name", ColString)},
			{"description", simple("description", ColString)},
			{"observationTypes", simple("observation_types", ColJSON)},
			{"multiObservationDataTypes", simple("multi_observation_data_types", ColJSON)},
			{"unitOfMeasurements", simple("unit_of_measurements", ColJSON)},
			{"observedArea", simple("observed_area", ColGeometry)},
			{"phenomenonTime", interval("phenomenon_time")},
			{"resultTime", interval("result_time")},
			{"properties", simple("properties", ColJSON)},
		}
	case Sensor:
		return []prop{
			{"id", simple("id", ColID)},
			{"name", simple("name", ColString)},
			{"description", simple("description", ColString)},
			{"encodingType", simple("encoding_type", ColString)},
			{"metadata", simple("metadata", ColString)},
			{"properties", simple("properties", ColJSON)},
		}
	case ObservedProperty:
		return []prop{
			{"id", simple("id", ColID)},
			{"name", simple("name", ColString)},
			{"definition", simple("definition", ColString)},
			{"description", simple("description", ColString)},
			{"properties", simple("properties", ColJSON)},
		}
	case Observation:
		return []prop{
			{"id", simple("id", ColID)},
			{"phenomenonTime", interval("phenomenon_time")},
			{"resultTime", simple("result_time", ColInstant)},
			{"result", []Column{
				{Suffix: "number", Name: "result_number", Type: ColNumber},
				{Suffix: "string", Name: "result_string", Type: ColString},
				{Suffix: "boolean", Name: "result_boolean", Type: ColBool},
				{Suffix: "json", Name: "result_json", Type: ColJSON},
			}},
			{"resultQuality", simple("result_quality", ColJSON)},
			{"validTime", interval("valid_time")},
			{"parameters", simple("parameters", ColJSON)},
		}
	case FeatureOfInterest:
		return []prop{
			{"id", simple("id", ColID)},
			{"name", simple("name", ColString)},
			{"description", simple("description", ColString)},
			{"encodingType", simple("encoding_type", ColString)},
			{"feature", geoJSON("geom", "feature")},
			{"properties", simple("properties", ColJSON)},
		}
	default:
		return nil
	}
}

// Resolve maps an abstract property of the given entity type to its
// physical columns: one column for a simple property, a named column
// list for a composite one. An unknown property is a client error.
func Resolve(t EntityType, property string) ([]Column, error) {
	for _, p := range properties(t) {
		if p.Name == property {
			return p.Cols, nil
		}
	}
	return nil, sensorql.NewRejectedQuery(property, "%s has no property %q", t, property)
}

// ResolveSuffix looks up a sub-property of a composite resolution:
// unitOfMeasurement/symbol, phenomenonTime/start. An unknown suffix is
// a client error (invalid property path), not a crash.
func ResolveSuffix(t EntityType, property, suffix string, cols []Column) (Column, error) {
	for _, c := range cols {
		if c.Suffix == suffix {
			return c, nil
		}
	}
	return Column{}, sensorql.NewRejectedQuery(property+"/"+suffix, "%s/%s has no sub-property %q", t, property, suffix)
}

// PropertyNames returns the abstract property names of the entity type
// in declaration order.
func PropertyNames(t EntityType) []string {
	props := properties(t)
	names := make([]string, len(props))
	for i, p := range props {
		names[i] = p.Name
	}
	return names
}

// ResolveAll enumerates every mapped property of the entity type, used
// when a query carries no explicit $select.
func ResolveAll(t EntityType) []struct {
	Name string
	Cols []Column
} {
	return properties(t)
}

// Validate checks the whole graph once at startup: every entity type
// must resolve a non-empty property set including "id", and every
// declared relationship must be symmetric (a reverse definition
// exists). A failure is a schema defect.
func Validate() error {
	for _, t := range Types() {
		props := properties(t)
		if len(props) == 0 {
			return sensorql.NewSchemaDefect("entity type %s has no property mapping", t)
		}
		if props[0].Name != "id" {
			return sensorql.NewSchemaDefect("entity type %s must map id first", t)
		}
		for _, u := range Types() {
			if _, err := Rel(t, u); err == nil {
				if _, rerr := Rel(u, t); rerr != nil {
					return sensorql.NewSchemaDefect("relationship %s->%s has no reverse definition", t, u)
				}
			}
		}
	}
	return nil
}
