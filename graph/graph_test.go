package graph

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sensorql"
)

func TestEntityNaming(t *testing.T) {
	t.Parallel()
	tests := []struct {
		t     EntityType
		set   string
		table string
	}{
		{Thing, "Things", "things"},
		{Location, "Locations", "locations"},
		{HistoricalLocation, "HistoricalLocations", "historical_locations"},
		{Datastream, "Datastreams", "datastreams"},
		{MultiDatastream, "MultiDatastreams", "multi_datastreams"},
		{Sensor, "Sensors", "sensors"},
		{ObservedProperty, "ObservedProperties", "observed_properties"},
		{Observation, "Observations", "observations"},
		{FeatureOfInterest, "FeaturesOfInterest", "features_of_interest"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.set, tt.t.Set())
		assert.Equal(t, tt.table, tt.t.Table())
		assert.Equal(t, "id", tt.t.IDColumn())
	}
}

func TestFromName(t *testing.T) {
	t.Parallel()
	for _, et := range Types() {
		got, ok := FromName(et.String())
		require.True(t, ok, et.String())
		assert.Equal(t, et, got)

		got, ok = FromName(et.Set())
		require.True(t, ok, et.Set())
		assert.Equal(t, et, got)
	}
	_, ok := FromName("Widgets")
	assert.False(t, ok)
}

func TestParseID(t *testing.T) {
	t.Parallel()
	id, err := ParseID(IDInt64, "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = ParseID(IDInt64, "forty-two")
	assert.True(t, sensorql.IsRejected(err))

	id, err = ParseID(IDString, "obs-7")
	require.NoError(t, err)
	assert.Equal(t, "obs-7", id)

	u := uuid.New()
	id, err = ParseID(IDUUID, u.String())
	require.NoError(t, err)
	assert.Equal(t, u, id)

	_, err = ParseID(IDUUID, "not-a-uuid")
	assert.True(t, sensorql.IsRejected(err))
}

func TestRel(t *testing.T) {
	t.Parallel()
	// Direct one-to-many with the foreign key on the target.
	rel, err := Rel(Datastream, Observation)
	require.NoError(t, err)
	assert.True(t, rel.Many)
	assert.True(t, rel.FKOnTarget)
	assert.Equal(t, "datastream_id", rel.FK)

	// The reverse direction holds the key on the source.
	rel, err = Rel(Observation, Datastream)
	require.NoError(t, err)
	assert.False(t, rel.Many)
	assert.False(t, rel.FKOnTarget)
	assert.Equal(t, "datastream_id", rel.FK)

	// Many-to-many through the join table.
	rel, err = Rel(Thing, Location)
	require.NoError(t, err)
	assert.Equal(t, "things_locations", rel.JoinTable)
	assert.Equal(t, "thing_id", rel.JoinFKFrom)
	assert.Equal(t, "location_id", rel.JoinFKTo)
	assert.True(t, rel.Many)

	// The only ranked edge.
	rel, err = Rel(MultiDatastream, ObservedProperty)
	require.NoError(t, err)
	assert.Equal(t, "rank", rel.RankColumn)

	// Non-adjacent types are a schema defect, not a client error.
	_, err = Rel(Sensor, Location)
	require.Error(t, err)
	assert.True(t, sensorql.IsSchemaDefect(err))
}

func TestNavTarget(t *testing.T) {
	t.Parallel()
	to, many, err := NavTarget(Datastream, "Observations")
	require.NoError(t, err)
	assert.Equal(t, Observation, to)
	assert.True(t, many)

	to, many, err = NavTarget(Datastream, "Thing")
	require.NoError(t, err)
	assert.Equal(t, Thing, to)
	assert.False(t, many)

	// A to-one navigation addressed in collection form is rejected.
	_, _, err = NavTarget(Datastream, "Things")
	assert.True(t, sensorql.IsRejected(err))

	// A to-many navigation addressed in singular form is rejected.
	_, _, err = NavTarget(Datastream, "Observation")
	assert.True(t, sensorql.IsRejected(err))

	_, _, err = NavTarget(Datastream, "Widget")
	assert.True(t, sensorql.IsRejected(err))

	// Known entity type, but not adjacent: still a client error, the
	// path is wrong even though the schema is fine.
	_, _, err = NavTarget(Sensor, "Location")
	assert.True(t, sensorql.IsRejected(err))
}

func TestResolve(t *testing.T) {
	t.Parallel()
	cols, err := Resolve(Observation, "phenomenonTime")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "phenomenon_time_start", cols[0].Name)
	assert.Equal(t, SuffixStart, cols[0].Suffix)
	assert.Equal(t, "phenomenon_time_end", cols[1].Name)
	assert.Equal(t, SuffixEnd, cols[1].Suffix)

	cols, err = Resolve(Observation, "result")
	require.NoError(t, err)
	require.Len(t, cols, 4)
	types := map[string]ColumnType{}
	for _, c := range cols {
		types[c.Suffix] = c.Type
	}
	assert.Equal(t, ColNumber, types["number"])
	assert.Equal(t, ColString, types["string"])
	assert.Equal(t, ColBool, types["boolean"])
	assert.Equal(t, ColJSON, types["json"])

	cols, err = Resolve(Datastream, "unitOfMeasurement")
	require.NoError(t, err)
	require.Len(t, cols, 3)
	sub, err := ResolveSuffix(Datastream, "unitOfMeasurement", "symbol", cols)
	require.NoError(t, err)
	assert.Equal(t, "unit_symbol", sub.Name)

	_, err = ResolveSuffix(Datastream, "unitOfMeasurement", "volume", cols)
	assert.True(t, sensorql.IsRejected(err))

	_, err = Resolve(Thing, "altitude")
	assert.True(t, sensorql.IsRejected(err))
}

func TestValidate(t *testing.T) {
	t.Parallel()
	require.NoError(t, Validate())
}
