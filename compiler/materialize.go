package compiler

import (
	"github.com/google/uuid"

	"github.com/syssam/sensorql"
	"github.com/syssam/sensorql/graph"
)

// Materializer turns fetched rows into entities. The default
// implementation reassembles composite properties from their suffix
// columns; embedders with bespoke serialization replace it.
type Materializer interface {
	Materialize(t graph.EntityType, idKind graph.IDKind, plan []ColumnPlan, row Row) (*sensorql.Entity, error)
}

// RowMaterializer is the default Materializer.
type RowMaterializer struct{}

// Materialize maps one row onto an Entity following the column plan.
// Composite properties regroup under their suffix names; the
// Observation result composite collapses to the first populated
// representation.
func (RowMaterializer) Materialize(t graph.EntityType, idKind graph.IDKind, plan []ColumnPlan, row Row) (*sensorql.Entity, error) {
	e := &sensorql.Entity{
		Set:        t.Set(),
		Properties: make(map[string]any),
	}
	composites := make(map[string]map[string]any)
	order := make([]string, 0, len(plan))
	for _, cp := range plan {
		v, ok := row[cp.Alias]
		if !ok {
			continue
		}
		if cp.Property == "id" && cp.Suffix == "" {
			id, err := entityID(idKind, v)
			if err != nil {
				return nil, err
			}
			e.ID = id
			e.Properties["id"] = id
			continue
		}
		if cp.Suffix == "" {
			e.Properties[cp.Property] = v
			continue
		}
		m, ok := composites[cp.Property]
		if !ok {
			m = make(map[string]any)
			composites[cp.Property] = m
			order = append(order, cp.Property)
		}
		m[cp.Suffix] = v
	}
	for _, name := range order {
		e.Properties[name] = collapseComposite(name, composites[name])
	}
	return e, nil
}

// collapseComposite reduces a suffix-grouped composite to its value
// form. A value-typed composite (one representation column populated,
// the rest NULL) collapses to the populated one; structural composites
// (intervals, units of measurement) keep the suffix map.
func collapseComposite(name string, m map[string]any) any {
	if _, ok := m[graph.SuffixStart]; ok {
		return m
	}
	populated := 0
	var last any
	for _, v := range m {
		if v != nil {
			populated++
			last = v
		}
	}
	allValueTyped := true
	for suffix := range m {
		switch suffix {
		case "number", "string", "boolean", "json":
		default:
			allValueTyped = false
		}
	}
	if allValueTyped && populated <= 1 {
		return last
	}
	return m
}

// entityID normalizes the identifier column to the configured id kind.
func entityID(kind graph.IDKind, v any) (any, error) {
	if v == nil {
		return nil, sensorql.NewSchemaDefect("row carries a NULL identifier")
	}
	if kind != graph.IDUUID {
		return v, nil
	}
	switch id := v.(type) {
	case string:
		u, err := uuid.Parse(id)
		if err != nil {
			return nil, sensorql.NewSchemaDefect("row identifier %q is not a UUID", id)
		}
		return u, nil
	case []byte:
		u, err := uuid.FromBytes(id)
		if err != nil {
			return nil, sensorql.NewSchemaDefect("row identifier is not a UUID: %v", err)
		}
		return u, nil
	case uuid.UUID:
		return id, nil
	default:
		return nil, sensorql.NewSchemaDefect("row identifier has unexpected type %T", v)
	}
}
