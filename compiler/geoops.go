package compiler

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"

	"github.com/syssam/sensorql"
	"github.com/syssam/sensorql/odata"
)

// srid is the spatial reference of all stored geometries (WGS 84).
const srid = 4326

// geometryLit validates a geometry literal's WKT before binding it.
// Malformed WKT is a client error caught at compile time, not a
// backend syntax error at execution time.
func (ev *evaluator) geometryLit(n *odata.GeometryLit) (value, error) {
	g, err := wkt.Unmarshal(n.WKT)
	if err != nil {
		return value{}, sensorql.NewRejectedQuery(n.String(), "malformed geometry: %v", err)
	}
	if !geoKindMatches(n.Kind, g) {
		return value{}, sensorql.NewRejectedQuery(n.String(), "geometry body does not match its %s type", n.Kind)
	}
	fr := f("ST_GeomFromText(?, ?)", n.WKT, srid)
	return value{k: kGeometry, f: fr, lit: true, src: n.String()}, nil
}

func geoKindMatches(k odata.GeoKind, g orb.Geometry) bool {
	switch k {
	case odata.GeoPoint:
		_, ok := g.(orb.Point)
		return ok
	case odata.GeoLineString:
		_, ok := g.(orb.LineString)
		return ok
	case odata.GeoPolygon:
		_, ok := g.(orb.Polygon)
		return ok
	default:
		return false
	}
}

// geoCall renders the spatial function family onto the backend's ST_*
// functions.
func (ev *evaluator) geoCall(c *odata.Call) (value, error) {
	src := c.String()
	switch c.Op {
	case odata.OpGeoLength:
		if err := arity(c, 1); err != nil {
			return value{}, err
		}
		a, err := ev.argAs(c, 0, kGeometry)
		if err != nil {
			return value{}, err
		}
		return value{k: kNumber, f: combine("ST_Length(%s)", a), src: src}, nil

	case odata.OpGeoDistance:
		if err := arity(c, 2); err != nil {
			return value{}, err
		}
		a, b, err := ev.twoGeometries(c)
		if err != nil {
			return value{}, err
		}
		return value{k: kNumber, f: combine("ST_Distance(%s, %s)", a, b), src: src}, nil

	case odata.OpSTRelate:
		if err := arity(c, 3); err != nil {
			return value{}, err
		}
		a, b, err := ev.twoGeometries(c)
		if err != nil {
			return value{}, err
		}
		pattern, err := ev.argAs(c, 2, kString)
		if err != nil {
			return value{}, err
		}
		return boolV(combine("ST_Relate(%s, %s, %s)", a, b, pattern), src), nil
	}

	fn, ok := geoPredicates[c.Op]
	if !ok {
		return value{}, sensorql.NewSchemaDefect("unhandled spatial operator %s", c.Op)
	}
	if err := arity(c, 2); err != nil {
		return value{}, err
	}
	a, b, err := ev.twoGeometries(c)
	if err != nil {
		return value{}, err
	}
	return boolV(combine(fn+"(%s, %s)", a, b), src), nil
}

var geoPredicates = map[odata.Op]string{
	odata.OpGeoIntersects: "ST_Intersects",
	odata.OpSTIntersects:  "ST_Intersects",
	odata.OpSTEquals:      "ST_Equals",
	odata.OpSTDisjoint:    "ST_Disjoint",
	odata.OpSTTouches:     "ST_Touches",
	odata.OpSTWithin:      "ST_Within",
	odata.OpSTOverlaps:    "ST_Overlaps",
	odata.OpSTCrosses:     "ST_Crosses",
	odata.OpSTContains:    "ST_Contains",
}

func (ev *evaluator) twoGeometries(c *odata.Call) (frag, frag, error) {
	a, err := ev.argAs(c, 0, kGeometry)
	if err != nil {
		return frag{}, frag{}, err
	}
	b, err := ev.argAs(c, 1, kGeometry)
	if err != nil {
		return frag{}, frag{}, err
	}
	return a, b, nil
}
