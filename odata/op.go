package odata

// Op enumerates the operators and functions of the $filter/$orderby
// grammar. The set is closed; the compiler dispatches exhaustively and
// rejects unknown values as schema defects.
type Op int

const (
	// Logical.
	OpAnd Op = iota
	OpOr
	OpNot

	// Comparison.
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe

	// Arithmetic.
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod

	// String.
	OpConcat
	OpStartsWith
	OpEndsWith
	OpSubstringOf
	OpContains
	OpIndexOf
	OpLength
	OpSubstring
	OpToLower
	OpToUpper
	OpTrim

	// Date/time extraction.
	OpYear
	OpMonth
	OpDay
	OpHour
	OpMinute
	OpSecond
	OpFractionalSeconds
	OpDate
	OpTime
	OpTotalOffsetMinutes
	OpNow
	OpMinDateTime
	OpMaxDateTime

	// Math.
	OpRound
	OpFloor
	OpCeiling

	// Allen temporal relations.
	OpBefore
	OpAfter
	OpMeets
	OpDuring
	OpOverlaps
	OpStarts
	OpFinishes

	// Geospatial.
	OpGeoDistance
	OpGeoLength
	OpGeoIntersects
	OpSTEquals
	OpSTDisjoint
	OpSTTouches
	OpSTWithin
	OpSTOverlaps
	OpSTCrosses
	OpSTIntersects
	OpSTContains
	OpSTRelate
)

// opNames maps each operator to its OData source form.
var opNames = map[Op]string{
	OpAnd:                "and",
	OpOr:                 "or",
	OpNot:                "not",
	OpEq:                 "eq",
	OpNe:                 "ne",
	OpLt:                 "lt",
	OpLe:                 "le",
	OpGt:                 "gt",
	OpGe:                 "ge",
	OpAdd:                "add",
	OpSub:                "sub",
	OpMul:                "mul",
	OpDiv:                "div",
	OpMod:                "mod",
	OpConcat:             "concat",
	OpStartsWith:         "startswith",
	OpEndsWith:           "endswith",
	OpSubstringOf:        "substringof",
	OpContains:           "contains",
	OpIndexOf:            "indexof",
	OpLength:             "length",
	OpSubstring:          "substring",
	OpToLower:            "tolower",
	OpToUpper:            "toupper",
	OpTrim:               "trim",
	OpYear:               "year",
	OpMonth:              "month",
	OpDay:                "day",
	OpHour:               "hour",
	OpMinute:             "minute",
	OpSecond:             "second",
	OpFractionalSeconds:  "fractionalseconds",
	OpDate:               "date",
	OpTime:               "time",
	OpTotalOffsetMinutes: "totaloffsetminutes",
	OpNow:                "now",
	OpMinDateTime:        "mindatetime",
	OpMaxDateTime:        "maxdatetime",
	OpRound:              "round",
	OpFloor:              "floor",
	OpCeiling:            "ceiling",
	OpBefore:             "before",
	OpAfter:              "after",
	OpMeets:              "meets",
	OpDuring:             "during",
	OpOverlaps:           "overlaps",
	OpStarts:             "starts",
	OpFinishes:           "finishes",
	OpGeoDistance:        "geo.distance",
	OpGeoLength:          "geo.length",
	OpGeoIntersects:      "geo.intersects",
	OpSTEquals:           "st_equals",
	OpSTDisjoint:         "st_disjoint",
	OpSTTouches:          "st_touches",
	OpSTWithin:           "st_within",
	OpSTOverlaps:         "st_overlaps",
	OpSTCrosses:          "st_crosses",
	OpSTIntersects:       "st_intersects",
	OpSTContains:         "st_contains",
	OpSTRelate:           "st_relate",
}

// String returns the OData source form of the operator.
func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return "op(?)"
}

// Infix reports whether the operator renders between its operands
// (a eq b) rather than as a function call (year(a)).
func (o Op) Infix() bool {
	switch o {
	case OpAnd, OpOr, OpEq, OpNe, OpLt, OpLe, OpGt, OpGe,
		OpAdd, OpSub, OpMul, OpDiv, OpMod:
		return true
	}
	return false
}
