package sensorql

import (
	"encoding/base64"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Entity is one materialized SensorThings entity: a flat property map
// keyed by abstract property name, plus any $expand results stitched on
// by navigation property name.
type Entity struct {
	// Set is the entity-set name (e.g. "Things", "Observations").
	Set string

	// ID is the entity identifier. Its dynamic type depends on the
	// configured id kind (int64, string or uuid.UUID).
	ID any

	// Properties holds the selected scalar and composite properties.
	// Composite properties appear under their abstract name as a nested
	// map (e.g. "unitOfMeasurement" -> {name, symbol, definition}).
	Properties map[string]any

	// Expanded holds results of $expand branches, keyed by navigation
	// property name. Values are *Entity for single-valued navigations
	// and *CollectionResult for collections.
	Expanded map[string]any
}

// EntityResult is the outcome of a path addressing a single entity.
type EntityResult struct {
	Entity *Entity
}

// CollectionResult is the outcome of a path addressing a collection.
type CollectionResult struct {
	Entities []*Entity

	// Count is the total (possibly estimated) size of the unlimited
	// result, present only when $count=true was requested.
	Count *int64

	// CountEstimated marks Count as a limit-sample lower bound rather
	// than an exact total.
	CountEstimated bool

	// NextLink carries the continuation state for the following page,
	// or nil when this page is terminal.
	NextLink *NextLink
}

// NextLink is the pagination continuation for a collection result. The
// transport layer combines Token with the original path and options to
// form the @iot.nextLink URL.
type NextLink struct {
	// Skip is the $skip value of the next page.
	Skip int

	// Token is the opaque encoded form of the continuation state.
	Token string
}

// nextToken is the wire form of a continuation token.
type nextToken struct {
	Skip int `msgpack:"s"`
}

// EncodeNextLink builds a NextLink for the given next-page skip value.
func EncodeNextLink(skip int) (*NextLink, error) {
	raw, err := msgpack.Marshal(nextToken{Skip: skip})
	if err != nil {
		return nil, fmt.Errorf("sensorql: encoding next-link token: %w", err)
	}
	return &NextLink{
		Skip:  skip,
		Token: base64.RawURLEncoding.EncodeToString(raw),
	}, nil
}

// DecodeNextLink parses a continuation token produced by EncodeNextLink.
// A malformed token is a client error.
func DecodeNextLink(token string) (*NextLink, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, NewRejectedQuery(token, "malformed continuation token")
	}
	var t nextToken
	if err := msgpack.Unmarshal(raw, &t); err != nil {
		return nil, NewRejectedQuery(token, "malformed continuation token")
	}
	if t.Skip < 0 {
		return nil, NewRejectedQuery(token, "continuation token skip must not be negative")
	}
	return &NextLink{Skip: t.Skip, Token: token}, nil
}
