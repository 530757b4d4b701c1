package sensorql

import (
	"fmt"
	"time"
)

// CountMode selects how the composer computes $count=true totals.
type CountMode int

const (
	// CountExact always runs a full COUNT over the filtered join graph.
	CountExact CountMode = iota

	// CountLimitSample counts at most EstimateThreshold+1 rows. Results at
	// or below the threshold are exact; above it the capped value is
	// reported as a lower-bound estimate. The choice is made once per
	// query, never per row.
	CountLimitSample
)

// String returns the mode name.
func (m CountMode) String() string {
	switch m {
	case CountExact:
		return "exact"
	case CountLimitSample:
		return "limit-sample"
	default:
		return fmt.Sprintf("CountMode(%d)", int(m))
	}
}

// Settings holds the server policy the engine consumes. The engine does
// not load configuration itself; the embedding server passes a validated
// Settings value per request or per process.
type Settings struct {
	// DefaultTop is the page size applied when the request has no $top.
	DefaultTop int

	// MaxTop caps any client-supplied $top.
	MaxTop int

	// CountMode selects exact or limit-sample counting.
	CountMode CountMode

	// EstimateThreshold is the switchover row count for CountLimitSample.
	// Ignored under CountExact.
	EstimateThreshold int64

	// AlwaysOrder forces the deterministic id tie-break even on requests
	// without $orderby. The tie-break is always appended when any
	// ordering is present; this flag extends it to unordered requests.
	AlwaysOrder bool

	// QueryTimeout bounds each backend execution. Zero means unlimited.
	QueryTimeout time.Duration

	// SlowQueryThreshold is the duration above which executed queries are
	// logged. Zero disables slow-query logging.
	SlowQueryThreshold time.Duration
}

// DefaultSettings returns the policy used when the embedding server
// supplies none.
func DefaultSettings() Settings {
	return Settings{
		DefaultTop:         100,
		MaxTop:             1000,
		CountMode:          CountExact,
		EstimateThreshold:  10000,
		AlwaysOrder:        true,
		QueryTimeout:       0,
		SlowQueryThreshold: 200 * time.Millisecond,
	}
}

// Validate reports the first policy inconsistency found.
func (s Settings) Validate() error {
	if s.DefaultTop <= 0 {
		return fmt.Errorf("sensorql: settings: DefaultTop must be positive, got %d", s.DefaultTop)
	}
	if s.MaxTop < s.DefaultTop {
		return fmt.Errorf("sensorql: settings: MaxTop (%d) must not be below DefaultTop (%d)", s.MaxTop, s.DefaultTop)
	}
	if s.CountMode != CountExact && s.CountMode != CountLimitSample {
		return fmt.Errorf("sensorql: settings: unknown count mode %d", int(s.CountMode))
	}
	if s.CountMode == CountLimitSample && s.EstimateThreshold <= 0 {
		return fmt.Errorf("sensorql: settings: EstimateThreshold must be positive under limit-sample counting")
	}
	if s.QueryTimeout < 0 {
		return fmt.Errorf("sensorql: settings: QueryTimeout must not be negative")
	}
	if s.SlowQueryThreshold < 0 {
		return fmt.Errorf("sensorql: settings: SlowQueryThreshold must not be negative")
	}
	return nil
}

// ClampTop resolves a client-supplied $top against the policy: nil means
// DefaultTop, anything above MaxTop is capped.
func (s Settings) ClampTop(top *int) int {
	if top == nil {
		return s.DefaultTop
	}
	if *top > s.MaxTop {
		return s.MaxTop
	}
	return *top
}
