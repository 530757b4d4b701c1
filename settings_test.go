package sensorql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sensorql"
)

// TestDefaultSettings verifies the default policy validates.
func TestDefaultSettings(t *testing.T) {
	t.Parallel()

	s := sensorql.DefaultSettings()
	require.NoError(t, s.Validate())
	assert.Equal(t, 100, s.DefaultTop)
	assert.Equal(t, 1000, s.MaxTop)
	assert.Equal(t, sensorql.CountExact, s.CountMode)
}

// TestSettingsValidate tests the policy consistency checks.
func TestSettingsValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*sensorql.Settings)
		wantErr string
	}{
		{
			name:    "zero default top",
			mutate:  func(s *sensorql.Settings) { s.DefaultTop = 0 },
			wantErr: "DefaultTop",
		},
		{
			name:    "max below default",
			mutate:  func(s *sensorql.Settings) { s.MaxTop = 10 },
			wantErr: "MaxTop",
		},
		{
			name: "limit sample without threshold",
			mutate: func(s *sensorql.Settings) {
				s.CountMode = sensorql.CountLimitSample
				s.EstimateThreshold = 0
			},
			wantErr: "EstimateThreshold",
		},
		{
			name:    "negative timeout",
			mutate:  func(s *sensorql.Settings) { s.QueryTimeout = -1 },
			wantErr: "QueryTimeout",
		},
		{
			name:    "negative slow threshold",
			mutate:  func(s *sensorql.Settings) { s.SlowQueryThreshold = -1 },
			wantErr: "SlowQueryThreshold",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := sensorql.DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// TestClampTop tests $top resolution against the policy.
func TestClampTop(t *testing.T) {
	t.Parallel()

	s := sensorql.DefaultSettings()

	assert.Equal(t, 100, s.ClampTop(nil), "absent $top falls back to DefaultTop")

	top := 25
	assert.Equal(t, 25, s.ClampTop(&top))

	top = 5000
	assert.Equal(t, 1000, s.ClampTop(&top), "$top above MaxTop is capped")
}

// TestCountModeString tests mode names.
func TestCountModeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "exact", sensorql.CountExact.String())
	assert.Equal(t, "limit-sample", sensorql.CountLimitSample.String())
}
