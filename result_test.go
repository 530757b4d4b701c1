package sensorql_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sensorql"
)

// TestNextLinkRoundTrip verifies token encode/decode symmetry.
func TestNextLinkRoundTrip(t *testing.T) {
	t.Parallel()

	link, err := sensorql.EncodeNextLink(300)
	require.NoError(t, err)
	assert.Equal(t, 300, link.Skip)
	assert.NotEmpty(t, link.Token)

	decoded, err := sensorql.DecodeNextLink(link.Token)
	require.NoError(t, err)
	assert.Equal(t, 300, decoded.Skip)
}

// TestDecodeNextLinkMalformed verifies bad tokens are client errors.
func TestDecodeNextLinkMalformed(t *testing.T) {
	t.Parallel()

	for _, token := range []string{"not base64!!", "AAAA", ""} {
		_, err := sensorql.DecodeNextLink(token)
		require.Error(t, err, "token %q", token)
		assert.True(t, sensorql.IsRejected(err))
	}
}

// TestNextLinkTokenOpaque verifies tokens differ per skip value.
func TestNextLinkTokenOpaque(t *testing.T) {
	t.Parallel()

	a, err := sensorql.EncodeNextLink(100)
	require.NoError(t, err)
	b, err := sensorql.EncodeNextLink(200)
	require.NoError(t, err)
	assert.NotEqual(t, a.Token, b.Token)
}
