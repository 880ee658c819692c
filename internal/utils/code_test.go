package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNumericCode(t *testing.T) {
	code, err := NewNumericCode(6)
	require.NoError(t, err)
	require.Len(t, code, 6)
	for _, r := range code {
		assert.True(t, r >= '0' && r <= '9', "digit expected, got %q", r)
	}
}

func TestNewURLSafeToken(t *testing.T) {
	a, err := NewURLSafeToken(32)
	require.NoError(t, err)
	b, err := NewURLSafeToken(32)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	// base64url without padding, no characters needing escaping.
	assert.NotContains(t, a, "+")
	assert.NotContains(t, a, "/")
	assert.NotContains(t, a, "=")
}
