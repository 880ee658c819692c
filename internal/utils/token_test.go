package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestAccessTokenRoundTrip(t *testing.T) {
	st, err := NewAccessToken(testSecret, "user-1", "tenant-1", 15)
	require.NoError(t, err)
	require.NotEmpty(t, st.Token)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), st.Exp, 5*time.Second)

	claims, err := ValidateToken(testSecret, st.Token, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, TokenTypeAccess, claims.TokenType)
}

func TestRefreshTokenHasRefreshType(t *testing.T) {
	st, err := NewRefreshToken(testSecret, "user-1", "tenant-1", 7)
	require.NoError(t, err)

	claims, err := ValidateToken(testSecret, st.Token, "tenant-1")
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
}

func TestValidateTokenTenantMismatch(t *testing.T) {
	st, err := NewAccessToken(testSecret, "user-1", "tenant-a", 15)
	require.NoError(t, err)

	_, err = ValidateToken(testSecret, st.Token, "tenant-b")
	assert.ErrorIs(t, err, ErrTokenTenantMismatch)
}

func TestValidateTokenExpired(t *testing.T) {
	st, err := newToken(testSecret, "user-1", "tenant-1", TokenTypeAccess, -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(testSecret, st.Token, "tenant-1")
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	st, err := NewAccessToken(testSecret, "user-1", "tenant-1", 15)
	require.NoError(t, err)

	_, err = ValidateToken("other-secret", st.Token, "tenant-1")
	assert.ErrorIs(t, err, ErrTokenMalformed)
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := ValidateToken(testSecret, "not.a.jwt", "tenant-1")
	assert.ErrorIs(t, err, ErrTokenMalformed)
}
