package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	m := NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour)

	pair, err := m.Generate("user-1")
	require.NoError(t, err)
	assert.NotEmpty(t, pair.RefreshID)

	claims, err := m.ValidateAccessToken(pair.Access)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, AccessToken, claims.Type)

	rc, err := m.ValidateRefreshToken(pair.Refresh)
	require.NoError(t, err)
	assert.Equal(t, pair.RefreshID, rc.ID)
}

func TestTokensAreNotInterchangeable(t *testing.T) {
	m := NewTokenManager("access-secret", "refresh-secret", time.Minute, time.Hour)
	pair, err := m.Generate("user-1")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = m.ValidateRefreshToken(pair.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestSameSecretStillChecksType(t *testing.T) {
	m := NewTokenManager("shared", "shared", time.Minute, time.Hour)
	pair, err := m.Generate("user-1")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(pair.Refresh)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExpiredToken(t *testing.T) {
	m := NewTokenManager("a", "r", time.Minute, time.Hour)
	issued := time.Now().Add(-2 * time.Minute)
	m.now = func() time.Time { return issued }
	pair, err := m.Generate("user-1")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ValidateAccessToken(pair.Access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRejectsOtherSigningMethods(t *testing.T) {
	m := NewTokenManager("a", "r", time.Minute, time.Hour)
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		Type:             AccessToken,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u", ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(s)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordHasher(t *testing.T) {
	h := NewFastHasher()
	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NoError(t, h.Compare(hash, "correct horse"))
	assert.Error(t, h.Compare(hash, "wrong"))
}

func TestMemoryTokenCache(t *testing.T) {
	c := NewMemoryTokenCache()
	ctx := context.Background()

	require.NoError(t, c.Revoke(ctx, "jti-1", time.Now().Add(time.Hour)))
	require.NoError(t, c.Revoke(ctx, "jti-old", time.Now().Add(-time.Second)))

	revoked, err := c.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = c.IsRevoked(ctx, "jti-old")
	require.NoError(t, err)
	assert.False(t, revoked)

	revoked, err = c.IsRevoked(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, revoked)
}
