package statusapi

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenAuthorityEnabledReflectsSecret(t *testing.T) {
	assert.False(t, NewTokenAuthority("", time.Minute).Enabled())
	assert.True(t, NewTokenAuthority("s3cr3t", time.Minute).Enabled())
}

func TestIssueAndVerifyRoundTrips(t *testing.T) {
	auth := NewTokenAuthority("s3cr3t", time.Minute)
	token, err := auth.Issue("run-1")
	require.NoError(t, err)

	claims, err := auth.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "run-1", claims.RunID)
}

func TestVerifyRejectsTokenFromDifferentSecret(t *testing.T) {
	a := NewTokenAuthority("secret-a", time.Minute)
	b := NewTokenAuthority("secret-b", time.Minute)

	token, err := a.Issue("run-1")
	require.NoError(t, err)

	_, err = b.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	auth := NewTokenAuthority("s3cr3t", time.Minute)
	now := time.Now()
	claims := Claims{
		RunID: "run-1",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(auth.secret)
	require.NoError(t, err)

	_, err = auth.Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsGarbageToken(t *testing.T) {
	auth := NewTokenAuthority("s3cr3t", time.Minute)
	_, err := auth.Verify("not-a-jwt")
	assert.Error(t, err)
}
