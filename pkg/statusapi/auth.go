package statusapi

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the token payload the status API issues and verifies. The
// teacher's JWTService signs with an RSA keypair appropriate for a
// multi-service cluster; a single scheduler process has no key
// distribution problem to solve, so this is simplified to a shared HMAC
// secret (§4.12 of SPEC_FULL.md documents the simplification).
type Claims struct {
	RunID string `json:"run_id"`
	jwt.RegisteredClaims
}

// TokenAuthority issues and verifies bearer tokens for the status API.
type TokenAuthority struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenAuthority creates a TokenAuthority. secret must be non-empty;
// an empty secret means the status API runs unauthenticated.
func NewTokenAuthority(secret string, ttl time.Duration) *TokenAuthority {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenAuthority{secret: []byte(secret), ttl: ttl}
}

// Enabled reports whether a secret was configured.
func (a *TokenAuthority) Enabled() bool { return len(a.secret) > 0 }

// Issue mints a bearer token scoped to runID.
func (a *TokenAuthority) Issue(runID string) (string, error) {
	now := time.Now()
	claims := Claims{
		RunID: runID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// Verify parses and validates a bearer token, returning its claims.
func (a *TokenAuthority) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
