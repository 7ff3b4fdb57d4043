package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is what the access token says about the session. Decoded
// client-side without signature verification: the backend is the verifier,
// the client only reads its own token for display and expiry hints.
type Identity struct {
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the access token is past its expiry.
func (id Identity) Expired() bool {
	return !id.ExpiresAt.IsZero() && time.Now().After(id.ExpiresAt)
}

// ParseIdentity decodes the access token's claims (sub = email, iat, exp).
func ParseIdentity(accessToken string) (Identity, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return Identity{}, fmt.Errorf("auth: parsing access token: %w", err)
	}

	var id Identity
	if sub, err := claims.GetSubject(); err == nil {
		id.Email = sub
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		id.IssuedAt = iat.Time
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}

	if id.Email == "" {
		return Identity{}, fmt.Errorf("auth: access token has no subject claim")
	}
	return id, nil
}
