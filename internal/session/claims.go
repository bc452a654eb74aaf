package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var ErrOpaqueToken = errors.New("credential is not a JWT")

// Claims is what a status display may show about the credential.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

// Expired reports whether the token carries an expiry in the past. It is
// informational only: requests never gate on it.
func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// DecodeClaims reads a JWT credential without verifying its signature; the
// client holds no key and the server stays the judge of validity.
func DecodeClaims(c domain.Credential) (Claims, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(c.String(), &claims); err != nil {
		return Claims{}, ErrOpaqueToken
	}

	out := Claims{Subject: claims.Subject}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}
