package identity

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var unverified = jwt.NewParser()

// claimsOf reads subject and expiry from a JWT access token without checking
// its signature; the backend is the only verifier. Opaque tokens yield zero
// values.
func claimsOf(accessToken string) (subject string, expiresAt time.Time) {
	var claims jwt.RegisteredClaims
	if _, _, err := unverified.ParseUnverified(accessToken, &claims); err != nil {
		return "", time.Time{}
	}
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return claims.Subject, expiresAt
}
