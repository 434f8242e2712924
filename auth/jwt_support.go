package auth

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// tokenExpiry reads the exp claim without verifying the signature; the
// client only needs to know when to ask for a new token. Opaque tokens fall
// back to expires_in, then to the configured TTL.
func tokenExpiry(token string, expiresIn time.Duration, fallback time.Duration, now time.Time) time.Time {
	if exp, ok := jwtExpiry(token); ok {
		return exp
	}
	if expiresIn > 0 {
		return now.Add(expiresIn)
	}
	return now.Add(fallback)
}

func jwtExpiry(token string) (time.Time, bool) {
	token = strings.TrimSpace(token)
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time.UTC(), true
}
