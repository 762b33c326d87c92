package session

import (
	"errors"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwt"
)

var errMalformedToken = errors.New("malformed access token")

// Claims is the subset of access-token claims the client cares about. The
// token is otherwise opaque to the client; signature verification is the
// backend's job.
type Claims struct {
	UserID    string
	SessionID string
	ExpiresAt time.Time
}

// decodeClaims parses the token without verifying its signature and extracts
// sub (user id), sid (session id) and exp.
func decodeClaims(raw string) (*Claims, error) {
	if raw == "" {
		return nil, errMalformedToken
	}
	tok, err := jwt.ParseInsecure([]byte(raw))
	if err != nil {
		return nil, errMalformedToken
	}

	claims := &Claims{
		UserID:    tok.Subject(),
		ExpiresAt: tok.Expiration(),
	}
	if sid, ok := tok.Get("sid"); ok {
		if s, ok := sid.(string); ok {
			claims.SessionID = s
		}
	}
	return claims, nil
}

// tokenExpired reports whether the token's exp claim is in the past. Any
// decode failure counts as expired (fail closed).
func tokenExpired(raw string, now time.Time) bool {
	claims, err := decodeClaims(raw)
	if err != nil {
		return true
	}
	if claims.ExpiresAt.IsZero() {
		return true
	}
	return !claims.ExpiresAt.After(now)
}
