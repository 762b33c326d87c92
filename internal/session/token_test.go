package session

import (
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, userID, sessionID string, exp time.Time) string {
	t.Helper()

	builder := jwt.NewBuilder().Subject(userID).IssuedAt(time.Now())
	if sessionID != "" {
		builder = builder.Claim("sid", sessionID)
	}
	if !exp.IsZero() {
		builder = builder.Expiration(exp)
	}

	tok, err := builder.Build()
	require.NoError(t, err)

	signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("test-signing-key")))
	require.NoError(t, err)
	return string(signed)
}

func TestDecodeClaims(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	raw := signedToken(t, "user-1", "sess-1", exp)

	claims, err := decodeClaims(raw)
	require.NoError(t, err)

	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.True(t, claims.ExpiresAt.Equal(exp))
}

func TestDecodeClaimsWithoutSid(t *testing.T) {
	raw := signedToken(t, "user-1", "", time.Now().Add(time.Minute))

	claims, err := decodeClaims(raw)
	require.NoError(t, err)
	assert.Empty(t, claims.SessionID)
}

func TestDecodeClaimsMalformed(t *testing.T) {
	for _, raw := range []string{"", "not-a-token", "a.b.c"} {
		_, err := decodeClaims(raw)
		assert.Error(t, err, "input %q", raw)
	}
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()

	valid := signedToken(t, "u", "s", now.Add(time.Hour))
	assert.False(t, tokenExpired(valid, now))

	expired := signedToken(t, "u", "s", now.Add(-time.Minute))
	assert.True(t, tokenExpired(expired, now))
}

func TestTokenExpiredFailsClosed(t *testing.T) {
	now := time.Now()

	// Garbage counts as expired.
	assert.True(t, tokenExpired("garbage", now))

	// A token with no exp claim counts as expired.
	noExp := signedToken(t, "u", "s", time.Time{})
	assert.True(t, tokenExpired(noExp, now))
}
