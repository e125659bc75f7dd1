package token_test

import (
	"encoding/base64"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/i9smart/go-campaigns-client/token"
	"github.com/stretchr/testify/require"
)

const signingSecret = "test-secret"

func mintToken(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()

	tok, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte(signingSecret))
	require.NoError(t, err)
	return tok
}

func TestDecode(t *testing.T) {
	now := time.Now()
	exp := now.Add(30 * time.Minute)

	tok := mintToken(t, jwtlib.MapClaims{
		"sub":  "jane@example.com",
		"role": "editor",
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	})

	claims := token.Decode(tok)
	require.NotNil(t, claims)
	require.Equal(t, "jane@example.com", claims.Subject)
	require.Equal(t, "editor", claims.Role)
	require.WithinDuration(t, exp, claims.ExpiresAt, time.Second)
	require.WithinDuration(t, now, claims.IssuedAt, time.Second)
}

func TestDecodeMalformed(t *testing.T) {
	badPayload := "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString([]byte("not json")) + ".sig"

	cases := map[string]string{
		"empty":            "",
		"no dots":          "justonestring",
		"two segments":     "aaaa.bbbb",
		"four segments":    "a.b.c.d",
		"invalid base64":   "aaaa.!!!.cccc",
		"non-json payload": badPayload,
	}

	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			require.Nil(t, token.Decode(tok))
		})
	}
}

func TestIsExpired(t *testing.T) {
	now := time.Now()

	future := mintToken(t, jwtlib.MapClaims{"sub": "u", "exp": now.Add(time.Hour).Unix()})
	past := mintToken(t, jwtlib.MapClaims{"sub": "u", "exp": now.Add(-time.Hour).Unix()})
	noExp := mintToken(t, jwtlib.MapClaims{"sub": "u"})

	require.False(t, token.IsExpired(future, now))
	require.True(t, token.IsExpired(past, now))
	require.True(t, token.IsExpired(noExp, now))
	require.True(t, token.IsExpired("garbage", now))
}

func TestIsExpiredAtBoundary(t *testing.T) {
	now := time.Unix(1700000000, 0)
	atBoundary := mintToken(t, jwtlib.MapClaims{"sub": "u", "exp": now.Unix()})

	// exp at or before now counts as expired.
	require.True(t, token.IsExpired(atBoundary, now))
	require.False(t, token.IsExpired(atBoundary, now.Add(-time.Second)))
}

func TestRemaining(t *testing.T) {
	now := time.Now()
	tok := mintToken(t, jwtlib.MapClaims{"sub": "u", "exp": now.Add(25 * time.Minute).Unix()})

	remaining := token.Remaining(tok, now)
	require.InDelta(t, (25 * time.Minute).Seconds(), remaining.Seconds(), 1)

	require.Zero(t, token.Remaining("garbage", now))
	require.Zero(t, token.Remaining(tok, now.Add(time.Hour)))
}
