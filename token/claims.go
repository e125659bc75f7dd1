// Package token reads bearer-token claims without verifying the signature.
// Verification is the server's job; the client only needs the payload for UX
// decisions such as renewal timing and greeting text.
package token

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of the token payload the client cares about.
type Claims struct {
	Subject   string    // user identifier (the portal uses the email address)
	Role      string    // role claim, if present
	TokenUse  string    // "access" or "refresh" on APIs that tag token purpose
	ExpiresAt time.Time // zero when the token carries no exp claim
	IssuedAt  time.Time // zero when the token carries no iat claim
}

type rawClaims struct {
	Role string `json:"role"`
	Type string `json:"type"`
	jwtlib.RegisteredClaims
}

// Decode parses the payload segment of tok. It returns nil when the token does
// not have the three dot-separated segments, the payload is not valid
// base64url, or the decoded payload is not a claim set. It never panics.
func Decode(tok string) *Claims {
	var rc rawClaims
	if _, _, err := jwtlib.NewParser().ParseUnverified(tok, &rc); err != nil {
		return nil
	}

	c := &Claims{
		Subject:  rc.Subject,
		Role:     rc.Role,
		TokenUse: rc.Type,
	}
	if rc.ExpiresAt != nil {
		c.ExpiresAt = rc.ExpiresAt.Time
	}
	if rc.IssuedAt != nil {
		c.IssuedAt = rc.IssuedAt.Time
	}
	return c
}

// IsExpired reports whether tok is expired at the given instant. Tokens that
// cannot be decoded or carry no exp claim are treated as expired.
func IsExpired(tok string, now time.Time) bool {
	c := Decode(tok)
	if c == nil || c.ExpiresAt.IsZero() {
		return true
	}
	return !c.ExpiresAt.After(now)
}

// Remaining returns the lifetime left on tok at the given instant. It returns
// zero for expired or undecodable tokens.
func Remaining(tok string, now time.Time) time.Duration {
	c := Decode(tok)
	if c == nil || c.ExpiresAt.IsZero() {
		return 0
	}
	if d := c.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
