// Package store persists the session's token pair. Backends differ in
// durability and sharing (in-memory, file on disk, Redis) but all guarantee
// that the access and refresh token are written and removed together, and all
// can notify watchers when the stored keys change underneath them. That signal
// is how the session coordinator follows logins and logouts performed by
// another process.
package store

import "context"

// Keys under which session material is stored. The key names are part of the
// on-disk and Redis layout, so changing them invalidates existing sessions.
const (
	KeyAccessToken        = "access_token"
	KeyRefreshToken       = "refresh_token"
	KeyRememberedUsername = "remembered_username"
)

// Event describes a change to a stored key, observed either locally or from
// another process sharing the same backend.
type Event struct {
	Key     string `json:"key"`
	Present bool   `json:"present"` // false when the key was removed
}

// Store is durable key-value storage for the token pair and the optional
// remembered username. Implementations perform no validation; they are purely
// mechanical.
//
// SetTokens is atomic: a concurrent reader observes either both tokens or
// neither. Clear removes both tokens in one step.
type Store interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	SetTokens(ctx context.Context, access, refresh string) error
	Clear(ctx context.Context) error

	RememberedUsername(ctx context.Context) (string, error)
	// SetRememberedUsername stores the username; an empty value removes it.
	SetRememberedUsername(ctx context.Context, username string) error

	// Watch delivers change events until ctx is cancelled. Slow consumers may
	// miss events; the channel is closed when the watch ends.
	Watch(ctx context.Context) <-chan Event
}
