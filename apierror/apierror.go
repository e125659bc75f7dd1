// Package apierror defines the error taxonomy shared by the API client and the
// session coordinator. Every failure surfaced by this SDK carries a Category so
// callers can decide between "fix your credentials", "retry later", and
// "re-authenticate" without string matching.
package apierror

import (
	"errors"
	"fmt"
)

// Category classifies a failure at the API boundary.
type Category string

const (
	// CategoryCredential means the server rejected the supplied username/password.
	CategoryCredential Category = "credential"
	// CategoryNetwork means the server could not be reached at all.
	CategoryNetwork Category = "network"
	// CategoryTimeout means the request exceeded its time budget.
	CategoryTimeout Category = "timeout"
	// CategoryAuthorization means an authenticated call was rejected (401) and
	// could not be recovered by a token refresh.
	CategoryAuthorization Category = "authorization"
	// CategoryMalformedResponse means the server answered with a payload that
	// failed schema validation.
	CategoryMalformedResponse Category = "malformed_response"
	// CategoryServer covers remaining server-side failures (5xx and the like).
	CategoryServer Category = "server"
)

// Common sentinel errors
var (
	ErrNoRefreshToken   = errors.New("no refresh token available")
	ErrSessionExpired   = errors.New("session expired")
	ErrTokenFileCorrupt = errors.New("token file corrupt")
)

// Error is a categorized API failure. StatusCode is zero when the request never
// completed (network trouble, timeout). RequestID echoes the client-generated
// request identifier for log correlation.
type Error struct {
	Category   Category
	StatusCode int
	Message    string
	RequestID  string
	cause      error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (%s, status %d)", e.Message, e.Category, e.StatusCode)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Category)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a categorized error without an underlying cause.
func New(cat Category, message string) *Error {
	return &Error{Category: cat, Message: message}
}

// Newf creates a categorized error with a formatted message.
func Newf(cat Category, format string, args ...any) *Error {
	return &Error{Category: cat, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a categorized error around an underlying cause.
func Wrap(cat Category, message string, cause error) *Error {
	return &Error{Category: cat, Message: message, cause: cause}
}

// WithStatus attaches the HTTP status code.
func (e *Error) WithStatus(code int) *Error {
	e.StatusCode = code
	return e
}

// WithRequestID attaches the request identifier.
func (e *Error) WithRequestID(id string) *Error {
	e.RequestID = id
	return e
}

// CategoryOf returns the category of err, or an empty Category when err does not
// carry one anywhere in its chain.
func CategoryOf(err error) Category {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Category
	}
	return ""
}

// Is reports whether err carries the given category.
func Is(err error, cat Category) bool {
	return CategoryOf(err) == cat
}

// IsTransient reports whether err looks like transient transport trouble that a
// later retry might resolve (network or timeout).
func IsTransient(err error) bool {
	c := CategoryOf(err)
	return c == CategoryNetwork || c == CategoryTimeout
}
