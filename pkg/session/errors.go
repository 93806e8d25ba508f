package session

import "errors"

// Session errors.
var (
	// ErrNotConfigured is returned when session functionality is used
	// but no session manager was configured on the app.
	ErrNotConfigured = errors.New("session: not configured")

	// ErrNotFound is returned when a session does not exist.
	ErrNotFound = errors.New("session: not found")

	// ErrExpired is returned when a session has expired.
	ErrExpired = errors.New("session: expired")

	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("session: store unavailable")

	// ErrInvalidToken is returned when a session token is empty or malformed.
	ErrInvalidToken = errors.New("session: invalid token")
)
