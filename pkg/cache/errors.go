package cache

import "errors"

// Sentinel errors for cache operations.
// ErrNotFound, ErrMarshal and ErrUnmarshal are declared in cache.go.
var (
	// ErrClosed is returned when an operation is attempted on a closed cache.
	ErrClosed = errors.New("cache: closed")
)
