package session

import (
	"context"
	"encoding/json"
	"fmt"
)

// Store defines the interface for session persistence.
// Records are keyed by session token. Writes are last-writer-wins.
type Store interface {
	// Get retrieves a session by its token.
	// Returns ErrNotFound if the session doesn't exist.
	// Returns ErrExpired if the session has expired.
	// Any other error means the store could not be reached and wraps ErrUnavailable.
	Get(ctx context.Context, token string) (*Session, error)

	// Save writes the session under its current token.
	// The record lives until the session's ExpiresAt.
	Save(ctx context.Context, s *Session) error

	// Delete removes the record stored under the token.
	// Deleting an unknown token is not an error.
	Delete(ctx context.Context, token string) error
}

// Purger is implemented by stores that keep expired records until they are swept.
type Purger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

func encode(s *Session) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("session: encode: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: corrupt record: %v", ErrNotFound, err)
	}
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	return &s, nil
}
