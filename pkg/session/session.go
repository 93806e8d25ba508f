package session

import (
	"errors"
	"time"
)

// Session is the server-side state attached to a browser through a signed cookie.
type Session struct {
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	ExpiresAt    time.Time `json:"expires_at"`

	UserID        *string        `json:"user_id,omitempty"` // nil = anonymous session
	Values        map[string]any `json:"values,omitempty"`
	ID            string         `json:"id"`    // stable across token rotation
	Token         string         `json:"token"` // cookie token, store key
	CSRFSecret    string         `json:"csrf_secret"`
	Authenticated bool           `json:"is_authenticated"`

	previousToken string // token replaced by Rotate, deleted on commit
	dirty         bool
	isNew         bool
	destroyed     bool
}

// New creates a new session with the given ID, token and anti-forgery secret.
func New(id, token, csrfSecret string, expiresAt time.Time) *Session {
	now := time.Now()
	return &Session{
		ID:           id,
		Token:        token,
		CSRFSecret:   csrfSecret,
		Values:       make(map[string]any),
		CreatedAt:    now,
		LastActiveAt: now,
		ExpiresAt:    expiresAt,
		isNew:        true,
		dirty:        true,
	}
}

// IsAuthenticated returns true if the session has an associated user.
func (s *Session) IsAuthenticated() bool {
	return s.Authenticated && s.UserID != nil && *s.UserID != ""
}

// Authenticate binds the session to the given identity reference.
func (s *Session) Authenticate(userID string) {
	s.UserID = &userID
	s.Authenticated = true
	s.dirty = true
}

// Logout clears the identity reference. The session itself stays usable as an anonymous one.
func (s *Session) Logout() {
	if s.UserID == nil && !s.Authenticated {
		return
	}
	s.UserID = nil
	s.Authenticated = false
	s.dirty = true
}

// Rotate replaces the token and the anti-forgery secret.
// The previous token is kept until the session is committed so that its record can be removed.
func (s *Session) Rotate(token, csrfSecret string) {
	if s.previousToken == "" && !s.isNew {
		s.previousToken = s.Token
	}
	s.Token = token
	s.CSRFSecret = csrfSecret
	s.dirty = true
}

// PreviousToken returns the token replaced by Rotate, or an empty string.
func (s *Session) PreviousToken() string {
	return s.previousToken
}

// Rotated reports whether the token changed since the session was loaded.
func (s *Session) Rotated() bool {
	return s.previousToken != ""
}

// Destroy marks the session for removal on commit.
func (s *Session) Destroy() {
	s.destroyed = true
	s.UserID = nil
	s.Authenticated = false
}

// IsDestroyed reports whether Destroy was called.
func (s *Session) IsDestroyed() bool {
	return s.destroyed
}

// SetValue stores a value in the session.
// Marks the session as dirty for automatic saving.
func (s *Session) SetValue(key string, val any) {
	if s.Values == nil {
		s.Values = make(map[string]any)
	}
	s.Values[key] = val
	s.dirty = true
}

// GetValue retrieves a value from the session.
func (s *Session) GetValue(key string) (any, bool) {
	if s.Values == nil {
		return nil, false
	}
	val, ok := s.Values[key]
	return val, ok
}

// DeleteValue removes a value from the session.
// Marks the session as dirty only if the key existed.
func (s *Session) DeleteValue(key string) {
	if s.Values == nil {
		return
	}
	if _, exists := s.Values[key]; exists {
		delete(s.Values, key)
		s.dirty = true
	}
}

// IsDirty returns true if the session has unsaved changes.
func (s *Session) IsDirty() bool {
	return s.dirty
}

// MarkDirty marks the session as needing to be saved.
func (s *Session) MarkDirty() {
	s.dirty = true
}

// IsNew returns true if the session was created during the current request.
func (s *Session) IsNew() bool {
	return s.isNew
}

// MarkSaved resets the per-request flags once the session has been persisted.
func (s *Session) MarkSaved() {
	s.dirty = false
	s.isNew = false
	s.previousToken = ""
}

// IsExpired reports whether the session has expired at the given instant.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// TTL returns the remaining lifetime of the session at the given instant.
func (s *Session) TTL(now time.Time) time.Duration {
	return s.ExpiresAt.Sub(now)
}

// Value is a typed helper to retrieve session values with type safety.
// Returns an error if the key doesn't exist or type assertion fails.
func Value[T any](s *Session, key string) (T, error) {
	var zero T
	if s == nil {
		return zero, ErrNotFound
	}

	val, ok := s.GetValue(key)
	if !ok {
		return zero, ErrNotFound
	}

	typed, ok := val.(T)
	if !ok {
		return zero, errors.New("session: type mismatch for key: " + key)
	}

	return typed, nil
}

// ValueOr is a typed helper that returns a default value if the key
// doesn't exist or type assertion fails.
func ValueOr[T any](s *Session, key string, defaultVal T) T {
	val, err := Value[T](s, key)
	if err != nil {
		return defaultVal
	}
	return val
}
