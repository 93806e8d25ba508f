// Package identity defines user identity records and the stores that resolve them.
//
// Stores signal absence with [ErrNotFound] and nothing else. Any other error means
// the store could not answer and wraps [ErrUnavailable].
package identity

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Errors.
var (
	ErrNotFound    = errors.New("identity: not found")
	ErrUnavailable = errors.New("identity: store unavailable")
	ErrEmailTaken  = errors.New("identity: email already registered")
	ErrInvalid     = errors.New("identity: invalid input")
)

// Identity is a registered user.
type Identity struct {
	CreatedAt    time.Time
	ID           string
	Email        string
	Name         string
	PasswordHash string `json:"-"`
}

// Store resolves identities by reference.
type Store interface {
	FindByID(ctx context.Context, id string) (*Identity, error)
}

// Accounts is the read/write surface used by signup and login.
type Accounts interface {
	Store
	FindByEmail(ctx context.Context, email string) (*Identity, error)
	Create(ctx context.Context, email, name, passwordHash string) (*Identity, error)
}

// NormalizeEmail lowercases and trims an address for lookups and uniqueness.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
