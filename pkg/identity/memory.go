package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps identities in process memory.
type MemoryStore struct {
	byID    map[string]Identity
	byEmail map[string]string
	mu      sync.RWMutex
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]Identity),
		byEmail: make(map[string]string),
	}
}

// FindByID implements Store.
func (s *MemoryStore) FindByID(_ context.Context, id string) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ident, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &ident, nil
}

// FindByEmail implements Accounts.
func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	s.mu.RLock()
	id, ok := s.byEmail[NormalizeEmail(email)]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	return s.FindByID(ctx, id)
}

// Create implements Accounts.
func (s *MemoryStore) Create(_ context.Context, email, name, passwordHash string) (*Identity, error) {
	email = NormalizeEmail(email)
	if email == "" || passwordHash == "" {
		return nil, ErrInvalid
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[email]; taken {
		return nil, ErrEmailTaken
	}

	ident := Identity{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	s.byID[ident.ID] = ident
	s.byEmail[email] = ident.ID
	return &ident, nil
}

// Delete removes an identity. Sessions still referencing it resolve as anonymous.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ident, ok := s.byID[id]; ok {
		delete(s.byEmail, ident.Email)
		delete(s.byID, id)
	}
}
