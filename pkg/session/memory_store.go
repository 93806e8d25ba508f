package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for development and tests.
// Records are stored encoded so callers never share state through it.
type MemoryStore struct {
	records map[string]memoryRecord
	now     func() time.Time
	mu      sync.RWMutex
}

type memoryRecord struct {
	expiresAt time.Time
	data      []byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]memoryRecord),
		now:     time.Now,
	}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}

	s.mu.RLock()
	rec, ok := s.records[token]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if !s.now().Before(rec.expiresAt) {
		return nil, ErrExpired
	}
	return decode(rec.data)
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, sess *Session) error {
	if sess == nil || sess.Token == "" {
		return ErrInvalidToken
	}

	data, err := encode(sess)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.records[sess.Token] = memoryRecord{data: data, expiresAt: sess.ExpiresAt}
	s.mu.Unlock()
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	delete(s.records, token)
	s.mu.Unlock()
	return nil
}

// DeleteExpired implements Purger.
func (s *MemoryStore) DeleteExpired(_ context.Context) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for token, rec := range s.records {
		if !now.Before(rec.expiresAt) {
			delete(s.records, token)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored records, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
