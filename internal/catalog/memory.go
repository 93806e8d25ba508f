package catalog

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository keeps products in process memory.
type MemoryRepository struct {
	products []Product // newest first
	mu       sync.RWMutex
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// List implements Repository.
func (r *MemoryRepository) List(_ context.Context, page, size int) (Page, error) {
	page, size = normalizePage(page, size)

	r.mu.RLock()
	defer r.mu.RUnlock()

	start := min((page-1)*size, len(r.products))
	end := min(start+size, len(r.products))
	return Page{
		Products: slices.Clone(r.products[start:end]),
		Number:   page,
		HasNext:  end < len(r.products),
	}, nil
}

// ListByOwner implements Repository.
func (r *MemoryRepository) ListByOwner(_ context.Context, ownerID string) ([]Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Product
	for _, p := range r.products {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

// Get implements Repository.
func (r *MemoryRepository) Get(_ context.Context, id string) (*Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

// Create implements Repository.
func (r *MemoryRepository) Create(_ context.Context, in NewProduct) (*Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	p := Product{
		ID:          uuid.NewString(),
		OwnerID:     in.OwnerID,
		Title:       in.Title,
		Description: in.Description,
		ImageKey:    in.ImageKey,
		ImageURL:    in.ImageURL,
		PriceCents:  in.PriceCents,
		CreatedAt:   time.Now().UTC(),
	}

	r.mu.Lock()
	r.products = slices.Insert(r.products, 0, p)
	r.mu.Unlock()
	return &p, nil
}
