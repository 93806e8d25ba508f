package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrymomot/storefront/pkg/cache"
)

// CachedRepository serves the public listing from a cache.
// Create drops the first page of the configured size so new items show up at
// once; deeper pages catch up when their TTL runs out.
type CachedRepository struct {
	Repository
	pages    cache.Cache[Page]
	ttl      time.Duration
	pageSize int
}

// NewCachedRepository wraps next with a listing cache.
func NewCachedRepository(next Repository, pages cache.Cache[Page], ttl time.Duration, pageSize int) *CachedRepository {
	_, pageSize = normalizePage(1, pageSize)
	return &CachedRepository{Repository: next, pages: pages, ttl: ttl, pageSize: pageSize}
}

// List implements Repository.
func (r *CachedRepository) List(ctx context.Context, page, size int) (Page, error) {
	page, size = normalizePage(page, size)
	return cache.GetOrSet(ctx, r.pages, pageKey(page, size), r.ttl, func(ctx context.Context) (Page, error) {
		return r.Repository.List(ctx, page, size)
	})
}

// Create implements Repository.
func (r *CachedRepository) Create(ctx context.Context, in NewProduct) (*Product, error) {
	p, err := r.Repository.Create(ctx, in)
	if err != nil {
		return nil, err
	}
	// A stale first page is tolerable, the product itself was stored.
	_ = r.pages.Delete(ctx, pageKey(1, r.pageSize))
	return p, nil
}

func pageKey(page, size int) string {
	return fmt.Sprintf("catalog:page:%d:%d", size, page)
}
