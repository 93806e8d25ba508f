// Package catalog stores the products sold by the storefront.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// Errors.
var (
	ErrNotFound    = errors.New("catalog: product not found")
	ErrInvalid     = errors.New("catalog: invalid product")
	ErrUnavailable = errors.New("catalog: store unavailable")
)

const maxTitleLength = 200

// Product is an item for sale.
type Product struct {
	CreatedAt   time.Time `json:"created_at"`
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"` // markdown
	ImageKey    string    `json:"image_key,omitempty"`
	ImageURL    string    `json:"image_url,omitempty"`
	PriceCents  int64     `json:"price_cents"`
}

// NewProduct is the input to Create.
type NewProduct struct {
	OwnerID     string
	Title       string
	Description string
	ImageKey    string
	ImageURL    string
	PriceCents  int64
}

// Validate trims the input and checks it.
func (p *NewProduct) Validate() error {
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)

	switch {
	case p.OwnerID == "":
		return errors.Join(ErrInvalid, errors.New("owner is required"))
	case p.Title == "":
		return errors.Join(ErrInvalid, errors.New("title is required"))
	case utf8.RuneCountInString(p.Title) > maxTitleLength:
		return errors.Join(ErrInvalid, errors.New("title is too long"))
	case p.PriceCents < 0:
		return errors.Join(ErrInvalid, errors.New("price must not be negative"))
	}
	return nil
}

// Page is one page of a listing.
type Page struct {
	Products []Product `json:"products"`
	Number   int       `json:"number"`
	HasNext  bool      `json:"has_next"`
}

// Repository reads and writes products.
type Repository interface {
	// List returns page number (1-based) of all products, newest first.
	List(ctx context.Context, page, size int) (Page, error)
	// ListByOwner returns the products of one owner, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]Product, error)
	Get(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, p NewProduct) (*Product, error)
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 12
	}
	return page, size
}
