package handlers

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/storefront/internal"
	"github.com/dmitrymomot/storefront/internal/catalog"
	"github.com/dmitrymomot/storefront/internal/views"
)

// Shop serves the public catalog.
type Shop struct {
	products catalog.Repository
	pageSize int
}

// NewShop creates the catalog handler.
func NewShop(products catalog.Repository, pageSize int) *Shop {
	return &Shop{products: products, pageSize: pageSize}
}

// Routes implements internal.Handler.
func (h *Shop) Routes(r internal.Router) {
	r.GET("/", h.index)
	r.GET("/products/{id}", h.product)
	r.GET("/500", ServerError)
}

func (h *Shop) index(c internal.Context) error {
	listing, err := h.products.List(c, internal.QueryDefault(c, "page", 1), h.pageSize)
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, views.Index(page(c), listing))
}

func (h *Shop) product(c internal.Context) error {
	p, err := h.products.Get(c, c.Param("id"))
	if errors.Is(err, catalog.ErrNotFound) {
		return internal.ErrNotFound("Product Not Found")
	}
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, views.Product(page(c), *p))
}
