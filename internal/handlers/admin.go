package handlers

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrymomot/storefront/internal"
	"github.com/dmitrymomot/storefront/internal/catalog"
	"github.com/dmitrymomot/storefront/internal/views"
	"github.com/dmitrymomot/storefront/pkg/sanitizer"
)

// Admin lets a logged-in user manage their products.
type Admin struct {
	products catalog.Repository
}

// NewAdmin creates the product admin handler.
func NewAdmin(products catalog.Repository) *Admin {
	return &Admin{products: products}
}

// Routes implements internal.Handler.
func (h *Admin) Routes(r internal.Router) {
	r.Route("/admin", func(r internal.Router) {
		r.Use(RequireAuth)
		r.GET("/add-product", h.addForm)
		r.POST("/add-product", h.add)
		r.GET("/products", h.list)
	})
}

func (h *Admin) addForm(c internal.Context) error {
	return c.Render(http.StatusOK, views.AddProduct(page(c), views.ProductForm{}))
}

func (h *Admin) add(c internal.Context) error {
	form := views.ProductForm{
		Title:       sanitizer.StripHTML(c.Form("title")),
		Price:       strings.TrimSpace(c.Form("price")),
		Description: c.Form("description"),
	}

	in := catalog.NewProduct{
		OwnerID:     c.UserID(),
		Title:       form.Title,
		Description: form.Description,
	}
	cents, ok := parsePrice(form.Price)
	if !ok {
		return h.reject(c, form, "Please enter a valid price.")
	}
	in.PriceCents = cents
	if up := c.Upload(); up != nil {
		in.ImageKey = up.Key
		in.ImageURL = up.Location
	}

	p, err := h.products.Create(c, in)
	if errors.Is(err, catalog.ErrInvalid) {
		return h.reject(c, form, "Please check the title and price.")
	}
	if err != nil {
		return err
	}

	c.LogInfo("product created", slog.String("product_id", p.ID), slog.Bool("image", p.ImageKey != ""))
	return c.Redirect(http.StatusSeeOther, "/admin/products")
}

func (h *Admin) reject(c internal.Context, form views.ProductForm, msg string) error {
	p := page(c)
	p.Flash = msg
	return c.Render(http.StatusUnprocessableEntity, views.AddProduct(p, form))
}

func (h *Admin) list(c internal.Context) error {
	products, err := h.products.ListByOwner(c, c.UserID())
	if err != nil {
		return err
	}
	return c.Render(http.StatusOK, views.AdminProducts(page(c), products))
}

// parsePrice reads a dollar amount such as "19.99" into cents.
func parsePrice(s string) (int64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || math.IsInf(f, 0) || math.IsNaN(f) || f > 1e9 {
		return 0, false
	}
	return int64(math.Round(f * 100)), true
}
