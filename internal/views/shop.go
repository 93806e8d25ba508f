package views

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/storefront/internal/catalog"
	"github.com/dmitrymomot/storefront/pkg/sanitizer"
)

// Index lists one page of products.
func Index(p Page, listing catalog.Page) templ.Component {
	p.Title = "Shop"
	return Layout(p, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(listing.Products) == 0 {
			_, err := io.WriteString(w, `<h1>No Products Found!</h1>`)
			return err
		}
		if err := productGrid(listing.Products, false).Render(ctx, w); err != nil {
			return err
		}
		return pagination(listing).Render(ctx, w)
	}))
}

// Product shows a single product with its rendered description.
func Product(p Page, product catalog.Product) templ.Component {
	p.Title = product.Title
	return Layout(p, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<article class="product-detail"><h1>%s</h1>`, templ.EscapeString(product.Title)); err != nil {
			return err
		}
		if err := image(product).Render(ctx, w); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, `<h2 class="price">%s</h2>`, FormatPrice(product.PriceCents)); err != nil {
			return err
		}
		desc, err := sanitizer.Markdown(product.Description)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, `<div class="description">%s</div></article>`, desc); err != nil {
			return err
		}
		return nil
	}))
}

// AdminProducts lists the products owned by the current user.
func AdminProducts(p Page, products []catalog.Product) templ.Component {
	p.Title = "Admin Products"
	return Layout(p, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if len(products) == 0 {
			_, err := io.WriteString(w, `<h1>No Products Found!</h1><p><a href="/admin/add-product">Add your first product</a></p>`)
			return err
		}
		return productGrid(products, true).Render(ctx, w)
	}))
}

// AddProduct is the product form. The image travels as the multipart field "image".
func AddProduct(p Page, form ProductForm) templ.Component {
	p.Title = "Add Product"
	return Layout(p, templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<form class="product-form" action="/admin/add-product" method="POST" enctype="multipart/form-data">%s`+
			`<label for="title">Title</label><input type="text" name="title" id="title" value="%s" required>`+
			`<label for="image">Image</label><input type="file" name="image" id="image" accept="image/png,image/jpeg">`+
			`<label for="price">Price</label><input type="number" name="price" id="price" step="0.01" min="0" value="%s" required>`+
			`<label for="description">Description</label><textarea name="description" id="description" rows="5">%s</textarea>`+
			`<button type="submit">Add Product</button></form>`,
			csrfField(p.CSRFToken),
			templ.EscapeString(form.Title),
			templ.EscapeString(form.Price),
			templ.EscapeString(form.Description),
		)
		return err
	}))
}

// ProductForm holds submitted values so the form can be shown again after an error.
type ProductForm struct {
	Title       string
	Price       string
	Description string
}

func productGrid(products []catalog.Product, admin bool) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<div class="grid">`); err != nil {
			return err
		}
		for _, product := range products {
			if _, err := fmt.Fprintf(w, `<article class="card product-item"><header class="card__header"><h1 class="product__title">%s</h1></header>`,
				templ.EscapeString(product.Title)); err != nil {
				return err
			}
			if err := image(product).Render(ctx, w); err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, `<div class="card__content"><h2 class="product__price">%s</h2></div>`+
				`<div class="card__actions"><a class="btn" href="%s">Details</a></div>`,
				FormatPrice(product.PriceCents),
				templ.EscapeString(string(templ.URL("/products/"+product.ID))),
			); err != nil {
				return err
			}
			if admin {
				if _, err := io.WriteString(w, `<span class="badge">yours</span>`); err != nil {
					return err
				}
			}
			if _, err := io.WriteString(w, `</article>`); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</div>`)
		return err
	})
}

func image(product catalog.Product) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if product.ImageURL == "" {
			_, err := io.WriteString(w, `<div class="card__image card__image--empty"></div>`)
			return err
		}
		_, err := fmt.Fprintf(w, `<div class="card__image"><img src="%s" alt="%s"></div>`,
			templ.EscapeString(string(templ.URL(product.ImageURL))),
			templ.EscapeString(product.Title))
		return err
	})
}

func pagination(listing catalog.Page) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		if listing.Number <= 1 && !listing.HasNext {
			return nil
		}
		if _, err := io.WriteString(w, `<nav class="pagination">`); err != nil {
			return err
		}
		if listing.Number > 1 {
			if _, err := fmt.Fprintf(w, `<a href="/?page=%s">Previous</a>`, strconv.Itoa(listing.Number-1)); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, `<span class="active">%d</span>`, listing.Number); err != nil {
			return err
		}
		if listing.HasNext {
			if _, err := fmt.Fprintf(w, `<a href="/?page=%s">Next</a>`, strconv.Itoa(listing.Number+1)); err != nil {
				return err
			}
		}
		_, err := io.WriteString(w, `</nav>`)
		return err
	})
}
