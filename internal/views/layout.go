// Package views renders the storefront pages as templ components.
package views

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// Page is the data every page shares.
type Page struct {
	Title     string
	CSRFToken string
	UserName  string
	Flash     string
	LoggedIn  bool
}

// Layout wraps body in the document shell and navigation.
func Layout(p Page, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		title := "Storefront"
		if p.Title != "" {
			title = p.Title + " | Storefront"
		}
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`+
			`<meta name="viewport" content="width=device-width, initial-scale=1">`+
			`<title>%s</title><link rel="stylesheet" href="/static/main.css"></head><body>`,
			templ.EscapeString(title)); err != nil {
			return err
		}
		if err := nav(p).Render(ctx, w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, `<main>`); err != nil {
			return err
		}
		if p.Flash != "" {
			if _, err := fmt.Fprintf(w, `<div class="flash" role="alert">%s</div>`, templ.EscapeString(p.Flash)); err != nil {
				return err
			}
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</main></body></html>`)
		return err
	})
}

func nav(p Page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<header class="main-header"><nav><a href="/">Shop</a>`); err != nil {
			return err
		}
		if !p.LoggedIn {
			_, err := io.WriteString(w, `<a href="/login">Login</a><a href="/signup">Signup</a></nav></header>`)
			return err
		}
		if _, err := fmt.Fprintf(w, `<a href="/admin/add-product">Add Product</a><a href="/admin/products">My Products</a>`+
			`<span class="user">%s</span>`, templ.EscapeString(p.UserName)); err != nil {
			return err
		}
		if err := logoutForm(p.CSRFToken).Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</nav></header>`)
		return err
	})
}

func logoutForm(token string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<form action="/logout" method="POST" class="inline">%s<button type="submit">Logout</button></form>`,
			csrfField(token))
		return err
	})
}

// csrfField returns the hidden input forms post back as _csrf.
func csrfField(token string) string {
	return `<input type="hidden" name="_csrf" value="` + templ.EscapeString(token) + `">`
}

// FormatPrice renders cents as a dollar amount.
func FormatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign, cents = "-", -cents
	}
	frac := strconv.FormatInt(cents%100, 10)
	if len(frac) == 1 {
		frac = "0" + frac
	}
	return sign + "$" + strconv.FormatInt(cents/100, 10) + "." + frac
}
