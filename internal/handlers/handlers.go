// Package handlers holds the storefront routes: the shop, accounts and product admin.
package handlers

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/storefront/internal"
	"github.com/dmitrymomot/storefront/internal/views"
)

const flashKey = "flash"

// page collects what every view needs from the request.
func page(c internal.Context) views.Page {
	p := views.Page{CSRFToken: c.CSRFToken()}
	if id := c.Identity(); id != nil {
		p.LoggedIn = true
		p.UserName = id.Name
		if p.UserName == "" {
			p.UserName = id.Email
		}
	}
	var msg string
	if err := c.Flash(flashKey, &msg); err == nil {
		p.Flash = msg
	}
	return p
}

// redirectWithFlash stores msg for the next page and sends the browser to url.
func redirectWithFlash(c internal.Context, url, msg string) error {
	if err := c.SetFlash(flashKey, msg); err != nil {
		c.LogWarn("flash not set", slog.Any("error", err))
	}
	return c.Redirect(http.StatusSeeOther, url)
}

// RequireAuth sends anonymous visitors to the login page.
func RequireAuth(next internal.HandlerFunc) internal.HandlerFunc {
	return func(c internal.Context) error {
		if !c.IsAuthenticated() {
			return redirectWithFlash(c, "/login", "Please log in to continue.")
		}
		return next(c)
	}
}
