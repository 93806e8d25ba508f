package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/storefront/internal"
	"github.com/dmitrymomot/storefront/internal/tasks"
	"github.com/dmitrymomot/storefront/internal/views"
	"github.com/dmitrymomot/storefront/pkg/identity"
	"github.com/dmitrymomot/storefront/pkg/job"
	"github.com/dmitrymomot/storefront/pkg/password"
	"github.com/dmitrymomot/storefront/pkg/sanitizer"
)

const invalidCredentials = "Invalid email or password."

// Auth handles signup, login and logout.
type Auth struct {
	accounts identity.Accounts
	hasher   *password.Hasher
}

// NewAuth creates the account handler.
func NewAuth(accounts identity.Accounts, hasher *password.Hasher) *Auth {
	return &Auth{accounts: accounts, hasher: hasher}
}

// Routes implements internal.Handler.
func (h *Auth) Routes(r internal.Router) {
	r.GET("/login", h.loginForm)
	r.POST("/login", h.login)
	r.GET("/signup", h.signupForm)
	r.POST("/signup", h.signup)
	r.POST("/logout", h.logout)
}

func (h *Auth) loginForm(c internal.Context) error {
	if c.IsAuthenticated() {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return c.Render(http.StatusOK, views.Login(page(c), ""))
}

func (h *Auth) login(c internal.Context) error {
	email := identity.NormalizeEmail(c.Form("email"))

	user, err := h.accounts.FindByEmail(c, email)
	if errors.Is(err, identity.ErrNotFound) {
		return redirectWithFlash(c, "/login", invalidCredentials)
	}
	if err != nil {
		return err
	}

	switch err := h.hasher.Verify(c.Form("password"), user.PasswordHash); {
	case errors.Is(err, password.ErrMismatch):
		return redirectWithFlash(c, "/login", invalidCredentials)
	case err != nil:
		return err
	}

	if err := c.AuthenticateSession(user.ID); err != nil {
		return err
	}
	c.LogInfo("user logged in", slog.String("user_id", user.ID))
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *Auth) signupForm(c internal.Context) error {
	if c.IsAuthenticated() {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return c.Render(http.StatusOK, views.Signup(page(c), "", ""))
}

func (h *Auth) signup(c internal.Context) error {
	email := identity.NormalizeEmail(c.Form("email"))
	name := sanitizer.StripHTML(c.Form("name"))
	pass := c.Form("password")

	p := page(c)
	switch {
	case email == "":
		p.Flash = "Please enter an email address."
	case pass != c.Form("confirmPassword"):
		p.Flash = "Passwords have to match."
	}
	if p.Flash != "" {
		return c.Render(http.StatusUnprocessableEntity, views.Signup(p, email, name))
	}

	hash, err := h.hasher.Hash(pass)
	if errors.Is(err, password.ErrTooShort) {
		p.Flash = "Password must be at least 8 characters."
		return c.Render(http.StatusUnprocessableEntity, views.Signup(p, email, name))
	}
	if err != nil {
		return err
	}

	user, err := h.accounts.Create(c, email, name, hash)
	switch {
	case errors.Is(err, identity.ErrEmailTaken):
		p.Flash = "E-Mail exists already, please pick a different one."
		return c.Render(http.StatusUnprocessableEntity, views.Signup(p, email, name))
	case errors.Is(err, identity.ErrInvalid):
		p.Flash = "Please enter a valid email address."
		return c.Render(http.StatusUnprocessableEntity, views.Signup(p, email, name))
	case err != nil:
		return err
	}

	// Signup succeeds even when the welcome email cannot be queued.
	if err := c.Enqueue(tasks.SendWelcomeEmailName,
		tasks.WelcomePayload{Email: user.Email, Name: user.Name},
		job.MaxAttempts(5),
	); err != nil {
		c.LogWarn("welcome email not enqueued", slog.String("user_id", user.ID), slog.Any("error", err))
	}

	return redirectWithFlash(c, "/login", "Account created, please log in.")
}

func (h *Auth) logout(c internal.Context) error {
	if err := c.Logout(); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}
