package views

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// Login is the login form.
func Login(p Page, email string) templ.Component {
	p.Title = "Login"
	return Layout(p, templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<form class="login-form" action="/login" method="POST">%s`+
			`<label for="email">E-Mail</label><input type="email" name="email" id="email" value="%s" required>`+
			`<label for="password">Password</label><input type="password" name="password" id="password" required>`+
			`<button type="submit">Login</button></form>`,
			csrfField(p.CSRFToken), templ.EscapeString(email))
		return err
	}))
}

// Signup is the account creation form.
func Signup(p Page, email, name string) templ.Component {
	p.Title = "Signup"
	return Layout(p, templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<form class="login-form" action="/signup" method="POST">%s`+
			`<label for="name">Name</label><input type="text" name="name" id="name" value="%s">`+
			`<label for="email">E-Mail</label><input type="email" name="email" id="email" value="%s" required>`+
			`<label for="password">Password</label><input type="password" name="password" id="password" minlength="8" required>`+
			`<label for="confirmPassword">Confirm Password</label><input type="password" name="confirmPassword" id="confirmPassword" required>`+
			`<button type="submit">Signup</button></form>`,
			csrfField(p.CSRFToken), templ.EscapeString(name), templ.EscapeString(email))
		return err
	}))
}

// Error shows a status page. message must be safe for users to read.
func Error(p Page, code int, message string) templ.Component {
	p.Title = "Error"
	return Layout(p, templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<section class="error"><h1>%d</h1><p>%s</p><p><a href="/">Back to the shop</a></p></section>`,
			code, templ.EscapeString(message))
		return err
	}))
}
