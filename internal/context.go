package internal

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/storefront/pkg/identity"
	"github.com/dmitrymomot/storefront/pkg/job"
	"github.com/dmitrymomot/storefront/pkg/session"
)

// Component is anything renderable into the response. templ.Component satisfies it.
type Component interface {
	Render(ctx context.Context, w io.Writer) error
}

// Context gives handlers and middleware access to the request, the response
// and the state the pipeline attached to the request.
// It implements context.Context by delegating to the request context.
type Context interface {
	context.Context

	Request() *http.Request
	Response() http.ResponseWriter
	ResponseWriter() *ResponseWriter
	Context() context.Context

	// Param returns a URL path parameter.
	Param(name string) string
	// Query returns a query string value.
	Query(name string) string
	// Form returns a decoded form value. Bodies are decoded by the pipeline.
	Form(name string) string
	Header(name string) string
	SetHeader(name, value string)

	JSON(code int, v any) error
	String(code int, s string) error
	NoContent(code int) error
	Redirect(code int, url string) error
	Render(code int, component Component) error

	// Error builds an HTTPError without writing anything.
	Error(code int, message string, opts ...HTTPErrorOption) *HTTPError
	Written() bool

	Logger() *slog.Logger
	LogDebug(msg string, attrs ...any)
	LogInfo(msg string, attrs ...any)
	LogWarn(msg string, attrs ...any)
	LogError(msg string, attrs ...any)

	// SetContext replaces the request context. Parsed forms are kept.
	SetContext(ctx context.Context)
	// Set stores a value in the request context.
	Set(key, value any)
	Get(key any) any

	// Flash reads and clears a one-shot message set by SetFlash on an earlier response.
	Flash(key string, dest any) error
	SetFlash(key string, value any) error

	// Session returns the session loaded by the pipeline.
	Session() (*session.Session, error)
	// AuthenticateSession binds userID to the session and rotates its token and CSRF secret.
	AuthenticateSession(userID string) error
	// Logout clears the identity reference and rotates the token.
	Logout() error
	// DestroySession deletes the session record and expires the cookie.
	DestroySession() error

	// Identity returns the user resolved for this request, or nil when anonymous.
	Identity() *identity.Identity
	UserID() string
	IsAuthenticated() bool

	// CSRFToken returns the token forms must echo back as _csrf.
	CSRFToken() string
	// Upload returns the stored image of this request, or nil.
	Upload() *Upload

	// Enqueue schedules a background task.
	Enqueue(name string, payload any, opts ...job.EnqueueOption) error
}

type requestContext struct {
	request  *http.Request
	response *ResponseWriter
	app      *App
	state    *requestState
}

func newContext(w http.ResponseWriter, r *http.Request, app *App) *requestContext {
	rw, ok := w.(*ResponseWriter)
	if !ok {
		rw = NewResponseWriter(w)
	}
	return &requestContext{
		request:  r,
		response: rw,
		app:      app,
		state:    stateFrom(r.Context()),
	}
}

func (c *requestContext) Deadline() (time.Time, bool) { return c.request.Context().Deadline() }
func (c *requestContext) Done() <-chan struct{}       { return c.request.Context().Done() }
func (c *requestContext) Err() error                  { return c.request.Context().Err() }
func (c *requestContext) Value(key any) any           { return c.request.Context().Value(key) }

func (c *requestContext) Request() *http.Request          { return c.request }
func (c *requestContext) Response() http.ResponseWriter   { return c.response }
func (c *requestContext) ResponseWriter() *ResponseWriter { return c.response }
func (c *requestContext) Context() context.Context        { return c.request.Context() }

func (c *requestContext) Param(name string) string {
	return chi.URLParam(c.request, name)
}

func (c *requestContext) Query(name string) string {
	return c.request.URL.Query().Get(name)
}

func (c *requestContext) Form(name string) string {
	if c.request.PostForm != nil {
		if v := c.request.PostForm.Get(name); v != "" {
			return v
		}
	}
	if mf := c.request.MultipartForm; mf != nil {
		if vs := mf.Value[name]; len(vs) > 0 {
			return vs[0]
		}
	}
	return ""
}

func (c *requestContext) Header(name string) string {
	return c.request.Header.Get(name)
}

func (c *requestContext) SetHeader(name, value string) {
	c.response.Header().Set(name, value)
}

func (c *requestContext) JSON(code int, v any) error {
	c.response.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.response.WriteHeader(code)
	return json.NewEncoder(c.response).Encode(v)
}

func (c *requestContext) String(code int, s string) error {
	c.response.Header().Set("Content-Type", "text/plain; charset=utf-8")
	c.response.WriteHeader(code)
	_, err := io.WriteString(c.response, s)
	return err
}

func (c *requestContext) NoContent(code int) error {
	c.response.WriteHeader(code)
	return nil
}

func (c *requestContext) Redirect(code int, url string) error {
	http.Redirect(c.response, c.request, url, code)
	return nil
}

func (c *requestContext) Render(code int, component Component) error {
	c.response.Header().Set("Content-Type", "text/html; charset=utf-8")
	c.response.WriteHeader(code)
	return component.Render(c.request.Context(), c.response)
}

func (c *requestContext) Error(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(code, message, opts...)
}

func (c *requestContext) Written() bool {
	return c.response.Written()
}

func (c *requestContext) Logger() *slog.Logger { return c.app.logger }

func (c *requestContext) LogDebug(msg string, attrs ...any) {
	c.app.logger.DebugContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogInfo(msg string, attrs ...any) {
	c.app.logger.InfoContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogWarn(msg string, attrs ...any) {
	c.app.logger.WarnContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogError(msg string, attrs ...any) {
	c.app.logger.ErrorContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) SetContext(ctx context.Context) {
	c.request = c.request.WithContext(ctx)
}

func (c *requestContext) Set(key, value any) {
	c.request = c.request.WithContext(context.WithValue(c.request.Context(), key, value))
	if st, ok := value.(*requestState); ok {
		c.state = st
	}
}

func (c *requestContext) Get(key any) any {
	return c.request.Context().Value(key)
}

func (c *requestContext) Flash(key string, dest any) error {
	if c.app.cookies == nil {
		return ErrNotConfigured
	}
	return c.app.cookies.Flash(c.response, c.request, key, dest)
}

func (c *requestContext) SetFlash(key string, value any) error {
	if c.app.cookies == nil {
		return ErrNotConfigured
	}
	return c.app.cookies.SetFlash(c.response, key, value)
}

func (c *requestContext) Session() (*session.Session, error) {
	if c.state == nil || c.state.session == nil {
		return nil, session.ErrNotConfigured
	}
	return c.state.session, nil
}

func (c *requestContext) AuthenticateSession(userID string) error {
	sess, err := c.Session()
	if err != nil {
		return err
	}
	if c.app.sessions == nil {
		return session.ErrNotConfigured
	}
	if err := c.app.sessions.Authenticate(sess, userID); err != nil {
		return err
	}
	return c.refreshCSRF(sess)
}

func (c *requestContext) Logout() error {
	sess, err := c.Session()
	if err != nil {
		return err
	}
	if c.app.sessions == nil {
		return session.ErrNotConfigured
	}
	if err := c.app.sessions.Logout(sess); err != nil {
		return err
	}
	c.state.identity = nil
	return c.refreshCSRF(sess)
}

func (c *requestContext) DestroySession() error {
	sess, err := c.Session()
	if err != nil {
		return err
	}
	sess.Destroy()
	c.state.identity = nil
	c.state.csrfToken = ""
	return nil
}

// refreshCSRF re-derives the exposed token after the secret rotated.
func (c *requestContext) refreshCSRF(sess *session.Session) error {
	token, err := csrfTokenFor(sess)
	if err != nil {
		return err
	}
	c.state.csrfToken = token
	return nil
}

func (c *requestContext) Identity() *identity.Identity {
	if c.state == nil {
		return nil
	}
	return c.state.identity
}

func (c *requestContext) UserID() string {
	if id := c.Identity(); id != nil {
		return id.ID
	}
	return ""
}

func (c *requestContext) IsAuthenticated() bool {
	return c.Identity() != nil
}

func (c *requestContext) CSRFToken() string {
	if c.state == nil {
		return ""
	}
	return c.state.csrfToken
}

func (c *requestContext) Upload() *Upload {
	if c.state == nil {
		return nil
	}
	return c.state.upload
}

func (c *requestContext) Enqueue(name string, payload any, opts ...job.EnqueueOption) error {
	if c.app.jobs == nil {
		return ErrNotConfigured
	}
	return c.app.jobs.Enqueue(c.request.Context(), name, payload, opts...)
}
