package internal

// Handler declares routes on a router.
type Handler interface {
	Routes(r Router)
}

// HandlerFunc is the signature for route handlers.
// A non-nil error is passed to the app's ErrorHandler.
type HandlerFunc func(c Context) error

// Middleware wraps a HandlerFunc. It may short-circuit by returning without calling next.
type Middleware func(next HandlerFunc) HandlerFunc

// ErrorHandler renders errors returned from handlers and pipeline stages.
type ErrorHandler func(Context, error) error
