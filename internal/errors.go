package internal

import (
	"errors"
	"net/http"
)

// ErrNotConfigured is returned by Context helpers whose backing component was not wired.
var ErrNotConfigured = errors.New("storefront: component not configured")

// HTTPError carries a status code and a user-facing message.
// Err is for logs only and never reaches the client.
type HTTPError struct {
	Err     error
	Message string
	Code    int
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// StatusText returns the standard text for Code.
func (e *HTTPError) StatusText() string {
	return http.StatusText(e.Code)
}

// HTTPErrorOption configures an HTTPError.
type HTTPErrorOption func(*HTTPError)

// WithError attaches the underlying cause.
func WithError(err error) HTTPErrorOption {
	return func(e *HTTPError) {
		e.Err = err
	}
}

// NewHTTPError creates an HTTPError.
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	e := &HTTPError{Code: code, Message: message}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, message, opts...)
}

func ErrForbidden(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusForbidden, message, opts...)
}

func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusNotFound, message, opts...)
}

func ErrRequestTooLarge(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusRequestEntityTooLarge, message, opts...)
}

func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, message, opts...)
}

// AsHTTPError returns the first HTTPError in err's chain, or nil.
func AsHTTPError(err error) *HTTPError {
	var he *HTTPError
	if errors.As(err, &he) {
		return he
	}
	return nil
}

// StatusOf returns the response status for err. Anything that is not an HTTPError is a 500.
func StatusOf(err error) int {
	if he := AsHTTPError(err); he != nil && he.Code >= 400 {
		return he.Code
	}
	return http.StatusInternalServerError
}

// ErrorClass separates outcomes in logs and metrics.
type ErrorClass string

const (
	// ClassNone labels outcomes that carry no note.
	ClassNone ErrorClass = ""
	// ClassValidation is a rejected client input: bad token, disallowed upload, malformed body.
	ClassValidation ErrorClass = "validation"
	// ClassInfrastructure is a dependency that could not answer.
	ClassInfrastructure ErrorClass = "infrastructure"
	// ClassBenign is an expected absence: no cookie, stale identity reference.
	ClassBenign ErrorClass = "benign"
)

// ClassOf classifies err. Client errors are validation rejections; everything else,
// including panics and timeouts, is an infrastructure failure.
func ClassOf(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}
	if StatusOf(err) < http.StatusInternalServerError {
		return ClassValidation
	}
	return ClassInfrastructure
}
