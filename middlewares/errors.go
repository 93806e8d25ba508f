package middlewares

import (
	"errors"
	"fmt"
	"time"
)

// PanicError is a recovered panic. It renders as a 500 and never exposes Value to the client.
type PanicError struct {
	Value any
	Stack []byte // nil when stack capture is disabled
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap exposes a panicked error value to errors.Is and errors.As.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// TimeoutError is returned when a request outlives its deadline before writing a response.
type TimeoutError struct {
	Duration time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timeout after %s", e.Duration)
}

// AsPanicError extracts a PanicError from err.
func AsPanicError(err error) (*PanicError, bool) {
	var pe *PanicError
	ok := errors.As(err, &pe)
	return pe, ok
}

// AsTimeoutError extracts a TimeoutError from err.
func AsTimeoutError(err error) (*TimeoutError, bool) {
	var te *TimeoutError
	ok := errors.As(err, &te)
	return te, ok
}
