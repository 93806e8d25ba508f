package internal

import (
	"net/http"
	"sync"
)

// ResponseWriter wraps http.ResponseWriter and runs commit hooks right before
// the status line is sent. A failing hook replaces the pending response with a
// bare 500 and every later write is discarded.
type ResponseWriter struct {
	http.ResponseWriter
	hookErr     error
	beforeWrite []func() error
	status      int
	size        int64
	written     bool
	mu          sync.Mutex
}

// NewResponseWriter wraps w.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return &ResponseWriter{ResponseWriter: w, status: http.StatusOK}
}

// OnBeforeWrite registers a hook. Hooks run once, in registration order, and stop at the first error.
func (w *ResponseWriter) OnBeforeWrite(fn func() error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.beforeWrite = append(w.beforeWrite, fn)
}

// begin commits the response and reports whether the caller should send the header itself.
func (w *ResponseWriter) begin(code int) bool {
	w.mu.Lock()
	if w.written {
		w.mu.Unlock()
		return false
	}
	w.written = true
	w.status = code
	hooks := w.beforeWrite
	w.beforeWrite = nil
	w.mu.Unlock()

	for _, fn := range hooks {
		if err := fn(); err != nil {
			w.fail(err)
			return false
		}
	}
	return true
}

func (w *ResponseWriter) fail(err error) {
	w.hookErr = err
	w.status = http.StatusInternalServerError

	h := w.ResponseWriter.Header()
	for _, k := range []string{"Set-Cookie", "Location", "Content-Length", "Content-Disposition", "Etag", "Last-Modified"} {
		h.Del(k)
	}
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Cache-Control", "no-store")
	h.Set("X-Content-Type-Options", "nosniff")

	w.ResponseWriter.WriteHeader(http.StatusInternalServerError)
	n, _ := w.ResponseWriter.Write([]byte(http.StatusText(http.StatusInternalServerError) + "\n"))
	w.size = int64(n)
}

func (w *ResponseWriter) WriteHeader(code int) {
	if w.begin(code) {
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *ResponseWriter) Write(b []byte) (int, error) {
	if w.begin(http.StatusOK) {
		w.ResponseWriter.WriteHeader(http.StatusOK)
	}
	if w.hookErr != nil {
		return len(b), nil
	}
	n, err := w.ResponseWriter.Write(b)
	w.size += int64(n)
	return n, err
}

// Status returns the status actually sent, or 200 before commit.
func (w *ResponseWriter) Status() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

// Size returns the number of body bytes written.
func (w *ResponseWriter) Size() int64 {
	return w.size
}

// Written reports whether the response was committed.
func (w *ResponseWriter) Written() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// HookError returns the error of the hook that aborted the response, if any.
func (w *ResponseWriter) HookError() error {
	return w.hookErr
}

// Flush implements http.Flusher. Flushing commits the response.
func (w *ResponseWriter) Flush() {
	if !w.Written() {
		w.WriteHeader(http.StatusOK)
	}
	if w.hookErr != nil {
		return
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *ResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
