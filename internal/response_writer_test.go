package internal

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResponseWriter_WriteHeader(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec)
	require.False(t, rw.Written())

	rw.WriteHeader(http.StatusNotFound)
	rw.WriteHeader(http.StatusOK)

	require.True(t, rw.Written())
	require.Equal(t, http.StatusNotFound, rw.Status())
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResponseWriter_ImplicitStatus(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec)

	n, err := rw.Write([]byte("hello"))
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, int64(5), rw.Size())
}

func TestResponseWriter_HooksRunOnceInOrder(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec)

	var calls []string
	rw.OnBeforeWrite(func() error {
		calls = append(calls, "first")
		rw.Header().Add("Set-Cookie", "sid=abc")
		return nil
	})
	rw.OnBeforeWrite(func() error { calls = append(calls, "second"); return nil })

	rw.WriteHeader(http.StatusFound)
	_, _ = rw.Write([]byte("x"))

	require.Equal(t, []string{"first", "second"}, calls)
	require.Equal(t, "sid=abc", rec.Header().Get("Set-Cookie"))
	require.NoError(t, rw.HookError())
}

func TestResponseWriter_HookFailure(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec)

	boom := errors.New("session store down")
	secondRan := false
	rw.OnBeforeWrite(func() error {
		rw.Header().Add("Set-Cookie", "sid=abc")
		return boom
	})
	rw.OnBeforeWrite(func() error { secondRan = true; return nil })

	rw.Header().Set("Location", "/")
	rw.Header().Set("Content-Type", "text/html")
	rw.WriteHeader(http.StatusSeeOther)
	n, err := rw.Write([]byte("<html>secret</html>"))

	require.NoError(t, err)
	require.Equal(t, len("<html>secret</html>"), n)
	require.False(t, secondRan)
	require.ErrorIs(t, rw.HookError(), boom)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, http.StatusInternalServerError, rw.Status())
	require.Empty(t, rec.Header().Get("Set-Cookie"))
	require.Empty(t, rec.Header().Get("Location"))
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.Equal(t, "Internal Server Error\n", rec.Body.String())
}

func TestResponseWriter_Flush(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := NewResponseWriter(rec)
	hooked := false
	rw.OnBeforeWrite(func() error { hooked = true; return nil })

	rw.Flush()
	require.True(t, hooked)
	require.True(t, rec.Flushed)
}
