package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/internal"
)

func TestParsePrice(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in    string
		cents int64
		ok    bool
	}{
		{"19.99", 1999, true},
		{"0", 0, true},
		{"5", 500, true},
		{"0.1", 10, true},
		{"", 0, false},
		{"cheap", 0, false},
		{"-1", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"1e12", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			cents, ok := parsePrice(tt.in)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.cents, cents)
		})
	}
}

type errorRoutes struct{}

func (errorRoutes) Routes(r internal.Router) {
	r.GET("/boom", func(c internal.Context) error {
		return errors.New("pq: relation \"products\" does not exist")
	})
	r.GET("/bad", func(c internal.Context) error {
		return internal.ErrBadRequest("Missing title")
	})
	r.GET("/private", func(c internal.Context) error {
		return c.String(http.StatusOK, "secret")
	}, RequireAuth)
}

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	app := internal.New(
		internal.WithErrorHandler(ErrorHandler),
		internal.WithNotFoundHandler(NotFound),
		internal.WithHandlers(errorRoutes{}),
	)

	tests := []struct {
		path    string
		status  int
		want    string
		notWant string
	}{
		{"/boom", http.StatusInternalServerError, "Internal Server Error", "relation"},
		{"/bad", http.StatusBadRequest, "Missing title", ""},
		{"/missing", http.StatusNotFound, "Page Not Found", ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			require.Equal(t, tt.status, rec.Code)
			require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
			require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
			require.Contains(t, rec.Body.String(), tt.want)
			if tt.notWant != "" {
				require.NotContains(t, rec.Body.String(), tt.notWant)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	app := internal.New(internal.WithHandlers(errorRoutes{}))

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/login", rec.Header().Get("Location"))
}
