package internal

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPError(t *testing.T) {
	t.Parallel()

	cause := errors.New("dial tcp: refused")
	err := ErrInternal("could not load session", WithError(cause))

	require.Equal(t, http.StatusInternalServerError, err.Code)
	require.Equal(t, "Internal Server Error", err.StatusText())
	require.ErrorIs(t, err, cause)
	require.Contains(t, err.Error(), "refused")

	require.Equal(t, "bad", ErrBadRequest("bad").Error())
}

func TestAsHTTPError(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("handler: %w", ErrForbidden("nope"))
	he := AsHTTPError(wrapped)
	require.NotNil(t, he)
	require.Equal(t, http.StatusForbidden, he.Code)

	require.Nil(t, AsHTTPError(errors.New("plain")))
	require.Nil(t, AsHTTPError(nil))
}

func TestClassOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ClassNone},
		{"forbidden", ErrForbidden("csrf"), ClassValidation},
		{"too large", ErrRequestTooLarge("body"), ClassValidation},
		{"wrapped bad request", fmt.Errorf("x: %w", ErrBadRequest("y")), ClassValidation},
		{"internal", ErrInternal("store"), ClassInfrastructure},
		{"plain error", errors.New("boom"), ClassInfrastructure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, ClassOf(tt.err))
		})
	}
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	require.Equal(t, http.StatusNotFound, StatusOf(ErrNotFound("x")))
	require.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("x")))
	require.Equal(t, http.StatusInternalServerError, StatusOf(NewHTTPError(200, "odd")))
}
