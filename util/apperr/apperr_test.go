package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		Validation: http.StatusBadRequest,
		Conflict:   http.StatusBadRequest,
		Gateway:    http.StatusBadRequest,
		Permission: http.StatusForbidden,
		Unauth:     http.StatusUnauthorized,
		NotFound:   http.StatusNotFound,
		Internal:   http.StatusInternalServerError,
	}
	for k, want := range cases {
		require.Equal(t, want, HTTPStatus(New(k, "X", "x")), k)
	}
	require.Equal(t, http.StatusInternalServerError, HTTPStatus(errors.New("plain")))
}

func TestCodeSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(Conflict, "ALREADY_RETURNED", "already returned"))
	require.Equal(t, Code("ALREADY_RETURNED"), CodeOf(err))
	require.Equal(t, "already returned", PublicMessage(err))
	require.Equal(t, Code(""), CodeOf(errors.New("plain")))
	require.Equal(t, "internal error", PublicMessage(errors.New("plain")))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(Gateway, "PAYMENT_GATEWAY_ERROR", "boom", cause)
	require.ErrorIs(t, err, cause)
	require.Equal(t, "PAYMENT_GATEWAY_ERROR: boom", err.Error())
}
