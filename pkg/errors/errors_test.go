package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodeMapping(t *testing.T) {
	cases := []struct {
		err  *AppError
		want int
	}{
		{NewValidationFailure("bad input"), http.StatusBadRequest},
		{NewAuthorisationFailure("feed:write"), http.StatusForbidden},
		{NewNotFoundFailure("feed", "123"), http.StatusNotFound},
		{NewTransientExternalFailure("nvd", nil), http.StatusServiceUnavailable},
		{NewPermanentExternalFailure("nvd", nil), http.StatusBadGateway},
		{NewInternalInvariantFailure("final score out of range", nil), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.err.StatusCode())
	}
}

func TestWrapPreservesExistingAppError(t *testing.T) {
	original := NewNotFoundFailure("feed", "123")
	assert.Same(t, original, Wrap(original, "irrelevant"))
	assert.Nil(t, Wrap(nil, "irrelevant"))
}

func TestWrapClassifiesUnknownErrorsAsInternalInvariant(t *testing.T) {
	wrapped := Wrap(assertErr("boom"), "context")
	assert.Equal(t, CodeInternalInvariant, wrapped.Code)
	assert.True(t, Is(wrapped, CodeInternalInvariant))
	assert.Equal(t, CodeInternalInvariant, GetCode(wrapped))
}

type assertErr string

func (e assertErr) Error() string { return string(e) }
