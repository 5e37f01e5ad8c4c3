package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapToHTTPStatus(t *testing.T) {
	cases := []struct {
		err      error
		status   int
		category string
	}{
		{NewValidationError("x"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{NewInvalidVolumeError("x"), http.StatusBadRequest, "INVALID_VOLUME"},
		{NewUnauthorizedError("x"), http.StatusUnauthorized, "UNAUTHORIZED"},
		{NewForbiddenError("x"), http.StatusForbidden, "FORBIDDEN"},
		{NewNotFoundError("x"), http.StatusNotFound, "NOT_FOUND"},
		{NewConflictError("x"), http.StatusConflict, "CONFLICT"},
		{NewNoEligibleKegsError("Heineken"), http.StatusUnprocessableEntity, "NO_ELIGIBLE_KEGS"},
		{NewDBError("falha", errors.New("conn reset")), http.StatusInternalServerError, "INTERNAL_ERROR"},
		{errors.New("qualquer"), http.StatusInternalServerError, "UNKNOWN_ERROR"},
	}
	for _, c := range cases {
		status, category, _ := MapToHTTPStatus(c.err)
		assert.Equal(t, c.status, status, c.category)
		assert.Equal(t, c.category, category)
	}
}

func TestMapToHTTPStatus_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("falha ao iniciar transação: %w", NewNoEligibleKegsError("Heineken"))

	status, category, message := MapToHTTPStatus(wrapped)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "NO_ELIGIBLE_KEGS", category)
	assert.Contains(t, message, "Heineken")
}

func TestClassificationHelpers(t *testing.T) {
	assert.True(t, IsConflict(fmt.Errorf("ctx: %w", NewConflictError("versão"))))
	assert.False(t, IsConflict(NewNotFoundError("x")))
	assert.True(t, IsNotFound(NewNotFoundError("x")))

	cause := errors.New("driver")
	assert.ErrorIs(t, NewDBError("falha", cause), cause)
}
