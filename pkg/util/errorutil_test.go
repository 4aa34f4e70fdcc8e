package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	assert.Nil(t, ToDomainError(nil))

	notFound := ToDomainError(fmt.Errorf("load ticket: %w", pgx.ErrNoRows))
	require.NotNil(t, notFound)
	assert.Equal(t, "NOT_FOUND", notFound.Code)
	assert.Equal(t, http.StatusNotFound, notFound.HTTPStatus)

	conflict := ToDomainError(fmt.Errorf("wrap: %w", NewConflict("in use", nil)))
	assert.Equal(t, "CONFLICT", conflict.Code)

	internal := ToDomainError(errors.New("boom"))
	assert.Equal(t, http.StatusInternalServerError, internal.HTTPStatus)
	assert.Contains(t, internal.Error(), "boom")
}

func TestIsCode(t *testing.T) {
	assert.True(t, IsCode(NewForbidden("no"), "FORBIDDEN"))
	assert.False(t, IsCode(errors.New("no"), "FORBIDDEN"))
}
