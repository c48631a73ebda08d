package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_Unwrap(t *testing.T) {
	err := fmt.Errorf("load session: %w", NewNotFoundError("Session", "abc"))

	assert.True(t, IsNotFound(err))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrConflict))
	assert.Contains(t, err.Error(), "Session with id abc not found")
}

func TestNewInvalidStateError(t *testing.T) {
	err := NewInvalidStateError("closed", "open")

	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, "cannot transition from closed to open", err.Error())
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("quantity must be positive, got %d", -1)

	assert.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, "quantity must be positive, got -1", err.Error())
}
