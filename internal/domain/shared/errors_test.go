package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_WithCause(t *testing.T) {
	cause := errors.New("duplicate key value violates unique constraint")
	err := fmt.Errorf("create order: %w", ErrAlreadyExists.WithCause(cause))

	assert.ErrorIs(t, err, ErrAlreadyExists)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "Resource already exists: duplicate key")

	var domainErr *DomainError
	assert.True(t, errors.As(err, &domainErr))
	assert.Equal(t, "ALREADY_EXISTS", domainErr.Code)
	assert.Equal(t, "Resource already exists", domainErr.Message)
}

func TestDomainError_WithoutCause(t *testing.T) {
	assert.Equal(t, "Resource not found", ErrNotFound.Error())
	assert.Nil(t, ErrNotFound.Unwrap())
}
