package errorx

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrAuthRequiredIsGeneric(t *testing.T) {
	e := ErrAuthRequired()
	assert.Equal(t, CategoryAuth, e.Category)
	assert.Equal(t, "AUTH_REQUIRED", e.Code)
	// Must never carry resource or cause detail
	assert.Empty(t, e.Resource)
	assert.Equal(t, "authentication required", e.Message)
}

func TestNewAccessDeniedNamesResource(t *testing.T) {
	e := NewAccessDenied("device:abc")
	assert.Equal(t, CategoryAccessDenied, e.Category)
	assert.Equal(t, "device:abc", e.Resource)
	assert.Contains(t, e.Message, "device:abc")
}

func TestNewNotFound(t *testing.T) {
	e := NewNotFound("experiment", "42")
	assert.Equal(t, CategoryNotFound, e.Category)
	assert.Equal(t, "experiment 42 not found", e.Message)
}

func TestAsClientError(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NewValidation("id is required"))
	ce, ok := AsClientError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, CategoryValidation, ce.Category)

	_, ok = AsClientError(fmt.Errorf("plain"))
	assert.False(t, ok)
}
