package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFound_Wrapped(t *testing.T) {
	err := fmt.Errorf("loading note: %w", NewNotFound("note", "n1"))
	assert.True(t, IsNotFound(err))
	assert.False(t, IsValidation(err))
	assert.Contains(t, err.Error(), "note not found: n1")
}

func TestIsErrorType_InnerCause(t *testing.T) {
	inner := NewNotFound("embedding", "n2")
	outer := NewStorage("get embedding", inner)
	assert.True(t, IsErrorType(outer, ErrorTypeStorage))
	assert.True(t, IsErrorType(outer, ErrorTypeNotFound))
	assert.False(t, IsErrorType(outer, ErrorTypeProvider))
}

func TestIsErrorType_PlainError(t *testing.T) {
	assert.False(t, IsErrorType(fmt.Errorf("boom"), ErrorTypeStorage))
	assert.False(t, IsErrorType(nil, ErrorTypeStorage))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewProviderFailed("openai", true, fmt.Errorf("429"))))
	assert.False(t, IsRetryable(NewProviderFailed("openai", false, fmt.Errorf("400"))))
	assert.True(t, IsRetryable(NewStorage("upsert", fmt.Errorf("database is locked"))))
	assert.False(t, IsRetryable(NewValidation("kind", "unknown")))
}

func TestIncompatibleDimensionsMessage(t *testing.T) {
	err := NewIncompatibleDimensions(3, 4)
	assert.Equal(t, 3, err.Left)
	assert.Equal(t, 4, err.Right)
	assert.Equal(t, "[dimensions] incompatible vector dimensions: 3 vs 4", err.Error())
}
