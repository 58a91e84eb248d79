package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetType_WrappedAppError(t *testing.T) {
	err := fmt.Errorf("outer: %w", InvalidMovef("tile %d cannot move into itself", 4))
	assert.Equal(t, ErrorTypeInvalidMove, GetType(err))
	assert.True(t, Is(err, ErrorTypeInvalidMove))
	assert.False(t, Is(err, ErrorTypeNotFound))
}

func TestGetType_PlainErrorIsInternal(t *testing.T) {
	assert.Equal(t, ErrorTypeInternal, GetType(errors.New("boom")))
	assert.False(t, Is(nil, ErrorTypeInternal))
}

func TestPassthrough(t *testing.T) {
	typed := NotFoundf("tile %d not found", 3)
	assert.Same(t, typed, Passthrough("ignored", typed))

	wrapped := Passthrough("failed to load", errors.New("driver gone"))
	assert.Equal(t, ErrorTypeInternal, GetType(wrapped))
	assert.Equal(t, "failed to load: driver gone", wrapped.Error())
}
