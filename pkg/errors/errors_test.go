package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDomainError_ErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		error    *DomainError
		expected string
	}{
		{
			name:     "error without cause",
			error:    NewValidationError("restart cooldown cannot be negative", nil),
			expected: "validation: restart cooldown cannot be negative",
		},
		{
			name:     "error with cause",
			error:    NewProcessError("failed to kill child", errors.New("operation not permitted")),
			expected: "process: failed to kill child: operation not permitted",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.error.Error())
		})
	}
}

func TestDomainError_TypeChecking(t *testing.T) {
	processErr := NewProcessError("failed to kill matched process", nil).WithContext("pid", 4242)
	wrapped := fmt.Errorf("reap openocd: %w", processErr)

	assert.True(t, IsProcessError(wrapped))
	assert.False(t, IsValidationError(wrapped))
	assert.False(t, IsIOError(errors.New("plain")))
	assert.True(t, errors.Is(wrapped, &DomainError{Type: ErrorTypeProcess}))

	pid, ok := ContextValue(wrapped, "pid")
	assert.True(t, ok)
	assert.Equal(t, 4242, pid)

	_, ok = ContextValue(errors.New("plain"), "pid")
	assert.False(t, ok)
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("pipe closed")
	err := NewIOError("failed to create stderr pipe", cause)

	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestDomainError_TypePredicates(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"validation", NewValidationError("bad config", nil), IsValidationError},
		{"not found", NewNotFoundError("executable not found", nil), IsNotFoundError},
		{"process", NewProcessError("failed to kill", nil), IsProcessError},
		{"io", NewIOError("failed to read", nil), IsIOError},
		{"cancelled", NewCancelledError("supervisor stopped", context.Canceled), IsCancelledError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(fmt.Errorf("wrapped: %w", tt.err)))
			for _, other := range tests {
				if other.name != tt.name {
					assert.False(t, other.check(tt.err))
				}
			}
		})
	}

	assert.True(t, errors.Is(NewCancelledError("supervisor stopped", context.Canceled), context.Canceled))
}
