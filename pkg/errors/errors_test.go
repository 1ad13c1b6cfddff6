package errors

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, ErrNotFound, CodeOf(NotFound("appointment", nil)))
	assert.Equal(t, ErrStaleState, CodeOf(StaleState(uuid.New(), "booked")))
	assert.Equal(t, ErrTerminalState, CodeOf(TerminalState("completed")))
	assert.Equal(t, ErrInvalidTransition, CodeOf(InvalidTransition("requested", "completed")))
	assert.Equal(t, ErrInternal, CodeOf(fmt.Errorf("plain")))
}

func TestCodeOfWrappedError(t *testing.T) {
	wrapped := fmt.Errorf("repo: %w", StaleState(uuid.New(), "booked"))
	assert.True(t, IsStaleState(wrapped))
}

func TestErrorMessage(t *testing.T) {
	err := Downstream("charge fee", fmt.Errorf("connection refused"))
	assert.Equal(t, "charge fee failed: connection refused", err.Error())
	assert.EqualError(t, err.Unwrap(), "connection refused")

	bare := TerminalState("completed")
	assert.Equal(t, `appointment is in terminal status "completed"`, bare.Error())
	assert.Nil(t, bare.Unwrap())
}
