package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIsMatchesDerivedErrors(t *testing.T) {
	derived := ErrWindowExpired.With("deletion window of %s expired", "1h0m0s")
	wrapped := fmt.Errorf("deleting task t1: %w", derived)

	assert.True(t, errors.Is(wrapped, ErrWindowExpired))
	assert.False(t, errors.Is(wrapped, ErrAcknowledged))
	assert.Equal(t, CodeBusinessRule, CodeOf(wrapped))
	assert.Equal(t, "window_expired", ReasonOf(wrapped))
}

func TestErrorMessageIncludesSortedFieldsAndCause(t *testing.T) {
	err := Validation(map[string]string{
		"mode": "must be all or selected",
		"body": "too short",
	})
	assert.Equal(t, "invalid input (body: too short; mode: must be all or selected)", err.Error())

	cause := errors.New("disk full")
	internal := Internal("creating task", cause)
	assert.Equal(t, "creating task: disk full", internal.Error())
	require.ErrorIs(t, internal, cause)
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	assert.Equal(t, "", ReasonOf(errors.New("boom")))
	assert.False(t, Is(nil, CodeInternal))
	assert.True(t, Is(ErrTaskNotFound, CodeNotFound))
}
