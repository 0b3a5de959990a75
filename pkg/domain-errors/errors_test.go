package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	t.Run("direct", func(t *testing.T) {
		err := New(CodeNotFound, "link not found")
		assert.Equal(t, CodeNotFound, CodeOf(err))
	})

	t.Run("wrapped with fmt.Errorf", func(t *testing.T) {
		err := fmt.Errorf("lookup: %w", New(CodeExternalCall, "timeout"))
		assert.Equal(t, CodeExternalCall, CodeOf(err))
		assert.True(t, Is(err, CodeExternalCall))
	})

	t.Run("non-domain error reports internal", func(t *testing.T) {
		assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
	})
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeExternalCall, "update loan", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "update loan: connection refused", err.Error())
}
