package persist

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Message(t *testing.T) {
	err := newError("something broke")
	assert.Equal(t, "something broke", err.Error())
	assert.Nil(t, errors.Unwrap(err))

	wrapped := wrapError("outer", errors.New("inner"))
	assert.Equal(t, "outer: inner", wrapped.Error())
}

func TestWrapError_PreservesCause(t *testing.T) {
	cause := errors.New("driver exploded")
	err := wrapError("the execution of the statement has failed", cause)

	assert.True(t, IsFailure(err))
	assert.ErrorIs(t, err, cause)
}

func TestWrapError_DoesNotStack(t *testing.T) {
	inner := wrapError("first", errors.New("root"))
	outer := wrapError("second", inner)

	// Re-wrapping an existing persistence error keeps it unchanged.
	assert.Same(t, inner, outer)
}

func TestWrapError_NilCause(t *testing.T) {
	err := wrapError("just a message", nil)
	assert.True(t, IsFailure(err))
	assert.Equal(t, "just a message", err.Error())
}

func TestIsFailure(t *testing.T) {
	assert.False(t, IsFailure(nil))
	assert.False(t, IsFailure(errors.New("plain")))
	assert.True(t, IsFailure(newError("ours")))
	assert.True(t, IsFailure(fmt.Errorf("context: %w", newError("ours"))))
}

func TestCause(t *testing.T) {
	assert.Nil(t, Cause(nil))

	root := errors.New("root")
	assert.Equal(t, root, Cause(root))

	chain := fmt.Errorf("a: %w", fmt.Errorf("b: %w", root))
	assert.Equal(t, root, Cause(chain))

	wrapped := wrapError("persistence", root)
	require.Equal(t, root, Cause(wrapped))
}
