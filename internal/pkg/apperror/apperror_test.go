package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSample = New(KindCapacity, "INSUFFICIENT_SEATS", "空席が不足しています")

func TestError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("座席確保に失敗: %w", errSample)

	assert.True(t, errors.Is(wrapped, errSample))

	ae, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "INSUFFICIENT_SEATS", ae.Reason)

	kind, ok := KindOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, KindCapacity, kind)
	assert.True(t, IsKind(wrapped, KindCapacity))
	assert.False(t, IsKind(wrapped, KindConflict))
}

func TestError_PlainError(t *testing.T) {
	plain := errors.New("db down")

	_, ok := KindOf(plain)
	assert.False(t, ok)
	assert.False(t, IsKind(plain, KindValidation))
}

func TestError_Message(t *testing.T) {
	assert.Equal(t, "空席が不足しています", errSample.Error())
}
