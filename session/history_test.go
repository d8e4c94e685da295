package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory(t *testing.T) {
	t.Parallel()

	h := NewHistory(2)
	_, err := h.Pop()
	require.ErrorIs(t, err, ErrEmptyHistory)

	h.Push(Checkpoint{Origin: OriginLocal})
	h.Push(Checkpoint{Origin: OriginPrompt})
	h.Push(Checkpoint{Origin: OriginLocal})
	assert.Equal(t, 2, h.Len(), "超过上限丢弃最早的")

	cp, err := h.Pop()
	require.NoError(t, err)
	assert.Equal(t, OriginLocal, cp.Origin)
	cp, err = h.Pop()
	require.NoError(t, err)
	assert.Equal(t, OriginPrompt, cp.Origin)

	h.Push(Checkpoint{})
	h.Clear()
	assert.Zero(t, h.Len())
}
