// SPDX-License-Identifier: AGPL-3.0-or-later
package ring_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/termchat/termchat/internal/ring"
)

func TestFrameBufferDropsOldestWhenFull(t *testing.T) {
	t.Parallel()
	fb := ring.NewFrameBuffer(2)

	require.False(t, fb.Push(ring.Frame{Sequence: 1}))
	require.False(t, fb.Push(ring.Frame{Sequence: 2}))
	require.True(t, fb.Push(ring.Frame{Sequence: 3}))

	require.Equal(t, uint64(1), fb.Dropped())
	require.Equal(t, 2, fb.Len())

	f, ok := fb.Pop()
	require.True(t, ok)
	require.Equal(t, uint64(2), f.Sequence)

	f, ok = fb.Pop()
	require.True(t, ok)
	require.Equal(t, uint64(3), f.Sequence)

	_, ok = fb.Pop()
	require.False(t, ok)
}

func TestFrameBufferEmptyPop(t *testing.T) {
	t.Parallel()
	fb := ring.NewFrameBuffer(4)
	_, ok := fb.Pop()
	require.False(t, ok)
}

func TestFrameBufferPeekLatestDoesNotConsume(t *testing.T) {
	t.Parallel()
	fb := ring.NewFrameBuffer(3)
	_, ok := fb.PeekLatest()
	require.False(t, ok)

	fb.Push(ring.Frame{Sequence: 1, Payload: []byte("a")})
	fb.Push(ring.Frame{Sequence: 2, Payload: []byte("b")})

	f, ok := fb.PeekLatest()
	require.True(t, ok)
	require.Equal(t, uint64(2), f.Sequence)
	require.Equal(t, []byte("b"), f.Payload)

	// Peeking again returns the same frame; nothing was consumed.
	f, ok = fb.PeekLatest()
	require.True(t, ok)
	require.Equal(t, uint64(2), f.Sequence)
	require.Equal(t, 2, fb.Len())

	// Mutating the returned payload must not corrupt the buffer's copy.
	f.Payload[0] = 'z'
	f2, ok := fb.PeekLatest()
	require.True(t, ok)
	require.Equal(t, []byte("b"), f2.Payload)

	oldest, ok := fb.Pop()
	require.True(t, ok)
	require.Equal(t, uint64(1), oldest.Sequence)
}

// TestFrameBufferOverloadKeepsNewestFive mirrors the overload scenario: 100
// frames injected into a 5-slot buffer must leave exactly the 5 newest
// sequences queued and report the rest as dropped.
func TestFrameBufferOverloadKeepsNewestFive(t *testing.T) {
	t.Parallel()
	fb := ring.NewFrameBuffer(5)

	for seq := uint64(1); seq <= 100; seq++ {
		fb.Push(ring.Frame{Sequence: seq})
	}

	require.Equal(t, 5, fb.Len())
	require.Equal(t, uint64(95), fb.Dropped())

	for want := uint64(96); want <= 100; want++ {
		f, ok := fb.Pop()
		require.True(t, ok)
		require.Equal(t, want, f.Sequence)
	}
	_, ok := fb.Pop()
	require.False(t, ok)
}
