// SPDX-License-Identifier: AGPL-3.0-or-later
package ring_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/termchat/termchat/internal/ring"
)

func TestBufferRoundsCapacityToPowerOfTwo(t *testing.T) {
	t.Parallel()
	b := ring.NewBuffer[int](5)
	require.Equal(t, 8, b.Cap())
}

func TestBufferPushPopOrdering(t *testing.T) {
	t.Parallel()
	b := ring.NewBuffer[int](4)
	for i := 0; i < 4; i++ {
		require.NoError(t, b.Push(i))
	}
	require.ErrorIs(t, b.Push(99), ring.ErrFull)

	for i := 0; i < 4; i++ {
		v, err := b.Pop()
		require.NoError(t, err)
		require.Equal(t, i, v)
	}
	_, err := b.Pop()
	require.ErrorIs(t, err, ring.ErrEmpty)
}

func TestBufferLen(t *testing.T) {
	t.Parallel()
	b := ring.NewBuffer[int](4)
	require.Equal(t, 0, b.Len())
	require.NoError(t, b.Push(1))
	require.NoError(t, b.Push(2))
	require.Equal(t, 2, b.Len())
	_, err := b.Pop()
	require.NoError(t, err)
	require.Equal(t, 1, b.Len())
}

func TestBufferSingleProducerSingleConsumerConcurrent(t *testing.T) {
	t.Parallel()
	const n = 100000
	b := ring.NewBuffer[int](64)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for b.Push(i) != nil {
				// spin until the consumer frees a slot
			}
		}
	}()

	sum := 0
	go func() {
		defer wg.Done()
		for i := 0; i < n; i++ {
			for {
				v, err := b.Pop()
				if err == nil {
					sum += v
					break
				}
			}
		}
	}()

	wg.Wait()
	require.Equal(t, n*(n-1)/2, sum)
}
