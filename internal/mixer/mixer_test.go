// SPDX-License-Identifier: AGPL-3.0-or-later
package mixer_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/termchat/termchat/internal/mixer"
	"github.com/termchat/termchat/internal/ring"
)

func pushSilence(t *testing.T, buf *ring.Buffer[float32], n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, buf.Push(0))
	}
}

func pushTone(t *testing.T, buf *ring.Buffer[float32], n int, freqHz, sampleRate, amplitude float64) {
	t.Helper()
	for i := 0; i < n; i++ {
		x := amplitude * math.Sin(2*math.Pi*freqHz*float64(i)/sampleRate)
		require.NoError(t, buf.Push(float32(x)))
	}
}

// TestMixerExclusionIsZeroWhenOthersSilent exercises §8's "Mixer exclusion"
// property: mixing to listener L with sources {A,B,L,C} is exactly zero when
// A, B, C are silent, regardless of L's own (excluded) input.
func TestMixerExclusionIsZeroWhenOthersSilent(t *testing.T) {
	t.Parallel()
	params := mixer.DefaultParams()
	params.FrameSize = 64

	const listenerID uint32 = 42
	m := mixer.New(listenerID, 8, params)

	a := ring.NewBuffer[float32](params.FrameSize)
	b := ring.NewBuffer[float32](params.FrameSize)
	l := ring.NewBuffer[float32](params.FrameSize)
	c := ring.NewBuffer[float32](params.FrameSize)

	pushSilence(t, a, params.FrameSize)
	pushSilence(t, b, params.FrameSize)
	pushTone(t, l, params.FrameSize, 440, params.SampleRate, 1.0) // L's own input is loud
	pushSilence(t, c, params.FrameSize)

	require.NoError(t, m.AddSource(1, a))
	require.NoError(t, m.AddSource(2, b))
	require.NoError(t, m.AddSource(listenerID, l))
	require.NoError(t, m.AddSource(3, c))

	out := m.MixFrame(make([]float32, 0, params.FrameSize))
	for i, sample := range out {
		require.Equalf(t, float32(0), sample, "sample %d not silent", i)
	}
}

// TestMixerNoActiveSourcesProducesSilence covers the frame-with-nothing-to-
// mix path.
func TestMixerNoActiveSourcesProducesSilence(t *testing.T) {
	t.Parallel()
	params := mixer.DefaultParams()
	params.FrameSize = 32
	m := mixer.New(1, 4, params)

	out := m.MixFrame(make([]float32, 0, params.FrameSize))
	require.Len(t, out, params.FrameSize)
	for _, sample := range out {
		require.Equal(t, float32(0), sample)
	}
}

func TestAddSourceRejectsDuplicateClientID(t *testing.T) {
	t.Parallel()
	m := mixer.New(1, 4, mixer.DefaultParams())
	buf := ring.NewBuffer[float32](16)
	require.NoError(t, m.AddSource(2, buf))
	require.ErrorIs(t, m.AddSource(2, buf), mixer.ErrSourceExists)
}

func TestRemoveSourceMarksSlotInactiveBeforeBufferIsGone(t *testing.T) {
	t.Parallel()
	m := mixer.New(1, 4, mixer.DefaultParams())
	buf := ring.NewBuffer[float32](16)
	require.NoError(t, m.AddSource(2, buf))
	require.Equal(t, 1, m.ActiveCount())

	require.NoError(t, m.RemoveSource(2))
	require.Equal(t, 0, m.ActiveCount())
	require.ErrorIs(t, m.RemoveSource(2), mixer.ErrSourceNotFound)
}
