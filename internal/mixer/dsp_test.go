// SPDX-License-Identifier: AGPL-3.0-or-later
package mixer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnvelopeCoefFasterAttackConvergesSooner(t *testing.T) {
	t.Parallel()
	fast := newEnvelopeFollower(1, 200, 48000)
	slow := newEnvelopeFollower(50, 200, 48000)

	for i := 0; i < 100; i++ {
		fast.update(1.0)
		slow.update(1.0)
	}
	require.Greater(t, fast.level, slow.level)
}

func TestHighPassFilterAttenuatesDC(t *testing.T) {
	t.Parallel()
	hp := newHighPassFilter(80, 48000)
	var last float64
	for i := 0; i < 2000; i++ {
		last = hp.process(1.0)
	}
	require.Less(t, math.Abs(last), 0.01, "a steady DC input should decay toward zero through a high-pass filter")
}

func TestHighPassFilterPassesAbruptTransition(t *testing.T) {
	t.Parallel()
	hp := newHighPassFilter(80, 48000)
	out := hp.process(1.0) // first sample after silence: full step passes through
	require.Greater(t, out, 0.9)
}

func TestNoiseGateMutesBelowThreshold(t *testing.T) {
	t.Parallel()
	gate := newNoiseGate(-50, 6, 5, 100, 48000)
	quiet := dbToLinear(-60)
	var out float64
	for i := 0; i < 2000; i++ {
		out = gate.process(quiet)
	}
	require.Less(t, math.Abs(out), quiet, "a signal well below the gate threshold should be attenuated toward silence")
}

func TestNoiseGatePassesAboveThreshold(t *testing.T) {
	t.Parallel()
	gate := newNoiseGate(-50, 6, 5, 100, 48000)
	loud := dbToLinear(-10)
	var out float64
	for i := 0; i < 2000; i++ {
		out = gate.process(loud)
	}
	require.InDelta(t, loud, out, loud*0.05, "a signal well above the gate threshold should pass through almost unattenuated")
}

func TestDuckingGainConvergesToAttenuationWhenBelowLeader(t *testing.T) {
	t.Parallel()
	d := newDuckingState(10, 200, 48000)
	leaderDB := 0.0
	sourceDB := -20.0 // 20 dB below leader, well past an 8 dB margin
	for i := 0; i < 5000; i++ {
		d.updateGain(leaderDB, sourceDB, 8, 12)
	}
	require.InDelta(t, dbToLinear(-12), d.gain, 0.01)
}

func TestDuckingGainStaysUnityWhenWithinMargin(t *testing.T) {
	t.Parallel()
	d := newDuckingState(10, 200, 48000)
	for i := 0; i < 5000; i++ {
		d.updateGain(0, -2, 8, 12) // only 2 dB below leader, inside an 8 dB margin
	}
	require.InDelta(t, 1.0, d.gain, 0.01)
}

func TestCompressorAttenuatesAboveThreshold(t *testing.T) {
	t.Parallel()
	c := newCompressor(-12, 4, 6, 5, 50, 0, 48000)
	loud := dbToLinear(0) // well above -12dB threshold
	var out float64
	for i := 0; i < 5000; i++ {
		out = c.process(loud)
	}
	require.Less(t, math.Abs(out), loud, "a signal above threshold should be gain-reduced by the compressor")
}

func TestCompressorLeavesQuietSignalsUnattenuated(t *testing.T) {
	t.Parallel()
	c := newCompressor(-12, 4, 6, 5, 50, 0, 48000)
	quiet := dbToLinear(-40) // well below threshold
	var out float64
	for i := 0; i < 5000; i++ {
		out = c.process(quiet)
	}
	require.InDelta(t, quiet, out, quiet*0.05)
}

func TestSoftClipBoundsOutputWithinUnitRange(t *testing.T) {
	t.Parallel()
	require.Less(t, math.Abs(softClip(10)), 1.0)
	require.Less(t, math.Abs(softClip(-10)), 1.0)
	require.InDelta(t, 0, softClip(0), 1e-9)
}

func TestDbLinearRoundTrip(t *testing.T) {
	t.Parallel()
	for _, db := range []float64{-60, -20, -6, 0, 6} {
		lin := dbToLinear(db)
		require.InDelta(t, db, linearToDB(lin), 1e-9)
	}
}
