// SPDX-License-Identifier: AGPL-3.0-or-later
// termchat - a real-time multi-party audiovisual chat fabric
// Copyright (C) 2023-2026 Jacob McSwain
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//

package mixer

import "math"

// envelopeCoef converts an attack/release time constant in milliseconds into
// the one-pole smoothing coefficient for a given sample rate (§4.5 step 3:
// "coefficients derive from attack/release milliseconds and the sample
// rate").
func envelopeCoef(ms float64, sampleRate int) float64 {
	if ms <= 0 {
		return 0
	}
	return math.Exp(-1.0 / (ms / 1000.0 * float64(sampleRate)))
}

// highPassFilter is a one-pole high-pass IIR used to cut rumble below ~80 Hz
// (§4.5 step 2) before any other per-source processing.
type highPassFilter struct {
	a      float64
	prevIn float64
	prevOut float64
}

func newHighPassFilter(cutoffHz float64, sampleRate int) highPassFilter {
	rc := 1.0 / (2.0 * math.Pi * cutoffHz)
	dt := 1.0 / float64(sampleRate)
	return highPassFilter{a: rc / (rc + dt)}
}

func (f *highPassFilter) process(x float64) float64 {
	y := f.a * (f.prevOut + x - f.prevIn)
	f.prevIn = x
	f.prevOut = y
	return y
}

// envelopeFollower tracks a signal's smoothed absolute amplitude with
// independent attack/release coefficients, the shared primitive behind the
// noise gate, ducking and compressor sidechain (§4.5 steps 2/3/6).
type envelopeFollower struct {
	attackCoef  float64
	releaseCoef float64
	level       float64
}

func newEnvelopeFollower(attackMs, releaseMs float64, sampleRate int) envelopeFollower {
	return envelopeFollower{
		attackCoef:  envelopeCoef(attackMs, sampleRate),
		releaseCoef: envelopeCoef(releaseMs, sampleRate),
	}
}

func (e *envelopeFollower) update(rectified float64) float64 {
	coef := e.releaseCoef
	if rectified > e.level {
		coef = e.attackCoef
	}
	e.level = coef*e.level + (1-coef)*rectified
	return e.level
}

// noiseGate mutes a source below a threshold, with hysteresis and an
// attack/release envelope on the gain itself so the cutoff doesn't click
// (§4.5 step 2).
type noiseGate struct {
	thresholdLinear float64
	hysteresisDB    float64
	envelope        envelopeFollower
	gain            float64
	open            bool
}

func newNoiseGate(thresholdDB, hysteresisDB, attackMs, releaseMs float64, sampleRate int) noiseGate {
	return noiseGate{
		thresholdLinear: dbToLinear(thresholdDB),
		hysteresisDB:    hysteresisDB,
		envelope:        newEnvelopeFollower(attackMs, releaseMs, sampleRate),
		gain:            1,
	}
}

func (g *noiseGate) process(x float64) float64 {
	level := g.envelope.update(math.Abs(x))

	openThreshold := g.thresholdLinear
	closeThreshold := dbToLinear(linearToDB(g.thresholdLinear) - g.hysteresisDB)

	switch {
	case !g.open && level >= openThreshold:
		g.open = true
	case g.open && level < closeThreshold:
		g.open = false
	}

	target := 0.0
	if g.open {
		target = 1.0
	}
	// Reuse the envelope's coefficients to smooth the gate's own gain so it
	// ramps rather than switches.
	coef := g.envelope.releaseCoef
	if target > g.gain {
		coef = g.envelope.attackCoef
	}
	g.gain = coef*g.gain + (1-coef)*target
	return x * g.gain
}

// duckingState tracks one source's envelope and gain reduction relative to
// whichever source is currently loudest (§4.5 step 3).
type duckingState struct {
	envelope envelopeFollower
	gain     float64
}

func newDuckingState(attackMs, releaseMs float64, sampleRate int) duckingState {
	return duckingState{
		envelope: newEnvelopeFollower(attackMs, releaseMs, sampleRate),
		gain:     1,
	}
}

// updateGain moves the source's duck gain one step toward 1.0 (unducked) or
// attenDB-down (ducked), depending on whether it trails the leader by more
// than marginDB (§4.5 step 3). Smoothing uses the state's own attack/release
// coefficients — attack when the gain is falling, release when recovering.
func (d *duckingState) updateGain(leaderDB, sourceDB, marginDB, attenDB float64) {
	target := 1.0
	if leaderDB-sourceDB > marginDB {
		target = dbToLinear(-attenDB)
	}
	coef := d.envelope.releaseCoef
	if target < d.gain {
		coef = d.envelope.attackCoef
	}
	d.gain = coef*d.gain + (1-coef)*target
}

// compressor is a feed-forward soft-knee compressor sidechained on the
// mixed output's own envelope (§4.5 step 6).
type compressor struct {
	thresholdDB float64
	ratio       float64
	kneeDB      float64
	makeupLin   float64
	envelope    envelopeFollower
}

func newCompressor(thresholdDB, ratio, kneeDB, attackMs, releaseMs, makeupDB float64, sampleRate int) compressor {
	return compressor{
		thresholdDB: thresholdDB,
		ratio:       ratio,
		kneeDB:      kneeDB,
		makeupLin:   dbToLinear(makeupDB),
		envelope:    newEnvelopeFollower(attackMs, releaseMs, sampleRate),
	}
}

func (c *compressor) process(x float64) float64 {
	level := c.envelope.update(math.Abs(x))
	levelDB := linearToDB(level)

	over := levelDB - c.thresholdDB
	var gainReductionDB float64
	switch {
	case over <= -c.kneeDB/2:
		gainReductionDB = 0
	case over >= c.kneeDB/2:
		gainReductionDB = over - over/c.ratio
	default:
		// Soft knee: quadratic interpolation across the knee width.
		t := over + c.kneeDB/2
		gainReductionDB = (1 - 1/c.ratio) * (t * t) / (2 * c.kneeDB)
	}

	gain := dbToLinear(-gainReductionDB) * c.makeupLin
	return x * gain
}

// softClip applies a tanh-like saturator so summed signals approach but
// never exceed ±1.0 (§4.5 step 7).
func softClip(x float64) float64 {
	return math.Tanh(x)
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

func linearToDB(lin float64) float64 {
	if lin <= 0 {
		return -120 // effectively silent, avoids -Inf propagating
	}
	return 20 * math.Log10(lin)
}
