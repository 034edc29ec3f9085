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

// Package mixer implements the per-listener N-to-1 audio mix: active-speaker
// ducking, a noise gate, a high-pass rumble filter, crowd scaling and a
// compressor/soft-clip output stage (§4.5).
package mixer

import (
	"errors"
	"math"
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/termchat/termchat/internal/ring"
)

// Params configures every DSP stage a Mixer runs. Defaults mirror §4.5's
// suggested constants.
type Params struct {
	SampleRate int
	FrameSize  int

	HighPassCutoffHz float64

	GateThresholdDB   float64
	GateHysteresisDB  float64
	GateAttackMs      float64
	GateReleaseMs     float64

	DuckLeaderMarginDB float64
	DuckAttenDB        float64
	DuckAttackMs       float64
	DuckReleaseMs      float64

	BaseGain   float64
	CrowdAlpha float64

	CompThresholdDB float64
	CompRatio       float64
	CompKneeDB      float64
	CompAttackMs    float64
	CompReleaseMs   float64
	CompMakeupDB    float64
}

// DefaultParams returns the §4.5-suggested constants at a 48 kHz sample rate
// with a 960-sample (20 ms) frame, matching protocol.AudioSamplesPerPacket.
func DefaultParams() Params {
	return Params{
		SampleRate: 48000,
		FrameSize:  960,

		HighPassCutoffHz: 80,

		GateThresholdDB:  -50,
		GateHysteresisDB: 6,
		GateAttackMs:     5,
		GateReleaseMs:    100,

		DuckLeaderMarginDB: 8,
		DuckAttenDB:        12,
		DuckAttackMs:       10,
		DuckReleaseMs:      200,

		BaseGain:   1.0,
		CrowdAlpha: 0.5,

		CompThresholdDB: -12,
		CompRatio:       4,
		CompKneeDB:      6,
		CompAttackMs:    5,
		CompReleaseMs:   50,
		CompMakeupDB:    0,
	}
}

// ErrSourceExists is returned by AddSource when the client id is already
// registered in this mixer.
var ErrSourceExists = errors.New("mixer: source already registered")

// ErrSourceNotFound is returned by RemoveSource for an unknown client id.
var ErrSourceNotFound = errors.New("mixer: source not found")

// sourceSlot holds one source's ring buffer and per-source DSP state
// (§3 "Mixer state": "pointer to the source's audio ring buffer, client id,
// active flag, ducking envelope, ducking gain").
type sourceSlot struct {
	clientID uint32
	active   bool
	source   *ring.Buffer[float32]

	highPass highPassFilter
	gate     noiseGate
	ducking  duckingState
}

// Mixer produces one listener's mix of every other active source (§4.5).
// Source add/remove is serialized by mu (the write side of the spec's
// reader-writer lock); MixFrame takes the read side. index gives O(1)
// client-id → slot lookup without walking slots, mirroring the teacher's
// xsync.Map-backed registries (component D's Registry uses the same
// library for the analogous id → entry lookup).
type Mixer struct {
	listenerID uint32
	params     Params

	mu    sync.RWMutex
	slots []*sourceSlot
	index *xsync.Map[uint32, int]

	compressor compressor
}

// New creates a Mixer for the given listener, sized for at most maxSources
// concurrent speakers.
func New(listenerID uint32, maxSources int, params Params) *Mixer {
	return &Mixer{
		listenerID: listenerID,
		params:     params,
		slots:      make([]*sourceSlot, 0, maxSources),
		index:      xsync.NewMap[uint32, int](),
		compressor: newCompressor(params.CompThresholdDB, params.CompRatio, params.CompKneeDB,
			params.CompAttackMs, params.CompReleaseMs, params.CompMakeupDB, params.SampleRate),
	}
}

// AddSource registers clientID's audio ring buffer as a mixable source
// (§4.5 "Thread safety": "Adding a source requires the write lock and
// inserts into both the slot array and the client-id → slot hash").
func (m *Mixer) AddSource(clientID uint32, source *ring.Buffer[float32]) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.index.Load(clientID); exists {
		return ErrSourceExists
	}

	slot := &sourceSlot{
		clientID: clientID,
		active:   true,
		source:   source,
		highPass: newHighPassFilter(m.params.HighPassCutoffHz, m.params.SampleRate),
		gate: newNoiseGate(m.params.GateThresholdDB, m.params.GateHysteresisDB,
			m.params.GateAttackMs, m.params.GateReleaseMs, m.params.SampleRate),
		ducking: newDuckingState(m.params.DuckAttackMs, m.params.DuckReleaseMs, m.params.SampleRate),
	}
	m.slots = append(m.slots, slot)
	m.index.Store(clientID, len(m.slots)-1)
	return nil
}

// RemoveSource marks clientID's slot inactive before the caller is allowed
// to destroy its ring buffer (§4.5 "Removing requires the write lock; it
// marks the slot inactive before the ring buffer is allowed to be destroyed
// by the session owner", and §3's matching invariant).
func (m *Mixer) RemoveSource(clientID uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx, exists := m.index.Load(clientID)
	if !exists {
		return ErrSourceNotFound
	}
	m.slots[idx].active = false
	m.slots[idx].source = nil
	m.index.Delete(clientID)
	return nil
}

// ActiveCount returns the number of currently active sources, excluding the
// listener's own (for crowd scaling's "active" count, §4.5 step 5).
func (m *Mixer) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.activeCountLocked()
}

func (m *Mixer) activeCountLocked() int {
	n := 0
	for _, s := range m.slots {
		if s.active && s.clientID != m.listenerID {
			n++
		}
	}
	return n
}

// MixFrame gathers one frame from every active source other than the
// listener's own, runs the full §4.5 pipeline, and writes frameSize
// samples into out. out must have capacity for at least m.params.FrameSize
// samples; it is resized to that length.
func (m *Mixer) MixFrame(out []float32) []float32 {
	frameSize := m.params.FrameSize
	if cap(out) < frameSize {
		out = make([]float32, frameSize)
	} else {
		out = out[:frameSize]
	}
	for i := range out {
		out[i] = 0
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	active := m.activeCountLocked()
	if active == 0 {
		return out
	}

	gathered := make([][]float64, 0, len(m.slots))
	slots := make([]*sourceSlot, 0, len(m.slots))

	// Step 1: gather + step 2: per-source preprocessing (high-pass, gate,
	// ducking envelope update — the gain itself is applied after the leader
	// is known).
	for _, s := range m.slots {
		if !s.active || s.clientID == m.listenerID || s.source == nil {
			continue
		}
		frame := make([]float64, frameSize)
		for i := 0; i < frameSize; i++ {
			sample, err := s.source.Pop()
			if err != nil {
				break
			}
			x := float64(sample)
			x = s.highPass.process(x)
			x = s.gate.process(x)
			frame[i] = x
		}
		s.ducking.envelope.update(rmsAbs(frame))
		gathered = append(gathered, frame)
		slots = append(slots, s)
	}

	if len(gathered) == 0 {
		return out
	}

	// Step 3: ducking — the loudest envelope is the leader; every source
	// more than DuckLeaderMarginDB quieter is attenuated by DuckAttenDB,
	// smoothed by the source's own attack/release envelope coefficients.
	leaderDB := -120.0
	for _, s := range slots {
		db := linearToDB(s.ducking.envelope.level)
		if db > leaderDB {
			leaderDB = db
		}
	}
	for _, s := range slots {
		db := linearToDB(s.ducking.envelope.level)
		s.ducking.updateGain(leaderDB, db, m.params.DuckLeaderMarginDB, m.params.DuckAttenDB)
	}

	// Step 4: sum post-duck, post-gain samples.
	sum := make([]float64, frameSize)
	for si, frame := range gathered {
		gain := slots[si].ducking.gain
		for i, x := range frame {
			sum[i] += x * gain
		}
	}

	// Step 5: crowd scaling.
	crowdGain := m.params.BaseGain / math.Pow(float64(maxInt(1, active)), m.params.CrowdAlpha)
	for i := range sum {
		sum[i] *= crowdGain
	}

	// Step 6: compressor (sidechained on the sum's own envelope).
	// Step 7: soft clip.
	for i, x := range sum {
		x = m.compressor.process(x)
		out[i] = float32(softClip(x))
	}

	return out
}

func rmsAbs(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, x := range frame {
		sum += x * x
	}
	return math.Sqrt(sum / float64(len(frame)))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
