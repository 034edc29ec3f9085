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

package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/termchat/termchat/internal/crypto"
	"github.com/termchat/termchat/internal/protocol"
	"github.com/termchat/termchat/internal/ring"
)

// VideoBufferCapacity and AudioBufferCapacity are the frame/ring buffer
// slot counts a session is created with (§3 "Frame buffer": "typically
// 3-8 slots for video, 32-64 for audio batches").
const (
	VideoBufferCapacity = 5
	AudioBufferCapacity = 64
)

// CryptoState is a session's live handshake/sealing state (§4.3, §5).
// The key is stored once the X25519 key exchange completes and never
// mutated thereafter; only the nonce counters advance.
type CryptoState struct {
	Ephemeral crypto.EphemeralKeyPair
	Key       crypto.SessionKey
	Send      crypto.SendHalf
	Recv      crypto.RecvHalf
	Sealed    bool // true once handshake-complete has been processed
}

// Session is one TCP connection's worth of state (§3 "Session").
type Session struct {
	ID         uint32
	RemoteAddr string

	mu                  sync.RWMutex
	state               State
	displayName         string
	capabilitiesBitmask uint32
	terminal            protocol.ClientCapabilities
	deadline            time.Time

	sendingVideo atomic.Bool
	sendingAudio atomic.Bool

	Crypto CryptoState

	// VideoFrames holds this session's own incoming IMAGE_FRAME payloads,
	// written only by this session's inbound task. Every other listener's
	// broadcast tick samples it via PeekLatest to build its tiled canvas
	// (§4.1, §4.4); it is never drained as an outbound mailbox.
	VideoFrames *ring.FrameBuffer
	AudioFrames *ring.Buffer[float32]

	// SendQueue is the outbound task's mailbox of already-encoded frames
	// (§3 "send queue"). Buffered so a slow peer can't stall a broadcaster.
	SendQueue chan []byte

	lastActivity atomic.Int64 // unix nanos, the liveness timer (§3)
}

// New creates a Session in AwaitingVersion with fresh buffers.
func New(id uint32, remoteAddr string, handshakeDeadline time.Duration) *Session {
	s := &Session{
		ID:          id,
		RemoteAddr:  remoteAddr,
		state:       AwaitingVersion,
		deadline:    time.Now().Add(handshakeDeadline),
		VideoFrames: ring.NewFrameBuffer(VideoBufferCapacity),
		AudioFrames: ring.NewBuffer[float32](AudioBufferCapacity),
		SendQueue:   make(chan []byte, 32),
	}
	s.Touch()
	return s
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// TransitionTo moves the session to next, resetting the per-state deadline
// if next has one (§4.4).
func (s *Session) TransitionTo(next State, deadlineFromNow time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = next
	if next.HasDeadline() {
		s.deadline = time.Now().Add(deadlineFromNow)
	} else {
		s.deadline = time.Time{}
	}
}

// DeadlineExpired reports whether the session's current pre-Streaming
// deadline has passed.
func (s *Session) DeadlineExpired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.HasDeadline() && !s.deadline.IsZero() && time.Now().After(s.deadline)
}

// Touch refreshes the liveness timer (§3).
func (s *Session) Touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

// IdleFor reports how long it has been since the session's last activity.
func (s *Session) IdleFor() time.Duration {
	return time.Since(time.Unix(0, s.lastActivity.Load()))
}

// SetCapabilities updates the stored terminal capability record and the
// session-level bitmask/display name from a CLIENT_CAPABILITIES packet
// (§4.4 inbound task dispatch).
func (s *Session) SetCapabilities(c protocol.ClientCapabilities) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.displayName = c.DisplayName
	s.capabilitiesBitmask = c.CapabilitiesBitmask
	s.terminal = c
}

// Capabilities returns a copy of the negotiated terminal capability record.
func (s *Session) Capabilities() protocol.ClientCapabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.terminal
}

// DisplayName returns the session's current display name.
func (s *Session) DisplayName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.displayName
}

// SetSendingVideo and SetSendingAudio toggle the STREAM_START/STREAM_STOP
// "is-sending" flags the broadcast loop consults (§4.4).
func (s *Session) SetSendingVideo(sending bool) { s.sendingVideo.Store(sending) }
func (s *Session) SetSendingAudio(sending bool) { s.sendingAudio.Store(sending) }
func (s *Session) IsSendingVideo() bool         { return s.sendingVideo.Load() }
func (s *Session) IsSendingAudio() bool         { return s.sendingAudio.Load() }
