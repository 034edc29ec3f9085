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

package ring

import "sync"

// Frame is one rendered or raw video frame queued for a session's outbound
// broadcast task. Sequence lets a consumer detect a drop-oldest gap.
type Frame struct {
	Sequence uint64
	Payload  []byte
}

// FrameBuffer is a mutex-guarded drop-oldest queue of Frame descriptors.
// One session owns the buffer and is its only writer, pushing its own
// incoming video frames; every other session's broadcast tick is a reader,
// sampling the newest frame via PeekLatest without consuming it, so a single
// lock around a small fixed-size slice is simpler and just as fast as
// anything lock-free would be at this fan-out width (§4.1, §4.4).
type FrameBuffer struct {
	mu       sync.Mutex
	frames   []Frame
	capacity int
	dropped  uint64
}

// NewFrameBuffer creates a FrameBuffer that holds at most capacity frames,
// discarding the oldest queued frame when a Push would exceed it.
func NewFrameBuffer(capacity int) *FrameBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &FrameBuffer{
		frames:   make([]Frame, 0, capacity),
		capacity: capacity,
	}
}

// Push enqueues a frame, dropping the oldest queued frame first if full.
// Reports whether a drop occurred.
func (f *FrameBuffer) Push(frame Frame) (dropped bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) >= f.capacity {
		f.frames = f.frames[1:]
		f.dropped++
		dropped = true
	}
	f.frames = append(f.frames, frame)
	return dropped
}

// PeekLatest returns a copy of the newest queued frame's payload without
// consuming it — the caller owns the copy (§4.1). This is the primitive the
// per-listener broadcast tick uses to sample every other source's most
// recent frame without racing that source's own writer.
func (f *FrameBuffer) PeekLatest() (frame Frame, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return Frame{}, false
	}
	latest := f.frames[len(f.frames)-1]
	payload := make([]byte, len(latest.Payload))
	copy(payload, latest.Payload)
	return Frame{Sequence: latest.Sequence, Payload: payload}, true
}

// Pop dequeues the oldest frame. ok is false if the buffer is empty.
func (f *FrameBuffer) Pop() (frame Frame, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.frames) == 0 {
		return Frame{}, false
	}
	frame = f.frames[0]
	f.frames = f.frames[1:]
	return frame, true
}

// Len returns the number of queued frames.
func (f *FrameBuffer) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

// Dropped returns the total number of frames discarded under the drop-oldest
// policy over this buffer's lifetime.
func (f *FrameBuffer) Dropped() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}
