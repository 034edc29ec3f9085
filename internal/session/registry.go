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

	"github.com/puzpuzpuz/xsync/v4"
)

// AuditSink persists session lifecycle and auth outcomes for operators
// (SPEC_FULL's supplemented audit-sink feature — see DESIGN.md). Satisfied
// by internal/db without this package importing gorm.
type AuditSink interface {
	RecordConnection(clientID uint32, remoteAddr, state, reason string)
	RecordAuth(clientID uint32, remoteAddr string, success bool, failReason string)
}

// NopAuditSink discards every event; used when no database is configured.
type NopAuditSink struct{}

func (NopAuditSink) RecordConnection(uint32, string, string, string) {}
func (NopAuditSink) RecordAuth(uint32, string, bool, string)         {}

// Registry tracks every live session by client id, mirroring the shared-
// resource policy in §5 ("guarded by a reader-writer lock; broadcasts take
// a read lock per tick; inserts and removes take a write lock") — xsync.Map
// gives the same effect with finer-grained locking, the pattern the teacher
// already uses for its hub's per-entity maps.
type Registry struct {
	sessions *xsync.Map[uint32, *Session]
	nextID   atomic.Uint32
	count    atomic.Int64

	audit AuditSink

	stopping atomic.Bool
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewRegistry creates an empty session registry. audit may be nil, in
// which case events are discarded.
func NewRegistry(audit AuditSink) *Registry {
	if audit == nil {
		audit = NopAuditSink{}
	}
	return &Registry{
		sessions: xsync.NewMap[uint32, *Session](),
		audit:    audit,
		done:     make(chan struct{}),
	}
}

// Reserve allocates the next monotonic client id without yet registering a
// session under it (§3 "unique client id (monotonic)").
func (r *Registry) Reserve() uint32 {
	return r.nextID.Add(1)
}

// Register adds sess to the registry, keyed by its ID. Returns false if the
// registry is draining for shutdown, in which case the caller must close
// the connection instead.
func (r *Registry) Register(sess *Session) bool {
	if r.stopping.Load() {
		return false
	}
	r.wg.Add(1)
	r.sessions.Store(sess.ID, sess)
	r.count.Add(1)
	r.audit.RecordConnection(sess.ID, sess.RemoteAddr, sess.State().String(), "")
	return true
}

// Remove reclaims a session's id and drains its buffers (§3 "On exit, all
// buffers owned by the session are drained and its id is reclaimed").
func (r *Registry) Remove(sess *Session, reason string) {
	if _, loaded := r.sessions.LoadAndDelete(sess.ID); loaded {
		for {
			if _, ok := sess.VideoFrames.Pop(); !ok {
				break
			}
		}
		for {
			if _, err := sess.AudioFrames.Pop(); err != nil {
				break
			}
		}
		r.count.Add(-1)
		r.audit.RecordConnection(sess.ID, sess.RemoteAddr, Closed.String(), reason)
		r.wg.Done()
	}
}

// Get looks up a session by client id.
func (r *Registry) Get(id uint32) (*Session, bool) {
	return r.sessions.Load(id)
}

// Range iterates every registered session. The callback must not block;
// broadcasting copies what it needs and returns promptly (§5).
func (r *Registry) Range(fn func(*Session) bool) {
	r.sessions.Range(func(_ uint32, sess *Session) bool {
		return fn(sess)
	})
}

// Count returns the number of registered sessions, for SERVER_STATE's
// connected_count (§4.4, §6).
func (r *Registry) Count() int {
	return int(r.count.Load())
}

// ActiveCount returns the number of sessions currently sending video, for
// SERVER_STATE's active_count (§4.4, §6).
func (r *Registry) ActiveCount() int {
	n := 0
	r.Range(func(sess *Session) bool {
		if sess.IsSendingVideo() {
			n++
		}
		return true
	})
	return n
}

// Shutdown signals every session to enter Draining and waits up to grace
// for all of them to be removed before returning (§5 "Global shutdown
// signals every session to enter Draining and waits for every thread to
// join within a bounded grace period before force-exiting").
func (r *Registry) Shutdown(grace time.Duration) {
	r.stopOnce.Do(func() {
		r.stopping.Store(true)
		close(r.done)
	})
	r.Range(func(sess *Session) bool {
		sess.TransitionTo(Draining, 0)
		return true
	})

	waited := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(grace):
	}
}

// Done returns a channel closed once Shutdown has been called, so blocked
// sends elsewhere can unblock during shutdown.
func (r *Registry) Done() <-chan struct{} {
	return r.done
}
