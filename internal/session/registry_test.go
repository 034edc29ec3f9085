// SPDX-License-Identifier: AGPL-3.0-or-later
package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/termchat/termchat/internal/session"
)

type recordingSink struct {
	connections []string
}

func (r *recordingSink) RecordConnection(clientID uint32, remoteAddr, state, reason string) {
	r.connections = append(r.connections, state)
}
func (r *recordingSink) RecordAuth(uint32, string, bool, string) {}

func TestRegistryReserveIsMonotonic(t *testing.T) {
	t.Parallel()
	reg := session.NewRegistry(nil)
	a := reg.Reserve()
	b := reg.Reserve()
	c := reg.Reserve()
	require.Less(t, a, b)
	require.Less(t, b, c)
}

func TestRegistryRegisterGetRemove(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{}
	reg := session.NewRegistry(sink)
	id := reg.Reserve()
	s := session.New(id, "127.0.0.1:1", time.Second)

	require.True(t, reg.Register(s))
	got, ok := reg.Get(id)
	require.True(t, ok)
	require.Same(t, s, got)
	require.Equal(t, 1, reg.Count())

	reg.Remove(s, "clean leave")
	_, ok = reg.Get(id)
	require.False(t, ok)
	require.Equal(t, 0, reg.Count())
	require.Len(t, sink.connections, 2) // one on register, one on remove
}

func TestRegistryActiveCountTracksSendingVideo(t *testing.T) {
	t.Parallel()
	reg := session.NewRegistry(nil)

	a := session.New(reg.Reserve(), "a", time.Second)
	b := session.New(reg.Reserve(), "b", time.Second)
	reg.Register(a)
	reg.Register(b)

	require.Equal(t, 0, reg.ActiveCount())
	a.SetSendingVideo(true)
	require.Equal(t, 1, reg.ActiveCount())
	b.SetSendingVideo(true)
	require.Equal(t, 2, reg.ActiveCount())
}

func TestRegistryShutdownTransitionsSessionsToDraining(t *testing.T) {
	t.Parallel()
	reg := session.NewRegistry(nil)
	s := session.New(reg.Reserve(), "a", time.Second)
	reg.Register(s)

	go func() {
		time.Sleep(5 * time.Millisecond)
		reg.Remove(s, "server shutdown")
	}()

	reg.Shutdown(100 * time.Millisecond)
	require.Equal(t, session.Draining, s.State())
}

func TestRegistryRejectsRegisterAfterShutdown(t *testing.T) {
	t.Parallel()
	reg := session.NewRegistry(nil)
	reg.Shutdown(10 * time.Millisecond)

	s := session.New(reg.Reserve(), "a", time.Second)
	require.False(t, reg.Register(s))
}
