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

// Package server wires the packet codec, crypto pipeline, session state
// machine, audio mixer and ASCII renderer into the TCP service described in
// §4, §5: one goroutine pair per connection, a shared palette cache, a
// per-listener mixer, and a per-listener broadcast tick that composes every
// other streaming peer's latest video frame into one tiled canvas at the
// listener's own desired FPS.
package server

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/termchat/termchat/internal/config"
	"github.com/termchat/termchat/internal/httpapi/websocket"
	"github.com/termchat/termchat/internal/keyresolver"
	"github.com/termchat/termchat/internal/mixer"
	"github.com/termchat/termchat/internal/pubsub"
	"github.com/termchat/termchat/internal/render"
	"github.com/termchat/termchat/internal/session"
	"github.com/puzpuzpuz/xsync/v4"
)

// ErrAlreadyStarted is returned by Start when called more than once.
var ErrAlreadyStarted = errors.New("server: already started")

// Server is the TCP chat service: one listener, a session registry, the
// shared render cache and one audio mixer per connected listener.
type Server struct {
	cfg *config.Config

	resolver    keyresolver.Resolver
	allowedKeys []ed25519.PublicKey

	registry *session.Registry
	render   *render.Manager
	ps       pubsub.PubSub

	mixers *xsync.Map[uint32, *mixer.Mixer]

	listener net.Listener
	wg       sync.WaitGroup
	started  bool
	mu       sync.Mutex
}

// New builds a Server. audit may be nil (discards events). ps may be nil
// (spectator publishing is skipped) — a single-instance deployment with
// HTTP.SpectatorEnabled=false never needs a pubsub backend for this package.
func New(cfg *config.Config, audit session.AuditSink, ps pubsub.PubSub) (*Server, error) {
	resolver, allowedKeys, err := buildKeyMaterial(cfg)
	if err != nil {
		return nil, err
	}

	palettes, err := render.BuiltinPalettes()
	if err != nil {
		return nil, fmt.Errorf("server: load palettes: %w", err)
	}
	palette, ok := palettes[string(cfg.Palette.Selector)]
	if !ok {
		palette = render.Palette{Name: "custom", Glyphs: []rune(cfg.Palette.Custom)}
		if len(palette.Glyphs) == 0 {
			return nil, fmt.Errorf("server: unknown palette %q and no custom glyph ramp configured", cfg.Palette.Selector)
		}
	}

	return &Server{
		cfg:         cfg,
		resolver:    resolver,
		allowedKeys: allowedKeys,
		registry:    session.NewRegistry(audit),
		render:      render.NewManager(palette),
		ps:          ps,
		mixers:      xsync.NewMap[uint32, *mixer.Mixer](),
	}, nil
}

func buildKeyMaterial(cfg *config.Config) (keyresolver.Resolver, []ed25519.PublicKey, error) {
	var resolver keyresolver.Resolver
	switch cfg.Encryption.KeyMaterial.Kind {
	case config.KeyMaterialFile:
		resolver = keyresolver.FileResolver{}
	case config.KeyMaterialURL:
		return nil, nil, fmt.Errorf("server: key material kind %q requires an external keyresolver.Resolver, none configured", cfg.Encryption.KeyMaterial.Kind)
	default:
		resolver = keyresolver.PasswordResolver{}
	}

	var allowed []ed25519.PublicKey
	if cfg.Encryption.AllowedClientKeysFile != "" {
		keys, err := keyresolver.LoadAllowedKeys(cfg.Encryption.AllowedClientKeysFile)
		if err != nil {
			return nil, nil, fmt.Errorf("server: load allowed-client-keys: %w", err)
		}
		allowed = keys
	}
	return resolver, allowed, nil
}

// Start binds the listener and begins accepting connections in the
// background. It returns once the listener is bound, mirroring the
// teacher's hbrp.Server.Start(ctx) non-blocking shape.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Server.BindV4, s.cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	s.listener = ln
	s.started = true

	s.wg.Add(1)
	go s.acceptLoop(ctx)

	slog.Info("termchat server listening", "addr", ln.Addr().String())
	return nil
}

// Stop closes the listener, drains every session per §5's shutdown grace
// period, and waits for the accept loop to exit.
func (s *Server) Stop(_ context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return nil
	}
	err := ln.Close()
	s.registry.Shutdown(s.cfg.Server.ShutdownGrace)
	s.wg.Wait()
	return err
}

// Addr returns the bound listener address, or nil if Start hasn't run.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.registry.Done():
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			slog.Error("accept failed", "error", err)
			continue
		}
		if s.registry.Count() >= s.cfg.Server.MaxClients {
			slog.Warn("rejecting connection: at capacity", "remote", conn.RemoteAddr())
			conn.Close()
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(ctx, conn)
		}()
	}
}

// Janitor reaps sessions whose pre-Streaming handshake deadline has
// expired and idle Streaming sessions past ReceiveTimeout, for a gocron
// job in the entrypoint to call on a fixed interval (§4.4, §5).
func (s *Server) Janitor() {
	var stale []*session.Session
	s.registry.Range(func(sess *session.Session) bool {
		if sess.DeadlineExpired() {
			stale = append(stale, sess)
		} else if sess.State() == session.Streaming && sess.IdleFor() > s.cfg.Server.ReceiveTimeout {
			stale = append(stale, sess)
		}
		return true
	})
	for _, sess := range stale {
		sess.TransitionTo(session.Closed, 0)
	}
}

// registerMixer and unregisterMixer keep every Streaming listener's mixer
// reachable by client id so an inbound AUDIO_BATCH or STREAM_START/STOP can
// update every other session's mix (§4.5).
func (s *Server) registerMixer(listenerID uint32) *mixer.Mixer {
	m := mixer.New(listenerID, s.cfg.Server.MaxClients, mixer.DefaultParams())
	actual, _ := s.mixers.LoadOrStore(listenerID, m)
	return actual
}

func (s *Server) unregisterMixer(listenerID uint32) {
	s.mixers.Delete(listenerID)
}

// spectatorPublish forwards a rendered ASCII frame to the spectator bridge
// topic for this session, a no-op when no pubsub backend is configured
// (§6 "Spectator bridge").
func (s *Server) spectatorPublish(clientID uint32, frame []byte) {
	if s.ps == nil {
		return
	}
	if err := s.ps.Publish(websocket.SpectatorTopic(clientID), frame); err != nil {
		slog.Debug("spectator publish failed", "clientId", clientID, "error", err)
	}
}

const audioTick = 20 * time.Millisecond
