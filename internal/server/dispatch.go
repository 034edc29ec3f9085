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

package server

import (
	"bytes"
	"compress/flate"
	"context"
	"hash/crc32"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/termchat/termchat/internal/crypto"
	"github.com/termchat/termchat/internal/protocol"
	"github.com/termchat/termchat/internal/render"
	"github.com/termchat/termchat/internal/ring"
	"github.com/termchat/termchat/internal/session"
)

// renderBufCap bounds one ASCII_FRAME's rendered output; large enough for
// any practical terminal grid at truecolor + half-block (the worst case per
// cell), small enough to stay a cheap per-broadcast allocation.
const renderBufCap = 256 * 1024

// handleConn drives one accepted connection end to end: handshake, then
// registry membership, then the inbound/outbound task pair until either
// side closes (§4.4, §5).
func (s *Server) handleConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	id := s.registry.Reserve()
	sess := session.New(id, conn.RemoteAddr().String(), s.cfg.Server.HandshakeDeadline)

	if _, err := s.runHandshake(ctx, conn, sess); err != nil {
		slog.Info("handshake failed", "remote", sess.RemoteAddr, "error", err)
		return
	}
	if !s.registry.Register(sess) {
		return
	}
	s.broadcastServerState()
	defer func() {
		s.registry.Remove(sess, "connection closed")
		s.broadcastServerState()
	}()

	s.registerMixer(sess.ID)
	defer s.unregisterMixer(sess.ID)
	s.registry.Range(func(other *session.Session) bool {
		if other.ID != sess.ID && other.IsSendingAudio() {
			if m, ok := s.mixers.Load(sess.ID); ok {
				_ = m.AddSource(other.ID, other.AudioFrames)
			}
		}
		return true
	})
	defer s.removeAudioSource(sess)

	done := make(chan struct{})
	var closeOnce sync.Once
	closeDone := func() { closeOnce.Do(func() { close(done) }) }

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); defer closeDone(); s.outboundLoop(conn, sess, done) }()
	go func() { defer wg.Done(); defer closeDone(); s.inboundLoop(conn, sess, done) }()
	wg.Wait()
}

func (s *Server) inboundLoop(conn net.Conn, sess *session.Session, done <-chan struct{}) {
	_ = conn.SetReadDeadline(noDeadline)
	for {
		select {
		case <-done:
			return
		default:
		}
		pkt, err := s.readAny(conn, sess)
		if err != nil {
			sess.TransitionTo(session.Closed, 0)
			return
		}
		if pkt.Type == protocol.TypeEncrypted {
			inner, err := s.openInner(sess, pkt)
			if err != nil {
				sess.TransitionTo(session.Closed, 0)
				return
			}
			pkt = inner
		}
		if err := s.dispatch(sess, pkt); err != nil {
			sess.TransitionTo(session.Closed, 0)
			return
		}
		if sess.State() == session.Closed {
			return
		}
	}
}

// defaultVideoFPS paces a listener's broadcast tick before CLIENT_CAPABILITIES
// has negotiated a DesiredFPS (§3, §4.4).
const defaultVideoFPS = 30

// outboundLoop runs two independent timers for one listener: the fixed
// audioTick driving the mixer, and a self-resetting timer keyed on the
// listener's own negotiated DesiredFPS driving the tiled video broadcast
// (§3, §4.4 "fires at the listener's desired FPS").
func (s *Server) outboundLoop(conn net.Conn, sess *session.Session, done <-chan struct{}) {
	audioTicker := time.NewTicker(audioTick)
	defer audioTicker.Stop()

	videoTimer := time.NewTimer(videoPeriod(sess))
	defer videoTimer.Stop()

	for {
		select {
		case <-done:
			return
		case pkt, ok := <-sess.SendQueue:
			if !ok {
				return
			}
			if _, err := conn.Write(pkt); err != nil {
				sess.TransitionTo(session.Closed, 0)
				return
			}
		case <-audioTicker.C:
			if s.mixAndSendAudio(conn, sess) != nil {
				return
			}
		case <-videoTimer.C:
			if s.broadcastVideoTick(conn, sess) != nil {
				return
			}
			videoTimer.Reset(videoPeriod(sess))
		}
		if sess.State() == session.Closed {
			return
		}
	}
}

// videoPeriod converts sess's negotiated DesiredFPS into a tick interval,
// falling back to defaultVideoFPS before capabilities arrive or if the
// client never set one.
func videoPeriod(sess *session.Session) time.Duration {
	fps := int(sess.Capabilities().DesiredFPS)
	if fps <= 0 {
		fps = defaultVideoFPS
	}
	return time.Second / time.Duration(fps)
}

func (s *Server) mixAndSendAudio(conn net.Conn, sess *session.Session) error {
	m, ok := s.mixers.Load(sess.ID)
	if !ok || m.ActiveCount() == 0 {
		return nil
	}
	out := make([]float32, protocol.AudioSamplesPerPacket)
	mixed := m.MixFrame(out)
	batch := protocol.AudioBatch{
		BatchCount:   1,
		TotalSamples: uint32(len(mixed)),
		SampleRate:   48000,
		Channels:     1,
		Samples:      mixed,
	}
	pkt, err := s.packetFor(sess, protocol.TypeAudioBatch, protocol.EncodeAudioBatch(batch))
	if err != nil {
		return nil
	}
	if _, err := conn.Write(pkt); err != nil {
		sess.TransitionTo(session.Closed, 0)
		return err
	}
	return nil
}

// packetFor encodes typ+payload as a plain or ENCRYPTED outer packet
// depending on whether sess completed an encrypted handshake.
func (s *Server) packetFor(sess *session.Session, typ protocol.Type, payload []byte) ([]byte, error) {
	if sess.Crypto.Sealed {
		inner, err := encodePacket(typ, sess.ID, payload)
		if err != nil {
			return nil, err
		}
		sealed := crypto.Seal(&sess.Crypto.Send, sess.Crypto.Key, inner)
		return encodePacket(protocol.TypeEncrypted, sess.ID, sealed)
	}
	return encodePacket(typ, sess.ID, payload)
}

// reply queues typ+payload on sess's outbound mailbox, dropping it rather
// than blocking the inbound task if the peer is too slow to drain it (§5).
func (s *Server) reply(sess *session.Session, typ protocol.Type, payload []byte) {
	pkt, err := s.packetFor(sess, typ, payload)
	if err != nil {
		return
	}
	select {
	case sess.SendQueue <- pkt:
	default:
	}
}

func (s *Server) dispatch(sess *session.Session, pkt protocol.Packet) error {
	switch pkt.Type {
	case protocol.TypeClientCapabilities:
		c, err := protocol.DecodeClientCapabilities(pkt.Payload)
		if err != nil {
			return err
		}
		sess.SetCapabilities(c)
		return nil
	case protocol.TypePing:
		s.reply(sess, protocol.TypePong, nil)
		return nil
	case protocol.TypePong:
		return nil
	case protocol.TypeClientLeave:
		sess.TransitionTo(session.Closed, 0)
		return nil
	case protocol.TypeStreamStart:
		sess.SetSendingVideo(true)
		if sess.Capabilities().CapabilitiesBitmask&protocol.SessionCapAudio != 0 {
			sess.SetSendingAudio(true)
			s.addAudioSource(sess)
		}
		return nil
	case protocol.TypeStreamStop:
		sess.SetSendingVideo(false)
		if sess.IsSendingAudio() {
			sess.SetSendingAudio(false)
			s.removeAudioSource(sess)
		}
		return nil
	case protocol.TypeImageFrame:
		frame, err := protocol.DecodeImageFrame(pkt.Payload)
		if err != nil {
			return err
		}
		sess.VideoFrames.Push(ring.Frame{Sequence: uint64(frame.Timestamp), Payload: pkt.Payload})
		return nil
	case protocol.TypeAudioBatch:
		batch, err := protocol.DecodeAudioBatch(pkt.Payload)
		if err != nil {
			return err
		}
		for _, sample := range batch.Samples {
			_ = sess.AudioFrames.Push(sample)
		}
		return nil
	default:
		return protocol.UnknownType(pkt.Type)
	}
}

// addAudioSource registers sess as a mixable source in every other
// Streaming listener's mixer (§4.5).
func (s *Server) addAudioSource(sess *session.Session) {
	s.registry.Range(func(listener *session.Session) bool {
		if listener.ID == sess.ID {
			return true
		}
		if m, ok := s.mixers.Load(listener.ID); ok {
			_ = m.AddSource(sess.ID, sess.AudioFrames)
		}
		return true
	})
}

// removeAudioSource is the inverse of addAudioSource, called on
// STREAM_STOP/CLIENT_LEAVE/disconnect.
func (s *Server) removeAudioSource(sess *session.Session) {
	s.registry.Range(func(listener *session.Session) bool {
		if m, ok := s.mixers.Load(listener.ID); ok {
			_ = m.RemoveSource(sess.ID)
		}
		return true
	})
}

// broadcastVideoTick gathers the latest video frame from every other
// currently streaming+sending source, composes one tiled RGB canvas sized
// to listener's own cell grid, renders it at listener's negotiated color
// level/render mode, and writes the result directly to conn plus the
// spectator bridge topic (§2, §3, §4.4 broadcast steps 1-5).
func (s *Server) broadcastVideoTick(conn net.Conn, listener *session.Session) error {
	if listener.State() != session.Streaming {
		return nil
	}

	var sources []protocol.ImageFrame
	s.registry.Range(func(other *session.Session) bool {
		if other.ID == listener.ID || other.State() != session.Streaming || !other.IsSendingVideo() {
			return true
		}
		latest, ok := other.VideoFrames.PeekLatest()
		if !ok {
			return true
		}
		frame, err := protocol.DecodeImageFrame(latest.Payload)
		if err != nil {
			return true
		}
		sources = append(sources, frame)
		return true
	})
	if len(sources) == 0 {
		return nil
	}

	caps := listener.Capabilities()
	canvasW, canvasH := canvasSize(caps)
	canvas := composeTiledCanvas(sources, canvasW, canvasH)

	cache := s.render.Current()
	buf := make([]byte, renderBufCap)
	n := render.Render(canvas, canvasW, canvasH, protocol.PixelFormatRGB, caps.RenderMode, caps.ColorLevel, cache, buf)
	ascii := buf[:n]

	data, flags := maybeCompress(ascii, s.cfg.Server.CompressionThresholdPct)
	wire := protocol.EncodeASCIIFrame(protocol.ASCIIFrame{
		Width:          uint32(canvasW),
		Height:         uint32(canvasH),
		OriginalSize:   uint32(len(ascii)),
		CompressedSize: uint32(len(data)),
		Checksum:       crc32.ChecksumIEEE(ascii),
		Flags:          flags,
		Data:           data,
	})

	pkt, err := s.packetFor(listener, protocol.TypeASCIIFrame, wire)
	if err != nil {
		return nil
	}
	if _, err := conn.Write(pkt); err != nil {
		listener.TransitionTo(session.Closed, 0)
		return err
	}
	s.spectatorPublish(listener.ID, ascii)
	return nil
}

// broadcastServerState pushes a SERVER_STATE packet to every registered
// session, triggered whenever a session enters or leaves Streaming (§4.4
// "Server-state broadcast").
func (s *Server) broadcastServerState() {
	payload := protocol.EncodeServerState(protocol.ServerState{
		ConnectedCount: uint32(s.registry.Count()),
		ActiveCount:    uint32(s.registry.ActiveCount()),
	})
	s.registry.Range(func(sess *session.Session) bool {
		s.reply(sess, protocol.TypeServerState, payload)
		return true
	})
}

// maybeCompress deflates data and keeps the result only when it beats
// thresholdPct of the original size (§4.4 outbound broadcast task, step 5).
func maybeCompress(data []byte, thresholdPct int) ([]byte, uint32) {
	if thresholdPct <= 0 || thresholdPct >= 100 || len(data) == 0 {
		return data, 0
	}
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestSpeed)
	if err != nil {
		return data, 0
	}
	if _, err := w.Write(data); err != nil {
		return data, 0
	}
	if err := w.Close(); err != nil {
		return data, 0
	}
	if buf.Len()*100 <= len(data)*thresholdPct {
		return buf.Bytes(), protocol.FlagIsCompressed
	}
	return data, 0
}
