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
	"net"
	"time"

	"github.com/termchat/termchat/internal/crypto"
	"github.com/termchat/termchat/internal/protocol"
	"github.com/termchat/termchat/internal/session"
)

var noDeadline time.Time

// handshakeMarkerPayload is the single reserved byte HANDSHAKE_COMPLETE and
// NO_ENCRYPTION carry, since neither type is in the control class that
// Decode otherwise allows an empty payload for (§4.2, §4.3).
var handshakeMarkerPayload = []byte{0}

func setDeadline(conn net.Conn, d time.Duration) {
	if d > 0 {
		_ = conn.SetDeadline(time.Now().Add(d))
	}
}

// encodePacket renders a complete header+payload frame for typ, without
// writing it anywhere, so it can be sealed as an inner packet or queued
// verbatim as an outer one (§4.2, §4.3 "Sealing a data-plane packet").
func encodePacket(typ protocol.Type, clientID uint32, payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := protocol.Encode(&buf, typ, clientID, payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// send writes a plaintext handshake packet directly to conn (handshake
// types are always plaintext, §3).
func (s *Server) send(conn net.Conn, sess *session.Session, typ protocol.Type, payload []byte) error {
	return protocol.Encode(conn, typ, sess.ID, payload)
}

// readAny reads the next packet from conn and verifies it's legal for the
// session's current state, without constraining which legal type it is.
func (s *Server) readAny(conn net.Conn, sess *session.Session) (protocol.Packet, error) {
	pkt, err := protocol.Decode(conn)
	if err != nil {
		return protocol.Packet{}, err
	}
	sess.Touch()
	if !sess.State().Allowed(pkt.Type) {
		return protocol.Packet{}, protocol.OutOfState(pkt.Type, sess.State().String())
	}
	return pkt, nil
}

// readExpected reads the next packet and requires it be exactly want.
func (s *Server) readExpected(conn net.Conn, sess *session.Session, want protocol.Type) (protocol.Packet, error) {
	pkt, err := s.readAny(conn, sess)
	if err != nil {
		return pkt, err
	}
	if pkt.Type != want {
		return protocol.Packet{}, protocol.OutOfState(pkt.Type, sess.State().String())
	}
	return pkt, nil
}

// openInner unseals an ENCRYPTED packet's payload and decodes the inner
// header+payload it wraps (§4.3).
func (s *Server) openInner(sess *session.Session, outer protocol.Packet) (protocol.Packet, error) {
	plain, err := crypto.Open(&sess.Crypto.Recv, sess.Crypto.Key, outer.Payload)
	if err != nil {
		return protocol.Packet{}, err
	}
	return protocol.Decode(bytes.NewReader(plain))
}
