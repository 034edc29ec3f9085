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

// Package session implements the per-connection lifecycle state machine
// described in §4.4: handshake states, Streaming, Draining and Closed, plus
// the registry every inbound/outbound task consults to reach other clients.
package session

import "github.com/termchat/termchat/internal/protocol"

// State is one step of a session's lifecycle (§4.4).
type State int

const (
	AwaitingVersion State = iota
	AwaitingCryptoCaps
	KeyExchange
	Authenticating
	Streaming
	Draining
	Closed
)

func (s State) String() string {
	switch s {
	case AwaitingVersion:
		return "AwaitingVersion"
	case AwaitingCryptoCaps:
		return "AwaitingCryptoCaps"
	case KeyExchange:
		return "KeyExchange"
	case Authenticating:
		return "Authenticating"
	case Streaming:
		return "Streaming"
	case Draining:
		return "Draining"
	case Closed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// HasDeadline reports whether s is one of the pre-Streaming states a
// per-session deadline applies to (§4.4, §5).
func (s State) HasDeadline() bool {
	switch s {
	case AwaitingVersion, AwaitingCryptoCaps, KeyExchange, Authenticating:
		return true
	default:
		return false
	}
}

// Allowed reports whether packet type t may legally be received while in
// state s. Any packet outside this set is a protocol error that transitions
// the session to Closed (§4.4). The encryption opt-out (NO_ENCRYPTION) may
// arrive any time before KEY_EXCHANGE_INIT is sent (§4.3 "Failure
// semantics"), so it's accepted through KeyExchange.
func (s State) Allowed(t protocol.Type) bool {
	switch s {
	case AwaitingVersion:
		return t == protocol.TypeProtocolVersion
	case AwaitingCryptoCaps:
		return t == protocol.TypeCryptoCapabilities || t == protocol.TypeNoEncryption
	case KeyExchange:
		switch t {
		case protocol.TypeKeyExchangeInit, protocol.TypeKeyExchangeResponse, protocol.TypeNoEncryption:
			return true
		default:
			return false
		}
	case Authenticating:
		switch t {
		case protocol.TypeAuthChallenge, protocol.TypeAuthResponse,
			protocol.TypeServerAuthResponse, protocol.TypeAuthFailed,
			protocol.TypeHandshakeComplete:
			return true
		default:
			return false
		}
	case Streaming:
		if t.IsServerOnly() {
			return false
		}
		switch t {
		case protocol.TypeClientCapabilities, protocol.TypeImageFrame, protocol.TypeAudioBatch,
			protocol.TypeStreamStart, protocol.TypeStreamStop, protocol.TypeClientLeave,
			protocol.TypePing, protocol.TypePong, protocol.TypeEncrypted:
			return true
		default:
			return false
		}
	case Draining:
		// Only a final leave or whatever's already in flight is meaningful
		// here. No drain timeout is applied to this state.
		return t == protocol.TypeClientLeave || t == protocol.TypeEncrypted
	default:
		return false
	}
}
