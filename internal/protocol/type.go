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

// Package protocol implements the wire framing for termchat's packet
// protocol: a magic-tagged, length-prefixed, CRC32-checksummed header
// followed by a type-specific payload (§3, §4.2, §6).
package protocol

import "fmt"

// Type is the 16-bit packet type enum carried in every header.
type Type uint16

const (
	// Handshake types (§4.3) — always plaintext, never wrapped in Encrypted.
	TypeProtocolVersion   Type = 0x0001
	TypeCryptoCapabilities Type = 0x0002
	TypeCryptoParameters   Type = 0x0003
	TypeKeyExchangeInit    Type = 0x0004
	TypeKeyExchangeResponse Type = 0x0005
	TypeAuthChallenge      Type = 0x0006
	TypeAuthResponse       Type = 0x0007
	TypeServerAuthResponse Type = 0x0008
	TypeAuthFailed         Type = 0x0009
	TypeHandshakeComplete  Type = 0x000A
	TypeNoEncryption       Type = 0x000B

	// Data-plane types (§4.2) — encrypted whenever the session has a live key.
	TypeClientCapabilities Type = 0x0101
	TypeImageFrame         Type = 0x0102
	TypeASCIIFrame         Type = 0x0103
	TypeAudioBatch         Type = 0x0104
	TypeServerState        Type = 0x0105
	TypeClearConsole       Type = 0x0106

	// Control types (§3, §4.2) — follow the data-plane encryption rule;
	// empty payload is the only payload these carry.
	TypePing        Type = 0x0201
	TypePong        Type = 0x0202
	TypeClientLeave Type = 0x0203
	TypeStreamStart Type = 0x0204
	TypeStreamStop  Type = 0x0205

	// TypeEncrypted wraps a full inner header+payload sealed under the
	// session's symmetric key (§4.3).
	TypeEncrypted Type = 0x0301
)

// IsHandshake reports whether t belongs to the handshake class, which is
// always plaintext regardless of session crypto state. The predicate is
// fixed at compile time and must agree on both ends of the wire (§3).
func (t Type) IsHandshake() bool {
	switch t {
	case TypeProtocolVersion, TypeCryptoCapabilities, TypeCryptoParameters,
		TypeKeyExchangeInit, TypeKeyExchangeResponse, TypeAuthChallenge,
		TypeAuthResponse, TypeServerAuthResponse, TypeAuthFailed,
		TypeHandshakeComplete, TypeNoEncryption:
		return true
	default:
		return false
	}
}

// IsControl reports whether t belongs to the control class, whose payload
// may legally be empty (§3).
func (t Type) IsControl() bool {
	switch t {
	case TypePing, TypePong, TypeClientLeave, TypeStreamStart, TypeStreamStop:
		return true
	default:
		return false
	}
}

// IsServerOnly reports whether t may only originate from the server; a
// client sending one of these is a protocol error (§4.4).
func (t Type) IsServerOnly() bool {
	switch t {
	case TypeClearConsole, TypeServerState:
		return true
	default:
		return false
	}
}

// AllowsEmptyPayload reports whether t may carry a zero-length payload.
func (t Type) AllowsEmptyPayload() bool {
	return t.IsControl()
}

func (t Type) String() string {
	switch t {
	case TypeProtocolVersion:
		return "PROTOCOL_VERSION"
	case TypeCryptoCapabilities:
		return "CRYPTO_CAPABILITIES"
	case TypeCryptoParameters:
		return "CRYPTO_PARAMETERS"
	case TypeKeyExchangeInit:
		return "KEY_EXCHANGE_INIT"
	case TypeKeyExchangeResponse:
		return "KEY_EXCHANGE_RESPONSE"
	case TypeAuthChallenge:
		return "AUTH_CHALLENGE"
	case TypeAuthResponse:
		return "AUTH_RESPONSE"
	case TypeServerAuthResponse:
		return "SERVER_AUTH_RESPONSE"
	case TypeAuthFailed:
		return "AUTH_FAILED"
	case TypeHandshakeComplete:
		return "HANDSHAKE_COMPLETE"
	case TypeNoEncryption:
		return "NO_ENCRYPTION"
	case TypeClientCapabilities:
		return "CLIENT_CAPABILITIES"
	case TypeImageFrame:
		return "IMAGE_FRAME"
	case TypeASCIIFrame:
		return "ASCII_FRAME"
	case TypeAudioBatch:
		return "AUDIO_BATCH"
	case TypeServerState:
		return "SERVER_STATE"
	case TypeClearConsole:
		return "CLEAR_CONSOLE"
	case TypePing:
		return "PING"
	case TypePong:
		return "PONG"
	case TypeClientLeave:
		return "CLIENT_LEAVE"
	case TypeStreamStart:
		return "STREAM_START"
	case TypeStreamStop:
		return "STREAM_STOP"
	case TypeEncrypted:
		return "ENCRYPTED"
	default:
		return fmt.Sprintf("UNKNOWN(0x%04x)", uint16(t))
	}
}
