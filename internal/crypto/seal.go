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

package crypto

import (
	"errors"

	"github.com/termchat/termchat/internal/protocol"
	"golang.org/x/crypto/nacl/secretbox"
)

// ErrOpenFailed reports an AEAD authentication failure — any occurrence
// drops the connection (§4.3 "Failure semantics").
var ErrOpenFailed = errors.New("crypto: secretbox open failed")

// SessionKey is the symmetric key cloned into a session's inbound and
// outbound tasks at handshake-complete; it is never mutated thereafter
// (§5 "Shared-resource policy").
type SessionKey [SymmetricKeySize]byte

// Seal wraps header+payload bytes (an already-encoded inner packet) as the
// payload of a PACKET_TYPE_ENCRYPTED packet: nonce || ciphertext || mac
// (§4.3 "Sealing a data-plane packet").
func Seal(send *SendHalf, key SessionKey, innerPacket []byte) []byte {
	nonce := send.Next()
	sealed := secretbox.Seal(nil, innerPacket, &nonce, (*[SymmetricKeySize]byte)(&key))
	return protocol.JoinEncrypted(nonce, sealed)
}

// Open reverses Seal: it splits an ENCRYPTED payload, rejects a repeated or
// non-increasing nonce, and authenticates+decrypts the inner packet bytes.
func Open(recv *RecvHalf, key SessionKey, encryptedPayload []byte) ([]byte, error) {
	nonce, box, err := protocol.SplitEncrypted(encryptedPayload)
	if err != nil {
		return nil, err
	}
	if err := recv.Check(nonce); err != nil {
		return nil, err
	}
	inner, ok := secretbox.Open(nil, box, &nonce, (*[SymmetricKeySize]byte)(&key))
	if !ok {
		return nil, ErrOpenFailed
	}
	return inner, nil
}
