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

package protocol

// NonceLen is the width of the XSalsa20-Poly1305 nonce carried in an
// ENCRYPTED payload (§4.3, §6).
const NonceLen = 24

// MACLen is the width of the Poly1305 MAC nacl/secretbox appends to its
// sealed output (§4.3, §6).
const MACLen = 16

// SplitEncrypted breaks an ENCRYPTED packet's payload into its nonce and
// the remaining sealed box (ciphertext || mac), the layout the crypto
// pipeline opens (§4.3, §6). It does not itself verify the MAC.
func SplitEncrypted(payload []byte) (nonce [NonceLen]byte, box []byte, err error) {
	if len(payload) < NonceLen+MACLen {
		return nonce, nil, &Error{Kind: ErrKindProtocol, Reason: "ENCRYPTED payload shorter than nonce+mac"}
	}
	copy(nonce[:], payload[:NonceLen])
	box = payload[NonceLen:]
	return nonce, box, nil
}

// JoinEncrypted assembles an ENCRYPTED packet's payload from a nonce and a
// sealed box (ciphertext || mac produced by nacl/secretbox.Seal).
func JoinEncrypted(nonce [NonceLen]byte, box []byte) []byte {
	buf := make([]byte, NonceLen+len(box))
	copy(buf, nonce[:])
	copy(buf[NonceLen:], box)
	return buf
}
