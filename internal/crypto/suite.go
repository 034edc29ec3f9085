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

// Package crypto implements the handshake and per-packet sealing described
// in §4.3: X25519 key exchange, optional Ed25519 identity proof, and
// XSalsa20-Poly1305 AEAD of the data plane.
package crypto

// Mandatory suite sizes (§4.3 step 2 — "Current mandatory suite: X25519 +
// Ed25519 (optional) + XSalsa20-Poly1305"). A CryptoParameters packet
// declares these to the peer so both ends agree without hardcoding them
// into the wire format itself.
const (
	PublicKeySize    = 32 // X25519 / Ed25519 public key
	PrivateKeySize   = 32 // X25519 scalar
	SignatureSize    = 64 // Ed25519 signature
	SharedSecretSize = 32 // X25519 ECDH output, pre-KDF
	SymmetricKeySize = 32 // XSalsa20-Poly1305 key
	NonceSize        = 24 // XSalsa20-Poly1305 nonce
	MACSize          = 16 // Poly1305 tag
	ChallengeSize    = 32 // auth-challenge nonce (§4.3 step 4)
	HMACSize         = 32 // HMAC-SHA-256 output
)

// ContextLabel is hashed together with the ECDH shared secret to derive the
// symmetric data-plane key (§4.3 step 3), domain-separating it from any
// other use of the same X25519 keys.
const ContextLabel = "termchat-data-plane-v1"

// AuthFailReason is a bitmask reported in AUTH_FAILED (§4.3 step 4).
type AuthFailReason uint32

const (
	AuthFailPasswordRequired  AuthFailReason = 1 << 0
	AuthFailPasswordIncorrect AuthFailReason = 1 << 1
	AuthFailClientKeyRequired AuthFailReason = 1 << 2
	AuthFailClientKeyRejected AuthFailReason = 1 << 3
	AuthFailSignatureInvalid  AuthFailReason = 1 << 4
)
