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
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/box"
)

// EphemeralKeyPair is one side's X25519 key-exchange keypair (§4.3 step 3).
type EphemeralKeyPair struct {
	Public  [PublicKeySize]byte
	private [PrivateKeySize]byte
}

// GenerateEphemeralKeyPair produces a fresh X25519 keypair for one
// handshake. A new pair must be generated per session; these keys are
// never reused across connections.
func GenerateEphemeralKeyPair() (EphemeralKeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return EphemeralKeyPair{}, err
	}
	return EphemeralKeyPair{Public: *pub, private: *priv}, nil
}

// SharedKey computes the ECDH shared secret with peerPublic and derives the
// symmetric data-plane key from it by hashing shared_secret || context_label
// through HKDF-SHA256 (§4.3 step 3). salt scopes the derivation to one
// handshake instance so two sessions between the same static keys never
// produce the same data-plane key if anything about the instance differs.
func (k EphemeralKeyPair) SharedKey(peerPublic [PublicKeySize]byte, salt []byte) ([SymmetricKeySize]byte, error) {
	var shared [SharedSecretSize]byte
	box.Precompute(&shared, &peerPublic, &k.private)

	info := []byte(ContextLabel)
	reader := hkdf.New(sha256.New, shared[:], salt, info)

	var key [SymmetricKeySize]byte
	if _, err := io.ReadFull(reader, key[:]); err != nil {
		return key, err
	}
	return key, nil
}
