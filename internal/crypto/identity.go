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
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
)

// GenerateChallenge produces a fresh 32-byte auth-challenge nonce (§4.3 step 4).
func GenerateChallenge() ([ChallengeSize]byte, error) {
	var challenge [ChallengeSize]byte
	_, err := rand.Read(challenge[:])
	return challenge, err
}

// HMACResponse computes the HMAC-SHA-256 over challenge keyed on a
// password-derived (or pre-distributed) key, the response a party proves
// identity with under KeyMaterial kinds "password" and "file" (§4.3 step 4).
func HMACResponse(key []byte, challenge [ChallengeSize]byte) [HMACSize]byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(challenge[:])
	var out [HMACSize]byte
	copy(out[:], mac.Sum(nil))
	return out
}

// VerifyHMACResponse reports whether response is the correct HMAC-SHA-256
// of challenge under key, in constant time.
func VerifyHMACResponse(key []byte, challenge [ChallengeSize]byte, response [HMACSize]byte) bool {
	want := HMACResponse(key, challenge)
	return subtle.ConstantTimeCompare(want[:], response[:]) == 1
}

// SignChallenge signs challenge with a long-term Ed25519 private key, the
// signature-based identity proof alternative to HMACResponse (§4.3 step 4,
// "(c) a signature using the long-term key described in §6").
func SignChallenge(priv ed25519.PrivateKey, challenge [ChallengeSize]byte) []byte {
	return ed25519.Sign(priv, challenge[:])
}

// VerifyChallengeSignature reports whether sig is a valid Ed25519 signature
// over challenge under pub.
func VerifyChallengeSignature(pub ed25519.PublicKey, challenge [ChallengeSize]byte, sig []byte) bool {
	return ed25519.Verify(pub, challenge[:], sig)
}
