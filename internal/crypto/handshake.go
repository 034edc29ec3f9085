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
	"encoding/binary"

	"github.com/termchat/termchat/internal/protocol"
)

// KEX/Auth/Cipher algorithm bitmaps negotiated by CryptoCapabilities and
// CryptoParameters (§4.3 step 2). X25519/XSalsa20-Poly1305 is the only
// mandatory suite today, so the KEX and cipher bitmaps carry exactly one bit
// each; the auth bitmap distinguishes none, password and Ed25519 signature.
// The fields exist so a future suite addition doesn't change the wire shape.
const (
	KEXX25519 uint32 = 1 << 0

	AuthNone      uint32 = 1 << 0
	AuthPassword  uint32 = 1 << 1
	AuthSignature uint32 = 1 << 2

	CipherXSalsa20Poly1305 uint32 = 1 << 0
)

// ProtocolVersion is the first packet exchanged by both peers (§4.3 step 1).
type ProtocolVersion struct {
	Major                   uint8
	Minor                   uint8
	SupportsEncryption      bool
	CompressionAlgosBitmap  uint32
	CompressionThresholdPct uint8
	FeatureFlagsBitmap      uint32
}

const protocolVersionLen = 1 + 1 + 1 + 4 + 1 + 4

func EncodeProtocolVersion(v ProtocolVersion) []byte {
	buf := make([]byte, protocolVersionLen)
	buf[0] = v.Major
	buf[1] = v.Minor
	if v.SupportsEncryption {
		buf[2] = 1
	}
	binary.BigEndian.PutUint32(buf[3:7], v.CompressionAlgosBitmap)
	buf[7] = v.CompressionThresholdPct
	binary.BigEndian.PutUint32(buf[8:12], v.FeatureFlagsBitmap)
	return buf
}

func DecodeProtocolVersion(payload []byte) (ProtocolVersion, error) {
	if len(payload) < protocolVersionLen {
		return ProtocolVersion{}, &protocol.Error{Kind: protocol.ErrKindProtocol, Reason: "short PROTOCOL_VERSION payload"}
	}
	return ProtocolVersion{
		Major:                   payload[0],
		Minor:                   payload[1],
		SupportsEncryption:      payload[2] != 0,
		CompressionAlgosBitmap:  binary.BigEndian.Uint32(payload[3:7]),
		CompressionThresholdPct: payload[7],
		FeatureFlagsBitmap:      binary.BigEndian.Uint32(payload[8:12]),
	}, nil
}

// CryptoCapabilities is the client's offer of supported algorithm bitmaps
// (§4.3 step 2).
type CryptoCapabilities struct {
	KEXBitmap    uint32
	AuthBitmap   uint32
	CipherBitmap uint32
}

const cryptoCapabilitiesLen = 4 + 4 + 4

func EncodeCryptoCapabilities(c CryptoCapabilities) []byte {
	buf := make([]byte, cryptoCapabilitiesLen)
	binary.BigEndian.PutUint32(buf[0:4], c.KEXBitmap)
	binary.BigEndian.PutUint32(buf[4:8], c.AuthBitmap)
	binary.BigEndian.PutUint32(buf[8:12], c.CipherBitmap)
	return buf
}

func DecodeCryptoCapabilities(payload []byte) (CryptoCapabilities, error) {
	if len(payload) < cryptoCapabilitiesLen {
		return CryptoCapabilities{}, &protocol.Error{Kind: protocol.ErrKindProtocol, Reason: "short CRYPTO_CAPABILITIES payload"}
	}
	return CryptoCapabilities{
		KEXBitmap:    binary.BigEndian.Uint32(payload[0:4]),
		AuthBitmap:   binary.BigEndian.Uint32(payload[4:8]),
		CipherBitmap: binary.BigEndian.Uint32(payload[8:12]),
	}, nil
}

// CryptoParameters is the server's selection of exactly one algorithm per
// category plus the declared sizes of the selected suite (§4.3 step 2).
type CryptoParameters struct {
	SelectedKEX    uint32
	SelectedAuth   uint32
	SelectedCipher uint32

	PublicKeySize    uint8
	SignatureSize    uint8
	SharedSecretSize uint8
	NonceSize        uint8
	MACSize          uint8
	HMACSize         uint8
}

const cryptoParametersLen = 4 + 4 + 4 + 6

func EncodeCryptoParameters(p CryptoParameters) []byte {
	buf := make([]byte, cryptoParametersLen)
	binary.BigEndian.PutUint32(buf[0:4], p.SelectedKEX)
	binary.BigEndian.PutUint32(buf[4:8], p.SelectedAuth)
	binary.BigEndian.PutUint32(buf[8:12], p.SelectedCipher)
	buf[12] = p.PublicKeySize
	buf[13] = p.SignatureSize
	buf[14] = p.SharedSecretSize
	buf[15] = p.NonceSize
	buf[16] = p.MACSize
	buf[17] = p.HMACSize
	return buf
}

func DecodeCryptoParameters(payload []byte) (CryptoParameters, error) {
	if len(payload) < cryptoParametersLen {
		return CryptoParameters{}, &protocol.Error{Kind: protocol.ErrKindProtocol, Reason: "short CRYPTO_PARAMETERS payload"}
	}
	return CryptoParameters{
		SelectedKEX:      binary.BigEndian.Uint32(payload[0:4]),
		SelectedAuth:     binary.BigEndian.Uint32(payload[4:8]),
		SelectedCipher:   binary.BigEndian.Uint32(payload[8:12]),
		PublicKeySize:    payload[12],
		SignatureSize:    payload[13],
		SharedSecretSize: payload[14],
		NonceSize:        payload[15],
		MACSize:          payload[16],
		HMACSize:         payload[17],
	}, nil
}

// DefaultCryptoParameters declares the sizes of the one mandatory suite.
func DefaultCryptoParameters() CryptoParameters {
	return CryptoParameters{
		SelectedKEX: KEXX25519, SelectedAuth: AuthPassword, SelectedCipher: CipherXSalsa20Poly1305,
		PublicKeySize: PublicKeySize, SignatureSize: SignatureSize, SharedSecretSize: SharedSecretSize,
		NonceSize: NonceSize, MACSize: MACSize, HMACSize: HMACSize,
	}
}

// EncodeKeyExchange marshals a KEY_EXCHANGE_INIT / KEY_EXCHANGE_RESPONSE
// payload: the raw ephemeral X25519 public key.
func EncodeKeyExchange(pub [PublicKeySize]byte) []byte {
	out := make([]byte, PublicKeySize)
	copy(out, pub[:])
	return out
}

func DecodeKeyExchange(payload []byte) ([PublicKeySize]byte, error) {
	var pub [PublicKeySize]byte
	if len(payload) != PublicKeySize {
		return pub, &protocol.Error{Kind: protocol.ErrKindProtocol, Reason: "bad key-exchange payload length"}
	}
	copy(pub[:], payload)
	return pub, nil
}

// EncodeAuthChallenge marshals an AUTH_CHALLENGE payload.
func EncodeAuthChallenge(challenge [ChallengeSize]byte) []byte {
	out := make([]byte, ChallengeSize)
	copy(out, challenge[:])
	return out
}

func DecodeAuthChallenge(payload []byte) ([ChallengeSize]byte, error) {
	var challenge [ChallengeSize]byte
	if len(payload) != ChallengeSize {
		return challenge, &protocol.Error{Kind: protocol.ErrKindProtocol, Reason: "bad auth-challenge payload length"}
	}
	copy(challenge[:], payload)
	return challenge, nil
}

// AuthMethod distinguishes the proof style carried by AUTH_RESPONSE /
// SERVER_AUTH_RESPONSE (§4.3 step 4).
type AuthMethod uint8

const (
	AuthMethodHMAC      AuthMethod = 1
	AuthMethodSignature AuthMethod = 2
)

// AuthResponse is the decoded payload of an AUTH_RESPONSE or
// SERVER_AUTH_RESPONSE packet. ClientPublicKey is present only for
// AuthMethodSignature, when the peer announces the long-term key to verify
// against (e.g. to check it against an allow-list).
type AuthResponse struct {
	Method          AuthMethod
	Response        []byte // HMACSize bytes for HMAC, SignatureSize bytes for Signature
	ClientPublicKey []byte // PublicKeySize bytes, signature method only
}

func EncodeAuthResponse(r AuthResponse) []byte {
	buf := make([]byte, 0, 2+len(r.Response)+1+len(r.ClientPublicKey))
	buf = append(buf, byte(r.Method))
	buf = append(buf, byte(len(r.Response)))
	buf = append(buf, r.Response...)
	buf = append(buf, byte(len(r.ClientPublicKey)))
	buf = append(buf, r.ClientPublicKey...)
	return buf
}

func DecodeAuthResponse(payload []byte) (AuthResponse, error) {
	if len(payload) < 2 {
		return AuthResponse{}, &protocol.Error{Kind: protocol.ErrKindProtocol, Reason: "short AUTH_RESPONSE payload"}
	}
	r := AuthResponse{Method: AuthMethod(payload[0])}
	rl := int(payload[1])
	rest := payload[2:]
	if len(rest) < rl+1 {
		return AuthResponse{}, &protocol.Error{Kind: protocol.ErrKindProtocol, Reason: "truncated AUTH_RESPONSE"}
	}
	r.Response = rest[:rl]
	rest = rest[rl:]
	kl := int(rest[0])
	rest = rest[1:]
	if len(rest) < kl {
		return AuthResponse{}, &protocol.Error{Kind: protocol.ErrKindProtocol, Reason: "truncated AUTH_RESPONSE client key"}
	}
	r.ClientPublicKey = rest[:kl]
	return r, nil
}

// EncodeAuthFailed marshals an AUTH_FAILED payload.
func EncodeAuthFailed(reason AuthFailReason) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(reason))
	return buf
}

func DecodeAuthFailed(payload []byte) (AuthFailReason, error) {
	if len(payload) < 4 {
		return 0, &protocol.Error{Kind: protocol.ErrKindProtocol, Reason: "short AUTH_FAILED payload"}
	}
	return AuthFailReason(binary.BigEndian.Uint32(payload[0:4])), nil
}
