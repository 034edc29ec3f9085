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
	"context"
	"crypto/ed25519"
	"net"

	"github.com/termchat/termchat/internal/config"
	"github.com/termchat/termchat/internal/crypto"
	"github.com/termchat/termchat/internal/protocol"
	"github.com/termchat/termchat/internal/session"
)

// handshakeResult carries what the streaming loop needs once the handshake
// driver returns successfully.
type handshakeResult struct {
	encrypted bool
}

// runHandshake drives one session through §4.3's state sequence. Any
// protocol or security error closes the connection; the caller doesn't
// need to inspect it further than logging.
func (s *Server) runHandshake(ctx context.Context, conn net.Conn, sess *session.Session) (handshakeResult, error) {
	setDeadline(conn, s.cfg.Server.HandshakeDeadline)

	// Step 1: PROTOCOL_VERSION exchange.
	pkt, err := s.readExpected(conn, sess, protocol.TypeProtocolVersion)
	if err != nil {
		return handshakeResult{}, err
	}
	clientVersion, err := crypto.DecodeProtocolVersion(pkt.Payload)
	if err != nil {
		return handshakeResult{}, err
	}
	if clientVersion.Major != 1 {
		return handshakeResult{}, protocol.OutOfState(protocol.TypeProtocolVersion, "unsupported major version")
	}
	ours := crypto.ProtocolVersion{
		Major:                   1,
		Minor:                   0,
		SupportsEncryption:      s.cfg.Encryption.Policy != config.EncryptionPolicyOff,
		CompressionAlgosBitmap:  1,
		CompressionThresholdPct: uint8(s.cfg.Server.CompressionThresholdPct),
	}
	if err := s.send(conn, sess, protocol.TypeProtocolVersion, crypto.EncodeProtocolVersion(ours)); err != nil {
		return handshakeResult{}, err
	}
	sess.TransitionTo(session.AwaitingCryptoCaps, s.cfg.Server.HandshakeDeadline)

	if s.cfg.Encryption.Policy == config.EncryptionPolicyOff {
		return s.completeHandshake(conn, sess, false)
	}

	// Step 2: CRYPTO_CAPABILITIES / NO_ENCRYPTION.
	pkt, err = s.readAny(conn, sess)
	if err != nil {
		return handshakeResult{}, err
	}
	if pkt.Type == protocol.TypeNoEncryption {
		if s.cfg.Encryption.Policy == config.EncryptionPolicyRequired {
			s.sendAuthFailed(conn, sess, crypto.AuthFailPasswordRequired)
			return handshakeResult{}, protocol.SecurityViolation("encryption required, client opted out")
		}
		return s.completeHandshake(conn, sess, false)
	}
	if pkt.Type != protocol.TypeCryptoCapabilities {
		return handshakeResult{}, protocol.OutOfState(pkt.Type, sess.State().String())
	}
	if _, err := crypto.DecodeCryptoCapabilities(pkt.Payload); err != nil {
		return handshakeResult{}, err
	}
	params := crypto.DefaultCryptoParameters()
	if err := s.send(conn, sess, protocol.TypeCryptoParameters, crypto.EncodeCryptoParameters(params)); err != nil {
		return handshakeResult{}, err
	}
	sess.TransitionTo(session.KeyExchange, s.cfg.Server.HandshakeDeadline)

	// Step 3: X25519 key exchange.
	pkt, err = s.readAny(conn, sess)
	if err != nil {
		return handshakeResult{}, err
	}
	if pkt.Type == protocol.TypeNoEncryption {
		if s.cfg.Encryption.Policy == config.EncryptionPolicyRequired {
			s.sendAuthFailed(conn, sess, crypto.AuthFailPasswordRequired)
			return handshakeResult{}, protocol.SecurityViolation("encryption required, client opted out")
		}
		return s.completeHandshake(conn, sess, false)
	}
	if pkt.Type != protocol.TypeKeyExchangeInit {
		return handshakeResult{}, protocol.OutOfState(pkt.Type, sess.State().String())
	}
	clientPub, err := crypto.DecodeKeyExchange(pkt.Payload)
	if err != nil {
		return handshakeResult{}, err
	}
	ephemeral, err := crypto.GenerateEphemeralKeyPair()
	if err != nil {
		return handshakeResult{}, err
	}
	sess.Crypto.Ephemeral = ephemeral
	salt := append(append([]byte{}, clientPub[:]...), ephemeral.Public[:]...)
	key, err := ephemeral.SharedKey(clientPub, salt)
	if err != nil {
		return handshakeResult{}, err
	}
	sess.Crypto.Key = key
	if err := s.send(conn, sess, protocol.TypeKeyExchangeResponse, crypto.EncodeKeyExchange(ephemeral.Public)); err != nil {
		return handshakeResult{}, err
	}
	sess.TransitionTo(session.Authenticating, s.cfg.Server.HandshakeDeadline)

	// Step 4: optional identity proof.
	if !s.cfg.Encryption.RequireClientAuth {
		return s.completeHandshake(conn, sess, true)
	}
	if err := s.authenticate(ctx, conn, sess); err != nil {
		return handshakeResult{}, err
	}
	return s.completeHandshake(conn, sess, true)
}

// authenticate runs the AUTH_CHALLENGE/AUTH_RESPONSE exchange (§4.3 step 4).
func (s *Server) authenticate(ctx context.Context, conn net.Conn, sess *session.Session) error {
	challenge, err := crypto.GenerateChallenge()
	if err != nil {
		return err
	}
	if err := s.send(conn, sess, protocol.TypeAuthChallenge, crypto.EncodeAuthChallenge(challenge)); err != nil {
		return err
	}

	pkt, err := s.readExpected(conn, sess, protocol.TypeAuthResponse)
	if err != nil {
		return err
	}
	resp, err := crypto.DecodeAuthResponse(pkt.Payload)
	if err != nil {
		return err
	}

	switch resp.Method {
	case crypto.AuthMethodHMAC:
		material, err := s.resolver.Resolve(ctx, s.cfg.Encryption.KeyMaterial.Password)
		if err != nil {
			s.sendAuthFailed(conn, sess, crypto.AuthFailPasswordRequired)
			return err
		}
		authKey, err := crypto.DeriveKey(s.cfg.Encryption.KDF, material.Password, []byte(crypto.ContextLabel+"-auth"))
		if err != nil {
			return err
		}
		var mac [crypto.HMACSize]byte
		copy(mac[:], resp.Response)
		if len(resp.Response) != crypto.HMACSize || !crypto.VerifyHMACResponse(authKey, challenge, mac) {
			s.sendAuthFailed(conn, sess, crypto.AuthFailPasswordIncorrect)
			return protocol.SecurityViolation("HMAC auth response incorrect")
		}
	case crypto.AuthMethodSignature:
		if len(resp.ClientPublicKey) != crypto.PublicKeySize {
			s.sendAuthFailed(conn, sess, crypto.AuthFailSignatureInvalid)
			return protocol.SecurityViolation("malformed client public key in AUTH_RESPONSE")
		}
		if len(s.allowedKeys) > 0 && !keyAllowed(s.allowedKeys, resp.ClientPublicKey) {
			s.sendAuthFailed(conn, sess, crypto.AuthFailClientKeyRejected)
			return protocol.SecurityViolation("client public key not in allow-list")
		}
		if !crypto.VerifyChallengeSignature(resp.ClientPublicKey, challenge, resp.Response) {
			s.sendAuthFailed(conn, sess, crypto.AuthFailSignatureInvalid)
			return protocol.SecurityViolation("client challenge signature invalid")
		}
	default:
		s.sendAuthFailed(conn, sess, crypto.AuthFailSignatureInvalid)
		return protocol.OutOfState(protocol.TypeAuthResponse, "unknown auth method")
	}

	return s.send(conn, sess, protocol.TypeServerAuthResponse, crypto.EncodeAuthResponse(crypto.AuthResponse{Method: resp.Method}))
}

func keyAllowed(allowed []ed25519.PublicKey, candidate []byte) bool {
	for _, k := range allowed {
		if bytes.Equal(k, candidate) {
			return true
		}
	}
	return false
}

func (s *Server) completeHandshake(conn net.Conn, sess *session.Session, encrypted bool) (handshakeResult, error) {
	sess.Crypto.Sealed = encrypted
	if err := s.send(conn, sess, protocol.TypeHandshakeComplete, handshakeMarkerPayload); err != nil {
		return handshakeResult{}, err
	}
	sess.TransitionTo(session.Streaming, 0)
	conn.SetDeadline(noDeadline)
	return handshakeResult{encrypted: encrypted}, nil
}

func (s *Server) sendAuthFailed(conn net.Conn, sess *session.Session, reason crypto.AuthFailReason) {
	_ = s.send(conn, sess, protocol.TypeAuthFailed, crypto.EncodeAuthFailed(reason))
	sess.TransitionTo(session.Closed, 0)
}
