// SPDX-License-Identifier: AGPL-3.0-or-later
package crypto_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/termchat/termchat/internal/config"
	"github.com/termchat/termchat/internal/crypto"
)

func TestECDHSharedKeyAgreement(t *testing.T) {
	t.Parallel()
	alice, err := crypto.GenerateEphemeralKeyPair()
	require.NoError(t, err)
	bob, err := crypto.GenerateEphemeralKeyPair()
	require.NoError(t, err)

	salt := []byte("session-salt")
	aliceKey, err := alice.SharedKey(bob.Public, salt)
	require.NoError(t, err)
	bobKey, err := bob.SharedKey(alice.Public, salt)
	require.NoError(t, err)

	require.Equal(t, aliceKey, bobKey)
}

func TestECDHDifferentSaltsDiverge(t *testing.T) {
	t.Parallel()
	alice, err := crypto.GenerateEphemeralKeyPair()
	require.NoError(t, err)
	bob, err := crypto.GenerateEphemeralKeyPair()
	require.NoError(t, err)

	k1, err := alice.SharedKey(bob.Public, []byte("salt-a"))
	require.NoError(t, err)
	k2, err := alice.SharedKey(bob.Public, []byte("salt-b"))
	require.NoError(t, err)
	require.NotEqual(t, k1, k2)
}

func TestSealOpenRoundTrip(t *testing.T) {
	t.Parallel()
	var key crypto.SessionKey
	for i := range key {
		key[i] = byte(i)
	}
	var send crypto.SendHalf
	var recv crypto.RecvHalf

	inner := []byte("plaintext inner packet bytes")
	sealed := crypto.Seal(&send, key, inner)

	opened, err := crypto.Open(&recv, key, sealed)
	require.NoError(t, err)
	require.Equal(t, inner, opened)
}

func TestOpenRejectsTamperedCiphertext(t *testing.T) {
	t.Parallel()
	var key crypto.SessionKey
	var send crypto.SendHalf
	var recv crypto.RecvHalf

	sealed := crypto.Seal(&send, key, []byte("message"))
	sealed[len(sealed)-1] ^= 0xFF

	_, err := crypto.Open(&recv, key, sealed)
	require.ErrorIs(t, err, crypto.ErrOpenFailed)
}

func TestNonceUniquenessAcrossSeals(t *testing.T) {
	t.Parallel()
	var key crypto.SessionKey
	var send crypto.SendHalf
	var recv crypto.RecvHalf

	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		sealed := crypto.Seal(&send, key, []byte("x"))
		nonce := string(sealed[:crypto.NonceSize])
		require.False(t, seen[nonce], "nonce reused at iteration %d", i)
		seen[nonce] = true

		_, err := crypto.Open(&recv, key, sealed)
		require.NoError(t, err)
	}
}

func TestRecvHalfRejectsReplayedNonce(t *testing.T) {
	t.Parallel()
	var key crypto.SessionKey
	var send crypto.SendHalf
	var recv crypto.RecvHalf

	sealed := crypto.Seal(&send, key, []byte("first"))
	_, err := crypto.Open(&recv, key, sealed)
	require.NoError(t, err)

	// Replaying the exact same sealed packet must be rejected even though
	// the AEAD tag is still valid, because the nonce counter didn't advance.
	_, err = crypto.Open(&recv, key, sealed)
	require.ErrorIs(t, err, crypto.ErrNonceReuse)
}

func TestHMACChallengeResponseRoundTrip(t *testing.T) {
	t.Parallel()
	challenge, err := crypto.GenerateChallenge()
	require.NoError(t, err)

	key := []byte("a-password-derived-key-material")
	response := crypto.HMACResponse(key, challenge)
	require.True(t, crypto.VerifyHMACResponse(key, challenge, response))

	wrongKey := []byte("a-different-key-material-altogt")
	require.False(t, crypto.VerifyHMACResponse(wrongKey, challenge, response))
}

func TestDeriveKeyDeterministicAcrossPeers(t *testing.T) {
	t.Parallel()
	kdf := config.KDF{Algorithm: config.KDFArgon2id, TimeCost: 1, MemoryCostM: 8, Threads: 1}
	salt := []byte("0123456789abcdef")

	k1, err := crypto.DeriveKey(kdf, "hunter2aaaa", salt)
	require.NoError(t, err)
	k2, err := crypto.DeriveKey(kdf, "hunter2aaaa", salt)
	require.NoError(t, err)
	require.Equal(t, k1, k2)
	require.Len(t, k1, crypto.SymmetricKeySize)
}

func TestDeriveKeyScryptVariant(t *testing.T) {
	t.Parallel()
	kdf := config.KDF{Algorithm: config.KDFScrypt, ScryptN: 1024, ScryptR: 8, ScryptP: 1}
	salt := []byte("0123456789abcdef")

	k, err := crypto.DeriveKey(kdf, "hunter2aaaa", salt)
	require.NoError(t, err)
	require.Len(t, k, crypto.SymmetricKeySize)
}

func TestHandshakePayloadRoundTrips(t *testing.T) {
	t.Parallel()

	v := crypto.ProtocolVersion{Major: 1, Minor: 0, SupportsEncryption: true, CompressionThresholdPct: 70}
	gotV, err := crypto.DecodeProtocolVersion(crypto.EncodeProtocolVersion(v))
	require.NoError(t, err)
	require.Equal(t, v, gotV)

	params := crypto.DefaultCryptoParameters()
	gotP, err := crypto.DecodeCryptoParameters(crypto.EncodeCryptoParameters(params))
	require.NoError(t, err)
	require.Equal(t, params, gotP)

	var pub [crypto.PublicKeySize]byte
	pub[0] = 42
	gotPub, err := crypto.DecodeKeyExchange(crypto.EncodeKeyExchange(pub))
	require.NoError(t, err)
	require.Equal(t, pub, gotPub)

	resp := crypto.AuthResponse{Method: crypto.AuthMethodHMAC, Response: make([]byte, crypto.HMACSize)}
	gotResp, err := crypto.DecodeAuthResponse(crypto.EncodeAuthResponse(resp))
	require.NoError(t, err)
	require.Equal(t, resp.Method, gotResp.Method)
	require.Equal(t, resp.Response, gotResp.Response)

	gotReason, err := crypto.DecodeAuthFailed(crypto.EncodeAuthFailed(crypto.AuthFailPasswordIncorrect))
	require.NoError(t, err)
	require.Equal(t, crypto.AuthFailPasswordIncorrect, gotReason)
}
