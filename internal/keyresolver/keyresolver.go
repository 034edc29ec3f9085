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

// Package keyresolver implements the core's "key-resolver" trait (§6): a
// single method that turns a selector string into key material, so the
// handshake/session code never has to know whether a selector came from a
// password, a file on disk, or some external URL scheme. Only the
// no-network-I/O resolvers (file and password) live here; ssh:// / gpg://
// / http:// resolvers are external collaborators per §1/§6 and are not
// implemented by the core.
package keyresolver

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrEmptySelector is returned when a selector resolves to no usable key
// material at all.
var ErrEmptySelector = errors.New("keyresolver: empty selector")

// ErrUnsupportedKeyType is returned by FileResolver when a PEM block or raw
// key file doesn't decode to an Ed25519 key, the only signature key type
// the crypto suite supports (§4.3's "Ed25519 (optional)" identity proof).
var ErrUnsupportedKeyType = errors.New("keyresolver: unsupported key type")

// Material is what resolving a selector produces: either a long-term
// private key (for signature-based auth), a password (for KDF-derived
// HMAC auth), or a set of peer public keys to validate against — mirroring
// §6's "resolve(selector) → {private_key?, public_keys[]}".
type Material struct {
	Password   string
	PrivateKey ed25519.PrivateKey
	PublicKeys []ed25519.PublicKey
}

// Resolver is the core's key-material trait (§6). Implementations that
// reach out over the network (ssh:// agent forwarding, gpg:// keyservers,
// http:// fetchers) are external collaborators and are expected to satisfy
// this same interface without living in this package.
type Resolver interface {
	Resolve(ctx context.Context, selector string) (Material, error)
}

// PasswordResolver treats the selector as the password itself (§6 key
// material option (a)): no file or network access, just validation and
// pass-through so the caller can feed it to crypto.DeriveKey.
type PasswordResolver struct{}

// Resolve returns selector verbatim as Material.Password.
func (PasswordResolver) Resolve(_ context.Context, selector string) (Material, error) {
	if selector == "" {
		return Material{}, ErrEmptySelector
	}
	return Material{Password: selector}, nil
}

// FileResolver treats the selector as a filesystem path to a long-term
// Ed25519 private key (§6 key material option (b)): a PEM block whose body
// is a 32-byte seed or 64-byte expanded key, or the same key written bare,
// as hex text or as raw bytes. PKCS#8/x509 DER is not parsed; a key of any
// other length is rejected with ErrUnsupportedKeyType. Grounded on the
// teacher pack's pem.Decode + manual key-material parsing pattern
// (flowpbx's internal/pushgw/apns.go parseP8PrivateKey) adapted from
// ECDSA/P8 to Ed25519 seeds.
type FileResolver struct{}

// Resolve reads the file at selector and parses it into a private key.
func (FileResolver) Resolve(_ context.Context, selector string) (Material, error) {
	if selector == "" {
		return Material{}, ErrEmptySelector
	}
	raw, err := os.ReadFile(selector)
	if err != nil {
		return Material{}, fmt.Errorf("keyresolver: read %s: %w", selector, err)
	}
	priv, err := parsePrivateKey(raw)
	if err != nil {
		return Material{}, fmt.Errorf("keyresolver: parse %s: %w", selector, err)
	}
	return Material{PrivateKey: priv}, nil
}

func parsePrivateKey(raw []byte) (ed25519.PrivateKey, error) {
	if block, _ := pem.Decode(raw); block != nil {
		return seedOrExpandedKey(block.Bytes)
	}
	trimmed := strings.TrimSpace(string(raw))
	if decoded, err := hex.DecodeString(trimmed); err == nil {
		return seedOrExpandedKey(decoded)
	}
	return seedOrExpandedKey([]byte(trimmed))
}

func seedOrExpandedKey(b []byte) (ed25519.PrivateKey, error) {
	switch len(b) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(b), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(b), nil
	default:
		return nil, ErrUnsupportedKeyType
	}
}

// LoadAllowedKeys parses an allowed-client-keys file (§6: "optional
// newline-delimited list of client public keys permitted to connect"):
// each non-blank line not starting with '#' must be a hex-encoded 32-byte
// Ed25519 public key; any other line fails the whole load with
// ErrUnsupportedKeyType.
func LoadAllowedKeys(path string) ([]ed25519.PublicKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("keyresolver: read allow-list %s: %w", path, err)
	}
	var keys []ed25519.PublicKey
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pub, err := parsePublicKeyHex(line)
		if err != nil {
			return nil, fmt.Errorf("keyresolver: allow-list %s: %w", path, err)
		}
		keys = append(keys, pub)
	}
	return keys, nil
}

func parsePublicKeyHex(line string) (ed25519.PublicKey, error) {
	decoded, err := hex.DecodeString(line)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedKeyType, err)
	}
	if len(decoded) != ed25519.PublicKeySize {
		return nil, ErrUnsupportedKeyType
	}
	return ed25519.PublicKey(decoded), nil
}
