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

package keyresolver

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPasswordResolverReturnsSelectorVerbatim(t *testing.T) {
	var r PasswordResolver
	m, err := r.Resolve(context.Background(), "hunter2")
	require.NoError(t, err)
	require.Equal(t, "hunter2", m.Password)
}

func TestPasswordResolverRejectsEmptySelector(t *testing.T) {
	var r PasswordResolver
	_, err := r.Resolve(context.Background(), "")
	require.ErrorIs(t, err, ErrEmptySelector)
}

func TestFileResolverParsesRawSeed(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	seed := priv.Seed()

	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte(hex.EncodeToString(seed)), 0o600))

	var r FileResolver
	m, err := r.Resolve(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, priv, m.PrivateKey)
}

func TestFileResolverParsesPEMEncodedSeed(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	seed := priv.Seed()

	block := &pem.Block{Type: "PRIVATE KEY", Bytes: seed}
	path := filepath.Join(t.TempDir(), "key.pem")
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0o600))

	var r FileResolver
	m, err := r.Resolve(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, priv, m.PrivateKey)
}

func TestFileResolverRejectsWrongLength(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, []byte("deadbeef"), 0o600))

	var r FileResolver
	_, err := r.Resolve(context.Background(), path)
	require.ErrorIs(t, err, ErrUnsupportedKeyType)
}

func TestFileResolverPropagatesReadError(t *testing.T) {
	var r FileResolver
	_, err := r.Resolve(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestLoadAllowedKeysParsesHexLinesSkippingCommentsAndBlanks(t *testing.T) {
	pub1, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	pub2, _, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)

	content := "# allowed clients\n\n" + hex.EncodeToString(pub1) + "\n" + hex.EncodeToString(pub2) + "\n"
	path := filepath.Join(t.TempDir(), "allowed_keys")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	keys, err := LoadAllowedKeys(path)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	require.Equal(t, ed25519.PublicKey(pub1), keys[0])
	require.Equal(t, ed25519.PublicKey(pub2), keys[1])
}

func TestLoadAllowedKeysRejectsMalformedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "allowed_keys")
	require.NoError(t, os.WriteFile(path, []byte("not-hex-at-all!!\n"), 0o600))

	_, err := LoadAllowedKeys(path)
	require.Error(t, err)
}
