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

package config

// LogLevel represents the logging level for the application.
type LogLevel string

const (
	// LogLevelDebug is the debug logging level, providing detailed information.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is the informational logging level, providing general information.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn is the warning logging level, indicating potential issues.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError is the error logging level, indicating serious issues.
	LogLevelError LogLevel = "error"
)

// DatabaseDriver represents the type of database driver used for the audit log.
type DatabaseDriver string

const (
	// DatabaseDriverSQLite is the SQLite database driver.
	DatabaseDriverSQLite DatabaseDriver = "sqlite"
	// DatabaseDriverPostgres is the PostgreSQL database driver.
	DatabaseDriverPostgres DatabaseDriver = "postgres"
	// DatabaseDriverMySQL is the MySQL database driver.
	DatabaseDriverMySQL DatabaseDriver = "mysql"
)

// EncryptionPolicy controls whether the server requires the crypto handshake.
type EncryptionPolicy string

const (
	// EncryptionPolicyOff disables the crypto handshake entirely; all data-plane
	// packets travel in the clear.
	EncryptionPolicyOff EncryptionPolicy = "off"
	// EncryptionPolicyOptIn allows a client to send NO_ENCRYPTION and skip the handshake.
	EncryptionPolicyOptIn EncryptionPolicy = "opt-in"
	// EncryptionPolicyRequired rejects any client that attempts to opt out.
	EncryptionPolicyRequired EncryptionPolicy = "required"
)

// KeyMaterialKind selects how the server sources its long-term key material.
type KeyMaterialKind string

const (
	// KeyMaterialPassword authenticates peers against a shared password.
	KeyMaterialPassword KeyMaterialKind = "password"
	// KeyMaterialFile loads a long-term private key from a local file.
	KeyMaterialFile KeyMaterialKind = "file"
	// KeyMaterialURL resolves key material via an external scheme (github:, gitlab:, gpg:).
	KeyMaterialURL KeyMaterialKind = "url"
)

// KDFAlgorithm selects the password-based key derivation function.
type KDFAlgorithm string

const (
	// KDFArgon2id is the mandatory-by-default memory-hard KDF (§4.3 Open Question).
	KDFArgon2id KDFAlgorithm = "argon2id"
	// KDFScrypt is the alternative memory-hard KDF.
	KDFScrypt KDFAlgorithm = "scrypt"
)

// PaletteSelector names a built-in glyph ramp, or "custom" for a user-supplied one.
type PaletteSelector string

const (
	PaletteStandard PaletteSelector = "standard"
	PaletteBlocks   PaletteSelector = "blocks"
	PaletteDigital  PaletteSelector = "digital"
	PaletteMinimal  PaletteSelector = "minimal"
	PaletteCool     PaletteSelector = "cool"
	PaletteCustom   PaletteSelector = "custom"
)

// ColorLevel is the terminal color depth a listener advertises.
type ColorLevel string

const (
	ColorLevelNone       ColorLevel = "none"
	ColorLevel16         ColorLevel = "16"
	ColorLevel256        ColorLevel = "256"
	ColorLevelTruecolor  ColorLevel = "truecolor"
	ColorLevelAutoDetect ColorLevel = "auto"
)

// RenderMode is the cell-composition strategy used by the ASCII renderer.
type RenderMode string

const (
	RenderModeForeground RenderMode = "foreground"
	RenderModeBackground RenderMode = "background"
	RenderModeHalfBlock  RenderMode = "half-block"
)
