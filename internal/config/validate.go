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

import "errors"

var (
	// ErrInvalidLogLevel indicates that the provided log level is not valid.
	ErrInvalidLogLevel = errors.New("invalid log level provided")
	// ErrInvalidRedisHost indicates that the provided Redis host is not valid.
	ErrInvalidRedisHost = errors.New("invalid Redis host provided")
	// ErrInvalidRedisPort indicates that the provided Redis port is not valid.
	ErrInvalidRedisPort = errors.New("invalid Redis port provided")
	// ErrInvalidDatabaseDriver indicates that the provided database driver is not valid.
	ErrInvalidDatabaseDriver = errors.New("invalid database driver provided")
	// ErrInvalidDatabaseHost indicates that the provided database host is not valid.
	ErrInvalidDatabaseHost = errors.New("invalid database host provided")
	// ErrInvalidDatabasePort indicates that the provided database port is not valid.
	ErrInvalidDatabasePort = errors.New("invalid database port provided")
	// ErrInvalidDatabaseName indicates that the provided database name is not valid.
	ErrInvalidDatabaseName = errors.New("invalid database name provided")
	// ErrInvalidServerBind indicates that neither bind address is set.
	ErrInvalidServerBind = errors.New("at least one of bind_v4 or bind_v6 must be set")
	// ErrInvalidServerPort indicates that the server port is out of range.
	ErrInvalidServerPort = errors.New("invalid server port provided")
	// ErrInvalidMaxClients indicates max_clients is not positive.
	ErrInvalidMaxClients = errors.New("max_clients must be positive")
	// ErrInvalidHTTPHost indicates that the provided HTTP host is not valid.
	ErrInvalidHTTPHost = errors.New("invalid HTTP host provided")
	// ErrInvalidHTTPPort indicates that the provided HTTP port is not valid.
	ErrInvalidHTTPPort = errors.New("invalid HTTP port provided")
	// ErrInvalidMetricsBindAddress indicates that the provided metrics server bind address is not valid.
	ErrInvalidMetricsBindAddress = errors.New("invalid metrics server bind address provided")
	// ErrInvalidMetricsPort indicates that the provided metrics server port is not valid.
	ErrInvalidMetricsPort = errors.New("invalid metrics server port provided")
	// ErrInvalidPProfBindAddress indicates that the provided PProf server bind address is not valid.
	ErrInvalidPProfBindAddress = errors.New("invalid PProf server bind address provided")
	// ErrInvalidPProfPort indicates that the provided PProf server port is not valid.
	ErrInvalidPProfPort = errors.New("invalid PProf server port provided")
	// ErrInvalidEncryptionPolicy indicates the policy value is not recognized.
	ErrInvalidEncryptionPolicy = errors.New("invalid encryption policy provided")
	// ErrInvalidKeyMaterialKind indicates the key material kind is not recognized.
	ErrInvalidKeyMaterialKind = errors.New("invalid key material kind provided")
	// ErrPasswordRequired indicates a password key-material kind with no password set.
	ErrPasswordRequired = errors.New("password required for password key material")
	// ErrPrivateKeyFileRequired indicates a file key-material kind with no path set.
	ErrPrivateKeyFileRequired = errors.New("private_key_file required for file key material")
	// ErrKeyMaterialURLRequired indicates a url key-material kind with no URL set.
	ErrKeyMaterialURLRequired = errors.New("url required for url key material")
	// ErrInvalidKDFAlgorithm indicates the KDF algorithm is not recognized.
	ErrInvalidKDFAlgorithm = errors.New("invalid kdf algorithm provided")
	// ErrInvalidPaletteSelector indicates the palette selector is not recognized.
	ErrInvalidPaletteSelector = errors.New("invalid palette selector provided")
	// ErrCustomPaletteRequired indicates selector is custom but no palette string was given.
	ErrCustomPaletteRequired = errors.New("custom palette string required when selector is custom")
	// ErrCustomPaletteTooLong indicates the custom palette exceeds the 64-byte bound (§3).
	ErrCustomPaletteTooLong = errors.New("custom palette string exceeds 64 bytes")
)

// Validate validates the Redis configuration.
func (r Redis) Validate() error {
	if !r.Enabled {
		return nil
	}
	if r.Host == "" {
		return ErrInvalidRedisHost
	}
	if r.Port <= 0 || r.Port > 65535 {
		return ErrInvalidRedisPort
	}
	return nil
}

// Validate validates the Database configuration.
func (d Database) Validate() error {
	if d.Driver != DatabaseDriverSQLite &&
		d.Driver != DatabaseDriverPostgres &&
		d.Driver != DatabaseDriverMySQL {
		return ErrInvalidDatabaseDriver
	}
	if d.Driver != DatabaseDriverSQLite && d.Host == "" {
		return ErrInvalidDatabaseHost
	}
	if d.Driver != DatabaseDriverSQLite && (d.Port <= 0 || d.Port > 65535) {
		return ErrInvalidDatabasePort
	}
	if d.Database == "" {
		return ErrInvalidDatabaseName
	}
	return nil
}

// Validate validates the Server (TCP core) configuration.
func (s Server) Validate() error {
	if s.BindV4 == "" && s.BindV6 == "" {
		return ErrInvalidServerBind
	}
	if s.Port <= 0 || s.Port > 65535 {
		return ErrInvalidServerPort
	}
	if s.MaxClients <= 0 {
		return ErrInvalidMaxClients
	}
	return nil
}

// Validate validates the HTTP admin-surface configuration.
func (h HTTP) Validate() error {
	if h.Bind == "" {
		return ErrInvalidHTTPHost
	}
	if h.Port <= 0 || h.Port > 65535 {
		return ErrInvalidHTTPPort
	}
	return nil
}

// Validate validates the Metrics configuration.
func (m Metrics) Validate() error {
	if !m.Enabled {
		return nil
	}
	if m.Bind == "" {
		return ErrInvalidMetricsBindAddress
	}
	if m.Port <= 0 || m.Port > 65535 {
		return ErrInvalidMetricsPort
	}
	return nil
}

// Validate validates the PProf configuration.
func (p PProf) Validate() error {
	if !p.Enabled {
		return nil
	}
	if p.Bind == "" {
		return ErrInvalidPProfBindAddress
	}
	if p.Port <= 0 || p.Port > 65535 {
		return ErrInvalidPProfPort
	}
	return nil
}

// Validate validates the KDF configuration.
func (k KDF) Validate() error {
	if k.Algorithm != KDFArgon2id && k.Algorithm != KDFScrypt {
		return ErrInvalidKDFAlgorithm
	}
	return nil
}

// Validate validates the KeyMaterial configuration.
func (k KeyMaterial) Validate() error {
	switch k.Kind {
	case KeyMaterialPassword:
		if k.Password == "" {
			return ErrPasswordRequired
		}
	case KeyMaterialFile:
		if k.PrivateKeyFile == "" {
			return ErrPrivateKeyFileRequired
		}
	case KeyMaterialURL:
		if k.URL == "" {
			return ErrKeyMaterialURLRequired
		}
	default:
		return ErrInvalidKeyMaterialKind
	}
	return nil
}

// Validate validates the Encryption configuration.
func (e Encryption) Validate() error {
	switch e.Policy {
	case EncryptionPolicyOff, EncryptionPolicyOptIn, EncryptionPolicyRequired:
	default:
		return ErrInvalidEncryptionPolicy
	}
	if e.Policy == EncryptionPolicyOff {
		return nil
	}
	if err := e.KeyMaterial.Validate(); err != nil {
		return err
	}
	return e.KDF.Validate()
}

// Validate validates the Palette configuration.
func (p Palette) Validate() error {
	switch p.Selector {
	case PaletteStandard, PaletteBlocks, PaletteDigital, PaletteMinimal, PaletteCool:
		return nil
	case PaletteCustom:
		if p.Custom == "" {
			return ErrCustomPaletteRequired
		}
		const maxCustomPaletteBytes = 64
		if len(p.Custom) > maxCustomPaletteBytes {
			return ErrCustomPaletteTooLong
		}
		return nil
	default:
		return ErrInvalidPaletteSelector
	}
}

// Validate validates the whole configuration tree.
func (c Config) Validate() error {
	if c.LogLevel != LogLevelDebug &&
		c.LogLevel != LogLevelInfo &&
		c.LogLevel != LogLevelWarn &&
		c.LogLevel != LogLevelError {
		return ErrInvalidLogLevel
	}

	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Palette.Validate(); err != nil {
		return err
	}
	if err := c.Encryption.Validate(); err != nil {
		return err
	}
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Redis.Validate(); err != nil {
		return err
	}

	return nil
}
