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

// Package config is the external configuration surface described in spec §6.
// The core only ever reads a *Config value; sourcing one from TOML, flags or
// the environment is the job of cmd/termchatd and the configulator loader.
package config

import "time"

// Config is the root configuration object for a termchat server.
type Config struct {
	LogLevel LogLevel `toml:"log_level" default:"info"`
	Debug    bool     `toml:"debug" default:"false"`

	// Secret is accepted as configuration but no component reads it; neither
	// the rate limiter nor the audit sink uses it.
	Secret string `toml:"secret"`

	Server     Server     `toml:"server"`
	Palette    Palette    `toml:"palette"`
	Encryption Encryption `toml:"encryption"`
	HTTP       HTTP       `toml:"http"`
	Metrics    Metrics    `toml:"metrics"`
	PProf      PProf      `toml:"pprof"`
	Database   Database   `toml:"database"`
	Redis      Redis      `toml:"redis"`

	OTLPEndpoint string   `toml:"otlp_endpoint"`
	FeatureFlags []string `toml:"feature_flags"`
}

// Server is the TCP listener and per-connection timeout surface (§5, §6).
type Server struct {
	BindV4 string `toml:"bind_v4" default:"0.0.0.0"`
	BindV6 string `toml:"bind_v6" default:"::"`
	Port   int    `toml:"port" default:"27224"`

	MaxClients int `toml:"max_clients" default:"10"`

	ConnectTimeout time.Duration `toml:"connect_timeout" default:"3s"`
	SendTimeout    time.Duration `toml:"send_timeout" default:"5s"`
	ReceiveTimeout time.Duration `toml:"receive_timeout" default:"15s"`
	AcceptTimeout  time.Duration `toml:"accept_timeout" default:"3s"`

	// HandshakeDeadline bounds each pre-Streaming state (§4.4).
	HandshakeDeadline time.Duration `toml:"handshake_deadline" default:"10s"`
	// DrainTimeout is accepted as configuration but no code path reads it;
	// a session in Draining has no timeout of its own (§4.4, §5).
	DrainTimeout time.Duration `toml:"drain_timeout" default:"500ms"`
	// ShutdownGrace bounds how long the accept loop waits for sessions to drain
	// on a global shutdown signal (§5).
	ShutdownGrace time.Duration `toml:"shutdown_grace" default:"10s"`

	// CompressionThresholdPct is the negotiated default: an ASCII_FRAME is
	// deflate-compressed only when doing so beats this percentage of the
	// uncompressed size (§4.4 outbound broadcast task, step 5).
	CompressionThresholdPct int `toml:"compression_threshold_pct" default:"70"`
}

// Palette configures the process-wide palette cache (§3 "Palette cache").
type Palette struct {
	Selector PaletteSelector `toml:"selector" default:"standard"`
	// Custom is the glyph ramp used when Selector is "custom"; ≤64 bytes per §3.
	Custom string `toml:"custom"`
}

// Encryption configures the crypto pipeline's policy and key material (§4.3, §6).
type Encryption struct {
	Policy EncryptionPolicy `toml:"policy" default:"opt-in"`

	KeyMaterial KeyMaterial `toml:"key_material"`

	// AllowedClientKeysFile is an optional newline-delimited allow-list of
	// client public keys (§6).
	AllowedClientKeysFile string `toml:"allowed_client_keys_file"`

	KDF KDF `toml:"kdf"`

	// RequireClientAuth additionally demands the client prove identity (§4.3 step 4).
	RequireClientAuth bool `toml:"require_client_auth" default:"false"`
}

// KeyMaterial selects and parameterizes one key-material source (§6).
type KeyMaterial struct {
	Kind KeyMaterialKind `toml:"kind" default:"password"`

	Password       string `toml:"password"`
	PrivateKeyFile string `toml:"private_key_file"`
	// URL is a scheme like "github:user", "gitlab:user" or "gpg:keyid" resolved
	// by an external keyresolver.Resolver (§6).
	URL string `toml:"url"`
}

// KDF parameterizes the password-based key derivation function (§4.3 Open Question).
type KDF struct {
	Algorithm KDFAlgorithm `toml:"algorithm" default:"argon2id"`

	// argon2id parameters; ignored when Algorithm is scrypt.
	TimeCost    uint32 `toml:"time_cost" default:"1"`
	MemoryCostM uint32 `toml:"memory_cost_mb" default:"64"`
	Threads     uint8  `toml:"threads" default:"4"`

	// scrypt parameters; ignored when Algorithm is argon2id.
	ScryptN int `toml:"scrypt_n" default:"32768"`
	ScryptR int `toml:"scrypt_r" default:"8"`
	ScryptP int `toml:"scrypt_p" default:"1"`
}

// HTTP is the ambient admin HTTP surface (health, metrics, spectator bridge).
type HTTP struct {
	Bind string `toml:"bind" default:"0.0.0.0"`
	Port int    `toml:"port" default:"8080"`

	CORSHosts []string `toml:"cors_hosts"`

	RateLimitRate  time.Duration `toml:"rate_limit_rate" default:"1s"`
	RateLimitLimit uint          `toml:"rate_limit_limit" default:"10"`

	SpectatorEnabled bool `toml:"spectator_enabled" default:"true"`

	TrustedProxies []string `toml:"trusted_proxies"`
}

// Metrics is the Prometheus exposition server.
type Metrics struct {
	Enabled bool   `toml:"enabled" default:"true"`
	Bind    string `toml:"bind" default:"0.0.0.0"`
	Port    int    `toml:"port" default:"9090"`
}

// PProf is the debug profiling server, off by default.
type PProf struct {
	Enabled bool   `toml:"enabled" default:"false"`
	Bind    string `toml:"bind" default:"127.0.0.1"`
	Port    int    `toml:"port" default:"6060"`

	TrustedProxies []string `toml:"trusted_proxies"`
}

// Database configures the connection/auth-event audit log (§7 propagation policy).
type Database struct {
	Driver   DatabaseDriver `toml:"driver" default:"sqlite"`
	Host     string         `toml:"host"`
	Port     int            `toml:"port"`
	Database string         `toml:"database" default:"termchat.db"`
	Username string         `toml:"username"`
	Password string         `toml:"password"`

	// ExtraParameters are appended verbatim to the driver DSN, e.g.
	// "sslmode=disable" for postgres or "parseTime=true" for mysql.
	ExtraParameters []string `toml:"extra_parameters"`
}

// Redis backs the distributed KV/PubSub implementations used by multi-instance
// deployments; unused in a single-instance deployment.
type Redis struct {
	Enabled  bool   `toml:"enabled" default:"false"`
	Host     string `toml:"host"`
	Port     int    `toml:"port" default:"6379"`
	Password string `toml:"password"`
}
