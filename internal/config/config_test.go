// SPDX-License-Identifier: AGPL-3.0-or-later
package config_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/termchat/termchat/internal/config"
)

func makeValidConfig() config.Config {
	return config.Config{
		LogLevel: config.LogLevelInfo,
		Secret:   "testsecret",
		Server: config.Server{
			BindV4:     "0.0.0.0",
			Port:       27224,
			MaxClients: 10,
		},
		Palette: config.Palette{
			Selector: config.PaletteStandard,
		},
		Encryption: config.Encryption{
			Policy: config.EncryptionPolicyOptIn,
			KeyMaterial: config.KeyMaterial{
				Kind:     config.KeyMaterialPassword,
				Password: "hunter2aaaa",
			},
			KDF: config.KDF{Algorithm: config.KDFArgon2id},
		},
		HTTP: config.HTTP{
			Bind: "0.0.0.0",
			Port: 8080,
		},
		Database: config.Database{
			Driver:   config.DatabaseDriverSQLite,
			Database: "test.db",
		},
	}
}

func TestConfigValidateValid(t *testing.T) {
	t.Parallel()
	require.NoError(t, makeValidConfig().Validate())
}

func TestServerValidateNoBind(t *testing.T) {
	t.Parallel()
	s := config.Server{BindV4: "", BindV6: "", Port: 1, MaxClients: 1}
	require.ErrorIs(t, s.Validate(), config.ErrInvalidServerBind)
}

func TestServerValidateBadPort(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		port int
	}{
		{"zero", 0},
		{"negative", -1},
		{"too large", 70000},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := config.Server{BindV4: "0.0.0.0", Port: tt.port, MaxClients: 1}
			require.ErrorIs(t, s.Validate(), config.ErrInvalidServerPort)
		})
	}
}

func TestServerValidateMaxClients(t *testing.T) {
	t.Parallel()
	s := config.Server{BindV4: "0.0.0.0", Port: 1, MaxClients: 0}
	require.ErrorIs(t, s.Validate(), config.ErrInvalidMaxClients)
}

func TestPaletteValidateCustomRequiresString(t *testing.T) {
	t.Parallel()
	p := config.Palette{Selector: config.PaletteCustom}
	require.ErrorIs(t, p.Validate(), config.ErrCustomPaletteRequired)
}

func TestPaletteValidateCustomTooLong(t *testing.T) {
	t.Parallel()
	long := make([]byte, 65)
	for i := range long {
		long[i] = '.'
	}
	p := config.Palette{Selector: config.PaletteCustom, Custom: string(long)}
	require.ErrorIs(t, p.Validate(), config.ErrCustomPaletteTooLong)
}

func TestPaletteValidateUnknownSelector(t *testing.T) {
	t.Parallel()
	p := config.Palette{Selector: "nonsense"}
	require.ErrorIs(t, p.Validate(), config.ErrInvalidPaletteSelector)
}

func TestEncryptionValidateOffSkipsKeyMaterial(t *testing.T) {
	t.Parallel()
	e := config.Encryption{Policy: config.EncryptionPolicyOff}
	require.NoError(t, e.Validate())
}

func TestEncryptionValidatePasswordRequired(t *testing.T) {
	t.Parallel()
	e := config.Encryption{
		Policy:      config.EncryptionPolicyRequired,
		KeyMaterial: config.KeyMaterial{Kind: config.KeyMaterialPassword},
		KDF:         config.KDF{Algorithm: config.KDFArgon2id},
	}
	require.ErrorIs(t, e.Validate(), config.ErrPasswordRequired)
}

func TestEncryptionValidateUnknownKDF(t *testing.T) {
	t.Parallel()
	e := config.Encryption{
		Policy: config.EncryptionPolicyRequired,
		KeyMaterial: config.KeyMaterial{
			Kind:     config.KeyMaterialPassword,
			Password: "x",
		},
		KDF: config.KDF{Algorithm: "bogus"},
	}
	require.ErrorIs(t, e.Validate(), config.ErrInvalidKDFAlgorithm)
}

func TestDatabaseValidateRequiresHostForNonSQLite(t *testing.T) {
	t.Parallel()
	d := config.Database{Driver: config.DatabaseDriverPostgres, Database: "termchat"}
	require.ErrorIs(t, d.Validate(), config.ErrInvalidDatabaseHost)
}

func TestRedisValidateDisabledSkipsChecks(t *testing.T) {
	t.Parallel()
	r := config.Redis{Enabled: false}
	require.NoError(t, r.Validate())
}

func TestRedisValidateEnabledRequiresHost(t *testing.T) {
	t.Parallel()
	r := config.Redis{Enabled: true, Port: 6379}
	require.ErrorIs(t, r.Validate(), config.ErrInvalidRedisHost)
}
