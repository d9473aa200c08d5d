package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaultsFromTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "unit-cooler.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[valve_pin]
pin = 27
active_high = false

[controller]
interval_sec = 45
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 27, cfg.ValvePin.Number)
	assert.False(t, cfg.ValvePin.ActiveHigh)
	assert.Equal(t, 45, cfg.Controller.IntervalSec)
	// Untouched sections keep their defaults.
	assert.Equal(t, 2222, cfg.Controller.Transport.Port)
}

func TestLoadInvalidTOMLIsConfigInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("not valid toml ["), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestValidateRejectsMissingValvePin(t *testing.T) {
	cfg := Default()
	cfg.ValvePin.Number = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "valve_pin")
}

func TestValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestApplyOverridesLayersEnvAndFlags(t *testing.T) {
	v := viper.New()
	v.Set("dummy", true)
	v.Set("msg-count", 5)
	v.Set("HEMS_PUB_PORT", 3333)
	v.Set("HEMS_LOG_PORT", 6001)

	cfg := ApplyOverrides(Default(), v)
	assert.True(t, cfg.Dummy)
	assert.Equal(t, 5, cfg.MsgCount)
	assert.Equal(t, 3333, cfg.Controller.Transport.Port)
	assert.Equal(t, 6001, cfg.Actuator.LogPort)
	assert.Equal(t, 1.0, cfg.SpeedUp, "speedup defaults to real time when unset")
}
