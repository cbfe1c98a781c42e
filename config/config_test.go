package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "bowlink", cfg.Device.Name)
	assert.Equal(t, "serial", cfg.Bus.Kind)
	assert.Equal(t, 247, cfg.Radio.MTU)
	assert.Equal(t, uint32(2000), cfg.IMU.ReportIntervalUs)
	assert.Equal(t, 360, cfg.Audio.BlockBytes)
}

func TestLoadOverridesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bowlink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"bus:\n  port: /dev/ttyACM1\nradio:\n  mtu: 128\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM1", cfg.Bus.Port)
	assert.Equal(t, 128, cfg.Radio.MTU)
	// Untouched fields keep their defaults.
	assert.Equal(t, 3000000, cfg.Bus.Baud)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/bowlink.yaml")
	assert.Error(t, err)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("bus: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
