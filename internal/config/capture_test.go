package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/buswatch/internal/gpio"
)

func TestDefaultCaptureConfigIsValid(t *testing.T) {
	assert.NoError(t, DefaultCaptureConfig().Validate())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     CaptureConfig
		wantErr bool
	}{
		{"pipe source", CaptureConfig{Pipe: "/dev/pigpio0", Probe: gpio.Probe{SCL: 3, SDA: 2}}, false},
		{"serial source", CaptureConfig{Serial: "/dev/ttyUSB0", Probe: gpio.Probe{SCL: 1, SDA: 0}}, false},
		{"no source", CaptureConfig{Probe: gpio.Probe{SCL: 3, SDA: 2}}, true},
		{"both sources", CaptureConfig{Pipe: "/dev/pigpio0", Serial: "/dev/ttyUSB0", Probe: gpio.Probe{SCL: 3, SDA: 2}}, true},
		{"bad probe", CaptureConfig{Pipe: "/dev/pigpio0", Probe: gpio.Probe{SCL: 3, SDA: 3}}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.cfg.Validate()
			if c.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadCaptureConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capture.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"pipe":"/dev/pigpio1","probe":{"scl":17,"sda":27}}`), 0o644))

	cfg, err := LoadCaptureConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/pigpio1", cfg.Pipe)
	assert.Equal(t, gpio.Probe{SCL: 17, SDA: 27}, cfg.Probe)
}

func TestLoadCaptureConfigSerialOnly(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capture.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"serial":"/dev/ttyUSB0","probe":{"scl":3,"sda":2}}`), 0o644))

	cfg, err := LoadCaptureConfig(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Pipe, "serial config must not inherit the default pipe")
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial)
}

func TestLoadCaptureConfigAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "capture.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	cfg, err := LoadCaptureConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultCaptureConfig(), cfg)
}

func TestLoadCaptureConfigRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadCaptureConfig(filepath.Join(dir, "capture.yaml"))
	assert.Error(t, err, "non-json extension")

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"probe":{"scl":99}}`), 0o644))
	_, err = LoadCaptureConfig(bad)
	assert.Error(t, err, "out of range probe bit")
}
