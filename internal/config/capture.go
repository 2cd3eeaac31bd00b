// Package config holds the validated capture configuration shared by the
// daemon and the offline tools.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/banshee-data/buswatch/internal/gpio"
	"github.com/banshee-data/buswatch/internal/reportmux"
)

// CaptureConfig describes where the GPIO reports come from and which bits of
// the level field carry the two bus lines. The schema matches the daemon's
// flags so a JSON file can stand in for a flag set on headless installs.
type CaptureConfig struct {
	// Pipe is the pigpiod notification pipe or a raw capture file.
	Pipe string `json:"pipe,omitempty"`
	// Serial is the device path of a UART-attached sniffer board.
	// Mutually exclusive with Pipe.
	Serial string `json:"serial,omitempty"`
	// Port holds the serial connection parameters when Serial is set.
	Port reportmux.PortOptions `json:"port,omitempty"`
	// Probe names the GPIO bits carrying SCL and SDA.
	Probe gpio.Probe `json:"probe"`
}

// DefaultCaptureConfig returns the conventional Raspberry Pi wiring: the
// hardware I2C pins, watched through pigpiod's first notification pipe.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		Pipe:  "/dev/pigpio0",
		Probe: gpio.Probe{SCL: 3, SDA: 2},
	}
}

// Validate checks the configuration before any hardware is touched.
// Malformed probe or port settings are a startup failure, never a decode
// time concern.
func (c CaptureConfig) Validate() error {
	if c.Pipe == "" && c.Serial == "" {
		return fmt.Errorf("config: either pipe or serial source is required")
	}
	if c.Pipe != "" && c.Serial != "" {
		return fmt.Errorf("config: pipe and serial sources are mutually exclusive")
	}
	if err := c.Probe.Validate(); err != nil {
		return err
	}
	if c.Serial != "" {
		if _, err := c.Port.Normalize(); err != nil {
			return err
		}
	}
	return nil
}

// LoadCaptureConfig loads a CaptureConfig from a JSON file. Fields omitted
// from the JSON keep the defaults, so partial configs are safe. Defaults are
// applied after parsing, so a serial-only file never inherits the default
// pipe source.
func LoadCaptureConfig(path string) (CaptureConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return CaptureConfig{}, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return CaptureConfig{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg CaptureConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return CaptureConfig{}, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	defaults := DefaultCaptureConfig()
	if cfg.Pipe == "" && cfg.Serial == "" {
		cfg.Pipe = defaults.Pipe
	}
	if cfg.Probe == (gpio.Probe{}) {
		cfg.Probe = defaults.Probe
	}

	if err := cfg.Validate(); err != nil {
		return CaptureConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
