// Package config loads the device configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full device configuration. Defaults reproduce the
// production build constants; a config file overrides per field.
type Config struct {
	Device struct {
		Name string `yaml:"name"`
	} `yaml:"device"`

	Bus struct {
		// Kind selects the hub transport: "serial" (UART-SHTP), "i2c"
		// or "spi". Only serial is wireable on a host build.
		Kind string `yaml:"kind"`
		Port string `yaml:"port"`
		Baud int    `yaml:"baud"`
		Addr uint16 `yaml:"addr"`
	} `yaml:"bus"`

	IMU struct {
		ReportIntervalUs uint32 `yaml:"report_interval_us"`
		SampleIntervalUs uint32 `yaml:"sample_interval_us"`
		PipeRecords      int    `yaml:"pipe_records"`
	} `yaml:"imu"`

	Audio struct {
		BlockBytes int     `yaml:"block_bytes"`
		BlockCount int     `yaml:"block_count"`
		SampleRate int     `yaml:"sample_rate"`
		ToneHz     float64 `yaml:"tone_hz"`
	} `yaml:"audio"`

	Radio struct {
		MTU int `yaml:"mtu"`
	} `yaml:"radio"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	cfg.Device.Name = "bowlink"
	cfg.Bus.Kind = "serial"
	cfg.Bus.Port = "/dev/ttyUSB0"
	cfg.Bus.Baud = 3000000
	cfg.Bus.Addr = 0x4A
	cfg.IMU.ReportIntervalUs = 2000
	cfg.IMU.SampleIntervalUs = 200
	cfg.IMU.PipeRecords = 4
	cfg.Audio.BlockBytes = 360
	cfg.Audio.BlockCount = 32
	cfg.Audio.SampleRate = 16000
	cfg.Audio.ToneHz = 440
	cfg.Radio.MTU = 247
	cfg.Log.Level = "info"
	return cfg
}

// Load reads the YAML file at path over the defaults. A missing path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
