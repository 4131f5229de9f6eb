// Package config loads the gsdemo host configuration file. Unlike the
// freeform, path-addressed map this project's predecessor used, every
// field here is a typed struct member: the YAML shape is fixed and known
// at compile time, so a misspelled key fails to parse instead of
// silently resolving to nil at runtime.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// HostConfig is the top-level shape of a gsdemo config file.
type HostConfig struct {
	Listen  ListenConfig  `yaml:"listen"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
	Sync    SyncConfig    `yaml:"sync"`
}

// ListenConfig names the local UDP endpoint gsdemo binds.
type ListenConfig struct {
	Address string `yaml:"address"`
}

// LogConfig configures gslog.
type LogConfig struct {
	Dir   string `yaml:"dir"`
	Debug bool   `yaml:"debug"`
}

// MetricsConfig configures the Prometheus HTTP exporter.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// SyncConfig configures TimedManager's retransmit cadence and the default
// transceiver expiry, all in milliseconds.
type SyncConfig struct {
	RetransmitMinIntervalMs uint64 `yaml:"retransmit_min_interval_ms"`
	RetransmitMaxIntervalMs uint64 `yaml:"retransmit_max_interval_ms"`
	DefaultExpiryMs         uint64 `yaml:"default_expiry_ms"`
}

// Default returns the configuration gsdemo falls back to when no config
// file is given.
func Default() HostConfig {
	return HostConfig{
		Listen: ListenConfig{Address: ":39000"},
		Log:    LogConfig{Dir: "log", Debug: false},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: ":9100",
		},
		Sync: SyncConfig{
			RetransmitMinIntervalMs: 2000,
			RetransmitMaxIntervalMs: 4000,
			DefaultExpiryMs:         10000,
		},
	}
}

// Load reads and parses the YAML file at path, starting from Default so
// a partial file only overrides what it mentions.
func Load(path string) (HostConfig, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return HostConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return HostConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}
