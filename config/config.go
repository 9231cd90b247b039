// Package config loads the daemon configuration: the cabinet fleet and
// the background sweep intervals. Load reads and parses only; callers
// run Validate and then Normalize before using the result.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel string `yaml:"log_level"`

	// MonitorIntervalSec is the telemetry sweep period.
	MonitorIntervalSec int `yaml:"monitor_interval_sec"`
	// IdleReclaimSec is how long a cabinet session may sit unused
	// before its socket is closed.
	IdleReclaimSec int `yaml:"idle_reclaim_sec"`

	Cabinets []CabinetConfig `yaml:"cabinets"`
}

// ---- CABINET ----

type CabinetConfig struct {
	Name       string `yaml:"name"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	UnitID     uint8  `yaml:"unit_id"`
	TimeoutMs  int    `yaml:"timeout_ms"`
	RetryCount int    `yaml:"retry_count"`
	Disabled   bool   `yaml:"disabled"`
}

// Load reads and parses a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}