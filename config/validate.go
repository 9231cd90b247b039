package config

import "fmt"

var logLevels = map[string]bool{
	"": true, "debug": true, "info": true, "warn": true, "error": true,
}

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if !logLevels[cfg.LogLevel] {
		return fmt.Errorf("unknown log_level %q", cfg.LogLevel)
	}

	if cfg.MonitorIntervalSec < 0 {
		return fmt.Errorf("monitor_interval_sec must not be negative")
	}
	if cfg.IdleReclaimSec < 0 {
		return fmt.Errorf("idle_reclaim_sec must not be negative")
	}

	if len(cfg.Cabinets) == 0 {
		return fmt.Errorf("at least one cabinet must be configured")
	}

	seen := make(map[string]bool, len(cfg.Cabinets))

	for i, c := range cfg.Cabinets {
		if c.Name == "" {
			return fmt.Errorf("cabinet %d: name is required", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("cabinet %q: duplicate name", c.Name)
		}
		seen[c.Name] = true

		if c.Host == "" {
			return fmt.Errorf("cabinet %q: host is required", c.Name)
		}
		if c.Port < 0 || c.Port > 65535 {
			return fmt.Errorf("cabinet %q: port %d out of range", c.Name, c.Port)
		}
		if c.TimeoutMs < 0 {
			return fmt.Errorf("cabinet %q: timeout_ms must not be negative", c.Name)
		}
		if c.RetryCount < 0 {
			return fmt.Errorf("cabinet %q: retry_count must not be negative", c.Name)
		}
	}

	return nil
}