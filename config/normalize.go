package config

import (
	"time"

	"github.com/yunenjoy/skylocker/cabinet"
)

// Defaults applied by Normalize.
const (
	DefaultLogLevel           = "info"
	DefaultMonitorIntervalSec = 30
	DefaultIdleReclaimSec     = 600
)

// Normalize applies post-validation defaults.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.MonitorIntervalSec == 0 {
		cfg.MonitorIntervalSec = DefaultMonitorIntervalSec
	}
	if cfg.IdleReclaimSec == 0 {
		cfg.IdleReclaimSec = DefaultIdleReclaimSec
	}

	for i := range cfg.Cabinets {
		c := &cfg.Cabinets[i]

		if c.Port == 0 {
			c.Port = cabinet.DefaultPort
		}
		if c.UnitID == 0 {
			c.UnitID = cabinet.DefaultUnitID
		}
		if c.TimeoutMs == 0 {
			c.TimeoutMs = int(cabinet.DefaultTimeout / time.Millisecond)
		}
		if c.RetryCount == 0 {
			c.RetryCount = cabinet.DefaultRetryCount
		}
	}
}

// CabinetConfigs converts the parsed cabinet list to the runtime form.
func (cfg *Config) CabinetConfigs() []cabinet.Config {
	out := make([]cabinet.Config, 0, len(cfg.Cabinets))
	for _, c := range cfg.Cabinets {
		out = append(out, cabinet.Config{
			Name:       c.Name,
			Host:       c.Host,
			Port:       c.Port,
			UnitID:     c.UnitID,
			Timeout:    time.Duration(c.TimeoutMs) * time.Millisecond,
			RetryCount: c.RetryCount,
			Enabled:    !c.Disabled,
		})
	}
	return out
}

// MonitorInterval returns the telemetry sweep period as a duration.
func (cfg *Config) MonitorInterval() time.Duration {
	return time.Duration(cfg.MonitorIntervalSec) * time.Second
}

// IdleReclaim returns the idle session threshold as a duration.
func (cfg *Config) IdleReclaim() time.Duration {
	return time.Duration(cfg.IdleReclaimSec) * time.Second
}