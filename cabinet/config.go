package cabinet

import "time"

// Defaults applied by Config.Normalize.
const (
	DefaultPort       = 502
	DefaultUnitID     = 1
	DefaultTimeout    = 3 * time.Second
	DefaultRetryCount = 3
)

// Config describes one cabinet PLC endpoint. The manager treats it as
// read-only input; only the session status is reported back upward.
type Config struct {
	Name       string
	Host       string
	Port       int
	UnitID     byte
	Timeout    time.Duration
	RetryCount int
	Enabled    bool
}

// Normalize fills unset fields with defaults.
func (c *Config) Normalize() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.UnitID == 0 {
		c.UnitID = DefaultUnitID
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.RetryCount <= 0 {
		c.RetryCount = DefaultRetryCount
	}
}

// Status is the reported cabinet state.
type Status string

const (
	StatusOffline Status = "offline"
	StatusOnline  Status = "online"
	StatusFaulted Status = "faulted"
)