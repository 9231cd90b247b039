// Package telemetry reads the cabinet's monitoring surface: the
// weather station block, the alarm bitfield and the system status
// registers. It only decodes; advisory policy beyond the fixed flight
// thresholds belongs to the caller.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/yunenjoy/skylocker/logger"
	"github.com/yunenjoy/skylocker/plc"
)

// rawScale converts tenth-unit register values to engineering units.
const rawScale = 10.0

// Flight suitability thresholds.
const (
	MaxWindSpeed   = 10.0  // m/s
	MinTemperature = -10.0 // °C
	MaxTemperature = 50.0  // °C
	MaxRainfall    = 5.0   // mm
)

// Monitor reads telemetry through one cabinet's register ops.
type Monitor struct {
	ops *plc.Ops
	log logger.Logger
}

// MonitorOption customizes a Monitor.
type MonitorOption func(*Monitor)

// WithMonitorLogger sets the monitor logger.
func WithMonitorLogger(l logger.Logger) MonitorOption {
	return func(m *Monitor) {
		if l != nil {
			m.log = l
		}
	}
}

// NewMonitor creates a telemetry reader over the given register ops.
func NewMonitor(ops *plc.Ops, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		ops: ops,
		log: logger.GetLogger(),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Weather is one decoded weather station sample.
type Weather struct {
	Time          time.Time
	Humidity      float64 // %RH
	Temperature   float64 // °C
	WindForce     float64 // Beaufort
	Rainfall      float64 // mm
	WindSpeed     float64 // m/s
	WindDirection float64 // degrees, raw
	Pressure      float64 // hPa
}

// Weather reads and scales the weather station block. Registers carry
// tenth-units except wind direction, which is in whole degrees.
func (m *Monitor) Weather(ctx context.Context) (*Weather, error) {
	w := &Weather{Time: time.Now()}

	fields := []struct {
		reg    plc.Register
		dst    *float64
		scale  float64
		signed bool
	}{
		{plc.RegWeatherHumidity, &w.Humidity, rawScale, false},
		// Temperature is the one value that can go below zero; the PLC
		// encodes it two's-complement.
		{plc.RegWeatherTemperature, &w.Temperature, rawScale, true},
		{plc.RegWeatherWindForce, &w.WindForce, rawScale, false},
		{plc.RegWeatherRainfall, &w.Rainfall, rawScale, false},
		{plc.RegWeatherWindSpeed, &w.WindSpeed, rawScale, false},
		{plc.RegWeatherWindDir, &w.WindDirection, 1, false},
		{plc.RegWeatherPressure, &w.Pressure, rawScale, false},
	}

	for _, f := range fields {
		raw, err := m.ops.ReadRegister(ctx, f.reg)
		if err != nil {
			return nil, fmt.Errorf("weather read %s: %w", f.reg, err)
		}
		val := float64(raw)
		if f.signed {
			val = float64(int16(raw))
		}
		*f.dst = val / f.scale
	}

	return w, nil
}

// FlightCheck is the advisory verdict on whether conditions permit
// drone operations.
type FlightCheck struct {
	Suitable bool
	Reasons  []string
	Weather  *Weather
}

// CheckFlightConditions reads the weather block and applies the fixed
// safety thresholds.
func (m *Monitor) CheckFlightConditions(ctx context.Context) (*FlightCheck, error) {
	w, err := m.Weather(ctx)
	if err != nil {
		return nil, err
	}

	check := &FlightCheck{Weather: w}

	if w.WindSpeed > MaxWindSpeed {
		check.Reasons = append(check.Reasons,
			fmt.Sprintf("wind speed too high: %.1f m/s", w.WindSpeed))
	}
	if w.Temperature < MinTemperature {
		check.Reasons = append(check.Reasons,
			fmt.Sprintf("temperature too low: %.1f °C", w.Temperature))
	}
	if w.Temperature > MaxTemperature {
		check.Reasons = append(check.Reasons,
			fmt.Sprintf("temperature too high: %.1f °C", w.Temperature))
	}
	if w.Rainfall > MaxRainfall {
		check.Reasons = append(check.Reasons,
			fmt.Sprintf("rainfall too heavy: %.1f mm", w.Rainfall))
	}

	check.Suitable = len(check.Reasons) == 0
	if !check.Suitable {
		m.log.Warn("flight conditions unsuitable", "reasons", check.Reasons)
	}

	return check, nil
}

// Capacity reports the three storage surfaces in one read pass.
type Capacity struct {
	StorageAvailable bool
	PickupReady      bool
	SendBoxAvailable bool
}

// Capacity reads the storage, pickup and send status registers.
func (m *Monitor) Capacity(ctx context.Context) (*Capacity, error) {
	storage, err := m.ops.ReadRegister(ctx, plc.RegStorageStatus)
	if err != nil {
		return nil, fmt.Errorf("storage status: %w", err)
	}
	pickup, err := m.ops.ReadRegister(ctx, plc.RegPickupStorage)
	if err != nil {
		return nil, fmt.Errorf("pickup status: %w", err)
	}
	send, err := m.ops.ReadRegister(ctx, plc.RegSendStorage)
	if err != nil {
		return nil, fmt.Errorf("send status: %w", err)
	}

	return &Capacity{
		StorageAvailable: storage == plc.StorageAvailable,
		PickupReady:      pickup == plc.PickupParcelReady,
		SendBoxAvailable: send == plc.SendBoxAvailable,
	}, nil
}