package telemetry

import (
	"context"
	"fmt"

	"github.com/yunenjoy/skylocker/plc"
)

// Alarm is one bit of the system alarm bitfield.
type Alarm uint16

const (
	AlarmDoor Alarm = 1 << iota
	AlarmServo
	AlarmLandingPad
	AlarmWeatherStation
	AlarmStorage
	AlarmComms
	AlarmPower
	AlarmSafety
)

var alarmNames = map[Alarm]string{
	AlarmDoor:           "door fault",
	AlarmServo:          "servo fault",
	AlarmLandingPad:     "landing pad fault",
	AlarmWeatherStation: "weather station fault",
	AlarmStorage:        "storage system fault",
	AlarmComms:          "communication fault",
	AlarmPower:          "power fault",
	AlarmSafety:         "safety system alarm",
}

func (a Alarm) String() string {
	if name, ok := alarmNames[a]; ok {
		return name
	}
	return fmt.Sprintf("alarm bit 0x%04X", uint16(a))
}

// DecodeAlarms expands an alarm bitfield into the active alarms.
func DecodeAlarms(code uint16) []Alarm {
	var active []Alarm
	for bit := AlarmDoor; bit <= AlarmSafety; bit <<= 1 {
		if Alarm(code)&bit != 0 {
			active = append(active, bit)
		}
	}
	return active
}

// Alarms is a decoded sample of the system alarm register.
type Alarms struct {
	Raw    uint16
	Active []Alarm
}

// HasAlarm reports whether any alarm bit is set.
func (a *Alarms) HasAlarm() bool { return a.Raw != 0 }

// Alarms reads and decodes the system alarm summary register.
func (m *Monitor) Alarms(ctx context.Context) (*Alarms, error) {
	raw, err := m.ops.ReadRegister(ctx, plc.RegSystemAlarm)
	if err != nil {
		return nil, fmt.Errorf("alarm read: %w", err)
	}

	a := &Alarms{Raw: raw, Active: DecodeAlarms(raw)}
	if a.HasAlarm() {
		m.log.Warn("system alarms active", "raw", raw, "alarms", a.Active)
	}

	return a, nil
}