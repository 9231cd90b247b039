package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/yunenjoy/skylocker/plc"
)

// SystemState is the overall controller state reported by the PLC.
type SystemState uint16

const (
	SystemNormal SystemState = iota
	SystemInitializing
	SystemMaintenance
	SystemFault
	SystemOffline
)

var systemStateNames = map[SystemState]string{
	SystemNormal:       "normal",
	SystemInitializing: "initializing",
	SystemMaintenance:  "maintenance",
	SystemFault:        "fault",
	SystemOffline:      "offline",
}

func (s SystemState) String() string {
	if name, ok := systemStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown state %d", uint16(s))
}

// SystemStatus reads the overall system state register.
func (m *Monitor) SystemStatus(ctx context.Context) (SystemState, error) {
	raw, err := m.ops.ReadRegister(ctx, plc.RegSystemStatus)
	if err != nil {
		return 0, fmt.Errorf("system status: %w", err)
	}
	return SystemState(raw), nil
}

// ServoState is the raw servo health register value.
type ServoState uint16

const (
	ServoNormal ServoState = iota
	ServoRunning
	ServoFault
	ServoOffline
	ServoOverload
)

var servoStateNames = map[ServoState]string{
	ServoNormal:   "normal",
	ServoRunning:  "running",
	ServoFault:    "fault",
	ServoOffline:  "offline",
	ServoOverload: "overload",
}

func (s ServoState) String() string {
	if name, ok := servoStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown state %d", uint16(s))
}

// ServoHealth reads the servo health register.
func (m *Monitor) ServoHealth(ctx context.Context) (ServoState, error) {
	raw, err := m.ops.ReadRegister(ctx, plc.RegServoStatus)
	if err != nil {
		return 0, fmt.Errorf("servo health: %w", err)
	}
	return ServoState(raw), nil
}

// faultClearTimeout bounds the fault-clear acknowledgement wait.
const faultClearTimeout = 10 * time.Second

// SetAutoMode switches the PLC automatic mode on or off.
func (m *Monitor) SetAutoMode(ctx context.Context, on bool) error {
	code := plc.SysAutoOff
	if on {
		code = plc.SysAutoOn
	}
	return m.ops.WriteRegister(ctx, plc.RegSystemControl, code)
}

// SetPaused pauses or resumes the PLC.
func (m *Monitor) SetPaused(ctx context.Context, paused bool) error {
	code := plc.SysPauseOff
	if paused {
		code = plc.SysPauseOn
	}
	return m.ops.WriteRegister(ctx, plc.RegSystemControl, code)
}

// EmergencyStop engages or releases the emergency stop.
func (m *Monitor) EmergencyStop(ctx context.Context, engaged bool) error {
	code := plc.SysEStopOff
	if engaged {
		code = plc.SysEStopOn
	}
	return m.ops.WriteRegister(ctx, plc.RegSystemControl, code)
}

// ClearFaults runs the fault-clear handshake: command, then wait for
// the done acknowledgement.
func (m *Monitor) ClearFaults(ctx context.Context) error {
	if err := m.ops.WriteRegister(ctx, plc.RegFaultClear, plc.FaultClearCmd); err != nil {
		return fmt.Errorf("fault clear command: %w", err)
	}

	if _, err := m.ops.WaitValue(ctx, plc.RegFaultClear,
		[]uint16{plc.FaultClearDone}, faultClearTimeout); err != nil {
		return fmt.Errorf("fault clear: %w", err)
	}

	m.log.Info("faults cleared")

	return nil
}