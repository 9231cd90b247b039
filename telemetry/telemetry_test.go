package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yunenjoy/skylocker/plc"
)

func newTestMonitor(t *testing.T) (*Monitor, *plc.FakeTransport) {
	t.Helper()

	ft := plc.NewFakeTransport()
	require.NoError(t, ft.Connect())

	ops := plc.NewOps(ft,
		plc.WithRetryDelay(time.Millisecond),
		plc.WithPollInterval(2*time.Millisecond))

	return NewMonitor(ops), ft
}

func setWeather(ft *plc.FakeTransport, windSpeed, temperature, rainfall uint16) {
	ft.Set(plc.RegWeatherHumidity, 655)
	ft.Set(plc.RegWeatherTemperature, temperature)
	ft.Set(plc.RegWeatherWindForce, 30)
	ft.Set(plc.RegWeatherRainfall, rainfall)
	ft.Set(plc.RegWeatherWindSpeed, windSpeed)
	ft.Set(plc.RegWeatherWindDir, 270)
	ft.Set(plc.RegWeatherPressure, 10132)
}

func TestWeather(t *testing.T) {
	m, ft := newTestMonitor(t)
	setWeather(ft, 34, 215, 2)

	w, err := m.Weather(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 65.5, w.Humidity, 0.001)
	require.InDelta(t, 21.5, w.Temperature, 0.001)
	require.InDelta(t, 3.0, w.WindForce, 0.001)
	require.InDelta(t, 0.2, w.Rainfall, 0.001)
	require.InDelta(t, 3.4, w.WindSpeed, 0.001)
	require.InDelta(t, 270.0, w.WindDirection, 0.001) // degrees, unscaled
	require.InDelta(t, 1013.2, w.Pressure, 0.001)
}

func TestWeatherSubZeroTemperature(t *testing.T) {
	m, ft := newTestMonitor(t)
	// -12.3 °C two's-complement.
	setWeather(ft, 34, uint16(0x10000-123), 2)

	w, err := m.Weather(context.Background())
	require.NoError(t, err)
	require.InDelta(t, -12.3, w.Temperature, 0.001)
}

func TestCheckFlightConditions(t *testing.T) {
	t.Run("good weather is suitable", func(t *testing.T) {
		m, ft := newTestMonitor(t)
		setWeather(ft, 34, 215, 2)

		check, err := m.CheckFlightConditions(context.Background())
		require.NoError(t, err)
		require.True(t, check.Suitable)
		require.Empty(t, check.Reasons)
	})

	t.Run("every violated threshold is reported", func(t *testing.T) {
		m, ft := newTestMonitor(t)
		// 12.0 m/s wind, 55.0 °C, 6.5 mm rain.
		setWeather(ft, 120, 550, 65)

		check, err := m.CheckFlightConditions(context.Background())
		require.NoError(t, err)
		require.False(t, check.Suitable)
		require.Len(t, check.Reasons, 3)
	})

	t.Run("sub-zero temperature below the floor is unsuitable", func(t *testing.T) {
		m, ft := newTestMonitor(t)
		// -15.0 °C two's-complement.
		setWeather(ft, 34, uint16(0x10000-150), 2)

		check, err := m.CheckFlightConditions(context.Background())
		require.NoError(t, err)
		require.False(t, check.Suitable)
		require.Len(t, check.Reasons, 1)
		require.Contains(t, check.Reasons[0], "temperature too low")
	})

	t.Run("threshold values themselves are suitable", func(t *testing.T) {
		m, ft := newTestMonitor(t)
		// Exactly 10.0 m/s, 50.0 °C, 5.0 mm.
		setWeather(ft, 100, 500, 50)

		check, err := m.CheckFlightConditions(context.Background())
		require.NoError(t, err)
		require.True(t, check.Suitable)
	})
}

func TestAlarms(t *testing.T) {
	t.Run("no alarms", func(t *testing.T) {
		m, _ := newTestMonitor(t)

		a, err := m.Alarms(context.Background())
		require.NoError(t, err)
		require.False(t, a.HasAlarm())
		require.Empty(t, a.Active)
	})

	t.Run("bitfield decodes per bit", func(t *testing.T) {
		m, ft := newTestMonitor(t)
		ft.Set(plc.RegSystemAlarm, 0x85) // door + landing pad + safety

		a, err := m.Alarms(context.Background())
		require.NoError(t, err)
		require.True(t, a.HasAlarm())
		require.Equal(t, []Alarm{AlarmDoor, AlarmLandingPad, AlarmSafety}, a.Active)
	})
}

func TestDecodeAlarms(t *testing.T) {
	require.Empty(t, DecodeAlarms(0))
	require.Equal(t, []Alarm{AlarmServo}, DecodeAlarms(0x02))
	require.Len(t, DecodeAlarms(0xFF), 8)
	require.Equal(t, "servo fault", AlarmServo.String())
}

func TestSystemStatus(t *testing.T) {
	m, ft := newTestMonitor(t)
	ft.Set(plc.RegSystemStatus, uint16(SystemMaintenance))

	state, err := m.SystemStatus(context.Background())
	require.NoError(t, err)
	require.Equal(t, SystemMaintenance, state)
	require.Equal(t, "maintenance", state.String())
}

func TestModeControl(t *testing.T) {
	m, ft := newTestMonitor(t)
	ctx := context.Background()

	require.NoError(t, m.SetAutoMode(ctx, true))
	require.NoError(t, m.SetPaused(ctx, true))
	require.NoError(t, m.EmergencyStop(ctx, false))

	require.Equal(t,
		[]uint16{plc.SysAutoOn, plc.SysPauseOn, plc.SysEStopOff},
		ft.WritesTo(plc.RegSystemControl))
}

func TestClearFaults(t *testing.T) {
	m, ft := newTestMonitor(t)
	ft.OnWrite(func(reg plc.Register, value uint16) {
		if reg == plc.RegFaultClear && value == plc.FaultClearCmd {
			ft.Set(plc.RegFaultClear, plc.FaultClearDone)
		}
	})

	require.NoError(t, m.ClearFaults(context.Background()))
	require.Equal(t, []uint16{plc.FaultClearCmd}, ft.WritesTo(plc.RegFaultClear))
}