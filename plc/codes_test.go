package plc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPositionBay(t *testing.T) {
	tests := []struct {
		code uint16
		bay  int
		ok   bool
	}{
		{101, 1, true},
		{103, 3, true},
		{106, 6, true},
		{100, 0, false},
		{107, 0, false},
		{0, 0, false},
	}

	for _, tt := range tests {
		bay, ok := PositionBay(tt.code)
		require.Equal(t, tt.ok, ok, "code %d", tt.code)
		require.Equal(t, tt.bay, bay, "code %d", tt.code)
	}
}

func TestRegisterString(t *testing.T) {
	require.Equal(t, "door-control", RegDoorControl.String())
	require.Equal(t, uint16(0x0BB8), RegDoorControl.Addr())

	// Unknown registers still print their address.
	require.Equal(t, "reg-0x0001", Register(0x0001).String())
}