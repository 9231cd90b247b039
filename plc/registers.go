package plc

import "fmt"

// Register is an offset into the PLC's 16-bit holding-register space.
// The addresses below are fixed by the PLC firmware and must not change.
type Register uint16

// Cabinet control registers (VW3000 block).
const (
	// RegDoorControl commands and reports the cabin door.
	RegDoorControl Register = 0x0BB8 // VW3000
	// RegLandingPad holds the landing pad occupancy handshake.
	RegLandingPad Register = 0x0BB9 // VW3001
	// RegPackageOp drives the drone store/pickup/ship sequences.
	RegPackageOp Register = 0x0BBA // VW3002
	// RegServo holds the drone cargo-fork servo handshake.
	RegServo Register = 0x0BBB // VW3003
	// RegStorePosition reports the bay a stored parcel was placed in.
	RegStorePosition Register = 0x0BBC // VW3004
	// RegEmptyBoxPosition reports the bay an empty box was collected from.
	RegEmptyBoxPosition Register = 0x0BBD // VW3005
	// RegStorageStatus reports storage capacity for incoming parcels.
	RegStorageStatus Register = 0x0BBE // VW3006
	// RegPickupStorage reports whether a parcel is available for pickup.
	RegPickupStorage Register = 0x0BBF // VW3007
	// RegServoStatus reports raw servo health.
	RegServoStatus Register = 0x0BC0 // VW3008

	// RegPickupCodeFront and RegPickupCodeRear hold the two 3-digit
	// halves of a 6-digit pickup code.
	RegPickupCodeFront Register = 0x0BC1 // VW3009
	RegPickupCodeRear  Register = 0x0BC2 // VW3010

	// RegPickupPosition reports the bay a pickup parcel sits in.
	RegPickupPosition Register = 0x0BC3 // VW3011
	// RegUserPickupOp tracks the user-facing pickup interaction.
	RegUserPickupOp Register = 0x0BC4 // VW3012
	// RegUserRecycleOp tracks the empty-box recycle interaction.
	RegUserRecycleOp Register = 0x0BC5 // VW3013
	// RegUserConfirmRecycle tracks the recycle confirmation step.
	RegUserConfirmRecycle Register = 0x0BC6 // VW3014
	// RegSendEmptyBoxPos reports the bay a send box is dispensed from.
	RegSendEmptyBoxPos Register = 0x0BC7 // VW3015
	// RegUserSendOp tracks the user-facing send interaction.
	RegUserSendOp Register = 0x0BC8 // VW3016
	// RegSendBoxPos reports the bay a filled send box was stored in.
	RegSendBoxPos Register = 0x0BCA // VW3018
	// RegSendBoxWeight reports the send box weight in grams.
	RegSendBoxWeight Register = 0x0BCB // VW3019

	// RegSystemControl accepts system mode commands.
	RegSystemControl Register = 0x0BCC // VW3020
	// RegSystemStatus reports the overall system state.
	RegSystemStatus Register = 0x0BCD // VW3021
	// RegSystemAlarm is the alarm summary bitfield.
	RegSystemAlarm Register = 0x0BCE // VW3022
	// RegFaultClear accepts the fault-clear handshake.
	RegFaultClear Register = 0x0BCF // VW3023

	// RegSendCodeFront and RegSendCodeRear hold the two 3-digit halves
	// of a 6-digit send code.
	RegSendCodeFront Register = 0x0BD0 // VW3024
	RegSendCodeRear  Register = 0x0BD1 // VW3025

	// RegSendStorage reports empty send-box availability.
	RegSendStorage Register = 0x0BD2 // VW3026

	// RegAlarmBase is the start of the detailed alarm block.
	RegAlarmBase Register = 0x0BFE // VW3070
)

// Weather station registers (VW2300 block). Raw values are scaled by 10.
const (
	RegWeatherHumidity    Register = 0x08FC // VW2300
	RegWeatherTemperature Register = 0x08FE // VW2302
	RegWeatherWindForce   Register = 0x0900 // VW2304
	RegWeatherRainfall    Register = 0x0902 // VW2306
	RegWeatherWindSpeed   Register = 0x0904 // VW2308
	RegWeatherWindDir     Register = 0x0906 // VW2310
	RegWeatherPressure    Register = 0x0908 // VW2312
)

var registerNames = map[Register]string{
	RegDoorControl:        "door-control",
	RegLandingPad:         "landing-pad",
	RegPackageOp:          "package-op",
	RegServo:              "servo",
	RegStorePosition:      "store-position",
	RegEmptyBoxPosition:   "empty-box-position",
	RegStorageStatus:      "storage-status",
	RegPickupStorage:      "pickup-storage",
	RegServoStatus:        "servo-status",
	RegPickupCodeFront:    "pickup-code-front",
	RegPickupCodeRear:     "pickup-code-rear",
	RegPickupPosition:     "pickup-position",
	RegUserPickupOp:       "user-pickup-op",
	RegUserRecycleOp:      "user-recycle-op",
	RegUserConfirmRecycle: "user-confirm-recycle",
	RegSendEmptyBoxPos:    "send-empty-box-pos",
	RegUserSendOp:         "user-send-op",
	RegSendBoxPos:         "send-box-pos",
	RegSendBoxWeight:      "send-box-weight",
	RegSystemControl:      "system-control",
	RegSystemStatus:       "system-status",
	RegSystemAlarm:        "system-alarm",
	RegFaultClear:         "fault-clear",
	RegSendCodeFront:      "send-code-front",
	RegSendCodeRear:       "send-code-rear",
	RegSendStorage:        "send-storage",
	RegAlarmBase:          "alarm-base",
	RegWeatherHumidity:    "weather-humidity",
	RegWeatherTemperature: "weather-temperature",
	RegWeatherWindForce:   "weather-wind-force",
	RegWeatherRainfall:    "weather-rainfall",
	RegWeatherWindSpeed:   "weather-wind-speed",
	RegWeatherWindDir:     "weather-wind-direction",
	RegWeatherPressure:    "weather-pressure",
}

// Addr returns the numeric register address.
func (r Register) Addr() uint16 { return uint16(r) }

// String returns the symbolic register name, or the hex address for
// registers outside the fixed map.
func (r Register) String() string {
	if name, ok := registerNames[r]; ok {
		return name
	}
	return fmt.Sprintf("reg-0x%04X", uint16(r))
}
