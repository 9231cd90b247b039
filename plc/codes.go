package plc

// Operation codes are small integers written to or read from a specific
// register. Codes are not globally unique; 10 on the door register means
// "open", while 10 on the servo register means "opened by drone". Always
// pair a code constant with its register.

// RegDoorControl codes.
const (
	DoorOpen      uint16 = 10
	DoorOpenDone  uint16 = 11
	DoorClose     uint16 = 20
	DoorCloseDone uint16 = 21
)

// RegLandingPad codes.
const (
	PadPresent    uint16 = 10 // host: drone has landed
	PadPresentAck uint16 = 11
	PadAbsent     uint16 = 20 // host: drone has departed
	PadAbsentAck  uint16 = 21
)

// RegPackageOp codes.
const (
	// OpStorePackage begins the drone storage sequence.
	OpStorePackage uint16 = 110
	// OpStoreDone reports the storage sequence finished.
	OpStoreDone uint16 = 111
	// OpEmptyCollect reports the drone is collecting an empty box during
	// storage (branch A); it is also the code the host writes to begin
	// the drone pickup sequence.
	OpEmptyCollect uint16 = 120
	// OpStoreTakeoff permits takeoff after a storage branch-A exchange.
	OpStoreTakeoff uint16 = 121
	// OpNoEmptyCollect reports the drone is not collecting an empty box
	// during storage (branch B).
	OpNoEmptyCollect uint16 = 122
	// OpShipPackage begins the drone shipping sequence.
	OpShipPackage uint16 = 130
	// OpPickupTakeoff permits takeoff after a pickup sequence.
	OpPickupTakeoff uint16 = 131
	// OpShipTakeoff permits takeoff after a shipping sequence.
	OpShipTakeoff uint16 = 141
)

// RegServo codes.
const (
	ServoCanOpen     uint16 = 1  // PLC: drone may open the servo
	ServoForkArrived uint16 = 2  // PLC: cargo fork/parcel in place, servo may close
	ServoOpened      uint16 = 10 // host: drone opened the servo
	ServoOpenAck     uint16 = 11
	ServoClosed      uint16 = 20 // host: drone closed the servo
	ServoCloseAck    uint16 = 21
)

// RegStorageStatus codes.
const (
	StorageFull      uint16 = 10
	StorageAvailable uint16 = 20
)

// RegPickupStorage codes.
const (
	PickupNoParcel    uint16 = 10
	PickupParcelReady uint16 = 20
)

// RegSendStorage codes.
const (
	SendBoxAvailable uint16 = 10
	SendBoxNone      uint16 = 11
)

// User interaction codes, shared across RegUserPickupOp, RegUserRecycleOp,
// RegUserConfirmRecycle and RegUserSendOp.
const (
	UserOpActive  uint16 = 210
	UserOpDone    uint16 = 211
	UserOpBoxOpen uint16 = 220
)

// RegSystemControl / RegSystemStatus codes.
const (
	SysAutoOn      uint16 = 10
	SysAutoOff     uint16 = 11
	SysAutoStatus  uint16 = 12
	SysPauseOn     uint16 = 20
	SysPauseOff    uint16 = 21
	SysPauseStatus uint16 = 22
	SysEStopOn     uint16 = 30
	SysEStopOff    uint16 = 31
	SysEStopStatus uint16 = 32
)

// RegFaultClear codes.
const (
	FaultClearCmd  uint16 = 10
	FaultClearDone uint16 = 11
)

// Position codes 101..106 address the six physical bays.
const (
	positionBase uint16 = 100
	positionMax  uint16 = 106
)

// PositionBay converts a bay position code to a 1-based bay number.
// The second return is false for codes outside the known range.
func PositionBay(code uint16) (int, bool) {
	if code <= positionBase || code > positionMax {
		return 0, false
	}
	return int(code - positionBase), true
}
