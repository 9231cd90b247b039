package flow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yunenjoy/skylocker/plc"
)

func testTimeouts() Timeouts {
	return Timeouts{
		DoorConfirm:  100 * time.Millisecond,
		Landing:      100 * time.Millisecond,
		ServoOpen:    100 * time.Millisecond,
		ServoConfirm: 100 * time.Millisecond,
		ForkArrival:  100 * time.Millisecond,
		Branch:       100 * time.Millisecond,
		Takeoff:      100 * time.Millisecond,
		UserAction:   100 * time.Millisecond,
		Completion:   100 * time.Millisecond,
		Settle:       time.Millisecond,
	}
}

func newTestEngine(t *testing.T) (*Engine, *plc.FakeTransport) {
	t.Helper()

	ft := plc.NewFakeTransport()
	require.NoError(t, ft.Connect())

	ops := plc.NewOps(ft,
		plc.WithRetryDelay(time.Millisecond),
		plc.WithPollInterval(2*time.Millisecond))

	return NewEngine("test-cab", ops, WithTimeouts(testTimeouts())), ft
}

// scriptCabinet wires the fake transport to react like a cooperative
// PLC: door and landing commands confirm, the servo handshake advances,
// and the package-operation register resolves to branchCode after the
// servo opens. takeoffCode is published once the servo closes.
func scriptCabinet(ft *plc.FakeTransport, branchCode, takeoffCode uint16) {
	ft.OnWrite(func(reg plc.Register, value uint16) {
		switch {
		case reg == plc.RegDoorControl && value == plc.DoorOpen:
			ft.Set(plc.RegDoorControl, plc.DoorOpenDone)
		case reg == plc.RegDoorControl && value == plc.DoorClose:
			ft.Set(plc.RegDoorControl, plc.DoorCloseDone)
		case reg == plc.RegLandingPad && value == plc.PadPresent:
			ft.Set(plc.RegLandingPad, plc.PadPresentAck)
		case reg == plc.RegLandingPad && value == plc.PadAbsent:
			ft.Set(plc.RegLandingPad, plc.PadAbsentAck)
		case reg == plc.RegPackageOp &&
			(value == plc.OpStorePackage || value == plc.OpEmptyCollect || value == plc.OpShipPackage):
			ft.Set(plc.RegServo, plc.ServoCanOpen)
		case reg == plc.RegServo && value == plc.ServoOpened:
			ft.QueueReads(plc.RegServo, plc.ServoOpenAck)
			if branchCode == plc.OpEmptyCollect || branchCode == 0 {
				// Fork arrives once the open is acknowledged.
				ft.QueueReads(plc.RegServo, plc.ServoForkArrived)
			}
			if branchCode != 0 {
				ft.Set(plc.RegPackageOp, branchCode)
			}
		case reg == plc.RegServo && value == plc.ServoClosed:
			ft.Set(plc.RegServo, plc.ServoCloseAck)
			ft.Set(plc.RegPackageOp, takeoffCode)
		}
	})
}

func TestSplitCode(t *testing.T) {
	t.Run("valid code round trips", func(t *testing.T) {
		front, rear, err := SplitCode("123456")
		require.NoError(t, err)
		require.Equal(t, uint16(123), front)
		require.Equal(t, uint16(456), rear)
		require.Equal(t, "123456", JoinCode(front, rear))
	})

	t.Run("leading zeros survive", func(t *testing.T) {
		front, rear, err := SplitCode("001002")
		require.NoError(t, err)
		require.Equal(t, uint16(1), front)
		require.Equal(t, uint16(2), rear)
		require.Equal(t, "001002", JoinCode(front, rear))
	})

	t.Run("rejects bad input", func(t *testing.T) {
		for _, code := range []string{"", "12345", "1234567", "12a456", "12 456", "一二三四五六"} {
			_, _, err := SplitCode(code)
			require.ErrorIs(t, err, ErrInvalidCode, "code %q", code)
		}
	})
}

func TestInvalidCodeWritesNothing(t *testing.T) {
	eng, ft := newTestEngine(t)

	_, err := eng.Store(context.Background(), "12345x")
	require.ErrorIs(t, err, ErrInvalidCode)

	_, err = eng.Pickup(context.Background(), "12345x")
	require.ErrorIs(t, err, ErrInvalidCode)

	_, err = eng.Ship(context.Background(), "12345x")
	require.ErrorIs(t, err, ErrInvalidCode)

	require.Empty(t, ft.Writes())
}

func TestStore(t *testing.T) {
	t.Run("branch A collects an empty box", func(t *testing.T) {
		eng, ft := newTestEngine(t)
		ft.Set(plc.RegStorageStatus, plc.StorageAvailable)
		ft.Set(plc.RegStorePosition, 103)
		ft.Set(plc.RegEmptyBoxPosition, 102)
		scriptCabinet(ft, plc.OpEmptyCollect, plc.OpStoreTakeoff)

		result, err := eng.Store(context.Background(), "123456")
		require.NoError(t, err)
		require.True(t, result.EmptyCollected)
		require.Equal(t, 3, result.Bay)
		require.Equal(t, 2, result.EmptyBoxBay)

		require.Equal(t, []uint16{123}, ft.WritesTo(plc.RegPickupCodeFront))
		require.Equal(t, []uint16{456}, ft.WritesTo(plc.RegPickupCodeRear))
		require.Equal(t, []uint16{plc.ServoOpened, plc.ServoClosed}, ft.WritesTo(plc.RegServo))
		require.Equal(t, []uint16{plc.DoorOpen, plc.DoorClose}, ft.WritesTo(plc.RegDoorControl))
	})

	t.Run("branch B never touches branch A registers", func(t *testing.T) {
		eng, ft := newTestEngine(t)
		ft.Set(plc.RegStorageStatus, plc.StorageAvailable)
		ft.Set(plc.RegStorePosition, 101)
		scriptCabinet(ft, plc.OpNoEmptyCollect, plc.OpStoreTakeoff)

		result, err := eng.Store(context.Background(), "123456")
		require.NoError(t, err)
		require.False(t, result.EmptyCollected)
		require.Equal(t, 1, result.Bay)
		require.Zero(t, result.EmptyBoxBay)

		// The empty-box position belongs to branch A only.
		require.Zero(t, ft.ReadCount(plc.RegEmptyBoxPosition))
	})

	t.Run("full storage fails fast", func(t *testing.T) {
		eng, ft := newTestEngine(t)
		ft.Set(plc.RegStorageStatus, plc.StorageFull)

		_, err := eng.Store(context.Background(), "123456")
		require.ErrorIs(t, err, ErrCapacityExhausted)
		require.Empty(t, ft.Writes())
	})

	t.Run("unexpected branch code is a protocol violation", func(t *testing.T) {
		eng, ft := newTestEngine(t)
		ft.Set(plc.RegStorageStatus, plc.StorageAvailable)
		scriptCabinet(ft, 999, plc.OpStoreTakeoff)

		_, err := eng.Store(context.Background(), "123456")
		require.ErrorIs(t, err, ErrUnexpectedBranch)

		var stepErr *StepError
		require.ErrorAs(t, err, &stepErr)
		require.Equal(t, "branch", stepErr.Step)
		require.NoError(t, stepErr.RollbackErr)

		// Rollback: pad cleared, exactly one door close.
		require.Contains(t, ft.WritesTo(plc.RegLandingPad), uint16(plc.PadAbsent))
		require.Equal(t, 1, countValues(ft.WritesTo(plc.RegDoorControl), plc.DoorClose))
	})

	t.Run("landing timeout closes the door exactly once", func(t *testing.T) {
		eng, ft := newTestEngine(t)
		ft.Set(plc.RegStorageStatus, plc.StorageAvailable)
		// Door confirms, landing pad never acknowledges.
		ft.OnWrite(func(reg plc.Register, value uint16) {
			switch {
			case reg == plc.RegDoorControl && value == plc.DoorOpen:
				ft.Set(plc.RegDoorControl, plc.DoorOpenDone)
			case reg == plc.RegDoorControl && value == plc.DoorClose:
				ft.Set(plc.RegDoorControl, plc.DoorCloseDone)
			}
		})

		_, err := eng.Store(context.Background(), "123456")

		var stepErr *StepError
		require.ErrorAs(t, err, &stepErr)
		require.Equal(t, "landing", stepErr.Step)
		require.ErrorIs(t, stepErr.Err, plc.ErrWaitTimeout)
		require.NoError(t, stepErr.RollbackErr)
		require.Equal(t, 1, countValues(ft.WritesTo(plc.RegDoorControl), plc.DoorClose))
	})
}

func TestPickup(t *testing.T) {
	t.Run("completed run reports the bay", func(t *testing.T) {
		eng, ft := newTestEngine(t)
		ft.Set(plc.RegPickupStorage, plc.PickupParcelReady)
		ft.Set(plc.RegUserPickupOp, plc.UserOpActive)
		ft.Set(plc.RegPickupPosition, 105)
		scriptCabinet(ft, 0, plc.OpPickupTakeoff)

		result, err := eng.Pickup(context.Background(), "123456")
		require.NoError(t, err)
		require.Equal(t, 5, result.Bay)

		// End-to-end code split: front and rear land in their registers.
		require.Equal(t, []uint16{123}, ft.WritesTo(plc.RegPickupCodeFront))
		require.Equal(t, []uint16{456}, ft.WritesTo(plc.RegPickupCodeRear))
		require.Equal(t, []uint16{plc.OpEmptyCollect}, ft.WritesTo(plc.RegPackageOp))
	})

	t.Run("no parcel fails fast", func(t *testing.T) {
		eng, ft := newTestEngine(t)
		ft.Set(plc.RegPickupStorage, plc.PickupNoParcel)

		_, err := eng.Pickup(context.Background(), "123456")
		require.ErrorIs(t, err, ErrCapacityExhausted)
		require.Empty(t, ft.Writes())
	})

	t.Run("missing user confirmation rolls back", func(t *testing.T) {
		eng, ft := newTestEngine(t)
		ft.Set(plc.RegPickupStorage, plc.PickupParcelReady)
		scriptCabinet(ft, 0, plc.OpPickupTakeoff)

		_, err := eng.Pickup(context.Background(), "123456")

		var stepErr *StepError
		require.ErrorAs(t, err, &stepErr)
		require.Equal(t, "user-confirm", stepErr.Step)
		require.Equal(t, 1, countValues(ft.WritesTo(plc.RegDoorControl), plc.DoorClose))
	})
}

func TestShip(t *testing.T) {
	t.Run("completed run reports bay and weight", func(t *testing.T) {
		eng, ft := newTestEngine(t)
		ft.Set(plc.RegSendStorage, plc.SendBoxAvailable)
		ft.QueueReads(plc.RegUserSendOp,
			plc.UserOpBoxOpen, plc.UserOpActive, plc.UserOpDone)
		ft.Set(plc.RegSendBoxPos, 104)
		ft.Set(plc.RegSendBoxWeight, 2500)
		scriptCabinet(ft, 0, plc.OpShipTakeoff)

		result, err := eng.Ship(context.Background(), "654321")
		require.NoError(t, err)
		require.Equal(t, 4, result.Bay)
		require.InDelta(t, 2.5, result.WeightKg, 0.0001)

		require.Equal(t, []uint16{654}, ft.WritesTo(plc.RegSendCodeFront))
		require.Equal(t, []uint16{321}, ft.WritesTo(plc.RegSendCodeRear))
	})

	t.Run("done without the box-open phase rolls back", func(t *testing.T) {
		eng, ft := newTestEngine(t)
		ft.Set(plc.RegSendStorage, plc.SendBoxAvailable)
		// Register jumps straight to done; the box door never reported
		// opening, so the run must not proceed to the servo handshake.
		ft.Set(plc.RegUserSendOp, plc.UserOpDone)
		scriptCabinet(ft, 0, plc.OpShipTakeoff)

		_, err := eng.Ship(context.Background(), "654321")

		var stepErr *StepError
		require.ErrorAs(t, err, &stepErr)
		require.Equal(t, "box-open", stepErr.Step)
		require.ErrorIs(t, stepErr.Err, plc.ErrWaitTimeout)
		require.Empty(t, ft.WritesTo(plc.RegServo))
		require.Equal(t, 1, countValues(ft.WritesTo(plc.RegDoorControl), plc.DoorClose))
	})

	t.Run("no send box fails fast", func(t *testing.T) {
		eng, ft := newTestEngine(t)
		ft.Set(plc.RegSendStorage, plc.SendBoxNone)

		_, err := eng.Ship(context.Background(), "654321")
		require.ErrorIs(t, err, ErrCapacityExhausted)
		require.Empty(t, ft.Writes())
	})
}

func TestRecycle(t *testing.T) {
	t.Run("completed run performs no writes", func(t *testing.T) {
		eng, ft := newTestEngine(t)
		ft.QueueReads(plc.RegUserRecycleOp, plc.UserOpActive, plc.UserOpDone)
		ft.QueueReads(plc.RegUserConfirmRecycle, plc.UserOpActive, plc.UserOpDone)

		require.NoError(t, eng.Recycle(context.Background()))
		require.Empty(t, ft.Writes())
	})

	t.Run("user never starts", func(t *testing.T) {
		eng, ft := newTestEngine(t)

		err := eng.Recycle(context.Background())

		var stepErr *StepError
		require.ErrorAs(t, err, &stepErr)
		require.Equal(t, "await-user", stepErr.Step)
		require.ErrorIs(t, stepErr.Err, plc.ErrWaitTimeout)
		require.Empty(t, ft.Writes())
	})

	t.Run("missing deposit confirmation", func(t *testing.T) {
		eng, ft := newTestEngine(t)
		ft.QueueReads(plc.RegUserRecycleOp, plc.UserOpActive, plc.UserOpDone)
		// The user opened the flow but never placed the box.

		err := eng.Recycle(context.Background())

		var stepErr *StepError
		require.ErrorAs(t, err, &stepErr)
		require.Equal(t, "await-deposit", stepErr.Step)
		require.Empty(t, ft.Writes())
	})
}

func TestStepError(t *testing.T) {
	err := &StepError{
		Cabinet: "cab-1",
		Op:      KindStore,
		Step:    "servo-open",
		Err:     plc.ErrWaitTimeout,
	}
	require.ErrorIs(t, err, plc.ErrWaitTimeout)
	require.Contains(t, err.Error(), "servo-open")

	err.RollbackErr = plc.ErrIO
	require.ErrorIs(t, err, plc.ErrIO)
	require.Contains(t, err.Error(), "rollback also failed")
}

func countValues(values []uint16, want uint16) int {
	n := 0
	for _, v := range values {
		if v == want {
			n++
		}
	}
	return n
}