package flow

import (
	"context"
	"fmt"

	"github.com/yunenjoy/skylocker/plc"
)

// Store runs the drone storage sequence: a drone deposits a parcel and
// may take an empty box away. The pickup code is what a human later
// uses to retrieve the parcel.
//
// The sequence branches after the servo opens: the package-operation
// register resolves to either empty-collect (the drone loads an empty
// box, branch A) or no-empty-collect (branch B). Branch A adds a
// fork-arrival wait and a takeoff-permit wait that branch B never runs.
func (e *Engine) Store(ctx context.Context, pickupCode string) (*StoreResult, error) {
	front, rear, err := SplitCode(pickupCode)
	if err != nil {
		return nil, err
	}

	e.log.Info("starting storage run", "code", pickupCode)

	status, err := e.ops.ReadRegister(ctx, plc.RegStorageStatus)
	if err != nil {
		return nil, e.fail(ctx, KindStore, "capacity-check", err, false)
	}
	switch status {
	case plc.StorageAvailable:
	case plc.StorageFull:
		return nil, fmt.Errorf("%w: storage full", ErrCapacityExhausted)
	default:
		return nil, e.fail(ctx, KindStore, "capacity-check",
			fmt.Errorf("unexpected storage status %d", status), false)
	}

	if err := e.door.Open(ctx); err != nil {
		return nil, e.fail(ctx, KindStore, "door-open", err, false)
	}

	if err := e.confirmLanding(ctx); err != nil {
		stepErr := e.fail(ctx, KindStore, "landing", err, false)
		stepErr.RollbackErr = e.closeDoorOnly(ctx)
		return nil, stepErr
	}

	if err := e.ops.WriteRegister(ctx, plc.RegPackageOp, plc.OpStorePackage); err != nil {
		return nil, e.fail(ctx, KindStore, "begin-operation", err, true)
	}

	if err := e.ops.WriteRegister(ctx, plc.RegPickupCodeFront, front); err != nil {
		return nil, e.fail(ctx, KindStore, "set-pickup-code", err, true)
	}
	if err := e.ops.WriteRegister(ctx, plc.RegPickupCodeRear, rear); err != nil {
		return nil, e.fail(ctx, KindStore, "set-pickup-code", err, true)
	}

	if err := e.servoOpen(ctx); err != nil {
		return nil, e.fail(ctx, KindStore, "servo-open", err, true)
	}

	branch, err := e.waitBranch(ctx,
		[]uint16{plc.OpEmptyCollect, plc.OpNoEmptyCollect},
		[]uint16{0, plc.OpStorePackage},
		e.timeouts.Branch)
	if err != nil {
		return nil, e.fail(ctx, KindStore, "branch", err, true)
	}

	emptyCollected := branch == plc.OpEmptyCollect

	if emptyCollected {
		e.log.Info("drone collecting empty box")

		if err := e.waitFork(ctx); err != nil {
			return nil, e.fail(ctx, KindStore, "fork-arrival", err, true)
		}
		if err := e.servoClose(ctx); err != nil {
			return nil, e.fail(ctx, KindStore, "servo-close", err, true)
		}
		if _, err := e.ops.WaitValue(ctx, plc.RegPackageOp,
			[]uint16{plc.OpStoreTakeoff}, e.timeouts.Takeoff); err != nil {
			return nil, e.fail(ctx, KindStore, "takeoff-permit", err, true)
		}
	} else {
		e.log.Info("drone departing without empty box")

		if err := plc.Sleep(ctx, e.timeouts.Settle); err != nil {
			return nil, e.fail(ctx, KindStore, "settle", err, true)
		}
		if err := e.servoClose(ctx); err != nil {
			return nil, e.fail(ctx, KindStore, "servo-close", err, true)
		}
	}

	if err := e.confirmTakeoff(ctx); err != nil {
		return nil, e.fail(ctx, KindStore, "takeoff", err, true)
	}

	if err := e.door.Close(ctx); err != nil {
		return nil, e.fail(ctx, KindStore, "door-close", err, false)
	}

	result := &StoreResult{
		EmptyCollected: emptyCollected,
		Raw:            make(map[string]uint16, 2),
	}

	if result.Bay, err = e.readBay(ctx, plc.RegStorePosition, result.Raw); err != nil {
		return nil, e.fail(ctx, KindStore, "read-result", err, false)
	}
	if emptyCollected {
		if result.EmptyBoxBay, err = e.readBay(ctx, plc.RegEmptyBoxPosition, result.Raw); err != nil {
			return nil, e.fail(ctx, KindStore, "read-result", err, false)
		}
	}

	e.log.Info("storage run complete",
		"bay", result.Bay, "empty_collected", emptyCollected)

	return result, nil
}