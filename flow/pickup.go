package flow

import (
	"context"
	"fmt"

	"github.com/yunenjoy/skylocker/plc"
)

// Pickup runs the drone pickup sequence: a drone collects a previously
// stored parcel identified by its pickup code. A human must confirm the
// pickup on the cabinet panel before the servo handshake begins, so the
// user-confirmation wait carries the long user-action timeout.
func (e *Engine) Pickup(ctx context.Context, pickupCode string) (*PickupResult, error) {
	front, rear, err := SplitCode(pickupCode)
	if err != nil {
		return nil, err
	}

	e.log.Info("starting pickup run", "code", pickupCode)

	status, err := e.ops.ReadRegister(ctx, plc.RegPickupStorage)
	if err != nil {
		return nil, e.fail(ctx, KindPickup, "capacity-check", err, false)
	}
	switch status {
	case plc.PickupParcelReady:
	case plc.PickupNoParcel:
		return nil, fmt.Errorf("%w: no parcel available for pickup", ErrCapacityExhausted)
	default:
		return nil, e.fail(ctx, KindPickup, "capacity-check",
			fmt.Errorf("unexpected pickup storage status %d", status), false)
	}

	if err := e.ops.WriteRegister(ctx, plc.RegPickupCodeFront, front); err != nil {
		return nil, e.fail(ctx, KindPickup, "set-pickup-code", err, false)
	}
	if err := e.ops.WriteRegister(ctx, plc.RegPickupCodeRear, rear); err != nil {
		return nil, e.fail(ctx, KindPickup, "set-pickup-code", err, false)
	}

	if err := e.door.Open(ctx); err != nil {
		return nil, e.fail(ctx, KindPickup, "door-open", err, false)
	}

	if err := e.confirmLanding(ctx); err != nil {
		stepErr := e.fail(ctx, KindPickup, "landing", err, false)
		stepErr.RollbackErr = e.closeDoorOnly(ctx)
		return nil, stepErr
	}

	if err := e.ops.WriteRegister(ctx, plc.RegPackageOp, plc.OpEmptyCollect); err != nil {
		return nil, e.fail(ctx, KindPickup, "begin-operation", err, true)
	}

	if _, err := e.ops.WaitValue(ctx, plc.RegUserPickupOp,
		[]uint16{plc.UserOpActive}, e.timeouts.UserAction); err != nil {
		return nil, e.fail(ctx, KindPickup, "user-confirm", err, true)
	}

	if err := e.servoOpen(ctx); err != nil {
		return nil, e.fail(ctx, KindPickup, "servo-open", err, true)
	}

	if err := e.waitFork(ctx); err != nil {
		return nil, e.fail(ctx, KindPickup, "fork-arrival", err, true)
	}

	if err := e.servoClose(ctx); err != nil {
		return nil, e.fail(ctx, KindPickup, "servo-close", err, true)
	}

	if _, err := e.waitBranch(ctx,
		[]uint16{plc.OpPickupTakeoff},
		[]uint16{0, plc.OpEmptyCollect},
		e.timeouts.Takeoff); err != nil {
		return nil, e.fail(ctx, KindPickup, "takeoff-permit", err, true)
	}

	if err := e.confirmTakeoff(ctx); err != nil {
		return nil, e.fail(ctx, KindPickup, "takeoff", err, true)
	}

	if err := e.door.Close(ctx); err != nil {
		return nil, e.fail(ctx, KindPickup, "door-close", err, false)
	}

	result := &PickupResult{Raw: make(map[string]uint16, 1)}
	if result.Bay, err = e.readBay(ctx, plc.RegPickupPosition, result.Raw); err != nil {
		return nil, e.fail(ctx, KindPickup, "read-result", err, false)
	}

	e.log.Info("pickup run complete", "bay", result.Bay)

	return result, nil
}