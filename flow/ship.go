package flow

import (
	"context"
	"fmt"

	"github.com/yunenjoy/skylocker/plc"
)

// weightDivisor converts the raw weight register value (grams) to
// kilograms.
const weightDivisor = 1000.0

// Ship runs the outbound shipping sequence: a human deposits a filled
// send box, a drone collects it. The send code identifies the box; the
// user phases track the box door opening, the deposit and the PLC's
// completion report before the servo handshake begins.
func (e *Engine) Ship(ctx context.Context, sendCode string) (*ShipResult, error) {
	front, rear, err := SplitCode(sendCode)
	if err != nil {
		return nil, err
	}

	e.log.Info("starting shipping run", "code", sendCode)

	status, err := e.ops.ReadRegister(ctx, plc.RegSendStorage)
	if err != nil {
		return nil, e.fail(ctx, KindShip, "capacity-check", err, false)
	}
	switch status {
	case plc.SendBoxAvailable:
	case plc.SendBoxNone:
		return nil, fmt.Errorf("%w: no send box available", ErrCapacityExhausted)
	default:
		return nil, e.fail(ctx, KindShip, "capacity-check",
			fmt.Errorf("unexpected send storage status %d", status), false)
	}

	if err := e.ops.WriteRegister(ctx, plc.RegSendCodeFront, front); err != nil {
		return nil, e.fail(ctx, KindShip, "set-send-code", err, false)
	}
	if err := e.ops.WriteRegister(ctx, plc.RegSendCodeRear, rear); err != nil {
		return nil, e.fail(ctx, KindShip, "set-send-code", err, false)
	}

	if err := e.door.Open(ctx); err != nil {
		return nil, e.fail(ctx, KindShip, "door-open", err, false)
	}

	if err := e.confirmLanding(ctx); err != nil {
		stepErr := e.fail(ctx, KindShip, "landing", err, false)
		stepErr.RollbackErr = e.closeDoorOnly(ctx)
		return nil, stepErr
	}

	if err := e.ops.WriteRegister(ctx, plc.RegPackageOp, plc.OpShipPackage); err != nil {
		return nil, e.fail(ctx, KindShip, "begin-operation", err, true)
	}

	// The user interaction runs in three reported phases: the send box
	// door opens, the user deposits the parcel, the PLC reports done.
	if _, err := e.ops.WaitValue(ctx, plc.RegUserSendOp,
		[]uint16{plc.UserOpBoxOpen}, e.timeouts.UserAction); err != nil {
		return nil, e.fail(ctx, KindShip, "box-open", err, true)
	}
	if _, err := e.ops.WaitValue(ctx, plc.RegUserSendOp,
		[]uint16{plc.UserOpActive}, e.timeouts.UserAction); err != nil {
		return nil, e.fail(ctx, KindShip, "user-deposit", err, true)
	}
	if _, err := e.ops.WaitValue(ctx, plc.RegUserSendOp,
		[]uint16{plc.UserOpDone}, e.timeouts.Completion); err != nil {
		return nil, e.fail(ctx, KindShip, "user-confirm", err, true)
	}

	if err := e.servoOpen(ctx); err != nil {
		return nil, e.fail(ctx, KindShip, "servo-open", err, true)
	}

	if err := e.waitFork(ctx); err != nil {
		return nil, e.fail(ctx, KindShip, "fork-arrival", err, true)
	}

	if err := e.servoClose(ctx); err != nil {
		return nil, e.fail(ctx, KindShip, "servo-close", err, true)
	}

	if _, err := e.waitBranch(ctx,
		[]uint16{plc.OpShipTakeoff},
		[]uint16{0, plc.OpShipPackage},
		e.timeouts.Takeoff); err != nil {
		return nil, e.fail(ctx, KindShip, "takeoff-permit", err, true)
	}

	if err := e.confirmTakeoff(ctx); err != nil {
		return nil, e.fail(ctx, KindShip, "takeoff", err, true)
	}

	if err := e.door.Close(ctx); err != nil {
		return nil, e.fail(ctx, KindShip, "door-close", err, false)
	}

	result := &ShipResult{Raw: make(map[string]uint16, 2)}
	if result.Bay, err = e.readBay(ctx, plc.RegSendBoxPos, result.Raw); err != nil {
		return nil, e.fail(ctx, KindShip, "read-result", err, false)
	}

	grams, err := e.ops.ReadRegister(ctx, plc.RegSendBoxWeight)
	if err != nil {
		return nil, e.fail(ctx, KindShip, "read-result", err, false)
	}
	result.Raw[plc.RegSendBoxWeight.String()] = grams
	result.WeightKg = float64(grams) / weightDivisor

	e.log.Info("shipping run complete", "bay", result.Bay, "weight_kg", result.WeightKg)

	return result, nil
}