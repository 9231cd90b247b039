package flow

import (
	"context"

	"github.com/yunenjoy/skylocker/plc"
)

// Recycle runs the user empty-box recycle sequence: a human returns an
// empty box through the cabinet panel. The PLC drives the door and the
// stow itself; the engine only observes the two interaction registers,
// so the flow performs no writes and there is nothing to roll back.
//
// Sequence: the user starts the recycle on the panel, the PLC opens the
// door, the user places the box and confirms, the PLC stows it.
func (e *Engine) Recycle(ctx context.Context) error {
	e.log.Info("starting recycle run")

	if _, err := e.ops.WaitValue(ctx, plc.RegUserRecycleOp,
		[]uint16{plc.UserOpActive}, e.timeouts.UserAction); err != nil {
		return e.fail(ctx, KindRecycle, "await-user", err, false)
	}

	if _, err := e.ops.WaitValue(ctx, plc.RegUserRecycleOp,
		[]uint16{plc.UserOpDone}, e.timeouts.DoorConfirm); err != nil {
		return e.fail(ctx, KindRecycle, "door-open", err, false)
	}

	if _, err := e.ops.WaitValue(ctx, plc.RegUserConfirmRecycle,
		[]uint16{plc.UserOpActive}, e.timeouts.UserAction); err != nil {
		return e.fail(ctx, KindRecycle, "await-deposit", err, false)
	}

	if _, err := e.ops.WaitValue(ctx, plc.RegUserConfirmRecycle,
		[]uint16{plc.UserOpDone}, e.timeouts.Completion); err != nil {
		return e.fail(ctx, KindRecycle, "complete", err, false)
	}

	e.log.Info("recycle run complete")

	return nil
}
