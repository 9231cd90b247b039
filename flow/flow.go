// Package flow implements the drone-facing operation state machines:
// storage, pickup and shipping. Each is a strict sequence of register
// writes and waits spanning the door, the landing pad, the servo
// handshake and a package-type branch, with per-step timeouts and a
// best-effort rollback path once the door has been opened.
package flow

import (
	"context"
	"fmt"
	"time"

	"github.com/yunenjoy/skylocker/door"
	"github.com/yunenjoy/skylocker/logger"
	"github.com/yunenjoy/skylocker/plc"
)

// Timeouts bounds every wait step of an operation run. There is no
// unbounded wait anywhere in a sequence.
type Timeouts struct {
	// DoorConfirm bounds the door open/close completion wait.
	DoorConfirm time.Duration
	// Landing bounds the landing-pad present/absent confirmation.
	Landing time.Duration
	// ServoOpen bounds the wait for the servo-may-open signal.
	ServoOpen time.Duration
	// ServoConfirm bounds the open/close acknowledgements.
	ServoConfirm time.Duration
	// ForkArrival bounds the wait for the cargo fork to reach the bay.
	ForkArrival time.Duration
	// Branch bounds the package-type branch resolution.
	Branch time.Duration
	// Takeoff bounds the takeoff-permitted wait.
	Takeoff time.Duration
	// UserAction bounds waits where a human must physically act.
	UserAction time.Duration
	// Completion bounds the PLC's final completion report after the
	// human side of a user flow is done.
	Completion time.Duration
	// Settle is the fixed delay applied while mechanics come to rest.
	Settle time.Duration
}

// DefaultTimeouts returns the timeouts used against real cabinets.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		DoorConfirm:  30 * time.Second,
		Landing:      60 * time.Second,
		ServoOpen:    30 * time.Second,
		ServoConfirm: 10 * time.Second,
		ForkArrival:  30 * time.Second,
		Branch:       60 * time.Second,
		Takeoff:      30 * time.Second,
		UserAction:   120 * time.Second,
		Completion:   60 * time.Second,
		Settle:       10 * time.Second,
	}
}

// Engine runs the operation state machines against one cabinet. It
// owns no synchronization; the session manager guarantees at most one
// run per cabinet at a time.
type Engine struct {
	cabinet  string
	ops      *plc.Ops
	door     *door.Controller
	log      logger.Logger
	timeouts Timeouts
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithTimeouts replaces the default step timeouts.
func WithTimeouts(t Timeouts) EngineOption {
	return func(e *Engine) { e.timeouts = t }
}

// WithEngineLogger sets the engine logger.
func WithEngineLogger(l logger.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEngine creates an operation engine for the named cabinet over the
// given register ops.
func NewEngine(cabinet string, ops *plc.Ops, opts ...EngineOption) *Engine {
	e := &Engine{
		cabinet:  cabinet,
		ops:      ops,
		log:      logger.GetLogger().With("cabinet", cabinet),
		timeouts: DefaultTimeouts(),
	}

	for _, opt := range opts {
		opt(e)
	}

	e.door = door.NewController(ops,
		door.WithConfirmTimeout(e.timeouts.DoorConfirm),
		door.WithLogger(e.log))

	return e
}

// Door exposes the engine's door controller for standalone door
// operations on the same session.
func (e *Engine) Door() *door.Controller { return e.door }

// snapshot captures the handshake registers for diagnostics. Reads go
// straight to the transport without retries; a register that cannot be
// read is simply absent from the snapshot.
func (e *Engine) snapshot() map[string]uint16 {
	regs := []plc.Register{
		plc.RegDoorControl, plc.RegLandingPad, plc.RegPackageOp, plc.RegServo,
	}

	snap := make(map[string]uint16, len(regs))
	for _, reg := range regs {
		if val, err := e.ops.Transport().ReadRegister(reg.Addr()); err == nil {
			snap[reg.String()] = val
		}
	}

	return snap
}

// fail wraps a step failure into a StepError. When rollback is set the
// compensating sequence runs first and its failure, if any, is attached
// to the original error rather than replacing it.
func (e *Engine) fail(ctx context.Context, op Kind, step string, err error, rollback bool) *StepError {
	stepErr := &StepError{
		Cabinet:   e.cabinet,
		Op:        op,
		Step:      step,
		Err:       err,
		Registers: e.snapshot(),
	}

	e.log.Error("operation step failed", "op", string(op), "step", step, "error", err)

	if rollback {
		stepErr.RollbackErr = e.rollback(ctx)
	}

	return stepErr
}

// rollback returns the cabinet to a safe state after a mid-sequence
// failure: landing pad back to absent, then exactly one door close
// attempt. Best effort; the landing result does not gate the close.
func (e *Engine) rollback(ctx context.Context) error {
	e.log.Warn("running rollback sequence")

	var landingErr error
	if err := e.ops.WriteRegister(ctx, plc.RegLandingPad, plc.PadAbsent); err != nil {
		landingErr = err
	} else if _, err := e.ops.WaitValue(ctx, plc.RegLandingPad,
		[]uint16{plc.PadAbsentAck}, e.timeouts.Landing); err != nil {
		landingErr = err
	}

	if err := e.door.Close(ctx); err != nil {
		if landingErr != nil {
			return fmt.Errorf("landing reset: %w; door close: %w", landingErr, err)
		}
		return fmt.Errorf("door close: %w", err)
	}

	if landingErr != nil {
		return fmt.Errorf("landing reset: %w", landingErr)
	}

	return nil
}

// closeDoorOnly is the rollback used before anything beyond the door
// has moved.
func (e *Engine) closeDoorOnly(ctx context.Context) error {
	return e.door.Close(ctx)
}

// confirmLanding tells the PLC a drone is on the pad and waits for the
// acknowledgement.
func (e *Engine) confirmLanding(ctx context.Context) error {
	if err := e.ops.WriteRegister(ctx, plc.RegLandingPad, plc.PadPresent); err != nil {
		return err
	}

	_, err := e.ops.WaitValue(ctx, plc.RegLandingPad,
		[]uint16{plc.PadPresentAck}, e.timeouts.Landing)

	return err
}

// confirmTakeoff tells the PLC the pad is clear, waits for the
// acknowledgement and lets the mechanics settle.
func (e *Engine) confirmTakeoff(ctx context.Context) error {
	if err := e.ops.WriteRegister(ctx, plc.RegLandingPad, plc.PadAbsent); err != nil {
		return err
	}

	if _, err := e.ops.WaitValue(ctx, plc.RegLandingPad,
		[]uint16{plc.PadAbsentAck}, e.timeouts.Takeoff); err != nil {
		return err
	}

	return plc.Sleep(ctx, e.timeouts.Settle)
}

// servoOpen runs the open half of the servo handshake: wait for the
// may-open signal, report the servo opened, wait for the ack.
func (e *Engine) servoOpen(ctx context.Context) error {
	if _, err := e.ops.WaitValue(ctx, plc.RegServo,
		[]uint16{plc.ServoCanOpen}, e.timeouts.ServoOpen); err != nil {
		return err
	}

	if err := e.ops.WriteRegister(ctx, plc.RegServo, plc.ServoOpened); err != nil {
		return err
	}

	_, err := e.ops.WaitValue(ctx, plc.RegServo,
		[]uint16{plc.ServoOpenAck}, e.timeouts.ServoConfirm)

	return err
}

// servoClose reports the servo closed and waits for the ack.
func (e *Engine) servoClose(ctx context.Context) error {
	if err := e.ops.WriteRegister(ctx, plc.RegServo, plc.ServoClosed); err != nil {
		return err
	}

	_, err := e.ops.WaitValue(ctx, plc.RegServo,
		[]uint16{plc.ServoCloseAck}, e.timeouts.ServoConfirm)

	return err
}

// waitFork waits for the cargo fork to arrive at the bay and applies
// the settle delay before the servo may close.
func (e *Engine) waitFork(ctx context.Context) error {
	if _, err := e.ops.WaitValue(ctx, plc.RegServo,
		[]uint16{plc.ServoForkArrived}, e.timeouts.ForkArrival); err != nil {
		return err
	}

	return plc.Sleep(ctx, e.timeouts.Settle)
}

// waitBranch polls the package-operation register until a terminal code
// appears. Transient codes keep the poll going, as do read failures; any
// other value is a protocol violation and resolves to ErrUnexpectedBranch
// rather than being coerced to a branch.
func (e *Engine) waitBranch(ctx context.Context, terminal, transient []uint16, timeout time.Duration) (uint16, error) {
	deadline := time.Now().Add(timeout)

	for {
		val, err := e.ops.ReadRegister(ctx, plc.RegPackageOp)
		if err == nil {
			if contains(terminal, val) {
				return val, nil
			}
			if !contains(transient, val) {
				return 0, fmt.Errorf("%w: %s=%d", ErrUnexpectedBranch, plc.RegPackageOp, val)
			}
		} else if ctx.Err() != nil {
			return 0, ctx.Err()
		}

		remain := time.Until(deadline)
		if remain <= 0 {
			return 0, fmt.Errorf("%w: %s stayed transient for %s",
				plc.ErrWaitTimeout, plc.RegPackageOp, timeout)
		}

		interval := e.ops.PollInterval()
		if interval > remain {
			interval = remain
		}
		if err := plc.Sleep(ctx, interval); err != nil {
			return 0, err
		}
	}
}

func contains(set []uint16, val uint16) bool {
	for _, v := range set {
		if v == val {
			return true
		}
	}
	return false
}

// readBay reads a position register and converts the code to a 1-based
// bay number, recording the raw code in the snapshot map.
func (e *Engine) readBay(ctx context.Context, reg plc.Register, raw map[string]uint16) (int, error) {
	code, err := e.ops.ReadRegister(ctx, reg)
	if err != nil {
		return 0, err
	}

	raw[reg.String()] = code

	bay, ok := plc.PositionBay(code)
	if !ok {
		e.log.Warn("unrecognized position code", "register", reg.String(), "code", code)
		return 0, nil
	}

	return bay, nil
}