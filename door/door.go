// Package door drives the cabin door as a small state machine on top of
// the register operations: command, then poll for the completion code.
package door

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yunenjoy/skylocker/logger"
	"github.com/yunenjoy/skylocker/plc"
)

// State is the door position as far as the host knows it.
type State int

const (
	// StateUnknown means the last command did not confirm; the physical
	// door may be anywhere. Callers must compensate before relying on it.
	StateUnknown State = iota
	StateIdle
	StateOpening
	StateOpen
	StateClosing
	StateClosed
)

var stateNames = map[State]string{
	StateUnknown: "unknown",
	StateIdle:    "idle",
	StateOpening: "opening",
	StateOpen:    "open",
	StateClosing: "closing",
	StateClosed:  "closed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// StateFromCode maps a door register code to a State.
func StateFromCode(code uint16) State {
	switch code {
	case 0:
		return StateIdle
	case plc.DoorOpen:
		return StateOpening
	case plc.DoorOpenDone:
		return StateOpen
	case plc.DoorClose:
		return StateClosing
	case plc.DoorCloseDone:
		return StateClosed
	default:
		return StateUnknown
	}
}

const defaultConfirmTimeout = 30 * time.Second

// Controller commands the cabin door and tracks the last confirmed
// state. It is not safe for concurrent use; the owning session already
// serializes operations per cabinet.
type Controller struct {
	ops     *plc.Ops
	log     logger.Logger
	timeout time.Duration

	mu   sync.Mutex
	last State
}

// Option customizes a Controller.
type Option func(*Controller)

// WithConfirmTimeout sets how long Open and Close wait for the
// completion code.
func WithConfirmTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the controller logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// NewController creates a door controller over the given register ops.
func NewController(ops *plc.Ops, opts ...Option) *Controller {
	c := &Controller{
		ops:     ops,
		log:     logger.GetLogger(),
		timeout: defaultConfirmTimeout,
		last:    StateUnknown,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// State returns the last state confirmed by a command or status read.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.last
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.last = s
	c.mu.Unlock()
}

// Open commands the door open and waits for the open-complete code.
// A timed-out or failed open leaves the state unknown; no partial
// position is assumed.
func (c *Controller) Open(ctx context.Context) error {
	c.log.Info("opening door")
	c.setState(StateOpening)

	if err := c.ops.WriteRegister(ctx, plc.RegDoorControl, plc.DoorOpen); err != nil {
		c.setState(StateUnknown)
		return fmt.Errorf("door open command: %w", err)
	}

	if _, err := c.ops.WaitValue(ctx, plc.RegDoorControl,
		[]uint16{plc.DoorOpenDone}, c.timeout); err != nil {
		c.setState(StateUnknown)
		c.log.Error("door open not confirmed", "error", err)
		return fmt.Errorf("door open: %w", err)
	}

	c.setState(StateOpen)
	c.log.Info("door open")

	return nil
}

// Close commands the door closed and waits for the close-complete code.
func (c *Controller) Close(ctx context.Context) error {
	c.log.Info("closing door")
	c.setState(StateClosing)

	if err := c.ops.WriteRegister(ctx, plc.RegDoorControl, plc.DoorClose); err != nil {
		c.setState(StateUnknown)
		return fmt.Errorf("door close command: %w", err)
	}

	if _, err := c.ops.WaitValue(ctx, plc.RegDoorControl,
		[]uint16{plc.DoorCloseDone}, c.timeout); err != nil {
		c.setState(StateUnknown)
		c.log.Error("door close not confirmed", "error", err)
		return fmt.Errorf("door close: %w", err)
	}

	c.setState(StateClosed)
	c.log.Info("door closed")

	return nil
}

// Status reads the door register and reports the live state.
func (c *Controller) Status(ctx context.Context) (State, error) {
	code, err := c.ops.ReadRegister(ctx, plc.RegDoorControl)
	if err != nil {
		return StateUnknown, fmt.Errorf("door status: %w", err)
	}

	state := StateFromCode(code)
	c.setState(state)

	return state, nil
}

// Reset clears the door register back to idle. Used after fault
// recovery, not during normal sequences.
func (c *Controller) Reset(ctx context.Context) error {
	if err := c.ops.WriteRegister(ctx, plc.RegDoorControl, 0); err != nil {
		return fmt.Errorf("door reset: %w", err)
	}

	c.setState(StateIdle)

	return nil
}