package plc

import "errors"

var (
	// ErrNotConnected indicates the transport has no live connection.
	ErrNotConnected = errors.New("transport not connected")

	// ErrIO indicates a register read or write failed after exhausting
	// its bounded retries. The transport fault is assumed transient.
	ErrIO = errors.New("register i/o failed")

	// ErrWaitTimeout indicates a WaitValue deadline elapsed before any
	// expected value was observed on the register.
	ErrWaitTimeout = errors.New("wait for register value timed out")
)
