package flow

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCode indicates a pickup/send code that is not exactly
	// six ASCII digits. Rejected before any register write.
	ErrInvalidCode = errors.New("invalid pickup/send code")

	// ErrCapacityExhausted indicates the precondition read showed no
	// capacity (storage full, no parcel, no empty send box). Nothing
	// was moved; no rollback is needed.
	ErrCapacityExhausted = errors.New("cabinet capacity exhausted")

	// ErrUnexpectedBranch indicates the PLC reported a code outside the
	// known state set at a branch point. This is a protocol violation,
	// never silently coerced to either branch.
	ErrUnexpectedBranch = errors.New("unexpected branch code")
)

// StepError reports a failed operation step with enough context to
// diagnose without re-running the hardware sequence. RollbackErr is set
// when the compensating sequence itself also failed; the cabinet should
// then be considered faulted.
type StepError struct {
	Cabinet     string
	Op          Kind
	Step        string
	Err         error
	RollbackErr error
	Registers   map[string]uint16
}

func (e *StepError) Error() string {
	msg := fmt.Sprintf("%s %s: step %s: %v", e.Cabinet, e.Op, e.Step, e.Err)
	if e.RollbackErr != nil {
		msg += fmt.Sprintf(" (rollback also failed: %v)", e.RollbackErr)
	}
	return msg
}

// Unwrap exposes both the step error and the rollback error to
// errors.Is/As.
func (e *StepError) Unwrap() []error {
	errs := []error{e.Err}
	if e.RollbackErr != nil {
		errs = append(errs, e.RollbackErr)
	}
	return errs
}