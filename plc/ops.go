package plc

import (
	"context"
	"fmt"
	"time"

	"github.com/yunenjoy/skylocker/internal/pool"
	"github.com/yunenjoy/skylocker/logger"
)

const (
	defaultRetryCount   = 3
	defaultRetryDelay   = 100 * time.Millisecond
	defaultPollInterval = 500 * time.Millisecond
)

// Ops provides the resilient register operations every handshake step is
// built from: bounded-retry reads and writes, and a deadline-bounded
// poll for an expected value. An Ops instance wraps exactly one
// RegisterTransport and adds no synchronization of its own.
type Ops struct {
	transport    RegisterTransport
	logger       logger.Logger
	retryCount   int
	retryDelay   time.Duration
	pollInterval time.Duration
}

// OpsOption customizes an Ops instance.
type OpsOption func(*Ops)

// WithRetryCount sets the number of attempts for a single register
// read or write. Values below 1 are ignored.
func WithRetryCount(n int) OpsOption {
	return func(o *Ops) {
		if n >= 1 {
			o.retryCount = n
		}
	}
}

// WithRetryDelay sets the delay between retry attempts of a single
// register access.
func WithRetryDelay(d time.Duration) OpsOption {
	return func(o *Ops) {
		if d > 0 {
			o.retryDelay = d
		}
	}
}

// WithPollInterval sets the interval between WaitValue polls.
func WithPollInterval(d time.Duration) OpsOption {
	return func(o *Ops) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithLogger sets the logger used for register access events.
func WithLogger(l logger.Logger) OpsOption {
	return func(o *Ops) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewOps creates resilient register operations over the given transport.
func NewOps(transport RegisterTransport, opts ...OpsOption) *Ops {
	ops := &Ops{
		transport:    transport,
		logger:       logger.GetLogger(),
		retryCount:   defaultRetryCount,
		retryDelay:   defaultRetryDelay,
		pollInterval: defaultPollInterval,
	}

	for _, opt := range opts {
		opt(ops)
	}

	return ops
}

// Transport returns the underlying transport.
func (o *Ops) Transport() RegisterTransport { return o.transport }

// PollInterval returns the WaitValue poll interval.
func (o *Ops) PollInterval() time.Duration { return o.pollInterval }

// ReadRegister reads reg, retrying up to the configured attempt count
// with a short delay between attempts. It fails with ErrIO only after
// all attempts are exhausted.
func (o *Ops) ReadRegister(ctx context.Context, reg Register) (uint16, error) {
	var lastErr error

	for attempt := 1; attempt <= o.retryCount; attempt++ {
		val, err := o.transport.ReadRegister(reg.Addr())
		if err == nil {
			o.logger.Debug("read register", "register", reg.String(), "value", val)
			return val, nil
		}

		lastErr = err
		o.logger.Warn("read register failed",
			"register", reg.String(), "attempt", attempt, "retries", o.retryCount, "error", err)

		if attempt < o.retryCount {
			if err := Sleep(ctx, o.retryDelay); err != nil {
				return 0, err
			}
		}
	}

	o.logger.Error("read register exhausted retries", "register", reg.String(), "error", lastErr)

	return 0, fmt.Errorf("%w: read %s: %w", ErrIO, reg, lastErr)
}

// WriteRegister writes value to reg with the same retry policy as
// ReadRegister.
func (o *Ops) WriteRegister(ctx context.Context, reg Register, value uint16) error {
	var lastErr error

	for attempt := 1; attempt <= o.retryCount; attempt++ {
		err := o.transport.WriteRegister(reg.Addr(), value)
		if err == nil {
			o.logger.Debug("write register", "register", reg.String(), "value", value)
			return nil
		}

		lastErr = err
		o.logger.Warn("write register failed",
			"register", reg.String(), "value", value, "attempt", attempt, "retries", o.retryCount, "error", err)

		if attempt < o.retryCount {
			if err := Sleep(ctx, o.retryDelay); err != nil {
				return err
			}
		}
	}

	o.logger.Error("write register exhausted retries",
		"register", reg.String(), "value", value, "error", lastErr)

	return fmt.Errorf("%w: write %s=%d: %w", ErrIO, reg, value, lastErr)
}

// WaitValue polls reg at the configured interval until one of the
// expected values is observed or the timeout elapses. It returns the
// matched value so callers can branch on which expected value fired.
//
// An already-matching register returns immediately without sleeping.
// A read failure inside the loop, including full retry exhaustion of
// that poll, counts as "no match yet"; only the deadline bounds the wait.
func (o *Ops) WaitValue(ctx context.Context, reg Register, expected []uint16, timeout time.Duration) (uint16, error) {
	deadline := time.Now().Add(timeout)

	for {
		val, err := o.ReadRegister(ctx, reg)
		if err == nil {
			for _, want := range expected {
				if val == want {
					o.logger.Debug("register reached expected value",
						"register", reg.String(), "value", val)
					return val, nil
				}
			}
		} else if ctx.Err() != nil {
			return 0, ctx.Err()
		}

		remain := time.Until(deadline)
		if remain <= 0 {
			break
		}

		interval := o.pollInterval
		if interval > remain {
			interval = remain
		}
		if err := Sleep(ctx, interval); err != nil {
			return 0, err
		}
	}

	o.logger.Error("wait for register value timed out",
		"register", reg.String(), "expected", expected, "timeout", timeout)

	return 0, fmt.Errorf("%w: %s did not reach %v within %s", ErrWaitTimeout, reg, expected, timeout)
}

// Sleep blocks for d or until ctx is done, whichever comes first. It is
// the single suspension point for every retry delay and poll interval.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := pool.GetTimer(d)
	defer pool.PutTimer(timer)

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
