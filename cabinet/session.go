package cabinet

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yunenjoy/skylocker/flow"
	"github.com/yunenjoy/skylocker/logger"
	"github.com/yunenjoy/skylocker/plc"
)

// healthyErrorRatio is the error-rate threshold below which a session
// counts as healthy.
const healthyErrorRatio = 0.5

// Session owns at most one live connection to one cabinet PLC and the
// bookkeeping around it. It is exclusively owned by one manager entry;
// the manager's per-cabinet operation lock guarantees at most one
// running operation uses it at a time.
type Session struct {
	cfg    Config
	log    logger.Logger
	engine *flow.Engine

	transport plc.RegisterTransport
	ops       *plc.Ops

	attempts atomic.Uint64
	errors   atomic.Uint64
	lastUsed atomic.Int64
	faulted  atomic.Bool

	mu      sync.Mutex
	lastErr error
}

func newSession(cfg Config, transport plc.RegisterTransport, log logger.Logger,
	opsOpts []plc.OpsOption, engineOpts []flow.EngineOption) *Session {
	base := []plc.OpsOption{
		plc.WithRetryCount(cfg.RetryCount),
		plc.WithLogger(log),
	}
	ops := plc.NewOps(transport, append(base, opsOpts...)...)

	engOpts := append([]flow.EngineOption{flow.WithEngineLogger(log)}, engineOpts...)

	s := &Session{
		cfg:       cfg,
		log:       log,
		transport: transport,
		ops:       ops,
		engine:    flow.NewEngine(cfg.Name, ops, engOpts...),
	}
	s.touch()

	return s
}

// Engine returns the operation engine bound to this session.
func (s *Session) Engine() *flow.Engine { return s.engine }

// Ops returns the resilient register ops bound to this session.
func (s *Session) Ops() *plc.Ops { return s.ops }

// Connect opens the transport if it is not already live. Operations
// connect on demand; this is for callers that want the socket up front,
// such as the telemetry sweep.
func (s *Session) Connect() error {
	return s.ensureConnected()
}

// ensureConnected opens the transport if it is not already live.
func (s *Session) ensureConnected() error {
	if s.transport.Connected() {
		return nil
	}

	s.log.Info("connecting", "host", s.cfg.Host, "port", s.cfg.Port)

	if err := s.transport.Connect(); err != nil {
		return fmt.Errorf("connect %s: %w", s.cfg.Name, err)
	}

	return nil
}

func (s *Session) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

// LastUsed returns the time of the most recent activity.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// recordResult updates the health counters after an operation attempt.
// A rollback failure marks the session faulted.
func (s *Session) recordResult(err error, rollbackFailed bool) {
	s.attempts.Add(1)
	s.touch()

	if err == nil {
		return
	}

	s.errors.Add(1)

	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()

	if rollbackFailed {
		s.faulted.Store(true)
		s.log.Error("cabinet faulted: rollback failed", "error", err)
	}
}

// Healthy reports whether the error rate among attempts is below the
// fixed threshold. A fresh session with no attempts is healthy.
func (s *Session) Healthy() bool {
	attempts := s.attempts.Load()
	if attempts == 0 {
		return true
	}

	return float64(s.errors.Load())/float64(attempts) < healthyErrorRatio
}

// Status classifies the session for observability. An unhealthy or
// faulted session is still attempted; it is only reported distinctly.
func (s *Session) Status() Status {
	if s.faulted.Load() {
		return StatusFaulted
	}
	if s.transport.Connected() {
		return StatusOnline
	}
	return StatusOffline
}

// ClearFault resets the faulted flag, e.g. after a successful
// fault-clear handshake against the PLC.
func (s *Session) ClearFault() {
	s.faulted.Store(false)
}

// Stats is a point-in-time snapshot of the session bookkeeping.
type Stats struct {
	Cabinet   string
	Status    Status
	Healthy   bool
	Connected bool
	Attempts  uint64
	Errors    uint64
	LastError string
	LastUsed  time.Time
}

// Stats snapshots the session counters.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	lastErr := s.lastErr
	s.mu.Unlock()

	st := Stats{
		Cabinet:   s.cfg.Name,
		Status:    s.Status(),
		Healthy:   s.Healthy(),
		Connected: s.transport.Connected(),
		Attempts:  s.attempts.Load(),
		Errors:    s.errors.Load(),
		LastUsed:  s.LastUsed(),
	}
	if lastErr != nil {
		st.LastError = lastErr.Error()
	}

	return st
}

// disconnect closes the live socket, keeping the session bookkeeping.
func (s *Session) disconnect() error {
	if !s.transport.Connected() {
		return nil
	}

	s.log.Info("disconnecting")

	return s.transport.Close()
}