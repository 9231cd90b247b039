// Package cabinet maps cabinet names to PLC sessions and serializes
// operation execution per cabinet while letting different cabinets run
// their handshakes concurrently.
package cabinet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/yunenjoy/skylocker/door"
	"github.com/yunenjoy/skylocker/flow"
	"github.com/yunenjoy/skylocker/logger"
	"github.com/yunenjoy/skylocker/plc"
)

var (
	// ErrUnknownCabinet indicates the cabinet name is not configured.
	ErrUnknownCabinet = errors.New("unknown cabinet")

	// ErrCabinetDisabled indicates the cabinet is administratively
	// disabled.
	ErrCabinetDisabled = errors.New("cabinet disabled")

	// ErrCabinetBusy indicates another operation currently holds the
	// cabinet. Callers are rejected rather than queued; a cabinet is a
	// physical resource and unbounded queuing against it helps nobody.
	ErrCabinetBusy = errors.New("cabinet busy")
)

// DefaultIdleThreshold is how long a session may sit unused before a
// reclaim sweep closes its socket.
const DefaultIdleThreshold = 10 * time.Minute

// TransportFactory builds the register transport for a cabinet.
type TransportFactory func(cfg Config) plc.RegisterTransport

// entry pairs a session with its long-lived operation lock. The lock is
// held for the whole handshake (seconds to minutes) and is distinct
// from the manager's short-lived entry map.
type entry struct {
	opMu    sync.Mutex
	enabled bool

	mu   sync.Mutex
	cfg  Config
	sess *Session
}

// Manager owns the cabinet sessions. Construct one explicitly and pass
// it to callers; there is no ambient global instance.
type Manager struct {
	log          logger.Logger
	entries      *xsync.MapOf[string, *entry]
	newTransport TransportFactory
	opsOpts      []plc.OpsOption
	engineOpts   []flow.EngineOption
	audit        AuditFunc
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithTransportFactory replaces the default TCP transport constructor.
func WithTransportFactory(f TransportFactory) ManagerOption {
	return func(m *Manager) {
		if f != nil {
			m.newTransport = f
		}
	}
}

// WithOpsOptions forwards options to every session's register ops.
func WithOpsOptions(opts ...plc.OpsOption) ManagerOption {
	return func(m *Manager) { m.opsOpts = opts }
}

// WithEngineOptions forwards options to every session's flow engine.
func WithEngineOptions(opts ...flow.EngineOption) ManagerOption {
	return func(m *Manager) { m.engineOpts = opts }
}

// WithAudit sets the audit sink for operation records.
func WithAudit(f AuditFunc) ManagerOption {
	return func(m *Manager) { m.audit = f }
}

// WithManagerLogger sets the manager logger.
func WithManagerLogger(l logger.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.log = l
		}
	}
}

func defaultTransportFactory(cfg Config) plc.RegisterTransport {
	return plc.NewModbusTransport(plc.ModbusConfig{
		Host:    cfg.Host,
		Port:    cfg.Port,
		UnitID:  cfg.UnitID,
		Timeout: cfg.Timeout,
	})
}

// NewManager creates a manager for the given cabinet configs. Sessions
// are created lazily on first use; configs are normalized in place.
func NewManager(cfgs []Config, opts ...ManagerOption) *Manager {
	m := &Manager{
		log:          logger.GetLogger(),
		entries:      xsync.NewMapOf[string, *entry](),
		newTransport: defaultTransportFactory,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.Reload(cfgs)

	return m
}

// Reload upserts cabinet configs, adding new cabinets and refreshing
// the enabled flag of known ones. Existing sessions are kept; removing
// a cabinet requires a disable, not a config omission.
func (m *Manager) Reload(cfgs []Config) {
	for _, cfg := range cfgs {
		cfg.Normalize()

		ent, _ := m.entries.LoadOrCompute(cfg.Name, func() *entry {
			return &entry{}
		})

		ent.mu.Lock()
		ent.cfg = cfg
		ent.enabled = cfg.Enabled
		ent.mu.Unlock()
	}
}

// Cabinets returns the configured cabinet names.
func (m *Manager) Cabinets() []string {
	var names []string
	m.entries.Range(func(name string, _ *entry) bool {
		names = append(names, name)
		return true
	})
	return names
}

func (m *Manager) entry(name string) (*entry, error) {
	ent, ok := m.entries.Load(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCabinet, name)
	}

	ent.mu.Lock()
	enabled := ent.enabled
	ent.mu.Unlock()

	if !enabled {
		return nil, fmt.Errorf("%w: %s", ErrCabinetDisabled, name)
	}

	return ent, nil
}

// session returns the entry's session, creating it on first use. The
// entry lock is held only for the map-style mutation, never for I/O.
func (m *Manager) session(ent *entry) *Session {
	ent.mu.Lock()
	defer ent.mu.Unlock()

	if ent.sess == nil {
		log := m.log.With("cabinet", ent.cfg.Name)
		ent.sess = newSession(ent.cfg, m.newTransport(ent.cfg), log,
			m.opsOpts, m.engineOpts)
	}

	return ent.sess
}

// Session returns the named cabinet's session, creating it lazily.
func (m *Manager) Session(name string) (*Session, error) {
	ent, err := m.entry(name)
	if err != nil {
		return nil, err
	}

	return m.session(ent), nil
}

// RunExclusive executes fn holding the cabinet's exclusive operation
// lock. A second caller targeting a busy cabinet is rejected with
// ErrCabinetBusy immediately; operations are never queued. Health
// counters update and the audit record is emitted regardless of
// outcome.
func (m *Manager) RunExclusive(ctx context.Context, name string, op flow.Kind,
	fn func(ctx context.Context, eng *flow.Engine) error) error {
	ent, err := m.entry(name)
	if err != nil {
		return err
	}

	if !ent.opMu.TryLock() {
		return fmt.Errorf("%w: %s", ErrCabinetBusy, name)
	}
	defer ent.opMu.Unlock()

	sess := m.session(ent)
	started := time.Now()

	err = sess.ensureConnected()
	if err == nil {
		err = fn(ctx, sess.engine)
	}

	var stepErr *flow.StepError
	rollbackFailed := errors.As(err, &stepErr) && stepErr.RollbackErr != nil
	sess.recordResult(err, rollbackFailed)

	if m.audit != nil {
		rec := Record{
			Cabinet: name,
			Op:      op,
			Success: err == nil,
			Started: started,
			Elapsed: time.Since(started),
		}
		if err != nil {
			rec.Error = err.Error()
		}
		m.audit(rec)
	}

	return err
}

// Store runs the storage sequence on the named cabinet.
func (m *Manager) Store(ctx context.Context, name, pickupCode string) (*flow.StoreResult, error) {
	var result *flow.StoreResult

	err := m.RunExclusive(ctx, name, flow.KindStore,
		func(ctx context.Context, eng *flow.Engine) error {
			var err error
			result, err = eng.Store(ctx, pickupCode)
			return err
		})

	return result, err
}

// Pickup runs the drone pickup sequence on the named cabinet.
func (m *Manager) Pickup(ctx context.Context, name, pickupCode string) (*flow.PickupResult, error) {
	var result *flow.PickupResult

	err := m.RunExclusive(ctx, name, flow.KindPickup,
		func(ctx context.Context, eng *flow.Engine) error {
			var err error
			result, err = eng.Pickup(ctx, pickupCode)
			return err
		})

	return result, err
}

// Ship runs the shipping sequence on the named cabinet.
func (m *Manager) Ship(ctx context.Context, name, sendCode string) (*flow.ShipResult, error) {
	var result *flow.ShipResult

	err := m.RunExclusive(ctx, name, flow.KindShip,
		func(ctx context.Context, eng *flow.Engine) error {
			var err error
			result, err = eng.Ship(ctx, sendCode)
			return err
		})

	return result, err
}

// Recycle runs the user empty-box recycle sequence on the named
// cabinet.
func (m *Manager) Recycle(ctx context.Context, name string) error {
	return m.RunExclusive(ctx, name, flow.KindRecycle,
		func(ctx context.Context, eng *flow.Engine) error {
			return eng.Recycle(ctx)
		})
}

// OpenDoor opens the named cabinet's door as a standalone operation.
func (m *Manager) OpenDoor(ctx context.Context, name string) error {
	return m.RunExclusive(ctx, name, "door-open",
		func(ctx context.Context, eng *flow.Engine) error {
			return eng.Door().Open(ctx)
		})
}

// CloseDoor closes the named cabinet's door as a standalone operation.
func (m *Manager) CloseDoor(ctx context.Context, name string) error {
	return m.RunExclusive(ctx, name, "door-close",
		func(ctx context.Context, eng *flow.Engine) error {
			return eng.Door().Close(ctx)
		})
}

// DoorStatus reads the named cabinet's live door state.
func (m *Manager) DoorStatus(ctx context.Context, name string) (door.State, error) {
	var state door.State

	err := m.RunExclusive(ctx, name, "door-status",
		func(ctx context.Context, eng *flow.Engine) error {
			var err error
			state, err = eng.Door().Status(ctx)
			return err
		})

	return state, err
}

// Health snapshots the named cabinet's session stats. It does not
// require the operation lock; a cabinet mid-handshake still reports.
func (m *Manager) Health(name string) (Stats, error) {
	ent, ok := m.entries.Load(name)
	if !ok {
		return Stats{}, fmt.Errorf("%w: %s", ErrUnknownCabinet, name)
	}

	ent.mu.Lock()
	sess := ent.sess
	cfg := ent.cfg
	ent.mu.Unlock()

	if sess == nil {
		return Stats{Cabinet: cfg.Name, Status: StatusOffline, Healthy: true}, nil
	}

	return sess.Stats(), nil
}

// HealthAll snapshots every configured cabinet.
func (m *Manager) HealthAll() []Stats {
	var all []Stats
	m.entries.Range(func(name string, _ *entry) bool {
		if st, err := m.Health(name); err == nil {
			all = append(all, st)
		}
		return true
	})
	return all
}

// Disconnect closes the named cabinet's socket, keeping the entry.
func (m *Manager) Disconnect(name string) error {
	ent, ok := m.entries.Load(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCabinet, name)
	}

	ent.mu.Lock()
	sess := ent.sess
	ent.mu.Unlock()

	if sess == nil {
		return nil
	}

	return sess.disconnect()
}

// DisconnectAll tears down every live socket.
func (m *Manager) DisconnectAll() {
	m.entries.Range(func(name string, _ *entry) bool {
		if err := m.Disconnect(name); err != nil {
			m.log.Warn("disconnect failed", "cabinet", name, "error", err)
		}
		return true
	})
}

// ReclaimIdle closes sockets unused beyond the threshold. Cabinets
// whose operation lock is held are skipped; an in-flight handshake owns
// its socket. Returns the number of sessions reclaimed.
func (m *Manager) ReclaimIdle(threshold time.Duration) int {
	if threshold <= 0 {
		threshold = DefaultIdleThreshold
	}

	reclaimed := 0
	m.entries.Range(func(name string, ent *entry) bool {
		ent.mu.Lock()
		sess := ent.sess
		ent.mu.Unlock()

		if sess == nil || !sess.transport.Connected() {
			return true
		}
		if time.Since(sess.LastUsed()) < threshold {
			return true
		}

		if !ent.opMu.TryLock() {
			return true
		}
		defer ent.opMu.Unlock()

		if time.Since(sess.LastUsed()) < threshold {
			return true
		}

		m.log.Info("reclaiming idle session", "cabinet", name,
			"idle", time.Since(sess.LastUsed()).Round(time.Second))

		if err := sess.disconnect(); err != nil {
			m.log.Warn("reclaim disconnect failed", "cabinet", name, "error", err)
			return true
		}
		reclaimed++

		return true
	})

	return reclaimed
}