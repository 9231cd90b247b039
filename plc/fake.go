package plc

import (
	"errors"
	"sync"
	"time"
)

// WriteOp records one register write observed by the fake transport.
type WriteOp struct {
	Register Register
	Value    uint16
}

// FakeTransport is an in-memory RegisterTransport for tests. It keeps a
// register image, records every read and write, and lets tests script
// read outcomes and PLC-side reactions to host writes.
type FakeTransport struct {
	mu        sync.Mutex
	connected bool
	regs      map[uint16]uint16
	writes    []WriteOp
	reads     []Register
	queued    map[uint16][]fakeRead
	onWrite   func(reg Register, value uint16)

	// ConnectErr, when set, is returned by Connect.
	ConnectErr error
	// AccessDelay, when set, is applied before every read and write.
	AccessDelay time.Duration
}

type fakeRead struct {
	value uint16
	fail  bool
}

var errInjectedFault = errors.New("injected transport fault")

var _ RegisterTransport = (*FakeTransport)(nil)

// NewFakeTransport creates a disconnected fake with an all-zero
// register image.
func NewFakeTransport() *FakeTransport {
	return &FakeTransport{
		regs:   make(map[uint16]uint16),
		queued: make(map[uint16][]fakeRead),
	}
}

func (f *FakeTransport) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ConnectErr != nil {
		return f.ConnectErr
	}
	f.connected = true

	return nil
}

func (f *FakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.connected = false

	return nil
}

func (f *FakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.connected
}

func (f *FakeTransport) ReadRegister(addr uint16) (uint16, error) {
	if f.AccessDelay > 0 {
		time.Sleep(f.AccessDelay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.connected {
		return 0, ErrNotConnected
	}

	f.reads = append(f.reads, Register(addr))

	if steps := f.queued[addr]; len(steps) > 0 {
		step := steps[0]
		f.queued[addr] = steps[1:]
		if step.fail {
			return 0, errInjectedFault
		}
		f.regs[addr] = step.value
		return step.value, nil
	}

	return f.regs[addr], nil
}

func (f *FakeTransport) WriteRegister(addr uint16, value uint16) error {
	if f.AccessDelay > 0 {
		time.Sleep(f.AccessDelay)
	}

	f.mu.Lock()

	if !f.connected {
		f.mu.Unlock()
		return ErrNotConnected
	}

	f.writes = append(f.writes, WriteOp{Register: Register(addr), Value: value})
	f.regs[addr] = value
	hook := f.onWrite

	f.mu.Unlock()

	// The hook runs unlocked so it may call Set to emulate the PLC
	// reacting to a host write.
	if hook != nil {
		hook(Register(addr), value)
	}

	return nil
}

// Set stores a register value directly, emulating the PLC side.
func (f *FakeTransport) Set(reg Register, value uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.regs[reg.Addr()] = value
}

// Value returns the current register image value.
func (f *FakeTransport) Value(reg Register) uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.regs[reg.Addr()]
}

// QueueReads scripts the outcomes of the next reads of reg, one value
// per read. A queued value also becomes the register image value, so
// subsequent unscripted reads keep returning the last queued value.
func (f *FakeTransport) QueueReads(reg Register, values ...uint16) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, v := range values {
		f.queued[reg.Addr()] = append(f.queued[reg.Addr()], fakeRead{value: v})
	}
}

// FailReads makes the next n reads of reg fail with a transport fault.
func (f *FakeTransport) FailReads(reg Register, n int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := 0; i < n; i++ {
		f.queued[reg.Addr()] = append(f.queued[reg.Addr()], fakeRead{fail: true})
	}
}

// OnWrite registers a hook invoked after every host write.
func (f *FakeTransport) OnWrite(hook func(reg Register, value uint16)) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.onWrite = hook
}

// Writes returns a copy of all recorded writes in order.
func (f *FakeTransport) Writes() []WriteOp {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]WriteOp, len(f.writes))
	copy(out, f.writes)

	return out
}

// WritesTo returns the values written to reg, in order.
func (f *FakeTransport) WritesTo(reg Register) []uint16 {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []uint16
	for _, w := range f.writes {
		if w.Register == reg {
			out = append(out, w.Value)
		}
	}

	return out
}

// ReadCount returns the number of reads observed on reg.
func (f *FakeTransport) ReadCount(reg Register) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, r := range f.reads {
		if r == reg {
			n++
		}
	}

	return n
}
