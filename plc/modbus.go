package plc

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// ModbusConfig holds the transport parameters for one PLC endpoint.
type ModbusConfig struct {
	Host    string
	Port    int
	UnitID  byte
	Timeout time.Duration
}

// ModbusTransport is a RegisterTransport over Modbus TCP. It owns one
// TCP connection to one PLC and serializes requests on it.
type ModbusTransport struct {
	mu      sync.Mutex
	cfg     ModbusConfig
	handler *modbus.TCPClientHandler
	client  modbus.Client
}

var _ RegisterTransport = (*ModbusTransport)(nil)

// NewModbusTransport creates an unconnected Modbus TCP transport.
// Connect must be called before any register access.
func NewModbusTransport(cfg ModbusConfig) *ModbusTransport {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	return &ModbusTransport{cfg: cfg}
}

func (t *ModbusTransport) Connect() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handler != nil {
		return nil
	}

	addr := net.JoinHostPort(t.cfg.Host, strconv.Itoa(t.cfg.Port))
	handler := modbus.NewTCPClientHandler(addr)
	handler.Timeout = t.cfg.Timeout
	handler.SlaveId = t.cfg.UnitID

	if err := handler.Connect(); err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}

	t.handler = handler
	t.client = modbus.NewClient(handler)

	return nil
}

func (t *ModbusTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handler == nil {
		return nil
	}

	err := t.handler.Close()
	t.handler = nil
	t.client = nil

	return err
}

func (t *ModbusTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.handler != nil
}

func (t *ModbusTransport) ReadRegister(addr uint16) (uint16, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client == nil {
		return 0, ErrNotConnected
	}

	data, err := t.client.ReadHoldingRegisters(addr, 1)
	if err != nil {
		return 0, err
	}
	if len(data) < 2 {
		return 0, fmt.Errorf("short register payload: %d bytes", len(data))
	}

	return binary.BigEndian.Uint16(data[:2]), nil
}

func (t *ModbusTransport) WriteRegister(addr uint16, value uint16) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client == nil {
		return ErrNotConnected
	}

	_, err := t.client.WriteSingleRegister(addr, value)

	return err
}
