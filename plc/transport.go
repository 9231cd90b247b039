package plc

// RegisterTransport is the capability interface a PLC link must provide.
// Both the Modbus TCP transport and the in-memory fake implement it;
// everything above this interface depends only on numbered-register
// read/write semantics, never on the wire protocol.
//
// Implementations must be safe for use by a single operation at a time;
// serializing concurrent operations against one cabinet is the session
// manager's responsibility, not the transport's.
type RegisterTransport interface {
	// Connect establishes the underlying connection. Calling Connect on
	// an already-connected transport is a no-op.
	Connect() error
	// Close tears down the underlying connection.
	Close() error
	// Connected reports whether a live connection exists.
	Connected() bool
	// ReadRegister reads one 16-bit holding register.
	ReadRegister(addr uint16) (uint16, error)
	// WriteRegister writes one 16-bit holding register.
	WriteRegister(addr uint16, value uint16) error
}
