// Package plc implements the register-level protocol primitives for the
// drone parcel cabinet PLCs: the fixed register address map, the
// register-scoped operation codes, a Modbus TCP transport, and the
// resilient read/write/wait operations every handshake is built from.
//
// The PLC exposes a holding-register address space as the sole
// communication medium. A register value is an operation code whose
// meaning depends on the register it appears in; the same numeric value
// signals different protocol states on different registers, so codes
// must always be interpreted register-scoped.
//
// Two retry primitives are deliberately kept distinct:
//
//   - ReadRegister and WriteRegister retry a single register access a
//     bounded number of times and fail with ErrIO after exhaustion.
//   - WaitValue polls ReadRegister until one of a set of expected values
//     is observed or a deadline elapses; a failed poll inside the wait is
//     treated as "no match yet", never as an abort.
package plc
