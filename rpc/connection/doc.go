// Package connection provides the buffered, stateful wrapper that turns
// one byte stream into frames and back.
//
// A Connection exclusively owns its socket: it has no internal
// synchronization and its read/write sequencing is stateful, so it must
// never be shared between goroutines directly. The server gives each
// accepted socket a private Connection; concurrent client callers go
// through the client package's actor, which serializes them onto a
// single Connection.
//
// On the read side the Connection keeps a growable buffer holding
// exactly the bytes received but not yet consumed into a complete frame.
// On the write side frames are encoded into a buffered writer and
// flushed once per frame, so a multi-write frame encoding costs one
// flush instead of one syscall per primitive.
package connection
