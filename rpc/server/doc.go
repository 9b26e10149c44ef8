// Package server implements the wirekv server: a TCP accept loop that
// gives every inbound connection a private buffered Connection, a
// goroutine of its own, and a shared handle to the store.
//
// Each connection goroutine loops reading a frame, decoding it into a
// command, applying it to the store and writing the response frame. An
// unrecognized command is answered with an error frame and the
// connection stays open; codec and transport errors end only the
// affected connection. The store's mutex is acquired strictly around the
// map operation and is never held across socket I/O.
//
// The server optionally exposes Prometheus metrics and pprof over a
// separate HTTP endpoint.
package server
