// Package rpc provides the networking layer of the wirekv key-value
// server. It carries commands between clients and the server over a
// RESP-style frame protocol on TCP.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the
//     networking layer, including the command codec, configuration
//     structures, and logging.
//
//   - connection: A buffered, frame-oriented wrapper around a network
//     connection, shared by client and server.
//
//   - server: The accept loop and per-connection request handling,
//     dispatching commands against a shared store.
//
//   - client: A concurrency-safe client that funnels requests from any
//     number of goroutines through a single command actor.
package rpc
