// Package common provides core data structures and utilities shared
// across the wirekv system. It defines fundamental types, configuration
// structures, and protocol elements used by other packages.
//
// The package focuses on:
//   - Command definition and its mapping to and from wire frames
//   - Configuration structures for client and server components
//   - A custom logging implementation shared by all packages
//
// Key Components:
//
//   - Command: The decoded intent of one request (GET or SET), produced
//     from a frame by ParseCommand and consumed by the server's
//     dispatcher or encoded by a client via ToFrame. Includes factory
//     methods for the supported operations.
//
//   - ServerConfig: Configuration for the server, including the listen
//     endpoint, timeouts, socket tuning and the metrics endpoint.
//
//   - ClientConfig: Configuration for client components, controlling the
//     endpoint, timeouts and the request queue bound.
//
//   - Logger: Custom logging implementation providing consistent
//     formatting across the application.
package common
