package common

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultEndpoint is the conventional listen address for this class of
// protocol.
const DefaultEndpoint = "127.0.0.1:6379"

// --------------------------------------------------------------------------
// Shared transport configuration structs
// --------------------------------------------------------------------------

// SocketConf holds socket buffer settings shared by client and server.
type SocketConf struct {
	// WriteBufferSize is the OS socket write buffer size in bytes (0 = OS default)
	WriteBufferSize int
	// ReadBufferSize is the OS socket read buffer size in bytes (0 = OS default)
	ReadBufferSize int
}

// TCPConf holds TCP specific tuning options.
type TCPConf struct {
	// TCPNoDelay disables Nagle's algorithm when true
	TCPNoDelay bool
	// TCPKeepAliveSec enables TCP keep-alive with the given period (0 = disabled)
	TCPKeepAliveSec int
	// TCPLingerSec sets the linger timeout (-1 = OS default)
	TCPLingerSec int
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for a wirekv server.
type ServerConfig struct {
	// Endpoint is the address the server listens on
	Endpoint string

	// TimeoutSecond is the per-request read/write deadline (0 = none)
	TimeoutSecond int64

	// MetricsEndpoint optionally exposes Prometheus metrics and pprof
	// over HTTP (empty = disabled)
	MetricsEndpoint string

	// Socket tuning
	Socket SocketConf
	TCP    TCPConf

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Server")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	}

	addSection("Socket")
	addField("Write Buffer", fmt.Sprintf("%d bytes", c.Socket.WriteBufferSize))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.Socket.ReadBufferSize))
	addField("TCP No Delay", strconv.FormatBool(c.TCP.TCPNoDelay))
	addField("TCP Keep Alive", fmt.Sprintf("%d sec", c.TCP.TCPKeepAliveSec))
	addField("TCP Linger", fmt.Sprintf("%d sec", c.TCP.TCPLingerSec))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// DefaultQueueSize bounds how many requests may queue inside a client
// before senders block. The bound is what provides backpressure; the
// exact value is a tunable, not a protocol property.
const DefaultQueueSize = 32

// ClientConfig holds all configuration parameters for a wirekv client.
type ClientConfig struct {
	// Endpoint is the address of the wirekv server
	Endpoint string

	// TimeoutSecond is the per-request read/write deadline (0 = none)
	TimeoutSecond int

	// QueueSize is the capacity of the client's request queue
	// (0 = DefaultQueueSize)
	QueueSize int

	// Socket tuning
	Socket SocketConf
	TCP    TCPConf
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Queue Size", strconv.Itoa(c.EffectiveQueueSize()))

	return sb.String()
}

// EffectiveQueueSize returns the configured queue capacity or the
// default when unset.
func (c *ClientConfig) EffectiveQueueSize() int {
	if c.QueueSize <= 0 {
		return DefaultQueueSize
	}
	return c.QueueSize
}
