package common

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/wirekv/wirekv/lib/resp"
)

// --------------------------------------------------------------------------
// Command Type Definition
// --------------------------------------------------------------------------

// CommandType defines the operation a request asks for.
type CommandType uint8

const (
	CmdUnknown CommandType = iota
	CmdGet                 // Get a value by key
	CmdSet                 // Set a key-value pair
)

// String returns the string representation of a CommandType.
func (t CommandType) String() string {
	switch t {
	case CmdGet:
		return "get"
	case CmdSet:
		return "set"
	default:
		return "unknown"
	}
}

// Command represents the decoded intent of one request. It is produced
// from a frame by ParseCommand (server side) or built by a factory
// function and encoded with ToFrame (client side).
type Command struct {
	// Type of command
	Type CommandType

	// Name is the raw command name as received, used in error replies
	// for unrecognized commands
	Name string

	Key   string // Used for: Get, Set
	Value []byte // Used for: Set
}

// --------------------------------------------------------------------------
// Command Factory Functions
// --------------------------------------------------------------------------

// NewGetCommand creates a new Get command
func NewGetCommand(key string) Command {
	return Command{
		Type: CmdGet,
		Name: "GET",
		Key:  key,
	}
}

// NewSetCommand creates a new Set command
func NewSetCommand(key string, value []byte) Command {
	return Command{
		Type:  CmdSet,
		Name:  "SET",
		Key:   key,
		Value: value,
	}
}

// --------------------------------------------------------------------------
// Command Errors
// --------------------------------------------------------------------------

// CommandError is a recoverable, per-request error: a well-formed frame
// whose content is not a supported command. The server answers it with
// an error frame and keeps the connection open; it never terminates the
// connection or the process.
type CommandError struct {
	Msg string
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	return e.Msg
}

// newCommandError creates a new CommandError with a formatted message.
func newCommandError(format string, args ...interface{}) *CommandError {
	return &CommandError{Msg: fmt.Sprintf(format, args...)}
}

// --------------------------------------------------------------------------
// Wire Mapping
// --------------------------------------------------------------------------

/*
	The array frame type is explicitly unimplemented in this protocol, so
	a request must fit into a single frame. A request is one bulk frame
	whose payload is the command name and its arguments separated by
	single spaces:

		GET key
		SET key value

	The value of a SET is the byte-exact remainder after the second
	separator and may therefore contain spaces and arbitrary bytes. Keys
	must not contain spaces.
*/

// ToFrame encodes the command as a single request frame.
func (c Command) ToFrame() (resp.Frame, error) {
	if strings.ContainsRune(c.Key, ' ') {
		return resp.Frame{}, newCommandError("ERR key must not contain spaces")
	}
	if c.Key == "" {
		return resp.Frame{}, newCommandError("ERR empty key")
	}

	switch c.Type {
	case CmdGet:
		return resp.NewBulk([]byte("GET " + c.Key)), nil

	case CmdSet:
		payload := make([]byte, 0, 4+len(c.Key)+1+len(c.Value))
		payload = append(payload, "SET "...)
		payload = append(payload, c.Key...)
		payload = append(payload, ' ')
		payload = append(payload, c.Value...)
		return resp.NewBulk(payload), nil

	default:
		return resp.Frame{}, newCommandError("ERR cannot encode command of type %s", c.Type)
	}
}

// ParseCommand decodes a request frame into a Command. Errors are of
// type *CommandError and are recoverable: the caller replies with an
// error frame instead of closing the connection.
func ParseCommand(f resp.Frame) (Command, error) {
	var payload []byte
	switch f.Kind {
	case resp.KindBulk:
		payload = f.Bulk
	case resp.KindSimple:
		// Inline convenience form, handy when poking the server by hand
		payload = []byte(f.Str)
	default:
		return Command{}, newCommandError("ERR request must be a bulk or simple frame, got %s", f.Kind)
	}

	fields := bytes.SplitN(payload, []byte{' '}, 2)
	name := strings.ToUpper(string(fields[0]))

	switch name {
	case "GET":
		if len(fields) != 2 {
			return Command{}, newCommandError("ERR wrong number of arguments for 'get' command")
		}
		key := string(fields[1])
		if key == "" || strings.ContainsRune(key, ' ') {
			return Command{}, newCommandError("ERR wrong number of arguments for 'get' command")
		}
		return NewGetCommand(key), nil

	case "SET":
		if len(fields) != 2 {
			return Command{}, newCommandError("ERR wrong number of arguments for 'set' command")
		}
		rest := bytes.SplitN(fields[1], []byte{' '}, 2)
		if len(rest) != 2 || len(rest[0]) == 0 {
			return Command{}, newCommandError("ERR wrong number of arguments for 'set' command")
		}
		value := make([]byte, len(rest[1]))
		copy(value, rest[1])
		return NewSetCommand(string(rest[0]), value), nil

	default:
		return Command{Type: CmdUnknown, Name: name}, newCommandError("ERR unknown command '%s'", name)
	}
}
