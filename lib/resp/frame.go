package resp

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// --------------------------------------------------------------------------
// Frame Type Definition
// --------------------------------------------------------------------------

// Kind identifies the variant of a Frame.
type Kind uint8

const (
	KindSimple  Kind = iota // Simple string ('+')
	KindError               // Error string ('-')
	KindInteger             // Integer (':')
	KindBulk                // Bulk byte string ('$')
	KindNull                // Null ("$-1")
	KindArray               // Array ('*') - part of the grammar, not implemented
)

// String returns the string representation of a Kind.
func (k Kind) String() string {
	switch k {
	case KindSimple:
		return "simple"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulk:
		return "bulk"
	case KindNull:
		return "null"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Frame represents a single unit of the wire protocol. Frames are value
// types: created by Parse or one of the factory functions, consumed by
// Encode, and never mutated in between. Which fields are used depends on
// the Kind.
type Frame struct {
	Kind Kind

	Str  string // Used for: KindSimple, KindError
	Int  int64  // Used for: KindInteger
	Bulk []byte // Used for: KindBulk
}

// String returns a short human-readable form of the frame, used in logs
// and error messages.
func (f Frame) String() string {
	switch f.Kind {
	case KindSimple:
		return fmt.Sprintf("simple(%q)", f.Str)
	case KindError:
		return fmt.Sprintf("error(%q)", f.Str)
	case KindInteger:
		return fmt.Sprintf("integer(%d)", f.Int)
	case KindBulk:
		return fmt.Sprintf("bulk(%d bytes)", len(f.Bulk))
	case KindNull:
		return "null"
	default:
		return f.Kind.String()
	}
}

// --------------------------------------------------------------------------
// Frame Factory Functions
// --------------------------------------------------------------------------

// NewSimple creates a simple string frame. The string must not contain
// CR or LF, Encode rejects it otherwise.
func NewSimple(s string) Frame {
	return Frame{Kind: KindSimple, Str: s}
}

// NewError creates an error string frame.
func NewError(s string) Frame {
	return Frame{Kind: KindError, Str: s}
}

// NewInteger creates an integer frame.
func NewInteger(n int64) Frame {
	return Frame{Kind: KindInteger, Int: n}
}

// NewBulk creates a bulk byte string frame. The payload may contain
// arbitrary bytes including CRLF.
func NewBulk(b []byte) Frame {
	return Frame{Kind: KindBulk, Bulk: b}
}

// NewNull creates a null frame.
func NewNull() Frame {
	return Frame{Kind: KindNull}
}

// --------------------------------------------------------------------------
// Error Types
// --------------------------------------------------------------------------

// ErrIncomplete signals that a buffer's prefix does not yet contain a
// full frame. It is recovered locally by reading more bytes and is never
// surfaced to callers of the connection layer.
var ErrIncomplete = errors.New("resp: incomplete frame")

// ProtocolError signals bytes that are present but do not form a valid
// frame. It is fatal to the connection that received them.
type ProtocolError struct {
	Msg string
}

// Error implements the error interface.
func (e *ProtocolError) Error() string {
	return fmt.Sprintf("resp: protocol error: %s", e.Msg)
}

// newProtocolError creates a new ProtocolError with a formatted message.
func newProtocolError(format string, args ...interface{}) *ProtocolError {
	return &ProtocolError{Msg: fmt.Sprintf(format, args...)}
}

// --------------------------------------------------------------------------
// Wire Constants
// --------------------------------------------------------------------------

// One-byte type tags of the wire format.
const (
	tagSimple  = '+'
	tagError   = '-'
	tagInteger = ':'
	tagBulk    = '$'
	tagArray   = '*'
)

var crlf = []byte("\r\n")

// MaxBulkLength bounds the declared payload length of a bulk frame.
// The bound keeps a hostile length header from overflowing offset
// arithmetic or growing the read buffer without limit; declarations
// above it are a protocol error, not a buffering request.
const MaxBulkLength = 512 * 1024 * 1024

// --------------------------------------------------------------------------
// Check (first decode pass)
// --------------------------------------------------------------------------

// Check determines whether the prefix of buf contains one complete frame
// and returns the number of bytes it occupies. It returns ErrIncomplete
// if more bytes are needed and a *ProtocolError if the prefix can never
// become a valid frame. Check never consumes bytes and never allocates a
// Frame.
func Check(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, ErrIncomplete
	}

	switch buf[0] {
	case tagSimple, tagError, tagInteger:
		// Tag followed by a single CRLF terminated line
		end, err := findLine(buf, 1)
		if err != nil {
			return 0, err
		}
		return end, nil

	case tagBulk:
		end, err := findLine(buf, 1)
		if err != nil {
			return 0, err
		}

		n, err := parseLength(buf[1 : end-2])
		if err != nil {
			return 0, err
		}

		// "$-1\r\n" is the null frame and carries no payload
		if n == -1 {
			return end, nil
		}

		// Payload plus trailing CRLF
		total := end + n + 2
		if len(buf) < total {
			return 0, ErrIncomplete
		}
		return total, nil

	case tagArray:
		return 0, newProtocolError("array frames are not implemented")

	default:
		return 0, newProtocolError("invalid frame type byte %q", buf[0])
	}
}

// --------------------------------------------------------------------------
// Parse (second decode pass)
// --------------------------------------------------------------------------

// Parse decodes one frame from the prefix of buf and returns it together
// with the number of bytes consumed. Parse expects a prefix that Check
// accepted; calling it on an incomplete prefix returns ErrIncomplete.
func Parse(buf []byte) (Frame, int, error) {
	n, err := Check(buf)
	if err != nil {
		return Frame{}, 0, err
	}

	switch buf[0] {
	case tagSimple:
		return NewSimple(string(buf[1 : n-2])), n, nil

	case tagError:
		return NewError(string(buf[1 : n-2])), n, nil

	case tagInteger:
		i, err := strconv.ParseInt(string(buf[1:n-2]), 10, 64)
		if err != nil {
			return Frame{}, 0, newProtocolError("invalid integer %q", buf[1:n-2])
		}
		return NewInteger(i), n, nil

	case tagBulk:
		end, _ := findLine(buf, 1)
		length, _ := parseLength(buf[1 : end-2])

		if length == -1 {
			return NewNull(), n, nil
		}

		payload := buf[end : end+length]
		if !bytes.Equal(buf[end+length:n], crlf) {
			return Frame{}, 0, newProtocolError("bulk frame payload is not CRLF terminated")
		}

		// Copy the payload: the frame must not alias the read buffer,
		// which is reused for subsequent frames.
		b := make([]byte, length)
		copy(b, payload)
		return NewBulk(b), n, nil

	default:
		// Unreachable, Check rejects every other tag
		return Frame{}, 0, newProtocolError("invalid frame type byte %q", buf[0])
	}
}

// --------------------------------------------------------------------------
// Encode
// --------------------------------------------------------------------------

// Encode writes the wire form of the frame to w. A frame is written as
// multiple small writes (tag, payload, terminator), so w should be
// buffered; the connection layer pairs Encode with a bufio.Writer and
// flushes once per frame.
func Encode(w io.Writer, f Frame) error {
	switch f.Kind {
	case KindSimple, KindError:
		if err := validLine(f.Str); err != nil {
			return err
		}
		tag := byte(tagSimple)
		if f.Kind == KindError {
			tag = tagError
		}
		if _, err := w.Write([]byte{tag}); err != nil {
			return err
		}
		if _, err := io.WriteString(w, f.Str); err != nil {
			return err
		}
		_, err := w.Write(crlf)
		return err

	case KindInteger:
		if _, err := w.Write([]byte{tagInteger}); err != nil {
			return err
		}
		if _, err := io.WriteString(w, strconv.FormatInt(f.Int, 10)); err != nil {
			return err
		}
		_, err := w.Write(crlf)
		return err

	case KindNull:
		_, err := io.WriteString(w, "$-1\r\n")
		return err

	case KindBulk:
		if _, err := w.Write([]byte{tagBulk}); err != nil {
			return err
		}
		if _, err := io.WriteString(w, strconv.Itoa(len(f.Bulk))); err != nil {
			return err
		}
		if _, err := w.Write(crlf); err != nil {
			return err
		}
		if _, err := w.Write(f.Bulk); err != nil {
			return err
		}
		_, err := w.Write(crlf)
		return err

	case KindArray:
		return newProtocolError("array frames are not implemented")

	default:
		return newProtocolError("cannot encode frame of kind %s", f.Kind)
	}
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

// findLine locates the CRLF terminated line starting at offset start and
// returns the index one past the terminator. A line must not contain a
// bare CR or LF.
func findLine(buf []byte, start int) (int, error) {
	for i := start; i < len(buf); i++ {
		switch buf[i] {
		case '\r':
			if i+1 == len(buf) {
				// CR is the last buffered byte, the LF may still arrive
				return 0, ErrIncomplete
			}
			if buf[i+1] != '\n' {
				return 0, newProtocolError("expected LF after CR")
			}
			return i + 2, nil
		case '\n':
			return 0, newProtocolError("unexpected bare LF")
		}
	}
	return 0, ErrIncomplete
}

// parseLength parses the decimal length of a bulk frame. The only
// permitted negative value is -1, the null marker.
func parseLength(b []byte) (int, error) {
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, newProtocolError("invalid bulk length %q", b)
	}
	if n < -1 {
		return 0, newProtocolError("invalid bulk length %d", n)
	}
	if n > MaxBulkLength {
		return 0, newProtocolError("bulk length %d exceeds maximum %d", n, MaxBulkLength)
	}
	return n, nil
}

// validLine rejects strings that cannot be written as a CRLF terminated
// line.
func validLine(s string) error {
	for i := 0; i < len(s); i++ {
		if s[i] == '\r' || s[i] == '\n' {
			return newProtocolError("line frame must not contain CR or LF")
		}
	}
	return nil
}
