package resp

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

// testFrames returns one frame of every encodable kind plus a few edge
// cases (empty payloads, negative integers, CRLF inside bulk data).
func testFrames() []Frame {
	return []Frame{
		NewSimple("OK"),
		NewSimple(""),
		NewError("ERR unknown command 'FOO'"),
		NewInteger(0),
		NewInteger(-42),
		NewInteger(9223372036854775807),
		NewNull(),
		NewBulk([]byte("Hello")),
		NewBulk([]byte{}),
		NewBulk([]byte("with\r\nline breaks")),
		NewBulk([]byte{0x00, 0xff, 0x42}),
	}
}

// encodeFrame encodes a frame into a fresh buffer or fails the test.
func encodeFrame(t *testing.T, f Frame) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := Encode(&buf, f); err != nil {
		t.Fatalf("failed to encode %s: %v", f, err)
	}
	return buf.Bytes()
}

// TestFrameRoundTrip tests that every frame survives encode followed by
// check and parse unchanged.
func TestFrameRoundTrip(t *testing.T) {
	for _, f := range testFrames() {
		t.Run(f.String(), func(t *testing.T) {
			wire := encodeFrame(t, f)

			n, err := Check(wire)
			if err != nil {
				t.Fatalf("Check failed: %v", err)
			}
			if n != len(wire) {
				t.Errorf("Check consumed %d bytes, want %d", n, len(wire))
			}

			got, consumed, err := Parse(wire)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if consumed != len(wire) {
				t.Errorf("Parse consumed %d bytes, want %d", consumed, len(wire))
			}
			if !reflect.DeepEqual(got, f) {
				t.Errorf("frame doesn't match after round trip:\nOriginal: %+v\nResult: %+v", f, got)
			}
		})
	}
}

// TestCheckIncremental tests that Check reports ErrIncomplete for every
// strict prefix of a frame's encoding and the full length once all bytes
// are present.
func TestCheckIncremental(t *testing.T) {
	for _, f := range testFrames() {
		t.Run(f.String(), func(t *testing.T) {
			wire := encodeFrame(t, f)

			for i := 0; i < len(wire); i++ {
				if _, err := Check(wire[:i]); !errors.Is(err, ErrIncomplete) {
					t.Fatalf("Check(%q) = %v, want ErrIncomplete", wire[:i], err)
				}
			}

			n, err := Check(wire)
			if err != nil {
				t.Fatalf("Check(%q) failed: %v", wire, err)
			}
			if n != len(wire) {
				t.Errorf("Check(%q) = %d, want %d", wire, n, len(wire))
			}
		})
	}
}

// TestCheckTrailingBytes tests that a frame followed by more data is
// still sized correctly.
func TestCheckTrailingBytes(t *testing.T) {
	wire := []byte("+OK\r\n:12\r\n")

	n, err := Check(wire)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if n != 5 {
		t.Errorf("Check = %d, want 5", n)
	}

	f, _, err := Parse(wire)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if f.Kind != KindSimple || f.Str != "OK" {
		t.Errorf("Parse = %+v, want simple OK", f)
	}
}

// TestCheckMalformed tests that malformed prefixes are rejected with a
// ProtocolError, never with ErrIncomplete.
func TestCheckMalformed(t *testing.T) {
	cases := map[string][]byte{
		"unknown tag":         []byte("@oops\r\n"),
		"array frame":         []byte("*1\r\n"),
		"bare LF":             []byte("+OK\n"),
		"CR without LF":       []byte("+OK\rx\n"),
		"bulk length garbage": []byte("$abc\r\n"),
		"bulk length -2":      []byte("$-2\r\n"),
	}

	for name, wire := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Check(wire)
			var perr *ProtocolError
			if !errors.As(err, &perr) {
				t.Errorf("Check(%q) = %v, want ProtocolError", wire, err)
			}
		})
	}
}

// TestCheckRejectsOversizedBulkLength tests that a bulk header declaring
// a length beyond MaxBulkLength is a protocol error. The first case
// would overflow the frame-size arithmetic into a negative byte count,
// the second is merely too large to ever buffer.
func TestCheckRejectsOversizedBulkLength(t *testing.T) {
	cases := map[string][]byte{
		"length near MaxInt64":  []byte("$9223372036854775800\r\n"),
		"length 1 TB":           []byte("$1099511627776\r\n"),
		"length above MaxInt64": []byte("$99999999999999999999\r\n"),
	}

	for name, wire := range cases {
		t.Run(name, func(t *testing.T) {
			n, err := Check(wire)
			var perr *ProtocolError
			if !errors.As(err, &perr) {
				t.Errorf("Check(%q) = %v, want ProtocolError", wire, err)
			}
			if n != 0 {
				t.Errorf("Check(%q) returned byte count %d with an error", wire, n)
			}
		})
	}
}

// TestParseMalformed tests decode-time validation that Check cannot see.
func TestParseMalformed(t *testing.T) {
	cases := map[string][]byte{
		"integer garbage":        []byte(":12a\r\n"),
		"bulk missing CRLF tail": []byte("$5\r\nHelloXY"),
	}

	for name, wire := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Parse(wire)
			var perr *ProtocolError
			if !errors.As(err, &perr) {
				t.Errorf("Parse(%q) = %v, want ProtocolError", wire, err)
			}
		})
	}
}

// TestCheckSplitCRLF tests the byte-exact scenario of a simple string
// whose CRLF terminator arrives in two deliveries.
func TestCheckSplitCRLF(t *testing.T) {
	if _, err := Check([]byte("+OK\r")); !errors.Is(err, ErrIncomplete) {
		t.Fatalf("Check(+OK\\r) = %v, want ErrIncomplete", err)
	}

	f, n, err := Parse([]byte("+OK\r\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if n != 5 || f.Kind != KindSimple || f.Str != "OK" {
		t.Errorf("Parse = %+v (%d bytes), want simple OK (5 bytes)", f, n)
	}
}

// TestEncodeRejectsInvalid tests that unencodable frames are rejected.
func TestEncodeRejectsInvalid(t *testing.T) {
	var buf bytes.Buffer

	if err := Encode(&buf, NewSimple("no\r\nnewlines")); err == nil {
		t.Error("Encode accepted a simple string containing CRLF")
	}
	if err := Encode(&buf, Frame{Kind: KindArray}); err == nil {
		t.Error("Encode accepted an array frame")
	}
}

// TestParseDoesNotAliasInput tests that a parsed bulk frame owns its
// payload instead of aliasing the input buffer.
func TestParseDoesNotAliasInput(t *testing.T) {
	wire := []byte("$5\r\nHello\r\n")

	f, _, err := Parse(wire)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	wire[4] = 'X'
	if string(f.Bulk) != "Hello" {
		t.Errorf("parsed bulk payload aliases the input buffer: %q", f.Bulk)
	}
}
