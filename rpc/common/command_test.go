package common

import (
	"errors"
	"reflect"
	"testing"

	"github.com/wirekv/wirekv/lib/resp"
)

// TestCommandRoundTrip tests that commands survive encoding to a frame
// and parsing back unchanged.
func TestCommandRoundTrip(t *testing.T) {
	commands := []Command{
		NewGetCommand("foo"),
		NewSetCommand("foo", []byte("Hello")),
		NewSetCommand("foo", []byte("value with spaces")),
		NewSetCommand("bin", []byte{0x00, 0x0d, 0x0a, 0xff}),
		NewSetCommand("empty", []byte{}),
	}

	for _, cmd := range commands {
		t.Run(cmd.Name+" "+cmd.Key, func(t *testing.T) {
			frame, err := cmd.ToFrame()
			if err != nil {
				t.Fatalf("ToFrame failed: %v", err)
			}

			got, err := ParseCommand(frame)
			if err != nil {
				t.Fatalf("ParseCommand failed: %v", err)
			}
			if !reflect.DeepEqual(got, cmd) {
				t.Errorf("command doesn't match after round trip:\nOriginal: %+v\nResult: %+v", cmd, got)
			}
		})
	}
}

// TestParseInlineCommand tests the simple-frame convenience form.
func TestParseInlineCommand(t *testing.T) {
	cmd, err := ParseCommand(resp.NewSimple("GET foo"))
	if err != nil {
		t.Fatalf("ParseCommand failed: %v", err)
	}
	if cmd.Type != CmdGet || cmd.Key != "foo" {
		t.Errorf("ParseCommand = %+v, want GET foo", cmd)
	}
}

// TestParseCommandCaseInsensitive tests that command names are matched
// without case sensitivity.
func TestParseCommandCaseInsensitive(t *testing.T) {
	cmd, err := ParseCommand(resp.NewBulk([]byte("set foo bar")))
	if err != nil {
		t.Fatalf("ParseCommand failed: %v", err)
	}
	if cmd.Type != CmdSet || cmd.Key != "foo" || string(cmd.Value) != "bar" {
		t.Errorf("ParseCommand = %+v, want SET foo bar", cmd)
	}
}

// TestParseCommandErrors tests that bad requests yield recoverable
// CommandErrors.
func TestParseCommandErrors(t *testing.T) {
	cases := map[string]resp.Frame{
		"unknown command": resp.NewBulk([]byte("UNKNOWN key")),
		"get no key":      resp.NewBulk([]byte("GET")),
		"get extra args":  resp.NewBulk([]byte("GET foo bar")),
		"set no value":    resp.NewBulk([]byte("SET foo")),
		"integer request": resp.NewInteger(7),
		"null request":    resp.NewNull(),
	}

	for name, frame := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCommand(frame)
			var cerr *CommandError
			if !errors.As(err, &cerr) {
				t.Errorf("ParseCommand(%s) = %v, want CommandError", frame, err)
			}
		})
	}
}

// TestUnknownCommandKeepsName tests that the raw name survives for error
// replies.
func TestUnknownCommandKeepsName(t *testing.T) {
	cmd, err := ParseCommand(resp.NewBulk([]byte("FLUSHALL")))
	if err == nil {
		t.Fatal("ParseCommand accepted an unknown command")
	}
	if cmd.Name != "FLUSHALL" {
		t.Errorf("Name = %q, want FLUSHALL", cmd.Name)
	}
	if err.Error() != "ERR unknown command 'FLUSHALL'" {
		t.Errorf("error = %q", err.Error())
	}
}
