package server

import (
	"bytes"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/wirekv/wirekv/lib/resp"
	"github.com/wirekv/wirekv/lib/store"
	"github.com/wirekv/wirekv/rpc/common"
	"github.com/wirekv/wirekv/rpc/connection"
)

// startServer runs a server on an ephemeral port and returns its
// address.
func startServer(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	s := New(common.ServerConfig{TCP: common.TCPConf{TCPNoDelay: true}}, store.NewStore())
	go func() {
		if err := s.ServeListener(listener); err != nil {
			t.Errorf("ServeListener failed: %v", err)
		}
	}()
	t.Cleanup(func() { s.Close() })

	return listener.Addr().String()
}

// dialConn opens a raw protocol connection to the server.
func dialConn(t *testing.T, addr string) *connection.Connection {
	t.Helper()

	netConn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("failed to dial %s: %v", addr, err)
	}
	c := connection.New(netConn)
	t.Cleanup(func() { c.Close() })
	return c
}

// request writes one command frame and reads the reply.
func request(t *testing.T, c *connection.Connection, payload string) resp.Frame {
	t.Helper()

	if err := c.WriteFrame(resp.NewBulk([]byte(payload))); err != nil {
		t.Fatalf("WriteFrame(%q) failed: %v", payload, err)
	}
	reply, err := c.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame after %q failed: %v", payload, err)
	}
	if reply == nil {
		t.Fatalf("connection closed after %q", payload)
	}
	return *reply
}

// TestSetThenGet tests the basic SET/GET exchange.
func TestSetThenGet(t *testing.T) {
	addr := startServer(t)
	c := dialConn(t, addr)

	reply := request(t, c, "SET foo Hello")
	if reply.Kind != resp.KindSimple || reply.Str != "OK" {
		t.Fatalf("SET reply = %+v, want simple OK", reply)
	}

	reply = request(t, c, "GET foo")
	if reply.Kind != resp.KindBulk || string(reply.Bulk) != "Hello" {
		t.Fatalf("GET reply = %+v, want bulk Hello", reply)
	}
}

// TestGetMissingKey tests that an unset key answers Null.
func TestGetMissingKey(t *testing.T) {
	addr := startServer(t)
	c := dialConn(t, addr)

	reply := request(t, c, "GET bar")
	if reply.Kind != resp.KindNull {
		t.Fatalf("GET reply = %+v, want null", reply)
	}
}

// TestUnknownCommandKeepsConnectionOpen tests that an unrecognized
// command is answered with an error frame and the connection survives.
func TestUnknownCommandKeepsConnectionOpen(t *testing.T) {
	addr := startServer(t)
	c := dialConn(t, addr)

	reply := request(t, c, "UNKNOWN key")
	if reply.Kind != resp.KindError {
		t.Fatalf("reply = %+v, want error frame", reply)
	}
	if reply.Str != "ERR unknown command 'UNKNOWN'" {
		t.Errorf("error text = %q", reply.Str)
	}

	// The connection must still serve further commands
	reply = request(t, c, "SET foo 1")
	if reply.Kind != resp.KindSimple || reply.Str != "OK" {
		t.Fatalf("SET after error = %+v, want simple OK", reply)
	}
}

// TestValueWithSpacesAndBinary tests that a SET value is the byte-exact
// remainder of the request payload.
func TestValueWithSpacesAndBinary(t *testing.T) {
	addr := startServer(t)
	c := dialConn(t, addr)

	value := []byte("v1 with spaces \r\n and\x00binary")
	payload := append([]byte("SET blob "), value...)

	if err := c.WriteFrame(resp.NewBulk(payload)); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if reply, err := c.ReadFrame(); err != nil || reply.Kind != resp.KindSimple {
		t.Fatalf("SET reply = %v, %v", reply, err)
	}

	reply := request(t, c, "GET blob")
	if reply.Kind != resp.KindBulk || !bytes.Equal(reply.Bulk, value) {
		t.Fatalf("GET reply = %+v, want the stored bytes", reply)
	}
}

// TestConcurrentWritersLastWriterWins tests that concurrent SETs to one
// key leave exactly one of the written values, never a mixture.
func TestConcurrentWritersLastWriterWins(t *testing.T) {
	const writers = 16

	addr := startServer(t)

	candidates := make(map[string]bool, writers)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < writers; i++ {
		value := fmt.Sprintf("value-%02d", i)
		mu.Lock()
		candidates[value] = true
		mu.Unlock()

		wg.Add(1)
		go func() {
			defer wg.Done()

			netConn, err := net.Dial("tcp", addr)
			if err != nil {
				t.Errorf("dial: %v", err)
				return
			}
			c := connection.New(netConn)
			defer c.Close()

			if err := c.WriteFrame(resp.NewBulk([]byte("SET contested " + value))); err != nil {
				t.Errorf("WriteFrame: %v", err)
				return
			}
			if reply, err := c.ReadFrame(); err != nil || reply == nil || reply.Kind != resp.KindSimple {
				t.Errorf("SET reply = %v, %v", reply, err)
			}
		}()
	}
	wg.Wait()

	c := dialConn(t, addr)
	reply := request(t, c, "GET contested")
	if reply.Kind != resp.KindBulk || !candidates[string(reply.Bulk)] {
		t.Fatalf("GET returned %+v which no writer wrote", reply)
	}
}

// TestIndependentConnections tests that a protocol error on one
// connection does not affect another.
func TestIndependentConnections(t *testing.T) {
	addr := startServer(t)

	healthy := dialConn(t, addr)
	if reply := request(t, healthy, "SET foo 1"); reply.Kind != resp.KindSimple {
		t.Fatalf("SET reply = %+v", reply)
	}

	// Poison a second connection with garbage; the server must close it
	broken, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer broken.Close()
	if _, err := broken.Write([]byte("@garbage\r\n")); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	if n, _ := broken.Read(make([]byte, 1)); n != 0 {
		t.Error("server answered a malformed frame instead of closing")
	}

	// The healthy connection keeps working
	if reply := request(t, healthy, "GET foo"); reply.Kind != resp.KindBulk {
		t.Fatalf("GET on healthy connection = %+v", reply)
	}
}

// TestPipelinedRequestsFIFO tests that several requests written before
// any reply is read come back in arrival order.
func TestPipelinedRequestsFIFO(t *testing.T) {
	addr := startServer(t)
	c := dialConn(t, addr)

	for i := 0; i < 3; i++ {
		if err := c.WriteFrame(resp.NewBulk([]byte(fmt.Sprintf("SET k%d v%d", i, i)))); err != nil {
			t.Fatalf("WriteFrame failed: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		reply, err := c.ReadFrame()
		if err != nil || reply == nil || reply.Kind != resp.KindSimple {
			t.Fatalf("reply %d = %v, %v", i, reply, err)
		}
	}

	reply := request(t, c, "GET k2")
	if reply.Kind != resp.KindBulk || string(reply.Bulk) != "v2" {
		t.Fatalf("GET k2 = %+v", reply)
	}
}
