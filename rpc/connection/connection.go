package connection

import (
	"bufio"
	"errors"
	"io"
	"net"
	"time"

	"github.com/wirekv/wirekv/lib/resp"
)

const (
	// defaultBufferSize is the initial read buffer capacity. The buffer
	// grows geometrically when a single frame outgrows it.
	defaultBufferSize = 4 * 1024

	// defaultWriteBufferSize is the size of the buffered writer.
	defaultWriteBufferSize = 4 * 1024
)

// ErrConnectionReset signals that the peer closed the connection in the
// middle of a frame: EOF was observed while the read buffer still held
// an incomplete frame. It is fatal to the connection only.
var ErrConnectionReset = errors.New("connection: reset by peer (EOF mid-frame)")

// Connection owns a byte stream and converts between raw bytes and
// frames. Not safe for concurrent use.
type Connection struct {
	conn net.Conn
	wr   *bufio.Writer

	// buf holds exactly the received but not yet consumed bytes; on each
	// successful decode the consumed prefix is removed
	buf []byte
}

// New creates a Connection owning the given socket.
func New(conn net.Conn) *Connection {
	return &Connection{
		conn: conn,
		wr:   bufio.NewWriterSize(conn, defaultWriteBufferSize),
		buf:  make([]byte, 0, defaultBufferSize),
	}
}

// --------------------------------------------------------------------------
// Reading
// --------------------------------------------------------------------------

// ReadFrame reads one complete frame from the connection. It returns
// (nil, nil) on a clean close (EOF with an empty buffer),
// ErrConnectionReset if the peer closed mid-frame, a *resp.ProtocolError
// for malformed bytes, and the underlying I/O error on transport
// failure.
func (c *Connection) ReadFrame() (*resp.Frame, error) {
	for {
		// First try to decode a frame from the buffered bytes
		n, err := resp.Check(c.buf)
		switch {
		case err == nil:
			frame, _, err := resp.Parse(c.buf[:n])
			if err != nil {
				return nil, err
			}
			c.consume(n)
			return &frame, nil

		case errors.Is(err, resp.ErrIncomplete):
			// Need more bytes

		default:
			return nil, err
		}

		// Grow the buffer geometrically if it is full
		if len(c.buf) == cap(c.buf) {
			grown := make([]byte, len(c.buf), 2*cap(c.buf))
			copy(grown, c.buf)
			c.buf = grown
		}

		// Read more bytes from the socket into the spare capacity
		read, err := c.conn.Read(c.buf[len(c.buf):cap(c.buf)])
		c.buf = c.buf[:len(c.buf)+read]

		if err != nil {
			if errors.Is(err, io.EOF) {
				if read > 0 {
					// Bytes and EOF in one read: decode what arrived,
					// the next call observes the EOF
					continue
				}
				// A zero-length read is the terminal EOF condition,
				// never a retry condition
				if len(c.buf) == 0 {
					return nil, nil
				}
				return nil, ErrConnectionReset
			}
			return nil, err
		}
	}
}

// consume removes exactly the first n bytes from the read buffer.
func (c *Connection) consume(n int) {
	remaining := copy(c.buf, c.buf[n:])
	c.buf = c.buf[:remaining]
}

// --------------------------------------------------------------------------
// Writing
// --------------------------------------------------------------------------

// WriteFrame encodes the frame into the write buffer and flushes it to
// the socket as one logical operation.
func (c *Connection) WriteFrame(f resp.Frame) error {
	if err := resp.Encode(c.wr, f); err != nil {
		return err
	}
	return c.wr.Flush()
}

// --------------------------------------------------------------------------
// Deadlines and Lifecycle
// --------------------------------------------------------------------------

// SetReadDeadline sets the deadline for future reads.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline sets the deadline for future writes.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

// RemoteAddr returns the remote address of the underlying socket.
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the underlying socket.
func (c *Connection) Close() error {
	return c.conn.Close()
}
