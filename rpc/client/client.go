package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/lni/dragonboat/v4/logger"

	"github.com/wirekv/wirekv/lib/resp"
	"github.com/wirekv/wirekv/rpc/common"
	"github.com/wirekv/wirekv/rpc/connection"
)

var Logger = logger.GetLogger("client")

// ErrClosed is returned for requests issued after Close.
var ErrClosed = errors.New("client: closed")

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

// result carries the outcome of one request back to its caller.
type result struct {
	frame resp.Frame
	err   error
}

// pendingRequest pairs a command with its single-use reply channel. The
// channel has capacity one and is written exactly once by the actor.
type pendingRequest struct {
	cmd   common.Command
	reply chan result
}

// --------------------------------------------------------------------------
// Client
// --------------------------------------------------------------------------

// Client is a handle shared by any number of goroutines. All requests
// funnel through the bounded queue into the actor goroutine, which owns
// the connection.
type Client struct {
	config common.ClientConfig

	requests chan pendingRequest
	quit     chan struct{} // closed by Close, read by the actor
	done     chan struct{} // closed by the actor on termination

	closeOnce sync.Once
}

// Dial connects to the configured endpoint and starts the actor.
func Dial(config common.ClientConfig) (*Client, error) {
	if config.Endpoint == "" {
		config.Endpoint = common.DefaultEndpoint
	}

	netConn, err := net.Dial("tcp", config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %v", config.Endpoint, err)
	}
	if err := upgradeConnection(netConn, config); err != nil {
		netConn.Close()
		return nil, fmt.Errorf("failed to tune connection to %s: %v", config.Endpoint, err)
	}

	c := &Client{
		config:   config,
		requests: make(chan pendingRequest, config.EffectiveQueueSize()),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}

	Logger.Infof("Connected to %s", config.Endpoint)
	go c.run(connection.New(netConn))

	return c, nil
}

// Close signals the actor to stop. Requests already queued are still
// serviced; afterwards the connection is closed and the actor
// terminates. Close blocks until the actor is done.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.quit) })
	<-c.done
	return nil
}

// --------------------------------------------------------------------------
// Public Operations
// --------------------------------------------------------------------------

// Set stores a key-value pair on the server.
func (c *Client) Set(ctx context.Context, key string, value []byte) error {
	frame, err := c.do(ctx, common.NewSetCommand(key, value))
	if err != nil {
		return err
	}

	if frame.Kind == resp.KindSimple && frame.Str == "OK" {
		return nil
	}
	return unexpectedReply(frame)
}

// Get fetches the value for a key. The boolean return value indicates
// whether the server had a value for the key.
func (c *Client) Get(ctx context.Context, key string) ([]byte, bool, error) {
	frame, err := c.do(ctx, common.NewGetCommand(key))
	if err != nil {
		return nil, false, err
	}

	switch frame.Kind {
	case resp.KindBulk:
		return frame.Bulk, true, nil
	case resp.KindNull:
		return nil, false, nil
	default:
		return nil, false, unexpectedReply(frame)
	}
}

// do enqueues a command and awaits its private reply. Both the enqueue
// and the await honor context cancellation; an abandoned reply never
// affects the actor.
func (c *Client) do(ctx context.Context, cmd common.Command) (resp.Frame, error) {
	if err := ctx.Err(); err != nil {
		return resp.Frame{}, err
	}
	select {
	case <-c.quit:
		return resp.Frame{}, ErrClosed
	default:
	}

	req := pendingRequest{
		cmd:   cmd,
		reply: make(chan result, 1),
	}

	select {
	case c.requests <- req:
	case <-c.quit:
		return resp.Frame{}, ErrClosed
	case <-ctx.Done():
		return resp.Frame{}, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.unpack()
	case <-c.done:
		// The actor exited; it may still have answered this request
		// just before draining finished
		select {
		case res := <-req.reply:
			return res.unpack()
		default:
			return resp.Frame{}, ErrClosed
		}
	case <-ctx.Done():
		return resp.Frame{}, ctx.Err()
	}
}

// unpack converts a result into the caller-facing return values. An
// error frame from the server becomes a regular error.
func (r result) unpack() (resp.Frame, error) {
	if r.err != nil {
		return resp.Frame{}, r.err
	}
	if r.frame.Kind == resp.KindError {
		return resp.Frame{}, fmt.Errorf("server: %s", r.frame.Str)
	}
	return r.frame, nil
}

// unexpectedReply builds the error for a reply frame that does not fit
// the issued command.
func unexpectedReply(f resp.Frame) error {
	return fmt.Errorf("client: unexpected reply frame %s", f)
}

// --------------------------------------------------------------------------
// Actor
// --------------------------------------------------------------------------

// run is the actor loop. It is the only goroutine that ever touches the
// connection. Requests are serviced strictly in queue order; after a
// fatal connection error every remaining request is answered with that
// error.
func (c *Client) run(conn *connection.Connection) {
	defer close(c.done)
	defer conn.Close()

	var fatal error

	serve := func(req pendingRequest) {
		if fatal != nil {
			req.reply <- result{err: fatal}
			return
		}
		frame, err := c.roundTrip(conn, req.cmd)
		if err != nil {
			// An encoding error is the request's fault; everything else
			// means the connection is gone
			if !isRequestError(err) {
				fatal = err
				Logger.Errorf("Connection failed: %v", err)
			}
			req.reply <- result{err: err}
			return
		}
		req.reply <- result{frame: frame}
	}

	for {
		select {
		case req := <-c.requests:
			serve(req)
		case <-c.quit:
			// Drain requests that were queued before Close, then stop
			for {
				select {
				case req := <-c.requests:
					serve(req)
				default:
					return
				}
			}
		}
	}
}

// roundTrip issues one command over the connection and reads its reply.
func (c *Client) roundTrip(conn *connection.Connection, cmd common.Command) (resp.Frame, error) {
	frame, err := cmd.ToFrame()
	if err != nil {
		// Encoding errors are per-request, not fatal to the connection
		return resp.Frame{}, err
	}

	timeout := time.Duration(c.config.TimeoutSecond) * time.Second

	if timeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return resp.Frame{}, err
		}
	}
	if err := conn.WriteFrame(frame); err != nil {
		return resp.Frame{}, err
	}

	if timeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return resp.Frame{}, err
		}
	}
	reply, err := conn.ReadFrame()
	if err != nil {
		return resp.Frame{}, err
	}
	if reply == nil {
		return resp.Frame{}, connection.ErrConnectionReset
	}
	return *reply, nil
}

// --------------------------------------------------------------------------
// Socket Tuning
// --------------------------------------------------------------------------

// upgradeConnection applies performance settings to the dialed TCP
// connection using the configured socket values.
func upgradeConnection(conn net.Conn, config common.ClientConfig) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}

	if err := tcpConn.SetNoDelay(config.TCP.TCPNoDelay); err != nil {
		return err
	}
	if config.Socket.WriteBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(config.Socket.WriteBufferSize); err != nil {
			return err
		}
	}
	if config.Socket.ReadBufferSize > 0 {
		if err := tcpConn.SetReadBuffer(config.Socket.ReadBufferSize); err != nil {
			return err
		}
	}
	if config.TCP.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		if err := tcpConn.SetKeepAlivePeriod(time.Duration(config.TCP.TCPKeepAliveSec) * time.Second); err != nil {
			return err
		}
	}

	return nil
}

// isRequestError reports whether an error is scoped to one request
// instead of poisoning the connection.
func isRequestError(err error) bool {
	var cerr *common.CommandError
	return errors.As(err, &cerr)
}
