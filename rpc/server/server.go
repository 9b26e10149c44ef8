package server

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"

	"github.com/wirekv/wirekv/lib/resp"
	"github.com/wirekv/wirekv/lib/store"
	"github.com/wirekv/wirekv/rpc/common"
	"github.com/wirekv/wirekv/rpc/connection"

	_ "net/http/pprof"
)

var Logger = logger.GetLogger("server")

// --------------------------------------------------------------------------
// Metrics
// --------------------------------------------------------------------------

var (
	metricConnAccepted = metrics.GetOrCreateCounter(`wirekv_connections_accepted_total`)
	metricCmdGet       = metrics.GetOrCreateCounter(`wirekv_commands_total{command="get"}`)
	metricCmdSet       = metrics.GetOrCreateCounter(`wirekv_commands_total{command="set"}`)
	metricCmdRejected  = metrics.GetOrCreateCounter(`wirekv_commands_total{command="rejected"}`)
)

// --------------------------------------------------------------------------
// Server
// --------------------------------------------------------------------------

// Server accepts inbound connections and serves the wirekv protocol
// against a shared store.
type Server struct {
	config common.ServerConfig
	store  store.IStore

	listener net.Listener
	closed   atomic.Bool

	// conns tracks every live connection so Close can tear them down
	conns      *xsync.MapOf[uint64, *connection.Connection]
	nextConnID atomic.Uint64

	metricsOnce sync.Once
}

// New creates a new server for the given configuration and store.
//
// Usage:
//
//	s := server.New(config, store.NewStore())
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func New(config common.ServerConfig, st store.IStore) *Server {
	if config.Endpoint == "" {
		config.Endpoint = common.DefaultEndpoint
	}

	s := &Server{
		config: config,
		store:  st,
		conns:  xsync.NewMapOf[uint64, *connection.Connection](),
	}

	metrics.GetOrCreateGauge(`wirekv_connections_active`, func() float64 {
		return float64(s.conns.Size())
	})
	metrics.GetOrCreateGauge(`wirekv_keys`, func() float64 {
		return float64(st.Len())
	})

	return s
}

// Serve binds the configured endpoint and accepts connections until
// Close is called. It blocks for the lifetime of the server.
func (s *Server) Serve() error {
	listener, err := net.Listen("tcp", s.config.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to create listener: %v", err)
	}
	return s.ServeListener(listener)
}

// ServeListener accepts connections from an existing listener. It is
// split from Serve so tests can bind an ephemeral port.
func (s *Server) ServeListener(listener net.Listener) error {
	s.listener = listener

	if s.config.MetricsEndpoint != "" {
		s.metricsOnce.Do(func() { go s.serveMetrics() })
	}

	Logger.Infof("Serving on %s", listener.Addr())

	for {
		conn, err := listener.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			Logger.Errorf("Accept error: %v", err)
			continue
		}

		if err := s.upgradeConnection(conn); err != nil {
			Logger.Warningf("Failed to tune connection from %s: %v", conn.RemoteAddr(), err)
		}

		id := s.nextConnID.Add(1)
		c := connection.New(conn)
		s.conns.Store(id, c)
		metricConnAccepted.Inc()

		// One independent unit of work per connection
		go s.handleConnection(id, c)
	}
}

// Addr returns the bound listen address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops accepting and tears down every live connection.
func (s *Server) Close() error {
	s.closed.Store(true)

	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}

	s.conns.Range(func(id uint64, c *connection.Connection) bool {
		c.Close()
		return true
	})

	return err
}

// --------------------------------------------------------------------------
// Connection Handling
// --------------------------------------------------------------------------

// handleConnection runs the request loop for one connection. Errors here
// are local: they end this connection and nothing else.
func (s *Server) handleConnection(id uint64, c *connection.Connection) {
	defer func() {
		s.conns.Delete(id)
		c.Close()
	}()

	timeout := time.Duration(s.config.TimeoutSecond) * time.Second

	for {
		if timeout > 0 {
			if err := c.SetReadDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("Failed to set read deadline: %v", err)
				return
			}
		}

		frame, err := c.ReadFrame()
		if err != nil {
			s.logReadError(err)
			return
		}
		if frame == nil {
			Logger.Infof("Connection closed by client")
			return
		}

		reply := s.dispatch(*frame)

		if timeout > 0 {
			if err := c.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
				Logger.Errorf("Failed to set write deadline: %v", err)
				return
			}
		}
		if err := c.WriteFrame(reply); err != nil {
			Logger.Errorf("Failed to write response: %v", err)
			return
		}
	}
}

// dispatch decodes a request frame and applies it to the store. It
// always produces a reply frame: unsupported commands map to error
// frames, never to a dropped connection.
func (s *Server) dispatch(f resp.Frame) resp.Frame {
	cmd, err := common.ParseCommand(f)
	if err != nil {
		metricCmdRejected.Inc()
		var cerr *common.CommandError
		if errors.As(err, &cerr) {
			return resp.NewError(cerr.Msg)
		}
		return resp.NewError("ERR " + err.Error())
	}

	switch cmd.Type {
	case common.CmdSet:
		s.store.Set(cmd.Key, cmd.Value)
		metricCmdSet.Inc()
		return resp.NewSimple("OK")

	case common.CmdGet:
		metricCmdGet.Inc()
		if v, ok := s.store.Get(cmd.Key); ok {
			return resp.NewBulk(v)
		}
		return resp.NewNull()

	default:
		metricCmdRejected.Inc()
		return resp.NewError(fmt.Sprintf("ERR unknown command '%s'", cmd.Name))
	}
}

// logReadError classifies a fatal read error for the log.
func (s *Server) logReadError(err error) {
	var perr *resp.ProtocolError
	switch {
	case errors.As(err, &perr):
		Logger.Warningf("Protocol error, closing connection: %v", err)
	case errors.Is(err, connection.ErrConnectionReset):
		Logger.Warningf("Connection reset by peer")
	default:
		Logger.Errorf("Read error: %v", err)
	}
}

// --------------------------------------------------------------------------
// Socket Tuning
// --------------------------------------------------------------------------

// upgradeConnection applies performance settings to an accepted TCP
// connection using the configured socket values.
func (s *Server) upgradeConnection(conn net.Conn) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil // Not a TCP connection, nothing to tune
	}

	// Disable Nagle's algorithm (TCP_NODELAY) if configured
	if err := tcpConn.SetNoDelay(s.config.TCP.TCPNoDelay); err != nil {
		return err
	}

	// Set socket write buffer size if configured
	if s.config.Socket.WriteBufferSize > 0 {
		if err := tcpConn.SetWriteBuffer(s.config.Socket.WriteBufferSize); err != nil {
			return err
		}
	}

	// Set socket read buffer size if configured
	if s.config.Socket.ReadBufferSize > 0 {
		if err := tcpConn.SetReadBuffer(s.config.Socket.ReadBufferSize); err != nil {
			return err
		}
	}

	// Enable TCP keep-alive if configured
	if s.config.TCP.TCPKeepAliveSec > 0 {
		if err := tcpConn.SetKeepAlive(true); err != nil {
			return err
		}
		keepAlivePeriod := time.Duration(s.config.TCP.TCPKeepAliveSec) * time.Second
		if err := tcpConn.SetKeepAlivePeriod(keepAlivePeriod); err != nil {
			return err
		}
	}

	// Set TCP linger option if configured
	if s.config.TCP.TCPLingerSec >= 0 {
		if err := tcpConn.SetLinger(s.config.TCP.TCPLingerSec); err != nil {
			return err
		}
	}

	return nil
}

// --------------------------------------------------------------------------
// Metrics Endpoint
// --------------------------------------------------------------------------

// serveMetrics exposes Prometheus metrics and pprof on the metrics
// endpoint. pprof registers itself on the default mux via its import.
func (s *Server) serveMetrics() {
	http.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		metrics.WritePrometheus(w, true)
	})

	Logger.Infof("Metrics on http://%s/metrics", s.config.MetricsEndpoint)
	if err := http.ListenAndServe(s.config.MetricsEndpoint, nil); err != nil {
		Logger.Errorf("Metrics endpoint failed: %v", err)
	}
}
