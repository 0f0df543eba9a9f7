package server

import (
	"log"
	"net"
	"strconv"
	"sync"
	"time"

	"msgboard/metrics"
	"msgboard/protocol"
	"msgboard/registry"
)

type Config struct {
	Port             int
	MaxConnections   int
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// Server accepts connections, enforces the connection cap and tracks live
// connections keyed by peer address. One handler goroutine runs per
// accepted connection; the accept loop never blocks on handler work.
type Server struct {
	registry *registry.Registry
	config   *Config
	mu       sync.Mutex
	conns    map[string]net.Conn
}

func New(reg *registry.Registry, config *Config) *Server {
	if config.MaxConnections == 0 {
		config.MaxConnections = 30
	}
	if config.HandshakeTimeout == 0 {
		config.HandshakeTimeout = 10 * time.Second
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = 30 * time.Second
	}

	return &Server{
		registry: reg,
		config:   config,
		conns:    make(map[string]net.Conn),
	}
}

func (s *Server) Start() error {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(s.config.Port))
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Serve runs the accept loop. An accept failure is unrecoverable and is
// returned to the caller; per-connection errors never reach here.
func (s *Server) Serve(listener net.Listener) error {
	defer listener.Close()

	log.Printf("msgboard server listening on %s", listener.Addr())

	for {
		conn, err := listener.Accept()
		if err != nil {
			return err
		}
		s.accept(conn)
	}
}

func (s *Server) accept(conn net.Conn) {
	conn.SetWriteDeadline(time.Now().Add(s.config.HandshakeTimeout))

	s.mu.Lock()
	if len(s.conns) >= s.config.MaxConnections {
		s.mu.Unlock()
		conn.Write([]byte(protocol.HandshakeRejected + "\n"))
		conn.Close()
		metrics.RejectedConnections.Inc()
		log.Printf("Rejected %s: connection cap reached", conn.RemoteAddr())
		return
	}
	s.conns[conn.RemoteAddr().String()] = conn
	s.mu.Unlock()
	metrics.LiveConnections.Inc()

	if _, err := conn.Write([]byte(protocol.HandshakeAccepted + "\n")); err != nil {
		log.Printf("Handshake to %s failed: %v", conn.RemoteAddr(), err)
		s.removeConnection(conn)
		return
	}
	conn.SetWriteDeadline(time.Time{})

	go s.handleConnection(conn)
}

// removeConnection evicts a connection from the live table and closes its
// transport. Safe to call more than once for the same connection.
func (s *Server) removeConnection(conn net.Conn) {
	addr := conn.RemoteAddr().String()

	s.mu.Lock()
	_, tracked := s.conns[addr]
	delete(s.conns, addr)
	s.mu.Unlock()

	conn.Close()
	if tracked {
		metrics.LiveConnections.Dec()
	}
}

func (s *Server) liveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
