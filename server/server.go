package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/anonftpd/anonftpd/internal/ratelimit"
)

// Server is the FTP server.
//
// It handles listening for incoming connections and dispatching them to
// client sessions. Each connection runs in its own goroutine, but within
// a single session commands are handled strictly sequentially — there is
// no concurrent command processing and no ABOR.
//
// Lifecycle:
//  1. Create server with NewServer()
//  2. Start with ListenAndServe() or Serve()
//  3. Server runs until an error occurs or the listener is closed
//  4. For graceful shutdown, call Shutdown()
//
// Basic example:
//
//	driver, _ := server.NewFSDriver("/tmp/ftp")
//	s, err := server.NewServer(":21", server.WithDriver(driver))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(s.ListenAndServe())
type Server struct {
	addr   string
	driver Driver
	logger *slog.Logger

	disableMLSD bool

	welcomeMessage string
	serverName     string

	maxIdleTime  time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration

	maxConnections      int
	maxConnectionsPerIP int
	activeConns         atomic.Int32
	connsByIP           map[string]int32
	connsByIPMu         sync.Mutex
	nextPassivePortCtr  atomic.Int32

	pathRedactor PathRedactor
	redactIPs    bool

	enableDirMessage bool

	metricsCollector MetricsCollector

	mu         sync.Mutex
	listener   net.Listener
	conns      map[net.Conn]struct{}
	inShutdown atomic.Bool

	transferLog io.Writer

	bandwidthLimitGlobal  int64
	bandwidthLimitPerUser int64
	globalLimiter         *ratelimit.Limiter

	disabledCommands map[string]bool
}

// ErrServerClosed is returned by Serve/ListenAndServe after a call to
// Shutdown.
var ErrServerClosed = errors.New("ftp: Server closed")

// NewServer creates a new FTP server with the given address and options.
// The address should be in the form ":port" or "host:port". A driver must
// be supplied via WithDriver.
//
// Default values:
//   - Logger: slog.Default()
//   - MaxIdleTime: 5 minutes
//   - MaxConnections: 0 (unlimited)
func NewServer(addr string, options ...Option) (*Server, error) {
	s := &Server{
		addr:           addr,
		logger:         slog.Default(),
		welcomeMessage: "220 Anonymous FTP server ready.",
		serverName:     "UNIX Type: L8",
		maxIdleTime:    5 * time.Minute,
		conns:          make(map[net.Conn]struct{}),
		connsByIP:      make(map[string]int32),
	}

	for _, opt := range options {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	if s.driver == nil {
		return nil, fmt.Errorf("driver is required (use WithDriver option)")
	}

	if s.bandwidthLimitGlobal > 0 {
		s.globalLimiter = ratelimit.New(s.bandwidthLimitGlobal)
	}

	return s, nil
}

// ListenAndServe is a high-level helper that creates an FSDriver rooted
// at rootPath and starts the server on addr.
func ListenAndServe(addr string, rootPath string, options ...Option) error {
	driver, err := NewFSDriver(rootPath)
	if err != nil {
		return fmt.Errorf("failed to create driver: %w", err)
	}

	opts := append([]Option{WithDriver(driver)}, options...)

	s, err := NewServer(addr, opts...)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return s.ListenAndServe()
}

func (s *Server) redactPath(path string) string {
	if s.pathRedactor == nil {
		return path
	}
	return s.pathRedactor(path)
}

// redactIP redacts the last octet of an IPv4 address, or everything after
// the last colon of an IPv6 address, for privacy-conscious logging.
func (s *Server) redactIP(ip string) string {
	if !s.redactIPs || ip == "" {
		return ip
	}

	if strings.Contains(ip, ".") {
		parts := strings.Split(ip, ".")
		if len(parts) == 4 {
			parts[3] = "xxx"
			return strings.Join(parts, ".")
		}
	}

	if strings.Contains(ip, ":") {
		if last := strings.LastIndex(ip, ":"); last > 0 {
			return ip[:last+1] + "xxx"
		}
	}

	return ip
}

// nextPassivePort returns a monotonically increasing counter used to
// round-robin the starting port within a configured passive port range.
func (s *Server) nextPassivePort() int32 {
	return s.nextPassivePortCtr.Add(1)
}

// ListenAndServe starts the FTP server on the configured address. It
// blocks until the server stops or an error occurs.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.logger.Info("FTP server listening", "addr", s.addr)
	return s.Serve(ln)
}

// Shutdown gracefully stops the server: it immediately stops accepting
// new connections, then waits for active connections to finish or until
// ctx is cancelled, after which remaining connections are force-closed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.inShutdown.Store(true)

	s.mu.Lock()
	ln := s.listener
	s.listener = nil
	s.mu.Unlock()

	var err error
	if ln != nil {
		err = ln.Close()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for s.activeConns.Load() != 0 {
			time.Sleep(100 * time.Millisecond)
		}
	}()

	select {
	case <-done:
		return err
	case <-ctx.Done():
		s.mu.Lock()
		conns := s.conns
		s.conns = make(map[net.Conn]struct{})
		s.mu.Unlock()

		for conn := range maps.Keys(conns) {
			conn.Close()
		}

		if err != nil {
			return err
		}
		return ctx.Err()
	}
}

// Serve accepts incoming connections on l, handling each in its own
// goroutine, until l is closed.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	if s.inShutdown.Load() {
		s.mu.Unlock()
		l.Close()
		return ErrServerClosed
	}
	s.listener = l
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if s.listener == l {
			s.listener = nil
		}
		s.mu.Unlock()
		l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if s.inShutdown.Load() {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.logger.Error("accept error", "error", err)
			continue
		}

		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	if !s.trackConnection(conn, true) {
		conn.Close()
		return
	}
	defer s.trackConnection(conn, false)

	s.handleSession(conn)
}

// trackConnection returns false if the server is shutting down.
func (s *Server) trackConnection(conn net.Conn, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inShutdown.Load() {
		conn.Close()
		return false
	}

	ip, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		ip = conn.RemoteAddr().String()
	}

	if add {
		s.conns[conn] = struct{}{}
		if s.maxConnectionsPerIP > 0 {
			s.connsByIPMu.Lock()
			s.connsByIP[ip]++
			s.connsByIPMu.Unlock()
		}
		return true
	}

	delete(s.conns, conn)
	if s.maxConnectionsPerIP > 0 {
		s.connsByIPMu.Lock()
		s.connsByIP[ip]--
		if s.connsByIP[ip] <= 0 {
			delete(s.connsByIP, ip)
		}
		s.connsByIPMu.Unlock()
	}
	return true
}

func (s *Server) handleSession(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()
	ip, _, _ := net.SplitHostPort(remoteAddr)

	if s.maxConnections > 0 && s.activeConns.Load() >= int32(s.maxConnections) {
		s.logger.Warn("connection_rejected", "remote_ip", s.redactIP(ip), "reason", "global_limit_reached", "limit", s.maxConnections)
		if s.metricsCollector != nil {
			s.metricsCollector.RecordConnection(false, "global_limit_reached")
		}
		fmt.Fprintf(conn, "421 Too many users, sorry.\r\n")
		conn.Close()
		return
	}

	if s.maxConnectionsPerIP > 0 {
		s.connsByIPMu.Lock()
		current := s.connsByIP[ip]
		s.connsByIPMu.Unlock()
		if current > int32(s.maxConnectionsPerIP) {
			s.logger.Warn("connection_rejected", "remote_ip", s.redactIP(ip), "reason", "per_ip_limit_reached", "limit", s.maxConnectionsPerIP)
			if s.metricsCollector != nil {
				s.metricsCollector.RecordConnection(false, "per_ip_limit_reached")
			}
			fmt.Fprintf(conn, "421 Too many connections from your IP address.\r\n")
			conn.Close()
			return
		}
	}

	s.activeConns.Add(1)
	defer s.activeConns.Add(-1)

	if s.metricsCollector != nil {
		s.metricsCollector.RecordConnection(true, "accepted")
	}

	newSession(s, conn).serve()
}
