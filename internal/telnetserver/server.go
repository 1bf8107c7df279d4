// Package telnetserver serves tecnoter nodes over raw telnet for classic
// BBS terminal programs.
package telnetserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/stlalpha/tecnoter/internal/node"
)

// cprTimeout bounds the cursor position probe for clients without NAWS.
const cprTimeout = time.Second

// Runner serves one node connection.
type Runner interface {
	Run(ctx context.Context, c node.Conn) error
}

// Config holds telnet server configuration.
type Config struct {
	Port   int
	Host   string
	Runner Runner
}

// Server is a telnet server that listens for TCP connections
// and wraps them with telnet protocol handling.
type Server struct {
	listener net.Listener
	config   Config
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewServer creates a new telnet server instance.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if cfg.Port < 0 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	if cfg.Host == "" {
		cfg.Host = "0.0.0.0"
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{config: cfg, ctx: ctx, cancel: cancel}, nil
}

// ListenAndServe starts listening for telnet connections and blocks.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	log.Printf("INFO: Telnet server listening on %s", addr)
	return s.Serve(listener)
}

// Serve accepts connections on l until Close is called.
func (s *Server) Serve(l net.Listener) error {
	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	for {
		conn, err := l.Accept()
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil // Clean shutdown
			}
			log.Printf("ERROR: Telnet accept error: %v", err)
			continue
		}
		go s.handleConnection(conn)
	}
}

// handleConnection processes a new telnet connection.
func (s *Server) handleConnection(conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()
	tc := NewTelnetConn(conn)

	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: Telnet panic handling %s: %v", remoteAddr, r)
		}
		tc.Close()
	}()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	if err := tc.Negotiate(); err != nil {
		log.Printf("ERROR: Telnet negotiation failed for %s: %v", remoteAddr, err)
		return
	}
	w, h, method := tc.DetectTerminalSize(cprTimeout)
	log.Printf("INFO: Telnet session from %s - terminal %s %dx%d (via %s)", remoteAddr, tc.TermType(), w, h, method)

	err := s.config.Runner.Run(ctx, node.Conn{
		In:        tc,
		Out:       tc,
		Remote:    remoteAddr,
		Transport: "telnet",
		Term:      tc.TermType(),
		Width:     w,
		Height:    h,
		Resize:    tc.Resize(),
	})
	if err != nil && !errors.Is(err, node.ErrNodesBusy) && !errors.Is(err, node.ErrTooManyConnections) {
		log.Printf("ERROR: Telnet session from %s: %v", remoteAddr, err)
	}
}

// Addr returns the listening address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops accepting connections and ends every running session.
func (s *Server) Close() error {
	s.cancel()
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		err := s.listener.Close()
		s.listener = nil
		return err
	}
	return nil
}
