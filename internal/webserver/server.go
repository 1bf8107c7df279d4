// Package webserver serves tecnoter nodes to browsers. The page at "/"
// runs a terminal emulator that talks to /ws over a websocket: binary
// frames carry keystrokes and screen output, text frames carry resize
// events.
package webserver

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/stlalpha/tecnoter/internal/node"
)

//go:embed static/index.html
var indexHTML []byte

const defaultTerm = "xterm-256color"

// Runner serves one node connection.
type Runner interface {
	Run(ctx context.Context, c node.Conn) error
}

// Config holds web server configuration.
type Config struct {
	Host   string
	Port   int
	Runner Runner
}

// Server is the HTTP/WebSocket server for browser callers.
type Server struct {
	cfg        Config
	upgrader   websocket.Upgrader
	httpServer *http.Server

	sessions sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewServer creates a web server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Runner == nil {
		return nil, errors.New("webserver: no runner configured")
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The board is public; any page may embed the terminal.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/", s.serveIndex)
	return mux
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}

func queryInt(r *http.Request, key string, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WARN: WebSocket upgrade from %s failed: %v", r.RemoteAddr, err)
		return
	}
	s.sessions.Add(1)
	defer s.sessions.Done()
	defer conn.Close()

	q := r.URL.Query()
	term := q.Get("term")
	if term == "" {
		term = defaultTerm
	}

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	st := newStream(conn)
	go st.readPump(cancel)
	written := make(chan struct{})
	go func() {
		st.writePump()
		close(written)
	}()

	err = s.cfg.Runner.Run(ctx, node.Conn{
		In:        st.in,
		Out:       st,
		Remote:    r.RemoteAddr,
		Transport: "web",
		Term:      term,
		Width:     queryInt(r, "cols", 80),
		Height:    queryInt(r, "rows", 24),
		DeepLink:  q.Get("open"),
		Resize:    st.resize,
	})
	if err != nil && !errors.Is(err, node.ErrNodesBusy) && !errors.Is(err, node.ErrTooManyConnections) {
		log.Printf("ERROR: Web session from %s: %v", r.RemoteAddr, err)
	}

	st.close()
	<-written
	st.in.Close()
}

// ListenAndServe serves HTTP until Close is called.
func (s *Server) ListenAndServe() error {
	log.Printf("INFO: Web server listening on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Serve serves HTTP on l until Close is called.
func (s *Server) Serve(l net.Listener) error {
	err := s.httpServer.Serve(l)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close ends every session and stops the HTTP server.
func (s *Server) Close() error {
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.httpServer.Shutdown(ctx)
	s.sessions.Wait()
	return err
}
