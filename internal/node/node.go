// Package node runs one caller's session: it claims a node number, wires
// the session, router and scrollback together and drives the tui program
// over whatever stream the transport hands it.
package node

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/muesli/termenv"

	"github.com/stlalpha/tecnoter/internal/ansi"
	"github.com/stlalpha/tecnoter/internal/config"
	"github.com/stlalpha/tecnoter/internal/content"
	"github.com/stlalpha/tecnoter/internal/engine"
	"github.com/stlalpha/tecnoter/internal/history"
	"github.com/stlalpha/tecnoter/internal/logging"
	"github.com/stlalpha/tecnoter/internal/router"
	"github.com/stlalpha/tecnoter/internal/scrollback"
	"github.com/stlalpha/tecnoter/internal/session"
	"github.com/stlalpha/tecnoter/internal/terminalio"
	"github.com/stlalpha/tecnoter/internal/tui"
)

var (
	// ErrNodesBusy is returned when every node number is taken.
	ErrNodesBusy = errors.New("all nodes busy")
	// ErrTooManyConnections is returned when a host exceeds its
	// connection limit.
	ErrTooManyConnections = errors.New("too many connections from host")
)

// Services is the node-wide state shared by every connection.
type Services struct {
	Config   *config.Holder
	Library  *content.Library
	Client   *content.Client
	History  *history.Store
	Registry *session.Registry
	Host     *content.HostMonitor

	// Primary is the command engine in use. Nil runs every session on
	// the offline engine.
	Primary engine.Engine
	// OutputMode overrides config.json's outputMode when not auto.
	OutputMode ansi.OutputMode
	// ArtDir is the resolved art directory.
	ArtDir string
	Debug  bool
}

// Env exposes live node state to engines.
func (s *Services) Env() engine.Env {
	env := engine.Env{
		Board: s.Config.Board,
		Nodes: s.Registry.List,
	}
	if s.Host != nil {
		env.Host = s.Host.Stats
	}
	return env
}

// LoadEngine picks the primary engine: the configured script when one is
// set, the built-in engine otherwise. A script that fails to load leaves
// the node offline.
func LoadEngine(scriptPath string, env engine.Env) engine.Engine {
	if scriptPath == "" {
		return engine.NewBuiltin(env)
	}
	sc, err := engine.LoadScript(scriptPath)
	if err != nil {
		log.Printf("ERROR: Command engine unavailable, running offline: %v", err)
		return nil
	}
	log.Printf("INFO: Loaded command engine script %s", scriptPath)
	return sc
}

// Conn is one accepted connection.
type Conn struct {
	In        io.Reader
	Out       io.Writer
	Remote    string
	Transport string
	Term      string
	Width     int
	Height    int
	DeepLink  string
	// Resize delivers window size changes. It may be nil.
	Resize <-chan tea.WindowSizeMsg
	// Local marks the console session, which keeps bubbletea's own
	// signal handling.
	Local bool
}

func (s *Services) outputMode(cfg config.ServerConfig) ansi.OutputMode {
	if s.OutputMode != ansi.OutputModeAuto {
		return s.OutputMode
	}
	m, err := ansi.ParseOutputMode(cfg.OutputMode)
	if err != nil {
		log.Printf("WARN: %v", err)
	}
	return m
}

// ColorProfile picks a color profile from a TERM value.
func ColorProfile(term string) termenv.Profile {
	t := strings.ToLower(term)
	switch {
	case t == "dumb":
		return termenv.Ascii
	case strings.Contains(t, "truecolor"), strings.Contains(t, "24bit"), strings.Contains(t, "direct"):
		return termenv.TrueColor
	case strings.Contains(t, "256color"), t == "":
		return termenv.ANSI256
	}
	return termenv.ANSI
}

// Run serves c until the caller exits or ctx is cancelled.
func (s *Services) Run(ctx context.Context, c Conn) error {
	cfg := s.Config.Server()
	mode := s.outputMode(cfg).Resolve(c.Term)

	perHost := cfg.MaxConnectionsPerIP
	if c.Local {
		perHost = 0
	}
	id, num, err := s.Registry.Join(cfg.MaxNodes, perHost, c.Remote, c.Transport)
	switch {
	case errors.Is(err, session.ErrHostLimit):
		log.Printf("WARN: Rejecting %s connection from %s: connection limit reached", c.Transport, c.Remote)
		_ = terminalio.WriteString(c.Out, "\r\n|12Too many connections from your address.|07\r\n", mode)
		return ErrTooManyConnections
	case err != nil:
		log.Printf("WARN: Rejecting %s connection from %s: all %d nodes busy", c.Transport, c.Remote, cfg.MaxNodes)
		_ = terminalio.WriteString(c.Out, "\r\n|12All nodes are busy. Please call back later.|07\r\n", mode)
		return ErrNodesBusy
	}
	defer s.Registry.Unregister(id)
	logging.Node(num, "%s connection from %s (term %q, %s)", c.Transport, c.Remote, c.Term, mode)

	sess := session.New(session.Options{
		Node:       num,
		Transport:  c.Transport,
		RemoteAddr: c.Remote,
		HistoryCap: cfg.HistoryCap,
		DeepLink:   c.DeepLink,
		NodeName:   cfg.NodeName,
		Debug:      s.Debug || cfg.Debug,
	})

	zones := zone.New()
	defer zones.Close()

	out := terminalio.NewWriter(c.Out, mode)
	renderer := lipgloss.NewRenderer(out, termenv.WithProfile(ColorProfile(c.Term)))
	buf := scrollback.NewBuffer(cfg.ScrollbackLines, scrollback.NewStyles(renderer), zones)

	var src router.ContentSource
	if s.Library != nil {
		src = s.Library
	}
	r := router.New(sess, buf, router.Options{
		Primary:  s.Primary,
		Fallback: engine.NewOffline(s.Env()),
		Content:  src,
		History:  s.History,
		OnChange: func(ss *session.Session) {
			s.Registry.Update(id, ss.CurrentUser, session.ActivityFor(ss.Mode))
		},
	})

	topts := tui.Options{
		Router:   r,
		Zones:    zones,
		Art:      s.gallery(cfg),
		Renderer: renderer,
		Context:  ctx,
		Timeout:  cfg.ContentTimeout(),
		Width:    c.Width,
		Height:   c.Height,
	}
	if s.Client != nil {
		topts.Fetcher = s.Client
	}
	model := tui.New(topts)

	opts := []tea.ProgramOption{
		tea.WithContext(ctx),
		tea.WithInput(c.In),
		tea.WithOutput(out),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithEnvironment([]string{"TERM=" + c.Term}),
	}
	if !c.Local {
		opts = append(opts, tea.WithoutSignalHandler())
	}
	p := tea.NewProgram(model, opts...)

	done := make(chan struct{})
	defer close(done)
	if c.Resize != nil {
		go func() {
			for {
				select {
				case <-done:
					return
				case msg, ok := <-c.Resize:
					if !ok {
						return
					}
					p.Send(msg)
				}
			}
		}()
	}

	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}
	if err != nil {
		logging.Node(num, "session ended with error: %v", err)
		return fmt.Errorf("node %d: %w", num, err)
	}
	logging.Node(num, "%s disconnected", c.Remote)
	return nil
}

func (s *Services) gallery(cfg config.ServerConfig) *ansi.Gallery {
	g := &ansi.Gallery{Dir: s.ArtDir, URLs: cfg.ArtURLs}
	if s.Client != nil {
		g.Fetch = func(ctx context.Context, url string) ([]byte, error) {
			body, err := s.Client.FetchRaw(ctx, url)
			return []byte(body), err
		}
	}
	return g
}
