// Package tui is the bubbletea program run for every connected node. It
// turns keys and mouse clicks into Router calls, converts Router effects
// into commands and renders the scrollback, prompt and status bar.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/stlalpha/tecnoter/internal/boot"
	"github.com/stlalpha/tecnoter/internal/content"
	"github.com/stlalpha/tecnoter/internal/router"
	"github.com/stlalpha/tecnoter/internal/session"
)

const (
	minWidth  = 40
	minHeight = 10

	// DefaultFetchTimeout bounds content, curl and art requests.
	DefaultFetchTimeout = 10 * time.Second
	exitDelay           = time.Second
)

// Fetcher loads documents and raw URLs for effects.
type Fetcher interface {
	FetchDocument(ctx context.Context, item content.Item) (content.Document, error)
	FetchRaw(ctx context.Context, url string) (string, error)
}

// ArtSource picks a random ANSI art piece.
type ArtSource interface {
	Random(ctx context.Context) (name string, lines []string, err error)
}

// Options configure a Model. Router and Zones are required.
type Options struct {
	Router   *router.Router
	Zones    *zone.Manager
	Fetcher  Fetcher
	Art      ArtSource
	Renderer *lipgloss.Renderer
	Context  context.Context
	Timeout  time.Duration
	Width    int
	Height   int
}

// Model is the per-node tea.Model.
type Model struct {
	r       *router.Router
	seq     *boot.Sequencer
	zones   *zone.Manager
	prefix  string
	fetcher Fetcher
	art     ArtSource
	ctx     context.Context
	timeout time.Duration
	styles  styles

	input    textinput.Model
	viewport viewport.Model
	seen     uint64

	width  int
	height int

	// hub cursor into the post list
	hubCursor int

	matrixGen   uint64
	matrixEpoch uint64
	matrixLeft  int
	matrixSet   string

	exiting bool
}

// New creates a model for the router's session.
func New(opts Options) Model {
	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 256
	ti.Focus()

	w, h := max(opts.Width, minWidth), max(opts.Height, minHeight)
	if opts.Width == 0 {
		w = 80
	}
	if opts.Height == 0 {
		h = 24
	}
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}

	m := Model{
		r:        opts.Router,
		seq:      boot.New(),
		zones:    opts.Zones,
		prefix:   opts.Zones.NewPrefix(),
		fetcher:  opts.Fetcher,
		art:      opts.Art,
		ctx:      ctx,
		timeout:  timeout,
		styles:   newStyles(opts.Renderer),
		input:    ti,
		viewport: viewport.New(w, h-2),
		width:    w,
		height:   h,
	}
	m.syncViewport()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, tea.SetWindowTitle(session.HostName))
}

// Session returns the node's session.
func (m Model) Session() *session.Session {
	return m.r.Session()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = max(msg.Width, minWidth)
		m.height = max(msg.Height, minHeight)
		m.resize()

	case tea.KeyMsg:
		m, cmd = m.updateKey(msg)

	case tea.MouseMsg:
		m, cmd = m.updateMouse(msg)

	case boot.LineMsg:
		if line, next, ok := m.seq.Line(msg); ok {
			m.r.Output().AppendLines(line)
			cmd = next
		}

	case boot.BootDoneMsg:
		if m.seq.Current(msg.Gen) && m.r.StartLogin() {
			cmd = m.seq.StartCountdown()
		}

	case boot.TickMsg:
		if !m.seq.Current(msg.Gen) {
			break
		}
		if m.Session().Mode != session.ModeLogin {
			m.seq.StopCountdown()
			break
		}
		cmd = m.seq.Tick(msg)

	case boot.TypeMsg:
		cmd = m.seq.TypeStep(msg)

	case boot.SubmitMsg:
		if text, ok := m.seq.Submitted(msg); ok && m.Session().Mode == session.ModeLogin {
			cmd = m.run(m.r.Submit(text))
		}

	case delayedMsg:
		cmd = m.delayed(msg)

	case docMsg:
		if msg.post {
			cmd = m.run(m.r.PostLoaded(msg.epoch, msg.slug, msg.doc, msg.err))
		} else {
			m.r.ContentLoaded(msg.epoch, msg.slug, msg.doc, msg.err)
		}

	case curlMsg:
		m.r.CurlLoaded(msg.epoch, msg.url, msg.body, msg.err)

	case artMsg:
		m.r.AnsiLoaded(msg.epoch, msg.name, msg.lines, msg.err)

	case matrixMsg:
		cmd = m.matrixStep(msg)

	case quitMsg:
		return m, tea.Quit

	default:
		m.input, cmd = m.input.Update(msg)
	}

	m.syncInput()
	m.syncViewport()
	return m, cmd
}

func (m *Model) resize() {
	m.viewport.Width = m.width
	m.viewport.Height = m.viewportHeight()
	m.seen = 0
	m.syncViewport()
}

func (m Model) viewportHeight() int {
	h := m.height - 2
	if m.seq.Counting() {
		h--
	}
	return max(h, 1)
}

// syncViewport re-renders the scrollback when it changed and keeps the
// view anchored at the bottom.
func (m *Model) syncViewport() {
	if h := m.viewportHeight(); m.viewport.Height != h {
		m.viewport.Height = h
		m.seen = 0
	}
	out := m.r.Output()
	if v := out.Version(); v != m.seen || m.seen == 0 {
		m.seen = v
		m.viewport.SetContent(wrap(out.Render(), m.width))
		m.viewport.GotoBottom()
	}
}

// syncInput applies the echo mode for the current state.
func (m *Model) syncInput() {
	if m.Session().Mode == session.ModePassword {
		m.input.EchoMode = textinput.EchoPassword
		m.input.EchoCharacter = '*'
	} else {
		m.input.EchoMode = textinput.EchoNormal
	}
	m.input.Width = max(m.width-len(m.Session().PS1())-2, 10)
}
