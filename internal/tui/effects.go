package tui

import (
	"context"
	"errors"
	"log"
	"math/rand/v2"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stlalpha/tecnoter/internal/content"
	"github.com/stlalpha/tecnoter/internal/engine"
	"github.com/stlalpha/tecnoter/internal/logging"
	"github.com/stlalpha/tecnoter/internal/router"
	"github.com/stlalpha/tecnoter/internal/scrollback"
	"github.com/stlalpha/tecnoter/internal/session"
)

const (
	matrixLines    = 50
	matrixWidth    = 80
	matrixInterval = 50 * time.Millisecond
)

var errNoFetcher = errors.New("no content source configured")

type delayedMsg struct {
	gen  uint64
	kind router.EffectKind
}

type docMsg struct {
	epoch uint64
	slug  string
	post  bool
	doc   content.Document
	err   error
}

type curlMsg struct {
	epoch uint64
	url   string
	body  string
	err   error
}

type artMsg struct {
	epoch uint64
	name  string
	lines []string
	err   error
}

type matrixMsg struct {
	gen uint64
}

type quitMsg struct{}

// run turns Router effects into commands.
func (m *Model) run(effects []router.Effect) tea.Cmd {
	var cmds []tea.Cmd
	for _, e := range effects {
		if cmd := m.effect(e); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

func (m *Model) effect(e router.Effect) tea.Cmd {
	logging.Debug("Node %d: effect %s %q", m.Session().Node, e.Kind, e.Arg)
	switch e.Kind {
	case router.EffectFetchContent, router.EffectFetchPost:
		return m.fetchDocument(e.Arg, e.Kind == router.EffectFetchPost)

	case router.EffectCurl:
		return m.fetchRaw(e.Arg)

	case router.EffectAnsi:
		return m.fetchArt()

	case router.EffectMatrix:
		return m.startMatrix(e.Arg)

	case router.EffectLogout:
		m.stopMatrix()
		return m.run(m.r.Logout())

	case router.EffectExit:
		m.exiting = true
		m.r.Output().Append("Terminating session...", scrollback.KindRegular)
		return tea.Tick(exitDelay, func(time.Time) tea.Msg { return quitMsg{} })

	case router.EffectFinishLogin, router.EffectRestartLogin, router.EffectBoot, router.EffectPostList:
		kind := e.Kind
		return m.seq.After(e.Delay, func(gen uint64) tea.Msg {
			return delayedMsg{gen: gen, kind: kind}
		})
	}
	return nil
}

// delayed runs a timed continuation unless a newer sequence replaced it.
func (m *Model) delayed(msg delayedMsg) tea.Cmd {
	if !m.seq.Current(msg.gen) {
		logging.Debug("Node %d: dropping stale %s", m.Session().Node, msg.kind)
		return nil
	}
	s := m.Session()
	switch msg.kind {
	case router.EffectBoot:
		if s.Mode != session.ModeUninitialized && s.Mode != session.ModeBoot {
			return nil
		}
		if ready := m.r.ContentReady(); !isClosed(ready) {
			return m.awaitContent(ready, msg.gen)
		}
		lines := m.r.Boot()
		return m.seq.StartBoot(lines, s.DeepLink != "")

	case router.EffectFinishLogin:
		return m.run(m.r.FinishLogin())

	case router.EffectRestartLogin:
		if m.r.RestartLogin() {
			return m.seq.StartCountdown()
		}

	case router.EffectPostList:
		return m.run(m.r.ReturnToPostList())
	}
	return nil
}

// awaitContent holds the boot until the first content load has finished,
// then retries it in the same generation.
func (m *Model) awaitContent(ready <-chan struct{}, gen uint64) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case <-ready:
			return delayedMsg{gen: gen, kind: router.EffectBoot}
		case <-ctx.Done():
			return nil
		}
	}
}

func isClosed(c <-chan struct{}) bool {
	select {
	case <-c:
		return true
	default:
		return false
	}
}

func (m *Model) fetchDocument(slug string, post bool) tea.Cmd {
	epoch := m.r.Epoch()
	item, ok := m.r.LookupItem(slug)
	if !ok {
		err := content.ErrNotFound
		return func() tea.Msg { return docMsg{epoch: epoch, slug: slug, post: post, err: err} }
	}
	f, ctx, timeout := m.fetcher, m.ctx, m.timeout
	return func() tea.Msg {
		if f == nil {
			return docMsg{epoch: epoch, slug: slug, post: post, err: errNoFetcher}
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		doc, err := f.FetchDocument(ctx, item)
		if err != nil {
			log.Printf("ERROR: fetching %s: %v", slug, err)
		}
		return docMsg{epoch: epoch, slug: slug, post: post, doc: doc, err: err}
	}
}

func (m *Model) fetchRaw(url string) tea.Cmd {
	epoch := m.r.Epoch()
	f, ctx, timeout := m.fetcher, m.ctx, m.timeout
	return func() tea.Msg {
		if f == nil {
			return curlMsg{epoch: epoch, url: url, err: errNoFetcher}
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		body, err := f.FetchRaw(ctx, url)
		return curlMsg{epoch: epoch, url: url, body: body, err: err}
	}
}

func (m *Model) fetchArt() tea.Cmd {
	epoch := m.r.Epoch()
	art, ctx, timeout := m.art, m.ctx, m.timeout
	return func() tea.Msg {
		if art == nil {
			return artMsg{epoch: epoch, err: errors.New("no ansi art configured")}
		}
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		name, lines, err := art.Random(ctx)
		return artMsg{epoch: epoch, name: name, lines: lines, err: err}
	}
}

// startMatrix begins streaming random lines in the named charset.
func (m *Model) startMatrix(mode string) tea.Cmd {
	charset, ok := engine.MatrixCharsets[mode]
	if !ok {
		charset = engine.MatrixCharsets["binary"]
	}
	m.matrixGen++
	m.matrixEpoch = m.r.Epoch()
	m.matrixLeft = matrixLines
	m.matrixSet = charset
	return m.matrixTick()
}

func (m *Model) matrixTick() tea.Cmd {
	gen := m.matrixGen
	return tea.Tick(matrixInterval, func(time.Time) tea.Msg { return matrixMsg{gen: gen} })
}

func (m *Model) matrixStep(msg matrixMsg) tea.Cmd {
	if msg.gen != m.matrixGen || m.matrixLeft <= 0 {
		return nil
	}
	if !m.r.MatrixLine(m.matrixEpoch, matrixLine(m.matrixSet, min(matrixWidth, m.width))) {
		m.stopMatrix()
		return nil
	}
	m.matrixLeft--
	if m.matrixLeft == 0 {
		return nil
	}
	return m.matrixTick()
}

func (m *Model) stopMatrix() {
	m.matrixGen++
	m.matrixLeft = 0
}

func matrixLine(charset string, width int) string {
	chars := []rune(charset)
	if len(chars) == 0 {
		return ""
	}
	var b strings.Builder
	for range width {
		b.WriteRune(chars[rand.IntN(len(chars))])
	}
	return b.String()
}
