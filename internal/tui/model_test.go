package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/stlalpha/tecnoter/internal/boot"
	"github.com/stlalpha/tecnoter/internal/content"
	"github.com/stlalpha/tecnoter/internal/engine"
	"github.com/stlalpha/tecnoter/internal/history"
	"github.com/stlalpha/tecnoter/internal/router"
	"github.com/stlalpha/tecnoter/internal/scrollback"
	"github.com/stlalpha/tecnoter/internal/session"
)

type staticContent struct{ idx content.Index }

func (c staticContent) Snapshot() content.Index { return c.idx }
func (c staticContent) Loaded() bool            { return true }
func (c staticContent) LoadedAt() time.Time     { return time.Unix(1, 0) }
func (c staticContent) Err() error              { return nil }
func (c staticContent) Ready() <-chan struct{} {
	ready := make(chan struct{})
	close(ready)
	return ready
}

// loadingContent is an index whose first load has not finished yet.
type loadingContent struct {
	ready chan struct{}
	err   error
}

func (c *loadingContent) Snapshot() content.Index { return content.Index{} }
func (c *loadingContent) Loaded() bool            { return false }
func (c *loadingContent) LoadedAt() time.Time     { return time.Time{} }
func (c *loadingContent) Err() error              { return c.err }
func (c *loadingContent) Ready() <-chan struct{}  { return c.ready }

type fakeFetcher struct {
	raw string
}

func (f fakeFetcher) FetchDocument(_ context.Context, item content.Item) (content.Document, error) {
	return content.Document{Title: item.Title, Content: "Body of " + item.Slug}, nil
}

func (f fakeFetcher) FetchRaw(context.Context, string) (string, error) {
	return f.raw, nil
}

func testIndex() content.Index {
	var idx content.Index
	for i := 1; i <= 3; i++ {
		idx.Posts = append(idx.Posts, content.Item{
			Title: fmt.Sprintf("Log Entry %d", i),
			Slug:  fmt.Sprintf("log-%d", i),
			Date:  "2026-03-0" + fmt.Sprint(i),
		})
	}
	return idx
}

func newTestModel(t *testing.T, primary engine.Engine) Model {
	t.Helper()
	return newTestModelWith(t, primary, staticContent{idx: testIndex()})
}

func newTestModelWith(t *testing.T, primary engine.Engine, src router.ContentSource) Model {
	t.Helper()
	zones := zone.New()
	t.Cleanup(zones.Close)

	sess := session.New(session.Options{Node: 1})
	out := scrollback.NewBuffer(0, scrollback.NewStyles(nil), zones)
	r := router.New(sess, out, router.Options{
		Primary:  primary,
		Fallback: engine.NewOffline(engine.Env{}),
		Content:  src,
		History:  history.NewStore(t.TempDir(), 0),
	})
	return New(Options{
		Router:  r,
		Zones:   zones,
		Fetcher: fakeFetcher{raw: "hello from the uplink"},
		Width:   80,
		Height:  24,
	})
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// exec runs a command that completes without waiting on a timer.
func exec(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	return cmd()
}

func enter(t *testing.T, m Model, line string) (Model, tea.Cmd) {
	t.Helper()
	m.input.SetValue(line)
	return update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
}

func loggedIn(t *testing.T) Model {
	t.Helper()
	m := newTestModel(t, engine.NewBuiltin(engine.Env{}))
	m.r.Submit("")
	m.r.Boot()
	m.r.StartLogin()
	m, _ = enter(t, m, "guest")
	m, _ = update(t, m, delayedMsg{gen: m.seq.Gen(), kind: router.EffectFinishLogin})
	if m.Session().Mode != session.ModePrompt {
		t.Fatalf("mode = %v, want PROMPT", m.Session().Mode)
	}
	return m
}

func TestBootCountdownAndTypedLogin(t *testing.T) {
	m := newTestModel(t, engine.NewBuiltin(engine.Env{}))
	if !strings.Contains(m.View(), "Press any key to connect") {
		t.Fatalf("view = %q", m.View())
	}

	m, cmd := update(t, m, keyRunes("x"))
	m, cmd = update(t, m, exec(t, cmd))
	if m.Session().Mode != session.ModeBoot {
		t.Fatalf("mode = %v, want BOOT", m.Session().Mode)
	}
	first := exec(t, cmd).(boot.LineMsg)
	n := len(engine.BootLines())
	for i := 0; i < n; i++ {
		m, _ = update(t, m, boot.LineMsg{Gen: first.Gen, Index: i})
	}
	m, _ = update(t, m, boot.BootDoneMsg{Gen: first.Gen})
	if m.Session().Mode != session.ModeLogin {
		t.Fatalf("mode = %v, want LOGIN", m.Session().Mode)
	}
	view := m.View()
	for _, want := range []string{"Auto-login as 'guest' in 10s", "[Login Now]", "[Enter BBS]"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlG})
	if !m.seq.Typing() {
		t.Fatal("Ctrl+G did not start typing")
	}
	gen := m.seq.Gen()
	for range "guest" {
		m, _ = update(t, m, boot.TypeMsg{Gen: gen})
	}
	if m.seq.Typed() != "guest" {
		t.Fatalf("typed = %q", m.seq.Typed())
	}
	m, cmd = update(t, m, boot.SubmitMsg{Gen: gen, Text: "guest"})
	if m.Session().Mode != session.ModeAuthenticating {
		t.Fatalf("mode = %v, want AUTHENTICATING", m.Session().Mode)
	}
	if cmd == nil {
		t.Fatal("no finish-login command")
	}

	// A second submit for the same generation is dropped.
	m, _ = update(t, m, boot.SubmitMsg{Gen: gen, Text: "guest"})
	if got := strings.Count(m.r.Output().PlainText(), "ACCESS GRANTED"); got != 1 {
		t.Errorf("ACCESS GRANTED printed %d times", got)
	}

	m, _ = update(t, m, delayedMsg{gen: m.seq.Gen(), kind: router.EffectFinishLogin})
	if m.Session().Mode != session.ModePrompt {
		t.Fatalf("mode = %v, want PROMPT", m.Session().Mode)
	}
	if !strings.Contains(m.r.Output().PlainText(), "Authentication successful.") {
		t.Errorf("output = %q", m.r.Output().PlainText())
	}
}

func TestStaleContinuationDropped(t *testing.T) {
	m := newTestModel(t, engine.NewBuiltin(engine.Env{}))
	m.r.Submit("")
	m.r.Boot()
	m.r.StartLogin()
	m, _ = enter(t, m, "guest")
	m, _ = update(t, m, delayedMsg{gen: m.seq.Gen() - 1, kind: router.EffectFinishLogin})
	if m.Session().Mode != session.ModeAuthenticating {
		t.Errorf("stale message changed mode to %v", m.Session().Mode)
	}
}

func TestCountdownTickAfterManualLogin(t *testing.T) {
	m := newTestModel(t, engine.NewBuiltin(engine.Env{}))
	m.r.Submit("")
	m.r.Boot()
	m.r.StartLogin()
	m.seq.StartCountdown()
	tickGen := m.seq.Gen()

	m, _ = enter(t, m, "guest")
	if m.Session().Mode != session.ModeAuthenticating {
		t.Fatalf("mode = %v, want AUTHENTICATING", m.Session().Mode)
	}
	finishGen := m.seq.Gen()

	// The countdown tick already in flight lands during the grant delay.
	m, _ = update(t, m, boot.TickMsg{Gen: tickGen})
	if !m.seq.Current(finishGen) {
		t.Fatal("stale tick invalidated the pending login")
	}
	m, _ = update(t, m, delayedMsg{gen: finishGen, kind: router.EffectFinishLogin})
	if m.Session().Mode != session.ModePrompt {
		t.Errorf("mode = %v, want PROMPT", m.Session().Mode)
	}
}

func TestCountdownStopsOutsideLogin(t *testing.T) {
	m := loggedIn(t)
	m.seq.StartCountdown()
	gen := m.seq.Gen()
	m, _ = update(t, m, boot.TickMsg{Gen: gen})
	if m.seq.Counting() {
		t.Error("countdown still showing at the shell prompt")
	}
	if !m.seq.Current(gen) {
		t.Error("stopping the countdown changed the generation")
	}
}

func TestBootWaitsForContent(t *testing.T) {
	src := &loadingContent{ready: make(chan struct{})}
	m := newTestModelWith(t, engine.NewBuiltin(engine.Env{}), src)

	m, cmd := update(t, m, keyRunes("x"))
	m, cmd = update(t, m, exec(t, cmd))
	if m.Session().Mode != session.ModeUninitialized {
		t.Fatalf("mode = %v, boot started before content finished loading", m.Session().Mode)
	}
	if cmd == nil {
		t.Fatal("expected a command waiting for content")
	}

	got := make(chan tea.Msg, 1)
	go func() { got <- cmd() }()
	select {
	case msg := <-got:
		t.Fatalf("wait finished early with %T", msg)
	case <-time.After(50 * time.Millisecond):
	}

	src.err = errors.New("dial tcp: refused")
	close(src.ready)
	var msg tea.Msg
	select {
	case msg = <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("boot still waiting after content load failed")
	}

	m, cmd = update(t, m, msg)
	if m.Session().Mode != session.ModeBoot {
		t.Fatalf("mode = %v, want BOOT", m.Session().Mode)
	}
	m, _ = update(t, m, exec(t, cmd))
	if !strings.Contains(m.r.Output().PlainText(), "Error loading system core.") {
		t.Errorf("output = %q", m.r.Output().PlainText())
	}
}

func TestPauseTakesNamedKeys(t *testing.T) {
	for _, key := range []tea.KeyType{tea.KeyUp, tea.KeyDown, tea.KeyEsc, tea.KeyEnter, tea.KeyCtrlL} {
		t.Run(key.String(), func(t *testing.T) {
			m := loggedIn(t)
			m, _ = enter(t, m, "bbs")
			s := m.Session()
			s.Mode = session.ModeBbsPause
			s.ReturnState = session.ModeBbsMain

			m, _ = update(t, m, tea.KeyMsg{Type: key})
			if m.Session().Mode != session.ModeBbsMain {
				t.Errorf("mode = %v, want BBS_MAIN", m.Session().Mode)
			}
		})
	}
}

func TestFetchAfterLogoutDropped(t *testing.T) {
	m := loggedIn(t)
	m, cmd := enter(t, m, "cat log-1")
	msg := exec(t, cmd)
	m.r.Logout()
	m, _ = update(t, m, msg)
	if strings.Contains(m.r.Output().PlainText(), "Body of log-1") {
		t.Errorf("document printed after logout: %q", m.r.Output().PlainText())
	}
}

func TestEnterRunsCommand(t *testing.T) {
	m := loggedIn(t)
	m, _ = enter(t, m, "ping")
	if !strings.Contains(m.r.Output().PlainText(), "PONG") {
		t.Errorf("output = %q", m.r.Output().PlainText())
	}
	if m.input.Value() != "" {
		t.Errorf("input not cleared: %q", m.input.Value())
	}
}

func TestCurlEffect(t *testing.T) {
	m := loggedIn(t)
	m, cmd := enter(t, m, "curl https://example.com/x")
	m, _ = update(t, m, exec(t, cmd))
	if !strings.Contains(m.r.Output().PlainText(), "hello from the uplink") {
		t.Errorf("output = %q", m.r.Output().PlainText())
	}
}

func TestMatrixStreamsUntilKey(t *testing.T) {
	m := loggedIn(t)
	m, _ = enter(t, m, "matrix hex")
	if m.matrixLeft != matrixLines {
		t.Fatalf("matrixLeft = %d", m.matrixLeft)
	}
	gen := m.matrixGen
	m, cmd := update(t, m, matrixMsg{gen: gen})
	if cmd == nil || m.matrixLeft != matrixLines-1 {
		t.Fatalf("step: left = %d", m.matrixLeft)
	}
	lines := m.r.Output().Lines()
	last := lines[len(lines)-1]
	if last.Kind != scrollback.KindMatrix || len(last.Text) != matrixWidth {
		t.Errorf("matrix line = %+v", last)
	}
	if strings.Trim(last.Text, "0123456789ABCDEF") != "" {
		t.Errorf("matrix line outside hex charset: %q", last.Text)
	}

	m, _ = update(t, m, keyRunes("z"))
	if m.matrixLeft != 0 {
		t.Fatal("key did not stop the matrix")
	}
	before := m.r.Output().Len()
	m, _ = update(t, m, matrixMsg{gen: gen})
	if m.r.Output().Len() != before {
		t.Error("stale matrix tick appended a line")
	}
	if m.input.Value() != "" {
		t.Errorf("stopping key leaked into input: %q", m.input.Value())
	}
}

func TestHubOpensPost(t *testing.T) {
	m := loggedIn(t)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyF2})
	if m.Session().SystemMode != session.SystemHub {
		t.Fatal("F2 did not switch to hub")
	}
	view := m.View()
	if !strings.Contains(view, "LATEST LOGS / POSTS") || !strings.Contains(view, "Log Entry 2") {
		t.Fatalf("hub view = %q", view)
	}

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	s := m.Session()
	if s.SystemMode != session.SystemTerminal || s.Mode != session.ModeBbsRead || s.CurrentPostIndex != 1 {
		t.Fatalf("after open: system=%v mode=%v idx=%d", s.SystemMode, s.Mode, s.CurrentPostIndex)
	}
	m, _ = update(t, m, exec(t, cmd))
	if m.Session().Mode != session.ModeBbsPause {
		t.Errorf("mode = %v, want BBS_PAUSE", m.Session().Mode)
	}
	if !strings.Contains(m.r.Output().PlainText(), "Body of log-2") {
		t.Errorf("output = %q", m.r.Output().PlainText())
	}
}

func TestOfflineLamp(t *testing.T) {
	online := newTestModel(t, engine.NewBuiltin(engine.Env{}))
	if !strings.Contains(online.View(), "UPLINK: ONLINE") {
		t.Errorf("online view = %q", online.View())
	}
	offline := newTestModel(t, nil)
	if !strings.Contains(offline.View(), "UPLINK: OFFLINE") {
		t.Errorf("offline view = %q", offline.View())
	}
}

func TestExitQuitsAfterMessage(t *testing.T) {
	m := loggedIn(t)
	m, cmd := enter(t, m, "exit")
	if !m.exiting || cmd == nil {
		t.Fatal("exit did not schedule a quit")
	}
	if !strings.Contains(m.r.Output().PlainText(), "Terminating session...") {
		t.Errorf("output = %q", m.r.Output().PlainText())
	}
	_, cmd = update(t, m, quitMsg{})
	if _, ok := exec(t, cmd).(tea.QuitMsg); !ok {
		t.Error("quitMsg did not quit")
	}
}

func TestLineEditingKeys(t *testing.T) {
	m := loggedIn(t)
	tests := []struct {
		name  string
		input string
		key   tea.KeyType
		want  string
	}{
		{"ctrl-w drops last word", "cat pages/bio", tea.KeyCtrlW, "cat "},
		{"ctrl-w eats trailing space", "ls -l  ", tea.KeyCtrlW, "ls "},
		{"ctrl-u clears", "fortune", tea.KeyCtrlU, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m.input.SetValue(tt.input)
			m.input.CursorEnd()
			next, _ := update(t, m, tea.KeyMsg{Type: tt.key})
			if got := next.input.Value(); got != tt.want {
				t.Errorf("input = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCtrlCEchoesInterrupt(t *testing.T) {
	m := loggedIn(t)
	m.input.SetValue("rm -rf")
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	if !strings.Contains(m.r.Output().PlainText(), "rm -rf^C") {
		t.Errorf("output = %q", m.r.Output().PlainText())
	}
	if m.input.Value() != "" {
		t.Errorf("input = %q", m.input.Value())
	}
}
