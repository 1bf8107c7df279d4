package router

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stlalpha/tecnoter/internal/content"
	"github.com/stlalpha/tecnoter/internal/engine"
	"github.com/stlalpha/tecnoter/internal/history"
	"github.com/stlalpha/tecnoter/internal/scrollback"
	"github.com/stlalpha/tecnoter/internal/session"
)

type fakeContent struct {
	idx content.Index
	at  time.Time
	err error
}

func (f *fakeContent) Snapshot() content.Index { return f.idx }
func (f *fakeContent) Loaded() bool            { return f.err == nil }
func (f *fakeContent) LoadedAt() time.Time     { return f.at }
func (f *fakeContent) Err() error              { return f.err }
func (f *fakeContent) Ready() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

type fakeEngine struct {
	fn    func(session.Snapshot, string) (engine.Outcome, error)
	calls int
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Process(snap session.Snapshot, line string) (engine.Outcome, error) {
	f.calls++
	return f.fn(snap, line)
}

func testContent() *fakeContent {
	idx := content.Index{
		Pages: []content.Item{{Title: "Bio", Slug: "bio"}},
	}
	for i := 1; i <= 5; i++ {
		idx.Posts = append(idx.Posts, content.Item{
			Title: fmt.Sprintf("Post %d", i),
			Slug:  fmt.Sprintf("post-%d", i),
			Date:  "2026-01-01",
		})
	}
	return &fakeContent{idx: idx, at: time.Unix(1, 0)}
}

func newTestRouter(t *testing.T, primary engine.Engine) *Router {
	t.Helper()
	sess := session.New(session.Options{Node: 1})
	out := scrollback.NewBuffer(0, scrollback.NewStyles(nil), nil)
	return New(sess, out, Options{
		Primary:  primary,
		Fallback: engine.NewOffline(engine.Env{}),
		Content:  testContent(),
		History:  history.NewStore(t.TempDir(), 0),
	})
}

func builtinRouter(t *testing.T) *Router {
	return newTestRouter(t, engine.NewBuiltin(engine.Env{}))
}

func hasEffect(effects []Effect, kind EffectKind) bool {
	for _, e := range effects {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

func loginAs(t *testing.T, r *Router, user string) {
	t.Helper()
	r.Boot()
	r.StartLogin()
	effects := r.Submit(user)
	if !hasEffect(effects, EffectFinishLogin) {
		t.Fatalf("login %q: effects %v", user, effects)
	}
	r.FinishLogin()
}

func TestGuestLogin(t *testing.T) {
	r := builtinRouter(t)
	if effects := r.Submit("x"); !hasEffect(effects, EffectBoot) {
		t.Fatalf("first key effects = %v, want boot", effects)
	}
	lines := r.Boot()
	if len(lines) != len(engine.BootLines()) {
		t.Errorf("boot lines = %d", len(lines))
	}
	r.StartLogin()
	if r.Session().Mode != session.ModeLogin {
		t.Fatalf("mode = %v", r.Session().Mode)
	}

	effects := r.Submit("guest")
	if len(effects) != 1 || effects[0].Kind != EffectFinishLogin || effects[0].Delay != GrantDelay {
		t.Fatalf("effects = %+v", effects)
	}
	if !strings.Contains(r.Output().PlainText(), "--- ACCESS GRANTED ---") {
		t.Errorf("missing banner: %q", r.Output().PlainText())
	}
	r.FinishLogin()
	if r.Session().Mode != session.ModePrompt {
		t.Errorf("mode = %v, want PROMPT", r.Session().Mode)
	}
	text := r.Output().PlainText()
	if !strings.Contains(text, "Authentication successful.") || !strings.Contains(text, "Welcome to tecnoter.io BBS, guest!") {
		t.Errorf("output = %q", text)
	}
	if len(r.Session().History) != len(history.DefaultHistory) {
		t.Errorf("history not seeded: %v", r.Session().History)
	}

	// A stale continuation is ignored.
	if effects := r.FinishLogin(); effects != nil {
		t.Errorf("second finish = %v", effects)
	}
}

func TestInvalidLoginRestarts(t *testing.T) {
	r := builtinRouter(t)
	r.Boot()
	r.StartLogin()
	effects := r.Submit("eve")
	if len(effects) != 1 || effects[0].Kind != EffectRestartLogin || effects[0].Delay != RetryDelay {
		t.Fatalf("effects = %+v", effects)
	}
	if !strings.Contains(r.Output().PlainText(), "Login incorrect.") {
		t.Errorf("output = %q", r.Output().PlainText())
	}
	if !r.RestartLogin() {
		t.Error("restart refused at login prompt")
	}
}

func TestAdminPassword(t *testing.T) {
	r := builtinRouter(t)
	r.Boot()
	r.StartLogin()
	r.Submit("admin")
	if r.Session().Mode != session.ModePassword {
		t.Fatalf("mode = %v", r.Session().Mode)
	}
	r.Submit("secret")
	if r.Session().Mode != session.ModePrompt {
		t.Errorf("mode = %v", r.Session().Mode)
	}
	if strings.Contains(r.Output().PlainText(), "secret") {
		t.Error("password echoed")
	}
}

func TestBbsUserLandsInMenuAndQuitLogsOut(t *testing.T) {
	r := builtinRouter(t)
	loginAs(t, r, "bbs")
	if r.Session().Mode != session.ModeBbsMain {
		t.Fatalf("mode = %v, want BBS_MAIN", r.Session().Mode)
	}
	effects := r.Submit("q")
	if !hasEffect(effects, EffectLogout) {
		t.Errorf("effects = %v, want logout", effects)
	}

	effects = r.Logout()
	if r.Session().Mode != session.ModeBoot || r.Session().CurrentUser != "guest" {
		t.Errorf("after logout mode=%v user=%q", r.Session().Mode, r.Session().CurrentUser)
	}
	if len(effects) != 1 || effects[0].Kind != EffectBoot || effects[0].Delay != RebootDelay {
		t.Errorf("logout effects = %+v", effects)
	}
}

func TestGuestQuitReturnsToShell(t *testing.T) {
	r := builtinRouter(t)
	loginAs(t, r, "guest")
	r.Submit("bbs")
	effects, ok := r.Keypress("q", true)
	if !ok || hasEffect(effects, EffectLogout) {
		t.Fatalf("keypress q: ok=%v effects=%v", ok, effects)
	}
	if r.Session().Mode != session.ModePrompt {
		t.Errorf("mode = %v, want PROMPT", r.Session().Mode)
	}
}

func TestSelectThirdPost(t *testing.T) {
	r := builtinRouter(t)
	loginAs(t, r, "guest")
	r.Submit("bbs r")
	if r.Session().Mode != session.ModeBbsPosts {
		t.Fatalf("mode = %v", r.Session().Mode)
	}
	effects := r.Submit("3")
	if r.Session().Mode != session.ModeBbsRead || r.Session().CurrentPostIndex != 2 {
		t.Fatalf("mode=%v index=%d", r.Session().Mode, r.Session().CurrentPostIndex)
	}
	if len(effects) != 1 || effects[0].Kind != EffectFetchPost || effects[0].Arg != "post-3" {
		t.Fatalf("effects = %+v", effects)
	}

	// A result for another post is stale.
	r.PostLoaded(r.Epoch(), "post-1", content.Document{Title: "Post 1", Content: "x"}, nil)
	if r.Session().Mode != session.ModeBbsRead {
		t.Fatalf("stale result changed mode to %v", r.Session().Mode)
	}

	r.PostLoaded(r.Epoch(), "post-3", content.Document{Title: "Post 3", Content: "Body text."}, nil)
	if r.Session().Mode != session.ModeBbsPause || r.Session().ReturnState != session.ModeBbsPosts {
		t.Errorf("mode=%v return=%v", r.Session().Mode, r.Session().ReturnState)
	}
	if !strings.Contains(r.Output().PlainText(), "READING: POST 3") {
		t.Errorf("reader missing: %q", r.Output().PlainText())
	}

	r.Keypress("z", true)
	if r.Session().Mode != session.ModeBbsPosts {
		t.Errorf("after pause mode = %v, want BBS_POSTS", r.Session().Mode)
	}
}

func TestPostLoadError(t *testing.T) {
	r := builtinRouter(t)
	loginAs(t, r, "guest")
	r.Submit("bbs r")
	r.Submit("1")
	effects := r.PostLoaded(r.Epoch(), "post-1", content.Document{}, errors.New("boom"))
	if len(effects) != 1 || effects[0].Kind != EffectPostList || effects[0].Delay != ReadErrDelay {
		t.Fatalf("effects = %+v", effects)
	}
	if !strings.Contains(r.Output().PlainText(), "Error loading content: boom") {
		t.Errorf("output = %q", r.Output().PlainText())
	}
	r.ReturnToPostList()
	if r.Session().Mode != session.ModeBbsPosts {
		t.Errorf("mode = %v", r.Session().Mode)
	}
}

func TestCommandNotFound(t *testing.T) {
	r := builtinRouter(t)
	loginAs(t, r, "guest")
	r.Submit("frobnicate")
	if !strings.Contains(r.Output().PlainText(), "command not found: frobnicate") {
		t.Errorf("output = %q", r.Output().PlainText())
	}
	if r.Session().Mode != session.ModePrompt {
		t.Errorf("mode = %v", r.Session().Mode)
	}
}

func TestFailingPrimaryFallsBack(t *testing.T) {
	primary := &fakeEngine{fn: func(snap session.Snapshot, line string) (engine.Outcome, error) {
		if strings.HasPrefix(line, "_") || snap.Mode == session.ModeLogin {
			return engine.NewBuiltin(engine.Env{}).Process(snap, line)
		}
		return engine.Outcome{}, errors.New("ReferenceError: x is not defined")
	}}
	r := newTestRouter(t, primary)
	loginAs(t, r, "guest")

	r.Submit("bbs")
	text := r.Output().PlainText()
	if !strings.Contains(text, "engine error: ReferenceError") {
		t.Errorf("missing error line: %q", text)
	}
	if r.Session().Mode != session.ModeBbsMain {
		t.Errorf("fallback did not open the BBS: mode %v", r.Session().Mode)
	}
	if r.Offline() {
		t.Error("a throwing script is not an offline engine")
	}
}

func TestUnavailablePrimaryGoesOffline(t *testing.T) {
	primary := &fakeEngine{fn: func(session.Snapshot, string) (engine.Outcome, error) {
		return engine.Outcome{}, engine.ErrEngineUnavailable
	}}
	r := newTestRouter(t, primary)
	loginAs(t, r, "guest")
	if !r.Offline() {
		t.Error("router not offline")
	}
	r.Submit("ls")
	if !strings.Contains(r.Output().PlainText(), "command not found: ls") {
		t.Errorf("output = %q", r.Output().PlainText())
	}

	noPrimary := newTestRouter(t, nil)
	if !noPrimary.Offline() {
		t.Error("router without primary not offline")
	}
}

func TestShellEffects(t *testing.T) {
	tests := []struct {
		line string
		kind EffectKind
		arg  string
	}{
		{"cat bio", EffectFetchContent, "bio"},
		{"curl https://example.com", EffectCurl, "https://example.com"},
		{"matrix hex", EffectMatrix, "hex"},
		{"ansi", EffectAnsi, ""},
		{"exit", EffectExit, ""},
		{"logout", EffectLogout, ""},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			r := builtinRouter(t)
			loginAs(t, r, "guest")
			effects := r.Submit(tt.line)
			if len(effects) != 1 || effects[0].Kind != tt.kind || effects[0].Arg != tt.arg {
				t.Errorf("effects = %+v, want %v %q", effects, tt.kind, tt.arg)
			}
		})
	}
}

func TestCurlTruncates(t *testing.T) {
	r := builtinRouter(t)
	loginAs(t, r, "guest")
	r.CurlLoaded(r.Epoch(), "u", strings.Repeat("a", CurlLimit+10), nil)
	text := r.Output().PlainText()
	if !strings.HasSuffix(text, "... [TRUNCATED]") {
		t.Errorf("output tail = %q", text[len(text)-30:])
	}
	if strings.Count(text, "a") != CurlLimit {
		t.Errorf("kept %d chars", strings.Count(text, "a"))
	}

	r.CurlLoaded(r.Epoch(), "u", "", &content.StatusError{URL: "u", Status: 404})
	if !strings.Contains(r.Output().PlainText(), "curl: error 404") {
		t.Errorf("output = %q", r.Output().PlainText())
	}
}

func TestCompleteListsOnSecondTab(t *testing.T) {
	r := builtinRouter(t)
	loginAs(t, r, "guest")
	r.Submit("cd posts")

	line := r.Complete("cat p")
	if line != "cat post-" {
		t.Fatalf("first tab = %q", line)
	}
	if got := r.Complete(line); got != line {
		t.Errorf("second tab = %q", got)
	}
	if !strings.Contains(r.Output().PlainText(), "post-1  post-2  post-3  post-4  post-5") {
		t.Errorf("no listing: %q", r.Output().PlainText())
	}
}

func TestHistoryRecall(t *testing.T) {
	r := builtinRouter(t)
	loginAs(t, r, "guest")
	r.Submit("ping")
	if got := r.HistoryPrev(""); got != "ping" {
		t.Errorf("prev = %q", got)
	}
	if got := r.HistoryNext("ping"); got != "" {
		t.Errorf("next past newest = %q", got)
	}
	h := r.Session().History
	if idx := r.Session().HistoryIndex; idx < -1 || idx > len(h) {
		t.Errorf("history index %d out of range", idx)
	}
}

func TestEscapeAndInterrupt(t *testing.T) {
	r := builtinRouter(t)
	loginAs(t, r, "guest")
	r.Submit("mail sysop")
	r.Escape()
	if r.Session().Mode != session.ModePrompt || r.Session().MailRecipient != "" {
		t.Errorf("mode=%v rcpt=%q", r.Session().Mode, r.Session().MailRecipient)
	}

	r.Interrupt("half typed")
	if !strings.Contains(r.Output().PlainText(), "half typed^C") {
		t.Errorf("output = %q", r.Output().PlainText())
	}

	r.Submit("bbs")
	r.Escape()
	if r.Session().Mode != session.ModePrompt {
		t.Errorf("escape in bbs: mode = %v", r.Session().Mode)
	}
}

func TestOpenURLPrintsHyperlink(t *testing.T) {
	r := builtinRouter(t)
	loginAs(t, r, "guest")
	r.Session().Socials = []content.Social{{Name: "Web", URL: "https://tecnoter.io"}}
	r.Submit("social web")
	if !strings.Contains(r.Output().PlainText(), "-> https://tecnoter.io") {
		t.Errorf("output = %q", r.Output().PlainText())
	}
}

func TestHubOpenPost(t *testing.T) {
	r := builtinRouter(t)
	if effects := r.OpenPost(0); effects != nil {
		t.Errorf("open before login = %v", effects)
	}
	loginAs(t, r, "guest")
	r.ToggleSystemMode()
	if r.Session().SystemMode != session.SystemHub {
		t.Fatalf("system mode = %v", r.Session().SystemMode)
	}
	effects := r.OpenPost(1)
	if len(effects) != 1 || effects[0].Arg != "post-2" {
		t.Fatalf("effects = %+v", effects)
	}
	if r.Session().SystemMode != session.SystemTerminal || r.Session().Mode != session.ModeBbsRead {
		t.Errorf("system=%v mode=%v", r.Session().SystemMode, r.Session().Mode)
	}
}

func TestBootReportsContentFailure(t *testing.T) {
	sess := session.New(session.Options{Node: 2})
	out := scrollback.NewBuffer(0, scrollback.NewStyles(nil), nil)
	r := New(sess, out, Options{
		Primary: engine.NewBuiltin(engine.Env{}),
		Content: &fakeContent{err: errors.New("dial tcp: refused")},
	})
	lines := r.Boot()
	if len(lines) == 0 || lines[0].Text != "Error loading system core." {
		t.Errorf("first boot line = %+v", lines[0])
	}
}

func TestResultsFromEarlierLoginDropped(t *testing.T) {
	r := builtinRouter(t)
	loginAs(t, r, "guest")
	epoch := r.Epoch()
	if effects := r.Submit("cat bio"); !hasEffect(effects, EffectFetchContent) {
		t.Fatalf("cat effects = %+v", effects)
	}

	r.Logout()
	r.ContentLoaded(epoch, "bio", content.Document{Title: "Bio", Content: "SECRET BODY"}, nil)
	r.CurlLoaded(epoch, "u", "CURL BODY", nil)
	r.AnsiLoaded(epoch, "art.ans", []string{"ART BODY"}, nil)
	if r.MatrixLine(epoch, "MATRIX BODY") {
		t.Error("matrix line from before logout was printed")
	}
	text := r.Output().PlainText()
	for _, body := range []string{"SECRET BODY", "CURL BODY", "ART BODY", "MATRIX BODY"} {
		if strings.Contains(text, body) {
			t.Errorf("stale %q printed after logout: %q", body, text)
		}
	}
	if r.Session().Mode != session.ModeBoot {
		t.Errorf("mode = %v, want BOOT", r.Session().Mode)
	}

	// Logging in again starts a new epoch; the old result stays dropped.
	loginAs(t, r, "guest")
	r.ContentLoaded(epoch, "bio", content.Document{Title: "Bio", Content: "SECRET BODY"}, nil)
	if strings.Contains(r.Output().PlainText(), "SECRET BODY") {
		t.Error("result from the previous login printed after re-login")
	}

	r.ContentLoaded(r.Epoch(), "bio", content.Document{Title: "Bio", Content: "FRESH BODY"}, nil)
	if !strings.Contains(r.Output().PlainText(), "FRESH BODY") {
		t.Errorf("current result missing: %q", r.Output().PlainText())
	}
}

func TestPostResultAfterLogoutDropped(t *testing.T) {
	r := builtinRouter(t)
	loginAs(t, r, "guest")
	r.Submit("bbs r")
	r.Submit("2")
	epoch := r.Epoch()
	r.Logout()
	loginAs(t, r, "guest")
	r.Submit("bbs r")
	r.Submit("2")

	if effects := r.PostLoaded(epoch, "post-2", content.Document{Title: "Post 2", Content: "old"}, nil); effects != nil {
		t.Errorf("effects = %+v", effects)
	}
	if r.Session().Mode != session.ModeBbsRead {
		t.Errorf("stale post result changed mode to %v", r.Session().Mode)
	}
}
