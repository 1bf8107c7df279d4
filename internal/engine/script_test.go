package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stlalpha/tecnoter/internal/scrollback"
	"github.com/stlalpha/tecnoter/internal/session"
)

const echoScript = `
function process(state, input) {
	if (input === "hello") {
		return {handled: true, lines: [{text: "hi " + state.currentUser, type: "bbs-title"}, "plain"]};
	}
	if (input === "count") {
		return {handled: true, lines: ["posts=" + state.posts.length + " first=" + state.posts[0].slug]};
	}
	if (input === "go") {
		return {handled: true, lines: [], state: {loginState: "BBS_MAIN", cwd: "/posts", currentPostIndex: 2}};
	}
	if (input === "hub") {
		return {handled: true, patch: {systemMode: "hub", isAuthenticated: true}};
	}
	if (input === "boom") {
		throw new Error("kaboom");
	}
	if (input === "spin") {
		for (;;) {}
	}
	if (input === "bad") {
		return {handled: true, lines: 7};
	}
	return {handled: false};
}
`

func TestScriptHandlesInput(t *testing.T) {
	s, err := NewScript("echo.js", echoScript)
	require.NoError(t, err)

	sess := newTestSession(session.ModePrompt)
	out, err := s.Process(sess.Snapshot(), "hello")
	require.NoError(t, err)
	require.True(t, out.Handled)
	require.Len(t, out.Lines, 2)
	assert.Equal(t, "hi guest", out.Lines[0].Text)
	assert.Equal(t, scrollback.KindTitle, out.Lines[0].Kind)
	assert.Equal(t, scrollback.KindRegular, out.Lines[1].Kind)

	out, err = s.Process(sess.Snapshot(), "count")
	require.NoError(t, err)
	assert.Equal(t, "posts=5 first=post-1", out.Lines[0].Text)
}

func TestScriptPatch(t *testing.T) {
	s, err := NewScript("echo.js", echoScript)
	require.NoError(t, err)

	sess := newTestSession(session.ModePrompt)
	out, err := s.Process(sess.Snapshot(), "go")
	require.NoError(t, err)
	sess.Apply(out.Patch)
	assert.Equal(t, session.ModeBbsMain, sess.Mode)
	assert.Equal(t, "/posts", sess.Cwd)
	assert.Equal(t, 2, sess.CurrentPostIndex)

	out, err = s.Process(sess.Snapshot(), "hub")
	require.NoError(t, err)
	sess.Apply(out.Patch)
	assert.Equal(t, session.SystemHub, sess.SystemMode)
}

func TestScriptDeclines(t *testing.T) {
	s, err := NewScript("echo.js", echoScript)
	require.NoError(t, err)

	out, err := s.Process(newTestSession(session.ModePrompt).Snapshot(), "whatever")
	require.NoError(t, err)
	assert.False(t, out.Handled)
	assert.True(t, out.Patch.Empty())
}

func TestScriptErrorsAreRecovered(t *testing.T) {
	s, err := NewScript("echo.js", echoScript)
	require.NoError(t, err)
	snap := newTestSession(session.ModePrompt).Snapshot()

	_, err = s.Process(snap, "boom")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	_, err = s.Process(snap, "bad")
	require.Error(t, err)

	_, err = s.Process(snap, "spin")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")

	// The runtime is still usable after a failure.
	out, err := s.Process(snap, "hello")
	require.NoError(t, err)
	assert.True(t, out.Handled)
}

func TestLoadScriptUnavailable(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadScript(filepath.Join(dir, "missing.js"))
	assert.ErrorIs(t, err, ErrEngineUnavailable)

	broken := filepath.Join(dir, "broken.js")
	require.NoError(t, os.WriteFile(broken, []byte("function process(state, input) {"), 0644))
	_, err = LoadScript(broken)
	assert.ErrorIs(t, err, ErrEngineUnavailable)

	noFn := filepath.Join(dir, "nofn.js")
	require.NoError(t, os.WriteFile(noFn, []byte("var process = 3;"), 0644))
	_, err = LoadScript(noFn)
	assert.ErrorIs(t, err, ErrEngineUnavailable)

	good := filepath.Join(dir, "good.js")
	require.NoError(t, os.WriteFile(good, []byte(echoScript), 0644))
	s, err := LoadScript(good)
	require.NoError(t, err)
	assert.Equal(t, "script", s.Name())
}
