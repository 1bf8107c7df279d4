// Package engine interprets command lines for a session. An Engine sees
// an immutable snapshot of the session and answers with output lines and
// a patch; it never mutates the session itself.
package engine

import (
	"errors"

	"github.com/stlalpha/tecnoter/internal/config"
	"github.com/stlalpha/tecnoter/internal/content"
	"github.com/stlalpha/tecnoter/internal/scrollback"
	"github.com/stlalpha/tecnoter/internal/session"
)

// ErrEngineUnavailable is returned by an engine that cannot serve input
// at all, for example a script that failed to load.
var ErrEngineUnavailable = errors.New("command engine unavailable")

// Directives carried by internal instruction lines.
const (
	InstrOpenURL      = "_OPEN_URL_"
	InstrMatrix       = "_MATRIX_"
	InstrFetchContent = "_FETCH_CONTENT_"
	InstrFetchPost    = "_FETCH_POST_"
	InstrCurl         = "_CURL_"
	InstrLogout       = "_LOGOUT"
	InstrMatrixPlain  = "matrix"
	InstrAnsi         = "ansi"
	InstrExit         = "exit"
)

// Outcome is an engine's answer to one line of input. Handled false means
// the engine declined and the caller should try something else.
type Outcome struct {
	Handled bool
	Lines   []scrollback.Line
	Patch   session.Patch
}

// Engine processes one line of input against a session snapshot.
type Engine interface {
	Name() string
	Process(snap session.Snapshot, line string) (Outcome, error)
}

// Env gives an engine read access to node-wide state. Nil funcs fall
// back to defaults.
type Env struct {
	Board func() config.BoardConfig
	Nodes func() []session.NodeInfo
	Host  func() content.HostStats
}

func (e Env) board() config.BoardConfig {
	if e.Board == nil {
		return config.DefaultBoardConfig()
	}
	return e.Board()
}

func (e Env) nodes() []session.NodeInfo {
	if e.Nodes == nil {
		return nil
	}
	return e.Nodes()
}

func (e Env) host() content.HostStats {
	if e.Host == nil {
		return content.HostStats{}
	}
	return e.Host()
}

func handled(lines ...scrollback.Line) Outcome {
	return Outcome{Handled: true, Lines: lines}
}

func declined() Outcome {
	return Outcome{}
}

func (o Outcome) with(p session.Patch) Outcome {
	o.Patch = o.Patch.Merge(p)
	return o
}
