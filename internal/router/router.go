// Package router feeds a node's input through its command engines. It
// owns the Session for the length of a call, applies engine patches,
// prints output to the scrollback and hands asynchronous work back to
// the caller as Effects.
package router

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/stlalpha/tecnoter/internal/ansi"
	"github.com/stlalpha/tecnoter/internal/content"
	"github.com/stlalpha/tecnoter/internal/engine"
	"github.com/stlalpha/tecnoter/internal/history"
	"github.com/stlalpha/tecnoter/internal/logging"
	"github.com/stlalpha/tecnoter/internal/scrollback"
	"github.com/stlalpha/tecnoter/internal/session"
)

// ContentSource is the node-wide content index.
type ContentSource interface {
	Snapshot() content.Index
	Loaded() bool
	LoadedAt() time.Time
	Err() error
	// Ready is closed once the first load has succeeded or failed.
	Ready() <-chan struct{}
}

// Options configure a Router. Primary may be nil when no engine could be
// loaded; Fallback then serves everything.
type Options struct {
	Primary  engine.Engine
	Fallback engine.Engine
	Content  ContentSource
	History  *history.Store
	// OnChange is called after every mutation of the session.
	OnChange func(*session.Session)
}

// Router is not safe for concurrent use; it belongs to one program loop.
type Router struct {
	sess *session.Session
	out  *scrollback.Buffer
	opts Options

	contentAt time.Time
	degraded  bool
	// epoch counts logins and logouts; async results carry the epoch
	// they were started in.
	epoch uint64
}

func New(sess *session.Session, out *scrollback.Buffer, opts Options) *Router {
	r := &Router{sess: sess, out: out, opts: opts}
	r.syncContent()
	return r
}

// Session returns the routed session.
func (r *Router) Session() *session.Session { return r.sess }

// Output returns the scrollback the Router prints to.
func (r *Router) Output() *scrollback.Buffer { return r.out }

// Epoch identifies the current login. It changes on every login and
// logout.
func (r *Router) Epoch() uint64 { return r.epoch }

// current reports whether a result started in epoch may still print.
func (r *Router) current(epoch uint64) bool {
	return epoch == r.epoch && r.sess.Authenticated
}

var closedReady = func() chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}()

// ContentReady is closed once the content index has finished its first
// load, successfully or not.
func (r *Router) ContentReady() <-chan struct{} {
	if r.opts.Content == nil {
		return closedReady
	}
	return r.opts.Content.Ready()
}

// Offline reports whether input is being served by the fallback engine.
func (r *Router) Offline() bool {
	return r.opts.Primary == nil || r.degraded
}

func (r *Router) syncContent() {
	src := r.opts.Content
	if src == nil || !src.Loaded() {
		return
	}
	if at := src.LoadedAt(); !at.Equal(r.contentAt) {
		r.sess.SetContent(src.Snapshot())
		r.contentAt = at
	}
}

func (r *Router) changed() {
	if r.opts.OnChange != nil {
		r.opts.OnChange(r.sess)
	}
}

func (r *Router) print(text string) {
	r.out.Append(text, scrollback.KindRegular)
}

func (r *Router) printError(text string) {
	r.out.Append(text, scrollback.KindError)
}

// process offers line to the primary engine, then to the fallback. An
// erroring primary prints one error line and counts as a decline.
func (r *Router) process(line string) engine.Outcome {
	r.syncContent()
	snap := r.sess.Snapshot()

	if p := r.opts.Primary; p != nil {
		out, err := p.Process(snap, line)
		switch {
		case err == nil:
			r.degraded = false
			if out.Handled {
				return out
			}
		case errors.Is(err, engine.ErrEngineUnavailable):
			r.degraded = true
			log.Printf("WARN: Node %d: %s engine unavailable: %v", r.sess.Node, p.Name(), err)
		default:
			log.Printf("ERROR: Node %d: %s engine failed on %q: %v", r.sess.Node, p.Name(), line, err)
			r.printError("engine error: " + ansi.EscapePipes(err.Error()))
		}
	}
	if f := r.opts.Fallback; f != nil {
		out, err := f.Process(snap, line)
		if err != nil {
			log.Printf("ERROR: Node %d: %s engine failed on %q: %v", r.sess.Node, f.Name(), line, err)
			return engine.Outcome{}
		}
		return out
	}
	return engine.Outcome{}
}

// Dispatch runs line through the engines and applies the outcome. Input
// no engine handles is reported as "command not found".
func (r *Router) Dispatch(line string) []Effect {
	out := r.process(line)
	if !out.Handled {
		word := ""
		if f := strings.Fields(line); len(f) > 0 {
			word = f[0]
		}
		if word != "" && !strings.HasPrefix(word, "_") {
			r.print("command not found: " + ansi.EscapePipes(word))
		}
		return nil
	}
	return r.apply(out)
}

func (r *Router) apply(out engine.Outcome) []Effect {
	prevMode := r.sess.SystemMode
	r.sess.Apply(out.Patch)
	if r.sess.SystemMode != prevMode && r.opts.History != nil {
		r.opts.History.SetMode(r.sess.CurrentUser, r.sess.SystemMode)
	}

	var effects []Effect
	for _, l := range out.Lines {
		if l.Kind != scrollback.KindInternal {
			r.out.AppendLines(l)
			continue
		}
		if url, ok := strings.CutPrefix(l.Text, engine.InstrOpenURL); ok {
			r.print(ansi.Hyperlink(url, "-> "+url))
			continue
		}
		if e, ok := parseInstruction(l.Text); ok {
			effects = append(effects, e)
			continue
		}
		logging.Debug("Node %d: ignoring instruction %q", r.sess.Node, l.Text)
	}
	r.changed()
	return effects
}

// Submit handles a line entered with Enter.
func (r *Router) Submit(line string) []Effect {
	s := r.sess
	r.sess.TabCount = 0
	switch s.Mode {
	case session.ModeUninitialized:
		return []Effect{{Kind: EffectBoot}}
	case session.ModeBoot, session.ModeAuthenticating:
		return nil
	case session.ModeLogin:
		return r.login(line)
	case session.ModePassword:
		return r.password()
	case session.ModeBbsPause:
		return r.Dispatch(line)
	}

	val := strings.TrimSpace(line)
	if s.Mode == session.ModePrompt && val == "" {
		r.print(s.PS1())
		return nil
	}
	if prefix := s.EchoPrefix(); prefix != "" {
		r.print(prefix + " " + ansi.EscapePipes(val))
	}
	if s.Mode == session.ModePrompt || s.Mode.IsBBS() || s.Mode == session.ModeMail || s.Mode == session.ModeMessage {
		r.pushHistory(val)
	}
	return r.Dispatch(val)
}

func (r *Router) pushHistory(val string) {
	if val == "" {
		return
	}
	r.sess.PushHistory(val)
	if r.opts.History == nil || !r.sess.Authenticated {
		return
	}
	if err := r.opts.History.Save(r.sess.CurrentUser, r.sess.History); err != nil {
		log.Printf("WARN: Node %d: %v", r.sess.Node, err)
	}
}
