package router

import (
	"strings"

	"github.com/stlalpha/tecnoter/internal/ansi"
	"github.com/stlalpha/tecnoter/internal/engine"
	"github.com/stlalpha/tecnoter/internal/session"
)

// bbsHotKeys act on a single keypress while the BBS input is empty.
const bbsHotKeys = "qmnphrwxalesubfc"

// Keypress offers a printable key to the BBS before it reaches the line
// editor. handled is true when the key was consumed.
func (r *Router) Keypress(key string, inputEmpty bool) (effects []Effect, handled bool) {
	s := r.sess
	switch {
	case s.Mode == session.ModeBbsPause:
		return r.Dispatch(key), true
	case s.Mode.IsBBS() && s.Mode != session.ModeBbsMailPrompt && inputEmpty:
		k := strings.ToLower(key)
		if len(k) == 1 && strings.Contains(bbsHotKeys, k) {
			return r.Dispatch(k), true
		}
	}
	return nil, false
}

// Escape leaves the BBS or cancels a mail or message in progress.
func (r *Router) Escape() []Effect {
	s := r.sess
	switch {
	case s.Mode.IsBBS() && s.Mode != session.ModeBbsPause:
		return r.Dispatch("q")
	case s.Mode == session.ModeMail || s.Mode == session.ModeMessage:
		s.Mode = session.ModePrompt
		s.MailRecipient = ""
		r.changed()
	}
	return nil
}

// Interrupt handles Ctrl+C with the current input line.
func (r *Router) Interrupt(line string) []Effect {
	s := r.sess
	switch {
	case s.Mode.IsBBS():
		return r.Dispatch("q")
	case s.Mode == session.ModePrompt:
		r.print(s.PS1() + " " + ansi.EscapePipes(line) + "^C")
	case s.Mode.AcceptsInput():
		r.print("^C")
	}
	return nil
}

// ClearScreen handles Ctrl+L; the BBS redraws its menu.
func (r *Router) ClearScreen() []Effect {
	r.out.Clear()
	if r.sess.Mode.IsBBS() {
		return r.Dispatch("m")
	}
	return nil
}

// Complete applies Tab completion to line and returns the new input.
// A repeated request with several candidates prints them instead.
func (r *Router) Complete(line string) string {
	s := r.sess
	if s.Mode != session.ModePrompt {
		return line
	}
	r.syncContent()
	snap := s.Snapshot()
	c := engine.Complete(snap, line, engine.Completions(snap, line), s.TabCount)
	s.TabCount = c.TabCount
	if c.Matches != nil {
		r.print(s.PS1() + " " + ansi.EscapePipes(line))
		r.print(ansi.EscapePipes(strings.Join(c.Matches, "  ")))
	}
	return c.Line
}

// ResetTab ends a run of consecutive Tab presses.
func (r *Router) ResetTab() {
	r.sess.TabCount = 0
}

// Suggestion returns a ghost completion for the current input.
func (r *Router) Suggestion(line string) string {
	if r.sess.Mode != session.ModePrompt || line == "" {
		return ""
	}
	return engine.Suggest(r.sess.Snapshot(), line)
}

// HistoryPrev recalls the previous command at the shell prompt.
func (r *Router) HistoryPrev(current string) string {
	if r.sess.Mode != session.ModePrompt {
		return current
	}
	return r.sess.RecallPrev()
}

// HistoryNext recalls the next command at the shell prompt.
func (r *Router) HistoryNext(current string) string {
	if r.sess.Mode != session.ModePrompt {
		return current
	}
	return r.sess.RecallNext()
}

// ToggleSystemMode flips between the terminal and the hub index.
func (r *Router) ToggleSystemMode() {
	s := r.sess
	if s.SystemMode == session.SystemHub {
		s.SystemMode = session.SystemTerminal
	} else {
		s.SystemMode = session.SystemHub
	}
	if r.opts.History != nil {
		r.opts.History.SetMode(s.CurrentUser, s.SystemMode)
	}
	r.changed()
}

// OpenPost switches back to the terminal and opens post i in the BBS
// reader. It only works once the user is logged in.
func (r *Router) OpenPost(i int) []Effect {
	s := r.sess
	if !s.Authenticated || (s.Mode != session.ModePrompt && !s.Mode.IsBBS()) {
		return nil
	}
	r.syncContent()
	if i < 0 || i >= len(s.Posts) {
		return nil
	}
	s.SystemMode = session.SystemTerminal
	s.Mode = session.ModeBbsRead
	s.CurrentPostIndex = i
	r.changed()
	return []Effect{{Kind: EffectFetchPost, Arg: s.Posts[i].Slug}}
}
