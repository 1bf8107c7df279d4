package router

import (
	"log"
	"strings"
	"time"

	"github.com/stlalpha/tecnoter/internal/ansi"
	"github.com/stlalpha/tecnoter/internal/scrollback"
	"github.com/stlalpha/tecnoter/internal/session"
)

// Boot switches the session to Boot and returns the banner lines for the
// sequencer to print one at a time.
func (r *Router) Boot() []scrollback.Line {
	out := r.process("_boot")
	r.sess.Apply(out.Patch)
	r.sess.Mode = session.ModeBoot
	r.sess.Booted = true
	r.changed()

	lines := out.Lines
	if src := r.opts.Content; src != nil && !src.Loaded() && src.Err() != nil {
		lines = append([]scrollback.Line{scrollback.Error("Error loading system core.")}, lines...)
	}
	return lines
}

// StartLogin moves a booted session to the login prompt. It is a no-op
// unless the session is booting or already at the prompt.
func (r *Router) StartLogin() bool {
	if r.sess.Mode != session.ModeBoot && r.sess.Mode != session.ModeLogin {
		return false
	}
	out := r.process("_start_login")
	r.sess.Apply(out.Patch)
	r.sess.Mode = session.ModeLogin
	r.changed()
	return true
}

func (r *Router) login(raw string) []Effect {
	user := strings.ToLower(strings.TrimSpace(raw))
	if user == "" {
		return nil
	}
	r.print(ansi.EscapePipes(user))
	r.Dispatch("_login " + user)

	switch r.sess.Mode {
	case session.ModeLogin:
		return []Effect{{Kind: EffectRestartLogin, Delay: RetryDelay}}
	case session.ModeAuthenticating:
		return []Effect{{Kind: EffectFinishLogin, Delay: GrantDelay}}
	}
	return nil
}

// password accepts anything; login here is cosmetic.
func (r *Router) password() []Effect {
	r.print("********")
	r.sess.Mode = session.ModeAuthenticating
	r.sess.Authenticated = true
	return r.FinishLogin()
}

// FinishLogin completes a granted login: the screen is cleared, the
// user's history and display mode are restored and either the BBS, the
// deep link or the welcome text follows.
func (r *Router) FinishLogin() []Effect {
	s := r.sess
	if s.Mode != session.ModeAuthenticating {
		return nil
	}
	r.epoch++
	s.Mode = session.ModePrompt
	s.Authenticated = true
	r.loadUserState()
	r.out.Clear()
	log.Printf("INFO: Node %d: User %s logged in", s.Node, s.CurrentUser)

	if s.CurrentUser == "bbs" {
		return r.Dispatch("bbs")
	}

	r.print("Authentication successful.")
	r.print("Last login: " + time.Now().Format("Mon Jan 02 2006") + " from 127.0.0.1")
	r.print("")
	if s.DeepLink != "" {
		return r.OpenDeepLink(s.DeepLink)
	}
	r.print("Welcome to tecnoter.io BBS, " + ansi.EscapePipes(s.CurrentUser) + "!")
	r.print("Type 'help' to see available commands. Use Ctrl+D or 'logout' to exit.")
	r.print("")
	r.changed()
	return nil
}

// OpenDeepLink echoes and runs "cat <slug>" at the shell prompt.
func (r *Router) OpenDeepLink(slug string) []Effect {
	if r.sess.Mode != session.ModePrompt || slug == "" {
		return nil
	}
	cmd := "cat " + slug
	r.print(r.sess.PS1() + " " + ansi.EscapePipes(cmd))
	return r.Dispatch(cmd)
}

func (r *Router) loadUserState() {
	st := r.opts.History
	if st == nil {
		return
	}
	h, err := st.Load(r.sess.CurrentUser)
	if err != nil {
		log.Printf("WARN: Node %d: %v", r.sess.Node, err)
		return
	}
	r.sess.SetHistory(h)
	r.sess.SystemMode = st.Mode(r.sess.CurrentUser)
}

// RestartLogin reports whether the login countdown should run again.
func (r *Router) RestartLogin() bool {
	return r.StartLogin()
}

// Logout resets the session and asks for a reboot.
func (r *Router) Logout() []Effect {
	log.Printf("INFO: Node %d: User %s logged out", r.sess.Node, r.sess.CurrentUser)
	r.epoch++
	r.sess.Reset()
	r.out.Clear()
	r.print("Session terminated. Logging out...")
	r.changed()
	return []Effect{{Kind: EffectBoot, Delay: RebootDelay}}
}
