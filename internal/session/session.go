package session

import (
	"fmt"
	"time"

	"github.com/stlalpha/tecnoter/internal/content"
)

const (
	// DefaultUser is the identity of a session before login.
	DefaultUser = "guest"
	// Version is reported by stats and whoami.
	Version = "2.0.26-LNX"
	// HostName appears in the shell prompt.
	HostName = "tecnoter.io"
	// DefaultHistoryCap bounds History when no cap is configured.
	DefaultHistoryCap = 100
)

// Session is the per-connection state. It is owned by a single writer
// (the connection's program loop) and passed by pointer.
type Session struct {
	Node        int
	Transport   string
	RemoteAddr  string
	ConnectedAt time.Time

	Mode        Mode
	CurrentUser string
	Cwd         string

	Posts      []content.Item
	Pages      []content.Item
	Socials    []content.Social
	Fortunes   []string
	SystemInfo content.SystemInfo

	History      []string
	HistoryIndex int
	HistoryCap   int

	CurrentPostIndex int
	ReturnState      Mode
	MailRecipient    string
	SystemMode       SystemMode

	Booted        bool
	Authenticated bool
	DeepLink      string
	Version       string
	NodeName      string
	TabCount      int
	Debug         bool
}

// Options seed a new Session.
type Options struct {
	Node       int
	Transport  string
	RemoteAddr string
	HistoryCap int
	DeepLink   string
	NodeName   string
	Debug      bool
}

// New creates a Session in ModeUninitialized.
func New(opts Options) *Session {
	limit := opts.HistoryCap
	if limit <= 0 {
		limit = DefaultHistoryCap
	}
	nodeName := opts.NodeName
	if nodeName == "" {
		nodeName = HostName
	}
	return &Session{
		Node:             opts.Node,
		Transport:        opts.Transport,
		RemoteAddr:       opts.RemoteAddr,
		ConnectedAt:      time.Now(),
		Mode:             ModeUninitialized,
		CurrentUser:      DefaultUser,
		Cwd:              "/",
		SystemInfo:       content.DefaultSystemInfo(),
		HistoryIndex:     -1,
		HistoryCap:       limit,
		CurrentPostIndex: -1,
		ReturnState:      ModePrompt,
		DeepLink:         opts.DeepLink,
		Version:          Version,
		NodeName:         nodeName,
		Debug:            opts.Debug,
	}
}

// SetContent replaces posts, pages, socials, fortunes and system info
// wholesale. A reading cursor that no longer fits is reset.
func (s *Session) SetContent(idx content.Index) {
	s.Posts = idx.Posts
	s.Pages = idx.Pages
	s.Socials = idx.Socials
	s.Fortunes = idx.Fortunes
	s.SystemInfo = idx.SystemInfo
	if s.CurrentPostIndex >= len(s.Posts) {
		s.CurrentPostIndex = -1
	}
}

// Prompt derives the input prompt, with pipe color codes, from the mode.
func (s *Session) Prompt() string {
	switch s.Mode {
	case ModePrompt:
		return s.PS1()
	case ModeLogin:
		return "tecnoter login: "
	case ModePassword:
		return "Password: "
	case ModeMessage:
		return "|13Message to Admin:|07 "
	case ModeMail:
		return fmt.Sprintf("|13Mail to %s:|07 ", s.MailRecipient)
	case ModeUninitialized:
		return "|11READY. PRESS ANY KEY TO ENGAGE.|07"
	}
	if s.Mode.IsBBS() {
		return fmt.Sprintf("|14BBS Selection (1-%d, Q to Quit, M for Menu):|07 ", len(s.Posts))
	}
	return ""
}

// PS1 is the shell prompt "user@tecnoter.io:/cwd$".
func (s *Session) PS1() string {
	return fmt.Sprintf("|10%s|07@|11%s|07:|09%s|07$", s.CurrentUser, HostName, s.Cwd)
}

// EchoPrefix is printed before a submitted line so the scrollback shows
// what was typed.
func (s *Session) EchoPrefix() string {
	switch {
	case s.Mode == ModePrompt:
		return s.PS1()
	case s.Mode.IsBBS():
		return "|14BBS Selection:|07"
	case s.Mode == ModeMessage:
		return "|13Message:|07"
	case s.Mode == ModeMail:
		return "|13Mail:|07"
	}
	return ""
}

// PushHistory appends line, evicting the oldest entries past the cap,
// and ends any recall in progress.
func (s *Session) PushHistory(line string) {
	if line == "" {
		return
	}
	s.History = append(s.History, line)
	if over := len(s.History) - s.HistoryCap; over > 0 {
		s.History = append([]string(nil), s.History[over:]...)
	}
	s.HistoryIndex = -1
}

// SetHistory installs a loaded history, trimmed to the cap.
func (s *Session) SetHistory(h []string) {
	if over := len(h) - s.HistoryCap; over > 0 {
		h = h[over:]
	}
	s.History = append([]string(nil), h...)
	s.HistoryIndex = -1
}

// RecallPrev moves the recall cursor one entry back and returns it.
func (s *Session) RecallPrev() string {
	if len(s.History) == 0 {
		return ""
	}
	if s.HistoryIndex < 0 {
		s.HistoryIndex = len(s.History)
	}
	if s.HistoryIndex > 0 {
		s.HistoryIndex--
	}
	return s.History[s.HistoryIndex]
}

// RecallNext moves the recall cursor forward. Past the newest entry the
// input is blank and the cursor rests at len(History).
func (s *Session) RecallNext() string {
	if s.HistoryIndex < 0 {
		return ""
	}
	if s.HistoryIndex < len(s.History) {
		s.HistoryIndex++
	}
	if s.HistoryIndex >= len(s.History) {
		return ""
	}
	return s.History[s.HistoryIndex]
}

// Reset returns the session to the pre-login state used by logout.
func (s *Session) Reset() {
	s.Mode = ModeBoot
	s.CurrentUser = DefaultUser
	s.Cwd = "/"
	s.Authenticated = false
	s.CurrentPostIndex = -1
	s.ReturnState = ModePrompt
	s.MailRecipient = ""
	s.TabCount = 0
	s.HistoryIndex = -1
}

// NextPost returns the index after i, wrapping to 0. n must be > 0.
func NextPost(i, n int) int {
	if n <= 0 {
		return -1
	}
	return ((i+1)%n + n) % n
}

// PrevPost returns the index before i, wrapping to n-1. n must be > 0.
func PrevPost(i, n int) int {
	if n <= 0 {
		return -1
	}
	return ((i-1)%n + n) % n
}
