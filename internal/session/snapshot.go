package session

import (
	"time"

	"github.com/stlalpha/tecnoter/internal/content"
)

// Snapshot is an immutable view of a Session handed to a command engine.
// Slices are shared with the session and must not be modified.
type Snapshot struct {
	Node             int
	Mode             Mode
	CurrentUser      string
	Cwd              string
	Posts            []content.Item
	Pages            []content.Item
	Socials          []content.Social
	Fortunes         []string
	SystemInfo       content.SystemInfo
	CurrentPostIndex int
	ReturnState      Mode
	MailRecipient    string
	SystemMode       SystemMode
	Booted           bool
	Authenticated    bool
	DeepLink         string
	Version          string
	NodeName         string
	Debug            bool
	Now              time.Time
}

// Snapshot copies the engine-visible fields of s.
func (s *Session) Snapshot() Snapshot {
	info := s.SystemInfo
	now := time.Now()
	if info.CurrentDate == "" {
		info.CurrentDate = now.Format("Mon Jan 02 2006")
	}
	return Snapshot{
		Node:             s.Node,
		Mode:             s.Mode,
		CurrentUser:      s.CurrentUser,
		Cwd:              s.Cwd,
		Posts:            s.Posts,
		Pages:            s.Pages,
		Socials:          s.Socials,
		Fortunes:         s.Fortunes,
		SystemInfo:       info,
		CurrentPostIndex: s.CurrentPostIndex,
		ReturnState:      s.ReturnState,
		MailRecipient:    s.MailRecipient,
		SystemMode:       s.SystemMode,
		Booted:           s.Booted,
		Authenticated:    s.Authenticated,
		DeepLink:         s.DeepLink,
		Version:          s.Version,
		NodeName:         s.NodeName,
		Debug:            s.Debug,
		Now:              now,
	}
}

// Patch is a partial update returned by an engine. Nil fields leave the
// session unchanged.
type Patch struct {
	Mode             *Mode
	CurrentUser      *string
	Cwd              *string
	CurrentPostIndex *int
	ReturnState      *Mode
	MailRecipient    *string
	SystemMode       *SystemMode
	Authenticated    *bool
	Booted           *bool
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T {
	return &v
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p == Patch{}
}

// Merge overlays q on p; fields set in q win.
func (p Patch) Merge(q Patch) Patch {
	if q.Mode != nil {
		p.Mode = q.Mode
	}
	if q.CurrentUser != nil {
		p.CurrentUser = q.CurrentUser
	}
	if q.Cwd != nil {
		p.Cwd = q.Cwd
	}
	if q.CurrentPostIndex != nil {
		p.CurrentPostIndex = q.CurrentPostIndex
	}
	if q.ReturnState != nil {
		p.ReturnState = q.ReturnState
	}
	if q.MailRecipient != nil {
		p.MailRecipient = q.MailRecipient
	}
	if q.SystemMode != nil {
		p.SystemMode = q.SystemMode
	}
	if q.Authenticated != nil {
		p.Authenticated = q.Authenticated
	}
	if q.Booted != nil {
		p.Booted = q.Booted
	}
	return p
}

// Apply merges p into s. A post index outside the loaded posts is
// ignored so reading states always point at a real post.
func (s *Session) Apply(p Patch) {
	if p.Mode != nil && *p.Mode >= 0 && int(*p.Mode) < len(modeNames) {
		s.Mode = *p.Mode
	}
	if p.CurrentUser != nil {
		s.CurrentUser = *p.CurrentUser
	}
	if p.Cwd != nil {
		s.Cwd = *p.Cwd
	}
	if p.CurrentPostIndex != nil {
		i := *p.CurrentPostIndex
		if i == -1 || (i >= 0 && i < len(s.Posts)) {
			s.CurrentPostIndex = i
		}
	}
	if p.ReturnState != nil {
		s.ReturnState = *p.ReturnState
	}
	if p.MailRecipient != nil {
		s.MailRecipient = *p.MailRecipient
	}
	if p.SystemMode != nil {
		s.SystemMode = *p.SystemMode
	}
	if p.Authenticated != nil {
		s.Authenticated = *p.Authenticated
	}
	if p.Booted != nil {
		s.Booted = *p.Booted
	}
}
