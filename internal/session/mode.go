package session

import "strings"

// Mode is the session's position in the login/shell/BBS state machine.
// Exactly one mode is active at a time.
type Mode int

const (
	ModeUninitialized Mode = iota
	ModeBoot
	ModeLogin
	ModePassword
	ModeAuthenticating
	ModePrompt
	ModeBbsMain
	ModeBbsPosts
	ModeBbsRead
	ModeBbsPause
	ModeBbsMailPrompt
	ModeBbsCategories
	ModeMail
	ModeMessage
)

var modeNames = [...]string{
	ModeUninitialized:  "UNINITIALIZED",
	ModeBoot:           "BOOT",
	ModeLogin:          "LOGIN",
	ModePassword:       "PASSWORD",
	ModeAuthenticating: "AUTHENTICATING",
	ModePrompt:         "PROMPT",
	ModeBbsMain:        "BBS_MAIN",
	ModeBbsPosts:       "BBS_POSTS",
	ModeBbsRead:        "BBS_READ",
	ModeBbsPause:       "BBS_PAUSE",
	ModeBbsMailPrompt:  "BBS_MAIL_PROMPT",
	ModeBbsCategories:  "BBS_CATEGORIES",
	ModeMail:           "MAIL",
	ModeMessage:        "MESSAGE",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "UNKNOWN"
	}
	return modeNames[m]
}

// ParseMode maps an upper snake case name back to a Mode.
func ParseMode(s string) (Mode, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for i, name := range modeNames {
		if name == s {
			return Mode(i), true
		}
	}
	return ModeUninitialized, false
}

// AllModes lists every mode in declaration order.
func AllModes() []Mode {
	modes := make([]Mode, len(modeNames))
	for i := range modeNames {
		modes[i] = Mode(i)
	}
	return modes
}

// IsBBS reports whether m is one of the bulletin board screens.
func (m Mode) IsBBS() bool {
	switch m {
	case ModeBbsMain, ModeBbsPosts, ModeBbsRead, ModeBbsPause, ModeBbsMailPrompt, ModeBbsCategories:
		return true
	}
	return false
}

// AcceptsInput reports whether the line editor is live in m.
func (m Mode) AcceptsInput() bool {
	switch m {
	case ModeUninitialized, ModeBoot, ModeAuthenticating:
		return false
	}
	return true
}

// SystemMode selects the visual shell wrapping a session.
type SystemMode int

const (
	SystemTerminal SystemMode = iota
	SystemHub
)

func (m SystemMode) String() string {
	if m == SystemHub {
		return "HUB"
	}
	return "TERMINAL"
}

// ParseSystemMode accepts "hub" or "terminal" in any case.
func ParseSystemMode(s string) (SystemMode, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hub":
		return SystemHub, true
	case "terminal", "term":
		return SystemTerminal, true
	}
	return SystemTerminal, false
}
