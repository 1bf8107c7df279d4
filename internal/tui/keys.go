package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stlalpha/tecnoter/internal/session"
)

func (m Model) updateKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	s := m.Session()

	// Any key stops a running matrix.
	if m.matrixLeft > 0 {
		m.stopMatrix()
		return m, nil
	}
	if m.exiting {
		return m, nil
	}

	switch s.Mode {
	case session.ModeUninitialized:
		cmd := m.run(m.r.Submit(""))
		return m, cmd
	case session.ModeBoot, session.ModeAuthenticating:
		return m, nil
	}
	if m.seq.Typing() {
		return m, nil
	}

	if msg.Type != tea.KeyTab {
		m.r.ResetTab()
	}

	if s.SystemMode == session.SystemHub && s.Authenticated {
		return m.updateHub(msg)
	}

	// The pause gate takes every key, named keys included.
	if s.Mode == session.ModeBbsPause {
		m.input.Reset()
		effects, _ := m.r.Keypress(pauseKey(msg), true)
		cmd := m.run(effects)
		return m, cmd
	}

	switch msg.Type {
	case tea.KeyCtrlD:
		if s.Authenticated {
			m.input.Reset()
			cmd := m.run(m.r.Logout())
			return m, cmd
		}
		return m, nil

	case tea.KeyEsc:
		m.input.Reset()
		cmd := m.run(m.r.Escape())
		return m, cmd

	case tea.KeyCtrlC:
		line := m.input.Value()
		m.input.Reset()
		cmd := m.run(m.r.Interrupt(line))
		return m, cmd

	case tea.KeyCtrlL:
		cmd := m.run(m.r.ClearScreen())
		return m, cmd

	case tea.KeyCtrlU:
		m.input.Reset()
		return m, nil

	case tea.KeyCtrlW:
		m.deleteWord()
		return m, nil

	case tea.KeyCtrlA:
		m.input.CursorStart()
		return m, nil

	case tea.KeyCtrlE:
		m.input.CursorEnd()
		return m, nil

	case tea.KeyCtrlG:
		cmd := m.autoLogin("guest")
		return m, cmd

	case tea.KeyCtrlB:
		cmd := m.autoLogin("bbs")
		return m, cmd

	case tea.KeyF2:
		if s.Authenticated {
			m.r.ToggleSystemMode()
		}
		return m, nil

	case tea.KeyUp:
		m.setInput(m.r.HistoryPrev(m.input.Value()))
		return m, nil

	case tea.KeyDown:
		m.setInput(m.r.HistoryNext(m.input.Value()))
		return m, nil

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.KeyTab:
		m.setInput(m.r.Complete(m.input.Value()))
		return m, nil

	case tea.KeyEnter:
		line := m.input.Value()
		m.input.Reset()
		if s.Mode == session.ModeLogin {
			m.seq.Cancel()
		}
		cmd := m.run(m.r.Submit(line))
		return m, cmd

	case tea.KeyRunes, tea.KeySpace:
		if len(msg.Runes) == 1 {
			if effects, ok := m.r.Keypress(string(msg.Runes), m.input.Value() == ""); ok {
				cmd := m.run(effects)
				return m, cmd
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// pauseKey is the key text handed to the pause gate.
func pauseKey(msg tea.KeyMsg) string {
	if msg.Type == tea.KeyRunes && len(msg.Runes) > 0 {
		return string(msg.Runes[:1])
	}
	return msg.String()
}

// autoLogin starts simulated typing of user while the login countdown is
// showing.
func (m *Model) autoLogin(user string) tea.Cmd {
	if m.Session().Mode != session.ModeLogin {
		return nil
	}
	m.input.Reset()
	return m.seq.Type(user)
}

func (m *Model) setInput(v string) {
	m.input.SetValue(v)
	m.input.CursorEnd()
}

// deleteWord removes the word before the cursor, like a shell's Ctrl+W.
func (m *Model) deleteWord() {
	v := []rune(m.input.Value())
	pos := min(m.input.Position(), len(v))
	i := pos
	for i > 0 && v[i-1] == ' ' {
		i--
	}
	for i > 0 && v[i-1] != ' ' {
		i--
	}
	m.input.SetValue(string(v[:i]) + string(v[pos:]))
	m.input.SetCursor(i)
}

func (m Model) updateHub(msg tea.KeyMsg) (Model, tea.Cmd) {
	posts := m.Session().Posts
	switch msg.Type {
	case tea.KeyF2, tea.KeyEsc:
		m.r.ToggleSystemMode()
	case tea.KeyUp:
		if m.hubCursor > 0 {
			m.hubCursor--
		}
	case tea.KeyDown:
		if m.hubCursor < len(posts)-1 {
			m.hubCursor++
		}
	case tea.KeyEnter:
		cmd := m.openPost(m.hubCursor)
		return m, cmd
	case tea.KeyCtrlD:
		cmd := m.run(m.r.Logout())
		return m, cmd
	case tea.KeyRunes:
		switch strings.ToLower(string(msg.Runes)) {
		case "k":
			if m.hubCursor > 0 {
				m.hubCursor--
			}
		case "j":
			if m.hubCursor < len(posts)-1 {
				m.hubCursor++
			}
		case "q":
			m.r.ToggleSystemMode()
		}
	}
	return m, nil
}

func (m *Model) openPost(i int) tea.Cmd {
	m.input.Reset()
	return m.run(m.r.OpenPost(i))
}

func (m Model) updateMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	if msg.Action != tea.MouseActionPress {
		return m, nil
	}
	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	case tea.MouseButtonLeft:
	default:
		return m, nil
	}
	if m.matrixLeft > 0 {
		m.stopMatrix()
		return m, nil
	}

	s := m.Session()
	switch {
	case s.Mode == session.ModeUninitialized:
		if m.zones.Get(m.prefix + "connect").InBounds(msg) {
			cmd := m.run(m.r.Submit(""))
			return m, cmd
		}
		return m, nil
	case s.Mode == session.ModeLogin && m.seq.Counting():
		if m.zones.Get(m.prefix + "login-now").InBounds(msg) {
			cmd := m.autoLogin("guest")
			return m, cmd
		}
		if m.zones.Get(m.prefix + "enter-bbs").InBounds(msg) {
			cmd := m.autoLogin("bbs")
			return m, cmd
		}
		return m, nil
	}

	if s.SystemMode == session.SystemHub && s.Authenticated {
		for i := range s.Posts {
			if m.zones.Get(m.hubZone(i)).InBounds(msg) {
				m.hubCursor = i
				cmd := m.openPost(i)
				return m, cmd
			}
		}
		return m, nil
	}

	if m.zones.Get(m.prefix+"lamp").InBounds(msg) && s.Authenticated {
		m.r.ToggleSystemMode()
		return m, nil
	}

	// A hotspot click acts as if its command had been typed.
	if command, ok := m.r.Output().HotspotAt(msg); ok {
		if s.Mode == session.ModeBbsPause || (s.Mode.IsBBS() && len(command) == 1) {
			if effects, handled := m.r.Keypress(command, true); handled {
				cmd := m.run(effects)
				return m, cmd
			}
		}
		cmd := m.run(m.r.Submit(command))
		return m, cmd
	}
	return m, nil
}
