package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"github.com/stlalpha/tecnoter/internal/ansi"
	"github.com/stlalpha/tecnoter/internal/boot"
	"github.com/stlalpha/tecnoter/internal/session"
)

type styles struct {
	status  lipgloss.Style
	online  lipgloss.Style
	offline lipgloss.Style
	button  lipgloss.Style
	ghost   lipgloss.Style
	glitch  lipgloss.Style
	hubBox  lipgloss.Style
	hubHead lipgloss.Style
	hubSel  lipgloss.Style
	hubItem lipgloss.Style
	dim     lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return styles{
		status:  r.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")),
		online:  r.NewStyle().Foreground(lipgloss.Color("10")).Background(lipgloss.Color("4")).Bold(true),
		offline: r.NewStyle().Foreground(lipgloss.Color("15")).Background(lipgloss.Color("1")).Bold(true),
		button:  r.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("14")),
		ghost:   r.NewStyle().Foreground(lipgloss.Color("8")),
		glitch:  r.NewStyle().Reverse(true),
		hubBox:  r.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1),
		hubHead: r.NewStyle().Bold(true).Underline(true),
		hubSel:  r.NewStyle().Reverse(true),
		hubItem: r.NewStyle(),
		dim:     r.NewStyle().Foreground(lipgloss.Color("8")),
	}
}

// View implements tea.Model.
func (m Model) View() string {
	s := m.Session()
	var body string
	if s.SystemMode == session.SystemHub && s.Authenticated {
		body = m.hubView()
	} else {
		body = m.terminalView()
	}
	return m.zones.Scan(lipgloss.JoinVertical(lipgloss.Left, body, m.statusBar()))
}

func (m Model) terminalView() string {
	var b strings.Builder
	b.WriteString(m.viewport.View())
	b.WriteByte('\n')
	if m.seq.Counting() {
		b.WriteString(m.countdownView())
		b.WriteByte('\n')
	}
	b.WriteString(m.promptView())
	return b.String()
}

func (m Model) countdownView() string {
	left := m.seq.Left()
	return boot.Indicator(left) + " " +
		m.zones.Mark(m.prefix+"login-now", m.styles.button.Render("[Login Now]")) + " " +
		m.zones.Mark(m.prefix+"enter-bbs", m.styles.button.Render("[Enter BBS]")) +
		m.styles.dim.Render("  ^G/^B")
}

func (m Model) promptView() string {
	s := m.Session()
	switch s.Mode {
	case session.ModeUninitialized:
		return m.zones.Mark(m.prefix+"connect", m.styles.button.Render("[ Press any key to connect ]"))
	case session.ModeBoot, session.ModeAuthenticating:
		return ""
	}

	prompt := ansi.Render(s.Prompt())
	if m.seq.Typing() {
		typed := m.seq.Typed()
		if m.seq.Glitch() {
			typed = m.styles.glitch.Render(typed)
		}
		return prompt + typed
	}
	if m.matrixLeft > 0 {
		return prompt
	}
	line := prompt + m.input.View()
	if ghost := m.r.Suggestion(m.input.Value()); ghost != "" && m.input.Position() == len([]rune(m.input.Value())) {
		line += m.styles.ghost.Render(ghost)
	}
	return line
}

func (m Model) statusBar() string {
	s := m.Session()
	left := fmt.Sprintf(" %s | NODE %d | %s | %s ", strings.ToUpper(s.NodeName), s.Node, s.CurrentUser, strings.ToUpper(s.SystemMode.String()))
	lamp := m.styles.online.Render(" UPLINK: ONLINE ")
	if m.r.Offline() {
		lamp = m.styles.offline.Render(" UPLINK: OFFLINE ")
	}
	lamp = m.zones.Mark(m.prefix+"lamp", lamp)
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(lamp), 0)
	return m.styles.status.Render(left+strings.Repeat(" ", gap)) + lamp
}

func (m Model) hubZone(i int) string {
	return fmt.Sprintf("%shub-%d", m.prefix, i)
}

// hubView is the plain post index shown in hub mode.
func (m Model) hubView() string {
	posts := m.Session().Posts
	var b strings.Builder
	b.WriteString(m.styles.hubHead.Render("LATEST LOGS / POSTS"))
	b.WriteString("\n\n")
	if len(posts) == 0 {
		b.WriteString(m.styles.dim.Render("No posts loaded."))
	}
	rows := max(m.height-8, 1)
	start := 0
	if m.hubCursor >= rows {
		start = m.hubCursor - rows + 1
	}
	for i := start; i < len(posts) && i < start+rows; i++ {
		p := posts[i]
		row := fmt.Sprintf("%3d. %-10s %s", i+1, p.Date, p.Title)
		row = xansi.Truncate(row, max(m.width-6, 10), "...")
		style := m.styles.hubItem
		if i == m.hubCursor {
			style = m.styles.hubSel
		}
		b.WriteString(m.zones.Mark(m.hubZone(i), style.Render(row)))
		b.WriteByte('\n')
	}
	b.WriteString("\n")
	b.WriteString(m.styles.dim.Render("[Up/Down] select  [Enter] read  [F2] terminal"))

	box := m.styles.hubBox.Width(max(m.width-2, minWidth-2)).Height(max(m.height-3, 1))
	return box.Render(b.String())
}

// wrap hard-wraps rendered scrollback to the screen width.
func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	return xansi.Hardwrap(s, width, true)
}
