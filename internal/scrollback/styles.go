package scrollback

import "github.com/charmbracelet/lipgloss"

// Styles maps line kinds to lipgloss styles.
type Styles struct {
	Border  lipgloss.Style
	Title   lipgloss.Style
	Header  lipgloss.Style
	Row     lipgloss.Style
	Footer  lipgloss.Style
	Matrix  lipgloss.Style
	Error   lipgloss.Style
	Hotspot lipgloss.Style
}

// NewStyles builds the classic blue/cyan BBS palette for renderer r. A nil
// renderer uses lipgloss's default.
func NewStyles(r *lipgloss.Renderer) Styles {
	if r == nil {
		r = lipgloss.DefaultRenderer()
	}
	return Styles{
		Border:  r.NewStyle().Foreground(lipgloss.Color("12")),
		Title:   r.NewStyle().Foreground(lipgloss.Color("14")).Bold(true),
		Header:  r.NewStyle().Foreground(lipgloss.Color("11")),
		Row:     r.NewStyle().Foreground(lipgloss.Color("7")),
		Footer:  r.NewStyle().Foreground(lipgloss.Color("13")),
		Matrix:  r.NewStyle().Foreground(lipgloss.Color("10")),
		Error:   r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Hotspot: r.NewStyle().Foreground(lipgloss.Color("15")).Underline(true),
	}
}

func (s Styles) forKind(k Kind) (lipgloss.Style, bool) {
	switch k {
	case KindBorder:
		return s.Border, true
	case KindTitle:
		return s.Title, true
	case KindHeader:
		return s.Header, true
	case KindRow:
		return s.Row, true
	case KindFooter:
		return s.Footer, true
	case KindMatrix:
		return s.Matrix, true
	case KindError:
		return s.Error, true
	}
	return lipgloss.Style{}, false
}
