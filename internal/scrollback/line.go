// Package scrollback holds a node's append-only output buffer and renders
// it for the terminal: pipe color codes, a lipgloss style per line kind and
// mouse zones around clickable hotkeys.
package scrollback

import "strings"

// Kind tags a line for styling. It never changes behavior, except that
// ClearScreen empties the buffer and Internal lines are never printed.
type Kind string

const (
	KindRegular     Kind = "regular"
	KindClearScreen Kind = "clearScreen"
	KindInternal    Kind = "internalInstruction"
	KindBorder      Kind = "bbs-border"
	KindTitle       Kind = "bbs-title"
	KindHeader      Kind = "bbs-header"
	KindRow         Kind = "bbs-row"
	KindFooter      Kind = "bbs-footer"
	KindMatrix      Kind = "matrix-line"
	KindError       Kind = "error"
)

// ParseKind maps a kind name from an engine to a Kind. Row variants such
// as "bbs-posts-row-3" collapse to KindRow; unknown names are regular.
func ParseKind(s string) Kind {
	switch k := Kind(s); k {
	case KindRegular, KindClearScreen, KindInternal, KindBorder, KindTitle,
		KindHeader, KindRow, KindFooter, KindMatrix, KindError:
		return k
	}
	if strings.HasPrefix(s, "bbs-") && strings.Contains(s, "row") {
		return KindRow
	}
	return KindRegular
}

// Hotspot makes the first occurrence of Label in a line clickable. A click
// submits Cmd as if it had been typed.
type Hotspot struct {
	Label string
	Cmd   string
}

// Line is one unit of output. Text may span several terminal rows and
// may carry pipe color codes.
type Line struct {
	Text     string
	Kind     Kind
	Hotspots []Hotspot
}

// Text returns a regular line.
func Text(s string) Line {
	return Line{Text: s, Kind: KindRegular}
}

// Styled returns a line of the given kind.
func Styled(s string, kind Kind) Line {
	return Line{Text: s, Kind: kind}
}

// Error returns an error line.
func Error(s string) Line {
	return Line{Text: s, Kind: KindError}
}

// Clear returns the directive that empties the scrollback.
func Clear() Line {
	return Line{Kind: KindClearScreen}
}

// Instruction returns an out-of-band directive line.
func Instruction(s string) Line {
	return Line{Text: s, Kind: KindInternal}
}

// WithHotspots returns l with hs attached.
func (l Line) WithHotspots(hs ...Hotspot) Line {
	l.Hotspots = append(append([]Hotspot(nil), l.Hotspots...), hs...)
	return l
}
