// Package bbs draws the bulletin board screens: 80-column double-line
// boxes built from pipe-coded rows.
package bbs

import (
	"strings"

	xansi "github.com/charmbracelet/x/ansi"

	"github.com/stlalpha/tecnoter/internal/ansi"
)

const (
	Width        = 80
	ContentWidth = Width - 4
	WrapWidth    = Width - 8
)

// BorderKind selects the corner and fill characters of a border line.
type BorderKind string

const (
	BorderTop BorderKind = "top"
	BorderMid BorderKind = "mid"
	BorderBot BorderKind = "bot"
	BorderSep BorderKind = "sep"
)

// Align positions text inside a row.
type Align int

const (
	AlignLeft Align = iota
	AlignCenter
)

// Border returns a full-width border line. Unknown kinds draw a separator.
func Border(kind BorderKind) string {
	var l, fill, r string
	switch kind {
	case BorderTop:
		l, fill, r = "╔", "═", "╗"
	case BorderMid:
		l, fill, r = "╠", "═", "╣"
	case BorderBot:
		l, fill, r = "╚", "═", "╝"
	default:
		l, fill, r = "╟", "─", "╢"
	}
	return l + strings.Repeat(fill, Width-2) + r
}

// Padding returns the left and right padding that centers a text of
// visible length n in the content area. Neither side is negative.
func Padding(n int) (left, right int) {
	total := ContentWidth - n
	if total < 0 {
		total = 0
	}
	left = total / 2
	right = total - left
	return left, right
}

// Row frames text as "║ text ║". The visible length ignores pipe codes.
// Text wider than the content area is left as is.
func Row(text string, align Align) string {
	n := ansi.VisibleLength(text)
	var line string
	if align == AlignCenter {
		left, right := Padding(n)
		line = strings.Repeat(" ", left) + text + strings.Repeat(" ", right)
	} else {
		pad := ContentWidth - n
		if pad < 0 {
			pad = 0
		}
		line = text + strings.Repeat(" ", pad)
	}
	return "║ " + line + " ║"
}

// Center is Row with AlignCenter.
func Center(text string) string {
	return Row(text, AlignCenter)
}

// Wrap breaks plain text into indented rows for the reader. A word is
// added while the line stays under width; blank paragraphs come back as
// empty strings. Words longer than the line are split.
func Wrap(text string, width int) []string {
	var out []string
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(para) == "" {
			out = append(out, "")
			continue
		}
		cur := ""
		for _, word := range strings.Fields(para) {
			for _, piece := range chunk(word, width-1) {
				if xansi.StringWidth(cur+piece) < width {
					cur += piece + " "
					continue
				}
				if t := strings.TrimSpace(cur); t != "" {
					out = append(out, "  "+t)
				}
				cur = piece + " "
			}
		}
		if t := strings.TrimSpace(cur); t != "" {
			out = append(out, "  "+t)
		}
	}
	return out
}

func chunk(word string, limit int) []string {
	if limit <= 0 || xansi.StringWidth(word) <= limit {
		return []string{word}
	}
	var parts []string
	var b strings.Builder
	w := 0
	for _, r := range word {
		rw := xansi.StringWidth(string(r))
		if w+rw > limit && b.Len() > 0 {
			parts = append(parts, b.String())
			b.Reset()
			w = 0
		}
		b.WriteRune(r)
		w += rw
	}
	if b.Len() > 0 {
		parts = append(parts, b.String())
	}
	return parts
}
