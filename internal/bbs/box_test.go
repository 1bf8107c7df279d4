package bbs

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stlalpha/tecnoter/internal/ansi"
)

func TestBorder(t *testing.T) {
	tests := []struct {
		kind        BorderKind
		left, right string
	}{
		{BorderTop, "╔", "╗"},
		{BorderMid, "╠", "╣"},
		{BorderBot, "╚", "╝"},
		{BorderSep, "╟", "╢"},
		{"bogus", "╟", "╢"},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			b := Border(tt.kind)
			if utf8.RuneCountInString(b) != Width {
				t.Errorf("border width %d, want %d", utf8.RuneCountInString(b), Width)
			}
			if !strings.HasPrefix(b, tt.left) || !strings.HasSuffix(b, tt.right) {
				t.Errorf("border %q has wrong corners", b)
			}
		})
	}
}

func TestPadding(t *testing.T) {
	tests := []struct {
		n, left, right int
	}{
		{0, 38, 38},
		{10, 33, 33},
		{11, 32, 33},
		{75, 0, 1},
		{76, 0, 0},
		{90, 0, 0},
	}
	for _, tt := range tests {
		left, right := Padding(tt.n)
		if left != tt.left || right != tt.right {
			t.Errorf("Padding(%d) = %d,%d want %d,%d", tt.n, left, right, tt.left, tt.right)
		}
	}
}

func TestRowWidth(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		align Align
	}{
		{"left plain", "Hello", AlignLeft},
		{"center plain", "--- BBS COMMAND LIST ---", AlignCenter},
		{"center odd", "abc", AlignCenter},
		{"pipe codes ignored", "|15[|11R|15]ead", AlignLeft},
		{"box drawing", " NODE │ USERNAME", AlignLeft},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Row(tt.text, tt.align)
			if got := ansi.VisibleLength(r); got != Width {
				t.Errorf("row visible width %d, want %d: %q", got, Width, r)
			}
			if !strings.HasPrefix(r, "║ ") || !strings.HasSuffix(r, " ║") {
				t.Errorf("row %q not framed", r)
			}
		})
	}
}

func TestRowCenterPlacement(t *testing.T) {
	r := Center("abc")
	inner := strings.TrimSuffix(strings.TrimPrefix(r, "║ "), " ║")
	if !strings.HasPrefix(inner, strings.Repeat(" ", 36)+"abc") {
		t.Errorf("expected 36 spaces before text, got %q", inner)
	}
	if !strings.HasSuffix(inner, "abc"+strings.Repeat(" ", 37)) {
		t.Errorf("expected 37 spaces after text, got %q", inner)
	}
}

func TestWrapNeverExceedsWidth(t *testing.T) {
	long := strings.Repeat("lorem ipsum dolor sit amet consectetur ", 20)
	giant := strings.Repeat("x", 200)
	inputs := []string{long, giant, "short", long + "\n\n" + giant}

	for _, in := range inputs {
		for _, line := range Wrap(in, WrapWidth) {
			if l := utf8.RuneCountInString(line); l > ContentWidth {
				t.Errorf("wrapped line of %d runes exceeds %d: %q", l, ContentWidth, line)
			}
			if got := ansi.VisibleLength(Row(ansi.EscapePipes(line), AlignLeft)); got != Width {
				t.Errorf("row width %d for %q", got, line)
			}
		}
	}
}

func TestWrapKeepsWordsWhole(t *testing.T) {
	text := strings.Repeat("alpha beta gamma delta epsilon ", 10)
	var words []string
	for _, line := range Wrap(text, WrapWidth) {
		if !strings.HasPrefix(line, "  ") {
			t.Errorf("line %q not indented", line)
		}
		words = append(words, strings.Fields(line)...)
	}
	if got, want := strings.Join(words, " "), strings.Join(strings.Fields(text), " "); got != want {
		t.Errorf("words changed by wrapping:\n got %q\nwant %q", got, want)
	}
}

func TestWrapBlankParagraphs(t *testing.T) {
	got := Wrap("first\n\nsecond", WrapWidth)
	want := []string{"  first", "", "  second"}
	if len(got) != len(want) {
		t.Fatalf("Wrap = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, got[i], want[i])
		}
	}
}
