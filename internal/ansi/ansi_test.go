package ansi

import (
	"strings"
	"testing"
)

func TestStripPipeCodes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "Hello", "Hello"},
		{"foreground", "|15[|11R|15]ead", "[R]ead"},
		{"background", "|B1|14ALERT|23", "ALERT"},
		{"escaped pipe", "a || b", "a | b"},
		{"box drawing pipe kept", " ID  │ DATE", " ID  │ DATE"},
		{"unknown code kept", "|ZZ text", "|ZZ text"},
		{"trailing pipe", "end|", "end|"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripPipeCodes(tt.input); got != tt.want {
				t.Errorf("StripPipeCodes(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestReplacePipeCodes(t *testing.T) {
	got := string(ReplacePipeCodes([]byte("|12red|07gray")))
	want := "\x1B[1;31mred\x1B[0;37mgray"
	if got != want {
		t.Errorf("ReplacePipeCodes = %q, want %q", got, want)
	}
}

func TestRenderAddsReset(t *testing.T) {
	if got := Render("plain"); got != "plain" {
		t.Errorf("Render(plain) = %q", got)
	}
	got := Render("|10ok")
	if !strings.HasSuffix(got, "\x1B[0m") {
		t.Errorf("Render should reset colors, got %q", got)
	}
}

func TestVisibleLength(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"plain text", "Hello", 5},
		{"pipe colored", "|15[|11R|15]ead", 6},
		{"ansi colored", "\x1b[31mRed\x1b[0m", 3},
		{"box drawing", "║ x ║", 5},
		{"empty string", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VisibleLength(tt.input); got != tt.want {
				t.Errorf("VisibleLength(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestPadVisible(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		width      int
		wantVisLen int
	}{
		{"pad plain text", "Hello", 10, 10},
		{"no pad needed", "Hello", 5, 5},
		{"already longer", "Hello", 3, 5},
		{"pad pipe text", "|12Red", 10, 10},
		{"empty string pad", "", 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PadVisible(tt.input, tt.width, ' ')
			if vis := VisibleLength(got); vis != tt.wantVisLen {
				t.Errorf("PadVisible(%q, %d) visible length = %d, want %d", tt.input, tt.width, vis, tt.wantVisLen)
			}
		})
	}
}

func TestTruncateVisible(t *testing.T) {
	if got := TruncateVisible("Hello World", 5); got != "Hello" {
		t.Errorf("TruncateVisible = %q, want Hello", got)
	}
	if got := TruncateVisible("Hello", 0); got != "" {
		t.Errorf("TruncateVisible zero = %q", got)
	}
}

func TestParseOutputMode(t *testing.T) {
	for in, want := range map[string]OutputMode{"auto": OutputModeAuto, "UTF8": OutputModeUTF8, "cp437": OutputModeCP437, "": OutputModeAuto} {
		got, err := ParseOutputMode(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputMode(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseOutputMode("ebcdic"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestResolveOutputMode(t *testing.T) {
	if got := OutputModeAuto.Resolve("syncterm"); got != OutputModeCP437 {
		t.Errorf("syncterm should resolve to cp437, got %v", got)
	}
	if got := OutputModeAuto.Resolve("xterm-256color"); got != OutputModeUTF8 {
		t.Errorf("xterm should resolve to utf8, got %v", got)
	}
	if got := OutputModeUTF8.Resolve("ansi"); got != OutputModeUTF8 {
		t.Errorf("forced mode must not change, got %v", got)
	}
}

func TestEscapePipes(t *testing.T) {
	in := "a|07b|c"
	esc := EscapePipes(in)
	if got := StripPipeCodes(esc); got != in {
		t.Errorf("StripPipeCodes(EscapePipes(%q)) = %q, want original", in, got)
	}
	if VisibleLength(esc) != len(in) {
		t.Errorf("escaped width %d, want %d", VisibleLength(esc), len(in))
	}
}
