package ansi

import (
	"bytes"
	"fmt"
	"strings"

	xansi "github.com/charmbracelet/x/ansi"
)

// OutputMode defines the character encoding strategy for terminal output.
type OutputMode int

const (
	OutputModeAuto  OutputMode = iota // Default: Detect based on TERM variable
	OutputModeUTF8                    // Force UTF-8 character output
	OutputModeCP437                   // Force raw CP437 byte output
)

func (m OutputMode) String() string {
	switch m {
	case OutputModeUTF8:
		return "utf8"
	case OutputModeCP437:
		return "cp437"
	default:
		return "auto"
	}
}

// ParseOutputMode maps the --output-mode flag value to an OutputMode.
func ParseOutputMode(s string) (OutputMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return OutputModeAuto, nil
	case "utf8", "utf-8":
		return OutputModeUTF8, nil
	case "cp437":
		return OutputModeCP437, nil
	}
	return OutputModeAuto, fmt.Errorf("invalid output mode %q: must be auto, utf8 or cp437", s)
}

// Resolve picks a concrete mode for OutputModeAuto from the client's TERM.
// Classic BBS terminals (SyncTERM, NetRunner, "ansi") get CP437.
func (m OutputMode) Resolve(termType string) OutputMode {
	if m != OutputModeAuto {
		return m
	}
	t := strings.ToLower(termType)
	if t == "ansi" || strings.Contains(t, "syncterm") || strings.Contains(t, "netrunner") || strings.HasPrefix(t, "ansi-bbs") {
		return OutputModeCP437
	}
	return OutputModeUTF8
}

// Pipe color codes, ViSiON/2 palette. These are the only markup accepted in
// scrollback text.
var pipeCodeReplacements = map[string]string{
	"|00": "\x1B[0;30m", // Black
	"|01": "\x1B[0;34m", // Blue
	"|02": "\x1B[0;32m", // Green
	"|03": "\x1B[0;36m", // Cyan
	"|04": "\x1B[0;31m", // Red
	"|05": "\x1B[0;35m", // Magenta
	"|06": "\x1B[0;33m", // Brown/Yellow
	"|07": "\x1B[0;37m", // Light Gray
	"|08": "\x1B[1;30m", // Dark Gray
	"|09": "\x1B[1;34m", // Light Blue
	"|10": "\x1B[1;32m", // Light Green
	"|11": "\x1B[1;36m", // Light Cyan
	"|12": "\x1B[1;31m", // Light Red
	"|13": "\x1B[1;35m", // Light Magenta
	"|14": "\x1B[1;33m", // Yellow
	"|15": "\x1B[1;37m", // White

	"|B0": "\x1B[40m",
	"|B1": "\x1B[41m",
	"|B2": "\x1B[42m",
	"|B3": "\x1B[43m",
	"|B4": "\x1B[44m",
	"|B5": "\x1B[45m",
	"|B6": "\x1B[46m",
	"|B7": "\x1B[47m",

	"|23": "\x1B[0m", // Reset attributes
}

// ReplacePipeCodes converts |XX codes to ANSI sequences and passes every
// other byte through. "||" is an escaped literal pipe.
func ReplacePipeCodes(data []byte) []byte {
	return scanPipeCodes(data, func(buf *bytes.Buffer, seq string) {
		buf.WriteString(seq)
	})
}

// StripPipeCodes removes |XX codes, leaving the visible text.
func StripPipeCodes(s string) string {
	if !strings.Contains(s, "|") {
		return s
	}
	return string(scanPipeCodes([]byte(s), nil))
}

// HasPipeCodes reports whether s carries at least one recognised code.
func HasPipeCodes(s string) bool {
	return StripPipeCodes(s) != s
}

func scanPipeCodes(data []byte, emit func(*bytes.Buffer, string)) []byte {
	var buf bytes.Buffer
	buf.Grow(len(data))
	i := 0
	n := len(data)

	for i < n {
		if data[i] == '|' && i+1 < n && data[i+1] == '|' {
			buf.WriteByte('|')
			i += 2
			continue
		}
		if data[i] == '|' && i+2 < n {
			if seq, ok := pipeCodeReplacements[string(data[i:i+3])]; ok {
				if emit != nil {
					emit(&buf, seq)
				}
				i += 3
				continue
			}
		}
		buf.WriteByte(data[i])
		i++
	}
	return buf.Bytes()
}

// Render converts pipe-coded text to a terminal string, appending a reset
// when any color was applied so styles do not leak into the next line.
func Render(s string) string {
	if !HasPipeCodes(s) {
		return StripPipeCodes(s)
	}
	return string(ReplacePipeCodes([]byte(s))) + "\x1B[0m"
}

// StripAnsi removes ANSI escape sequences.
func StripAnsi(s string) string {
	return xansi.Strip(s)
}

// VisibleLength returns the display width of s once pipe codes and ANSI
// escapes are removed.
func VisibleLength(s string) int {
	return xansi.StringWidth(StripPipeCodes(s))
}

// PadVisible pads s with padChar to width visible cells. Pipe codes do not
// count toward the width.
func PadVisible(s string, width int, padChar rune) string {
	visLen := VisibleLength(s)
	if visLen >= width {
		return s
	}
	return s + strings.Repeat(string(padChar), width-visLen)
}

// TruncateVisible cuts plain (markup free) text to maxVisible cells.
func TruncateVisible(s string, maxVisible int) string {
	if maxVisible <= 0 {
		return ""
	}
	return xansi.Truncate(s, maxVisible, "")
}

// ClearScreen returns the sequence that clears the screen and homes the cursor.
func ClearScreen() string {
	return "\x1B[2J\x1B[H"
}

// Hyperlink wraps text in an OSC 8 hyperlink for terminals that support it.
func Hyperlink(url, text string) string {
	return xansi.SetHyperlink(url) + text + xansi.ResetHyperlink()
}

// EscapePipes doubles every '|' so text from outside the node (post
// titles, usernames) cannot inject color codes.
func EscapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "||")
}
