// Package terminalio adapts node output to the character set a caller's
// terminal expects.
package terminalio

import (
	"io"

	"github.com/stlalpha/tecnoter/internal/ansi"
)

// NewWriter wraps w for the given output mode. UTF-8 output passes
// through; CP437 output goes through a SelectiveCP437Writer. OutputModeAuto
// must be resolved by the caller first and is treated as UTF-8.
func NewWriter(w io.Writer, mode ansi.OutputMode) io.Writer {
	if mode == ansi.OutputModeCP437 {
		return NewSelectiveCP437Writer(w)
	}
	return w
}

// WriteString renders pipe codes in s and writes it in the given mode,
// for the plain text a transport prints before a session starts.
func WriteString(w io.Writer, s string, mode ansi.OutputMode) error {
	_, err := io.WriteString(NewWriter(w, mode), ansi.Render(s))
	return err
}
