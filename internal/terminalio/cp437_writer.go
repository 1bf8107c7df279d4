package terminalio

import (
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ansiState tracks the parser state for escape sequences.
type ansiState int

const (
	ansiStateGround ansiState = iota // Normal text processing
	ansiStateEscape                  // Saw ESC (\x1b)
	ansiStateCSI                     // Saw ESC [
	ansiStateOSC                     // Saw ESC ], ends with BEL or ESC \
	ansiStateOSCEsc                  // Saw ESC inside an OSC
)

// SelectiveCP437Writer encodes printable text to CP437 while passing CSI
// sequences through unmodified. Runes with no CP437 form become '?'.
// OSC sequences (hyperlinks, titles) are dropped since classic BBS
// terminals print them as text. Sequences and UTF-8 runes split across
// writes are reassembled.
type SelectiveCP437Writer struct {
	w       io.Writer
	state   ansiState
	ansiBuf bytes.Buffer
	partial []byte // incomplete UTF-8 rune from the previous Write
}

// NewSelectiveCP437Writer creates a new selective CP437 writer.
func NewSelectiveCP437Writer(w io.Writer) *SelectiveCP437Writer {
	return &SelectiveCP437Writer{w: w}
}

// Write implements io.Writer. It reports len(p) on success; the encoded
// output is usually shorter than p.
func (sw *SelectiveCP437Writer) Write(p []byte) (int, error) {
	var out bytes.Buffer

	data := p
	if len(sw.partial) > 0 {
		data = append(append([]byte(nil), sw.partial...), p...)
		sw.partial = nil
	}

	for i := 0; i < len(data); i++ {
		b := data[i]
		switch sw.state {
		case ansiStateGround:
			switch {
			case b == 0x1b:
				sw.ansiBuf.WriteByte(b)
				sw.state = ansiStateEscape
			case b < utf8.RuneSelf:
				out.WriteByte(b)
			case !utf8.FullRune(data[i:]):
				sw.partial = append(sw.partial, data[i:]...)
				i = len(data)
			default:
				r, size := utf8.DecodeRune(data[i:])
				if r == utf8.RuneError && size == 1 {
					// A raw high byte is already CP437.
					out.WriteByte(b)
					continue
				}
				out.WriteByte(encodeRune(r))
				i += size - 1
			}

		case ansiStateEscape:
			sw.ansiBuf.WriteByte(b)
			switch b {
			case '[':
				sw.state = ansiStateCSI
			case ']':
				sw.state = ansiStateOSC
			default:
				sw.flushAnsi(&out)
			}

		case ansiStateCSI:
			sw.ansiBuf.WriteByte(b)
			if b >= 0x40 && b <= 0x7e {
				sw.flushAnsi(&out)
			}

		case ansiStateOSC:
			switch b {
			case 0x07:
				sw.dropAnsi()
			case 0x1b:
				sw.state = ansiStateOSCEsc
			}

		case ansiStateOSCEsc:
			if b == '\\' {
				sw.dropAnsi()
			} else {
				sw.state = ansiStateOSC
			}
		}
	}

	if out.Len() > 0 {
		if _, err := sw.w.Write(out.Bytes()); err != nil {
			return 0, err
		}
	}
	return len(p), nil
}

func (sw *SelectiveCP437Writer) flushAnsi(out *bytes.Buffer) {
	out.Write(sw.ansiBuf.Bytes())
	sw.ansiBuf.Reset()
	sw.state = ansiStateGround
}

func (sw *SelectiveCP437Writer) dropAnsi() {
	sw.ansiBuf.Reset()
	sw.state = ansiStateGround
}

func encodeRune(r rune) byte {
	if b, ok := charmap.CodePage437.EncodeRune(r); ok {
		return b
	}
	return '?'
}
