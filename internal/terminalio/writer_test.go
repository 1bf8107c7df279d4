package terminalio

import (
	"bytes"
	"testing"

	"github.com/stlalpha/tecnoter/internal/ansi"
)

func TestCP437Writer(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []byte
	}{
		{"ascii passes", "Hello", []byte("Hello")},
		{"box drawing", "╔═╗", []byte{0xC9, 0xCD, 0xBB}},
		{"shades", "░▒▓█", []byte{0xB0, 0xB1, 0xB2, 0xDB}},
		{"csi untouched", "\x1b[1;36m║\x1b[0m", append(append([]byte("\x1b[1;36m"), 0xBA), []byte("\x1b[0m")...)},
		{"unmappable", "π→x", []byte{0xE3, '?', 'x'}},
		{"hyperlink dropped", "\x1b]8;;https://tecnoter.io\x07link\x1b]8;;\x07", []byte("link")},
		{"st terminated osc", "\x1b]0;title\x1b\\ok", []byte("ok")},
		{"raw cp437 byte", "\xB3", []byte{0xB3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			w := NewSelectiveCP437Writer(&out)
			n, err := w.Write([]byte(tt.input))
			if err != nil {
				t.Fatal(err)
			}
			if n != len(tt.input) {
				t.Errorf("n = %d, want %d", n, len(tt.input))
			}
			if !bytes.Equal(out.Bytes(), tt.want) {
				t.Errorf("got % x, want % x", out.Bytes(), tt.want)
			}
		})
	}
}

func TestCP437WriterSplitWrites(t *testing.T) {
	var out bytes.Buffer
	w := NewSelectiveCP437Writer(&out)
	full := []byte("\x1b[31m═\x1b[0m")
	// Split inside the CSI and inside the 3-byte rune.
	for _, part := range [][]byte{full[:3], full[3:6], full[6:]} {
		if _, err := w.Write(part); err != nil {
			t.Fatal(err)
		}
	}
	want := append(append([]byte("\x1b[31m"), 0xCD), []byte("\x1b[0m")...)
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("got % x, want % x", out.Bytes(), want)
	}
}

func TestNewWriterModes(t *testing.T) {
	var out bytes.Buffer
	if w := NewWriter(&out, ansi.OutputModeUTF8); w != &out {
		t.Error("utf8 mode should return the writer unchanged")
	}
	if _, ok := NewWriter(&out, ansi.OutputModeCP437).(*SelectiveCP437Writer); !ok {
		t.Error("cp437 mode should wrap the writer")
	}
}

func TestWriteString(t *testing.T) {
	var out bytes.Buffer
	if err := WriteString(&out, "|12busy║", ansi.OutputModeCP437); err != nil {
		t.Fatal(err)
	}
	want := append([]byte("\x1b[1;31mbusy"), 0xBA)
	want = append(want, []byte("\x1b[0m")...)
	if !bytes.Equal(out.Bytes(), want) {
		t.Errorf("got %q, want %q", out.Bytes(), want)
	}
}
