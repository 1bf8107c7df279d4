package ansi

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/stlalpha/tecnoter/internal/logging"
	"golang.org/x/text/encoding/charmap"
)

// LoadArtFile reads an .ans file and returns its content with the SAUCE
// record removed. Decoding is left to DecodeArt.
func LoadArtFile(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read ansi file %s: %w", filename, err)
	}
	return StripSAUCE(data), nil
}

// StripSAUCE removes SAUCE metadata from ANSI art content.
// SAUCE is a 128-byte record appended to the file, normally preceded by an
// EOF marker (0x1A) and optional comment blocks.
func StripSAUCE(data []byte) []byte {
	const sauceSize = 128
	const eofMarker = 0x1A

	if len(data) < sauceSize {
		return data
	}

	sauceStart := len(data) - sauceSize
	if !bytes.HasPrefix(data[sauceStart:], []byte("SAUCE")) {
		return data
	}

	logging.Debug("SAUCE metadata detected, stripping from content")

	// Comment blocks may sit between the EOF marker and the record.
	for i := sauceStart - 1; i >= 0 && sauceStart-i <= 65536; i-- {
		if data[i] == eofMarker {
			return data[:i]
		}
	}
	return data[:sauceStart]
}

// DecodeArt turns raw CP437 ANSI art into plain UTF-8 lines suitable for the
// scrollback: SAUCE removed, bytes decoded, escape sequences stripped and
// line endings normalised.
func DecodeArt(data []byte) ([]string, error) {
	data = StripSAUCE(data)
	if i := bytes.IndexByte(data, 0x1A); i >= 0 {
		data = data[:i]
	}
	decoded, err := charmap.CodePage437.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("decode cp437: %w", err)
	}
	text := StripAnsi(string(decoded))
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(strings.TrimRight(text, "\n"), "\n"), nil
}
