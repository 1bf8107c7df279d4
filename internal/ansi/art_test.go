package ansi

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func sauceRecord() []byte {
	sauce := make([]byte, 128)
	copy(sauce, []byte("SAUCE00"))
	return sauce
}

func TestStripSAUCE(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected []byte
	}{
		{
			name:     "No SAUCE metadata",
			input:    []byte("Hello, World!\x1B[1;31mRed Text\x1B[0m"),
			expected: []byte("Hello, World!\x1B[1;31mRed Text\x1B[0m"),
		},
		{
			name:     "File too small for SAUCE",
			input:    []byte("Small file"),
			expected: []byte("Small file"),
		},
		{
			name: "SAUCE with EOF marker",
			input: func() []byte {
				content := []byte("ANSI art content here\r\n")
				content = append(content, 0x1A)
				return append(content, sauceRecord()...)
			}(),
			expected: []byte("ANSI art content here\r\n"),
		},
		{
			name: "SAUCE without EOF marker",
			input: func() []byte {
				content := []byte("ANSI art without EOF\r\n")
				return append(content, sauceRecord()...)
			}(),
			expected: []byte("ANSI art without EOF\r\n"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := StripSAUCE(tt.input)
			if !bytes.Equal(result, tt.expected) {
				t.Errorf("StripSAUCE() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestLoadArtFileMissing(t *testing.T) {
	if _, err := LoadArtFile(filepath.Join(t.TempDir(), "nonexistent.ans")); err == nil {
		t.Error("Expected error for nonexistent file, got nil")
	}
}

func TestDecodeArt(t *testing.T) {
	raw := []byte("\x1B[1;31m\xDB\xDB\x1B[0m HI\r\n\xC9\xCD\xBB\r\n")
	raw = append(raw, 0x1A)
	raw = append(raw, sauceRecord()...)

	path := filepath.Join(t.TempDir(), "logo.ans")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatal(err)
	}
	data, err := LoadArtFile(path)
	if err != nil {
		t.Fatalf("LoadArtFile: %v", err)
	}

	lines, err := DecodeArt(data)
	if err != nil {
		t.Fatalf("DecodeArt: %v", err)
	}
	want := []string{"██ HI", "╔═╗"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines %q, want %q", len(lines), lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
