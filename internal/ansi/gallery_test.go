package ansi

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestGalleryPrefersLocalFiles(t *testing.T) {
	dir := t.TempDir()
	art := append([]byte("\x1B[1;34mHELLO\r\nWORLD\x1B[0m\x1A"), sauceRecord()...)
	if err := os.WriteFile(filepath.Join(dir, "hello.ANS"), art, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644); err != nil {
		t.Fatal(err)
	}

	fetched := false
	g := &Gallery{
		Dir:  dir,
		URLs: []string{"https://example.com/x.ans"},
		Fetch: func(context.Context, string) ([]byte, error) {
			fetched = true
			return nil, nil
		},
	}
	name, lines, err := g.Random(context.Background())
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	if fetched {
		t.Error("fetched a URL although local art exists")
	}
	if name != "hello.ANS" {
		t.Errorf("name = %q", name)
	}
	if len(lines) != 2 || lines[0] != "HELLO" || lines[1] != "WORLD" {
		t.Errorf("lines = %q", lines)
	}
}

func TestGalleryFallsBackToURLs(t *testing.T) {
	g := &Gallery{
		Dir:  t.TempDir(),
		URLs: []string{"https://example.com/art/logo.ans"},
		Fetch: func(_ context.Context, url string) ([]byte, error) {
			return []byte("\xDB\xDB LOGO"), nil
		},
	}
	name, lines, err := g.Random(context.Background())
	if err != nil {
		t.Fatalf("Random: %v", err)
	}
	if name != "logo.ans" || len(lines) != 1 || lines[0] != "██ LOGO" {
		t.Errorf("name=%q lines=%q", name, lines)
	}

	g.Fetch = func(context.Context, string) ([]byte, error) { return nil, errors.New("offline") }
	if _, _, err := g.Random(context.Background()); err == nil {
		t.Error("expected fetch error")
	}
}

func TestGalleryEmpty(t *testing.T) {
	g := &Gallery{}
	if _, _, err := g.Random(context.Background()); !errors.Is(err, ErrNoArt) {
		t.Errorf("err = %v, want ErrNoArt", err)
	}
}
