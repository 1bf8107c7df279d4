package ansi

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrNoArt is returned when a Gallery has nothing to show.
var ErrNoArt = errors.New("no ansi art available")

// Gallery picks random art pieces from a local directory or, when the
// directory has none, from a list of URLs.
type Gallery struct {
	Dir   string
	URLs  []string
	Fetch func(ctx context.Context, url string) ([]byte, error)
}

func (g *Gallery) localFiles() []string {
	if g.Dir == "" {
		return nil
	}
	entries, err := os.ReadDir(g.Dir)
	if err != nil {
		return nil
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".ans") {
			files = append(files, filepath.Join(g.Dir, e.Name()))
		}
	}
	return files
}

// Random returns the name and decoded lines of one piece.
func (g *Gallery) Random(ctx context.Context) (string, []string, error) {
	if files := g.localFiles(); len(files) > 0 {
		f := files[rand.IntN(len(files))]
		data, err := LoadArtFile(f)
		if err != nil {
			return "", nil, err
		}
		lines, err := DecodeArt(data)
		return filepath.Base(f), lines, err
	}

	if len(g.URLs) == 0 || g.Fetch == nil {
		return "", nil, ErrNoArt
	}
	u := g.URLs[rand.IntN(len(g.URLs))]
	data, err := g.Fetch(ctx, u)
	if err != nil {
		return "", nil, fmt.Errorf("fetch %s: %w", u, err)
	}
	lines, err := DecodeArt(data)
	return path.Base(u), lines, err
}
