// Package history persists each user's command history as a JSON string
// list under the data directory, and remembers each user's display mode
// for the lifetime of the process.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/stlalpha/tecnoter/internal/session"
)

// ErrInvalidKey is returned for user names that cannot name a file.
var ErrInvalidKey = errors.New("invalid history key")

// DefaultHistory seeds users who have never entered a command.
var DefaultHistory = []string{
	"help",
	"ls -l /pages",
	"cat bio",
	"whoami",
	"date",
	"fortune",
	"bbs",
	"curl https://jsonplaceholder.typicode.com/posts/1",
}

// Store reads and writes <dir>/<user>.json.
type Store struct {
	dir   string
	limit int

	mu    sync.Mutex
	modes map[string]session.SystemMode
}

// NewStore creates a Store rooted at dir, keeping at most limit entries
// per user.
func NewStore(dir string, limit int) *Store {
	if limit <= 0 {
		limit = session.DefaultHistoryCap
	}
	return &Store{
		dir:   dir,
		limit: limit,
		modes: make(map[string]session.SystemMode),
	}
}

func (s *Store) path(user string) (string, error) {
	user = strings.ToLower(strings.TrimSpace(user))
	if user == "" || user == "." || user == ".." || strings.ContainsAny(user, `/\:`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, user)
	}
	return filepath.Join(s.dir, user+".json"), nil
}

// Load returns the user's history. A user without a file gets a copy of
// DefaultHistory.
func (s *Store) Load(user string) ([]string, error) {
	p, err := s.path(user)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return append([]string(nil), DefaultHistory...), nil
		}
		return nil, fmt.Errorf("failed to read history %s: %w", p, err)
	}
	var h []string
	if err := json.Unmarshal(data, &h); err != nil {
		log.Printf("WARN: History file %s is corrupt, using defaults: %v", p, err)
		return append([]string(nil), DefaultHistory...), nil
	}
	if over := len(h) - s.limit; over > 0 {
		h = h[over:]
	}
	return h, nil
}

// Save writes the user's history, keeping the newest entries.
func (s *Store) Save(user string, h []string) error {
	p, err := s.path(user)
	if err != nil {
		return err
	}
	if over := len(h) - s.limit; over > 0 {
		h = h[over:]
	}
	if h == nil {
		h = []string{}
	}
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create history directory %s: %w", s.dir, err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write history %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		return fmt.Errorf("failed to replace history %s: %w", p, err)
	}
	return nil
}

// Mode returns the display mode last chosen by user, Terminal by default.
func (s *Store) Mode(user string) session.SystemMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modes[strings.ToLower(user)]
}

// SetMode remembers user's display mode until the process exits.
func (s *Store) SetMode(user string, m session.SystemMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes[strings.ToLower(user)] = m
}
