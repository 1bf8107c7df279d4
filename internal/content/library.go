package content

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Fetcher is the subset of Client the Library refreshes from.
type Fetcher interface {
	FetchIndex(ctx context.Context) (Index, error)
}

// Library is the node-wide copy of the site index shared by all sessions.
// Refreshes replace the whole index; readers never see a partial update.
type Library struct {
	mu       sync.RWMutex
	idx      Index
	loaded   bool
	lastErr  error
	loadedAt time.Time
	fetcher  Fetcher
	host     func(SystemInfo) SystemInfo

	ready     chan struct{}
	readyOnce sync.Once
}

// NewLibrary creates an empty Library backed by fetcher. hostInfo, when
// non-nil, fills live host values into the system info after each refresh.
func NewLibrary(fetcher Fetcher, hostInfo func(SystemInfo) SystemInfo) *Library {
	return &Library{
		fetcher: fetcher,
		host:    hostInfo,
		idx:     Index{SystemInfo: DefaultSystemInfo()},
		ready:   make(chan struct{}),
	}
}

// Refresh fetches the index and replaces the current one. On failure the
// previous index is kept and the error is remembered.
func (l *Library) Refresh(ctx context.Context) error {
	if l.fetcher == nil {
		err := errors.New("content library has no fetcher")
		l.fail(err)
		return err
	}
	idx, err := l.fetcher.FetchIndex(ctx)
	if err != nil {
		l.fail(err)
		log.Printf("ERROR: Content refresh failed: %v", err)
		return fmt.Errorf("refresh content index: %w", err)
	}
	if l.host != nil {
		idx.SystemInfo = l.host(idx.SystemInfo)
	}
	l.Replace(idx)
	log.Printf("INFO: Content index loaded: %d posts, %d pages", len(idx.Posts), len(idx.Pages))
	return nil
}

// Replace installs idx wholesale.
func (l *Library) Replace(idx Index) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.idx = idx
	l.loaded = true
	l.lastErr = nil
	l.loadedAt = time.Now()
	l.markReady()
}

func (l *Library) fail(err error) {
	l.mu.Lock()
	l.lastErr = err
	l.mu.Unlock()
	l.markReady()
}

func (l *Library) markReady() {
	l.readyOnce.Do(func() { close(l.ready) })
}

// Ready is closed once the first refresh has succeeded or failed.
func (l *Library) Ready() <-chan struct{} {
	return l.ready
}

// Snapshot returns the current index. Slices are shared and must be
// treated as read-only.
func (l *Library) Snapshot() Index {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.idx
}

// Loaded reports whether at least one refresh has succeeded.
func (l *Library) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// Err returns the error of the last failed refresh, cleared on success.
func (l *Library) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.lastErr
}

// LoadedAt returns the time of the last successful refresh.
func (l *Library) LoadedAt() time.Time {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loadedAt
}
