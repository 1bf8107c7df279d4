package main

import (
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stlalpha/tecnoter/internal/config"
	"github.com/stlalpha/tecnoter/internal/logging"
)

const debounceDuration = 500 * time.Millisecond

// ConfigWatcher watches the config directory and hot-reloads config.json
// and board.yaml into the shared Holder.
type ConfigWatcher struct {
	mu         sync.Mutex
	watcher    *fsnotify.Watcher
	done       chan struct{}
	configPath string
	holder     *config.Holder
	debugFlag  bool
	timers     map[string]*time.Timer
}

// NewConfigWatcher creates a new configuration file watcher.
func NewConfigWatcher(configPath string, holder *config.Holder, debugFlag bool) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(configPath); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", configPath, err)
	}
	log.Printf("INFO: Watching %s for config changes (auto-reload enabled)", configPath)

	cw := &ConfigWatcher{
		watcher:    watcher,
		done:       make(chan struct{}),
		configPath: configPath,
		holder:     holder,
		debugFlag:  debugFlag,
		timers:     make(map[string]*time.Timer),
	}
	go cw.watchLoop()
	return cw, nil
}

// Stop stops the configuration file watcher.
func (cw *ConfigWatcher) Stop() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.watcher == nil {
		return
	}
	close(cw.done)
	for _, t := range cw.timers {
		t.Stop()
	}
	cw.watcher.Close()
	cw.watcher = nil
	log.Printf("INFO: Configuration file watcher stopped")
}

// watchLoop debounces write and create events per file.
func (cw *ConfigWatcher) watchLoop() {
	events, errs := cw.watcher.Events, cw.watcher.Errors
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			name := filepath.Base(event.Name)
			cw.mu.Lock()
			if cw.watcher != nil {
				if t, ok := cw.timers[name]; ok {
					t.Stop()
				}
				cw.timers[name] = time.AfterFunc(debounceDuration, func() {
					cw.handleConfigChange(name)
				})
			}
			cw.mu.Unlock()

		case err, ok := <-errs:
			if !ok {
				return
			}
			log.Printf("ERROR: Config file watcher error: %v", err)

		case <-cw.done:
			return
		}
	}
}

// handleConfigChange reloads the file that changed.
func (cw *ConfigWatcher) handleConfigChange(filename string) {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	switch strings.ToLower(filename) {
	case "config.json":
		cw.reloadServerConfig()
	case "board.yaml":
		cw.reloadBoard()
	case "events.json":
		log.Printf("WARN: events.json changed - server restart required for changes to take effect")
	default:
		logging.Debug("Ignoring change to %s", filename)
	}
}

func (cw *ConfigWatcher) reloadServerConfig() {
	log.Printf("INFO: Reloading config.json...")
	next, err := config.LoadServerConfig(cw.configPath)
	if err != nil {
		log.Printf("ERROR: Failed to reload config.json: %v", err)
		return
	}
	cur := cw.holder.Get()
	merged := config.Reloadable(cur.Server, next)
	cw.holder.Swap(config.Runtime{Server: merged, Board: cur.Board})
	logging.DebugEnabled = cw.debugFlag || merged.Debug
	log.Printf("INFO: config.json reloaded successfully")
	log.Printf("WARN: Listener, host key, content URL and engine changes require a full restart")
}

func (cw *ConfigWatcher) reloadBoard() {
	log.Printf("INFO: Reloading board.yaml...")
	board, err := config.LoadBoardConfig(cw.configPath)
	if err != nil {
		log.Printf("ERROR: Failed to reload board.yaml: %v", err)
		return
	}
	cur := cw.holder.Get()
	cw.holder.Swap(config.Runtime{Server: cur.Server, Board: board})
	log.Printf("INFO: board.yaml reloaded successfully")
}
