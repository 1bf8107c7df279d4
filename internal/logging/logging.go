// Package logging provides debug logging utilities for the tecnoter node.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// DebugEnabled controls whether Debug() produces output.
// Set via -debug flag, the config "debug" field or DEBUG=1 environment variable.
var DebugEnabled bool

// Debug logs a message only when DebugEnabled is true.
func Debug(format string, args ...any) {
	if DebugEnabled {
		log.Printf("DEBUG: "+format, args...)
	}
}

// Node logs a per-connection line prefixed with the node number.
func Node(node int, format string, args ...any) {
	log.Printf("Node %d: "+format, append([]any{node}, args...)...)
}

// SetupFile sends the standard logger to the log file at path, and to
// stderr as well when echo is set. The returned closer releases the file;
// callers defer it.
func SetupFile(path string, echo bool) (io.Closer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	if echo {
		log.SetOutput(io.MultiWriter(os.Stderr, f))
	} else {
		log.SetOutput(f)
	}
	return f, nil
}
