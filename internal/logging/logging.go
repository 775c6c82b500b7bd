// Package logging provides debug logging utilities and log file setup for pktindex.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// DebugEnabled controls whether Debug() produces output.
// Set via -debug flag, the config file, or DEBUG=1 environment variable.
var DebugEnabled bool

// Debug logs a message only when DebugEnabled is true.
func Debug(format string, args ...any) {
	if DebugEnabled {
		log.Printf("DEBUG: "+format, args...)
	}
}

// Setup tees the standard logger to the file at path in addition to stderr.
// An empty path leaves the logger unchanged. The returned closer restores
// stderr-only output and closes the file.
func Setup(path string) (io.Closer, error) {
	if path == "" {
		return io.NopCloser(nil), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return logFile{f}, nil
}

type logFile struct{ f *os.File }

func (l logFile) Close() error {
	log.SetOutput(os.Stderr)
	return l.f.Close()
}
