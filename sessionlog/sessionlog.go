// Package sessionlog appends a human-readable line per serial
// operation to a rotating log file. The sink is caller-owned plumbing
// around the gateway's structured events; the core session never
// writes it directly.
package sessionlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"

	"rs485console/gateway"
)

const timeLayout = "2006-01-02 15:04:05.000"

// Sink formats gateway events into session log lines.
type Sink struct {
	mu     sync.Mutex
	writer io.Writer
	closer io.Closer
	path   string
	logger *slog.Logger
}

// Options controls file placement and rotation.
type Options struct {
	Path       string // empty means DefaultPath()
	MaxSizeMB  int
	MaxBackups int
	Compress   bool
}

// New creates a sink writing to a rotated file.
func New(opts Options, logger *slog.Logger) *Sink {
	path := opts.Path
	if path == "" {
		path = DefaultPath()
	}
	if opts.MaxSizeMB == 0 {
		opts.MaxSizeMB = 10
	}
	if opts.MaxBackups == 0 {
		opts.MaxBackups = 3
	}

	writer := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		Compress:   opts.Compress,
	}
	return &Sink{writer: writer, closer: writer, path: path, logger: logger}
}

// NewWithWriter creates a sink over an arbitrary writer. Tests use
// this to capture output.
func NewWithWriter(w io.Writer, logger *slog.Logger) *Sink {
	return &Sink{writer: w, logger: logger}
}

// Record implements gateway.EventSink.
func (s *Sink) Record(ev gateway.Event) {
	line := FormatLine(ev)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintln(s.writer, line); err != nil {
		s.logger.Warn("session log write failed", "path", s.path, "error", err)
	}
}

// Path returns the log file path, empty for writer-backed sinks.
func (s *Sink) Path() string {
	return s.path
}

// Close releases the underlying file.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// FormatLine renders one event as a session log line.
func FormatLine(ev gateway.Event) string {
	var b strings.Builder
	b.WriteString(ev.Time.Format(timeLayout))
	b.WriteByte(' ')
	b.WriteString(strings.ToUpper(ev.Op))
	if ev.OK {
		b.WriteString(" ok")
	} else {
		b.WriteString(" failed code=")
		b.WriteString(ev.Code)
	}
	if ev.Port != "" {
		b.WriteString(" port=")
		b.WriteString(ev.Port)
	}
	if ev.Bytes > 0 || ev.Op == "write" || ev.Op == "read" {
		fmt.Fprintf(&b, " bytes=%d", ev.Bytes)
	}
	if ev.Detail != "" {
		b.WriteByte(' ')
		b.WriteString(ev.Detail)
	}
	return b.String()
}

// DefaultPath picks the conventional session log location, falling
// back to the user's home directory and finally the temp directory
// when the preferred parent cannot be created.
func DefaultPath() string {
	for _, path := range candidatePaths() {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err == nil {
			return path
		}
	}
	return filepath.Join(os.TempDir(), "rs485", "session.log")
}

func candidatePaths() []string {
	var candidates []string
	if runtime.GOOS == "windows" {
		candidates = append(candidates, `C:\Logs\rs485-session.log`)
		if home, err := os.UserHomeDir(); err == nil {
			candidates = append(candidates, filepath.Join(home, "Logs", "rs485-session.log"))
		}
	} else {
		candidates = append(candidates, "/var/log/rs485/session.log")
		if home, err := os.UserHomeDir(); err == nil {
			candidates = append(candidates, filepath.Join(home, "logs", "rs485-session.log"))
		}
	}
	return candidates
}
