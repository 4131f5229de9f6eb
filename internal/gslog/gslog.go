// Package gslog is the host-facing logger a gsdemo binary wires into a
// manager.Manager's log event stream: plain stdlib *log.Logger output,
// fanned out to stdout and a rotate-on-start file, the same scheme the
// game server this project is descended from used for its own console
// and latest.txt/last.txt log pair.
package gslog

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// Logger writes leveled lines to stdout and to dir/latest.txt, rotating
// the previous run's latest.txt to last.txt on construction.
type Logger struct {
	std   *log.Logger
	debug bool
}

// New creates a Logger rooted at dir, creating it if necessary. debug
// gates whether Debug-level lines are written at all.
func New(dir string, debug bool) (*Logger, error) {
	if err := os.MkdirAll(dir, 0777); err != nil {
		return nil, err
	}

	latest := filepath.Join(dir, "latest.txt")
	last := filepath.Join(dir, "last.txt")
	if _, err := os.Stat(latest); err == nil {
		if err := os.Rename(latest, last); err != nil {
			return nil, fmt.Errorf("gslog: rotate previous log: %w", err)
		}
	}

	f, err := os.OpenFile(latest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("gslog: open log file: %w", err)
	}

	w := io.MultiWriter(os.Stdout, f)
	return &Logger{
		std:   log.New(w, "", log.LstdFlags),
		debug: debug,
	}, nil
}

// Debugf logs a debug-level line if debug logging is enabled.
func (l *Logger) Debugf(format string, args ...interface{}) {
	if !l.debug {
		return
	}
	l.std.Printf("[debug] "+format, args...)
}

// Infof logs an info-level line.
func (l *Logger) Infof(format string, args ...interface{}) {
	l.std.Printf("[info] "+format, args...)
}

// Warnf logs a warn-level line.
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.std.Printf("[warn] "+format, args...)
}

// Errorf logs an error-level line.
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.std.Printf("[error] "+format, args...)
}
