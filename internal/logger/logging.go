// Package logger wraps charmbracelet/log for placeserve's packages.
// Everything goes to stderr: stdout carries the IPC stream in server mode.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// New creates a charm logger with prefix that respects the global log level.
func New(prefix string) *log.Logger {
	return NewWithConfig(os.Stderr, prefix, log.GetLevel(), false, true, log.TextFormatter)
}

// NewWithConfig creates a charm logger with custom config.
func NewWithConfig(w io.Writer, prefix string, level log.Level, caller bool, showTimestamp bool, fmt log.Formatter) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Prefix:          prefix,
		Level:           level,
		ReportCaller:    caller,
		ReportTimestamp: showTimestamp,
		Formatter:       fmt,
	})
}

// ParseLevel maps a level name to a charm level. Unknown or empty names
// fall back to def.
func ParseLevel(name string, def log.Level) log.Level {
	name = strings.TrimSpace(name)
	if name == "" {
		return def
	}
	level, err := log.ParseLevel(strings.ToLower(name))
	if err != nil {
		log.Warnf("Unknown log level %q, using %s", name, def)
		return def
	}
	return level
}

// Setup installs the default logger. debug forces DebugLevel and caller
// reporting; otherwise levelName (usually PLACESERVE_LOG_LEVEL) decides.
func Setup(levelName string, debug bool) *log.Logger {
	level := ParseLevel(levelName, log.WarnLevel)
	if debug {
		level = log.DebugLevel
	}
	l := NewWithConfig(os.Stderr, "", level, debug, debug, log.TextFormatter)
	log.SetDefault(l)
	return l
}
