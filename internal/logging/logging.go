// Package logging provides the shared structured logger for chatbridge.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

// EnvLogLevel is consulted when no level is given on the command line
const EnvLogLevel = "CHATBRIDGE_LOG_LEVEL"

var (
	mu     sync.RWMutex
	Logger = newLogger(os.Stderr, log.WarnLevel)
	closer io.Closer
)

func newLogger(w io.Writer, level log.Level) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05",
	})
	l.SetLevel(level)
	return l
}

// Configure sets the level and destination of the shared logger.
// Level precedence: argument > CHATBRIDGE_LOG_LEVEL > warn.
// When file is non-empty, logs are appended to it instead of stderr.
func Configure(level, file string) error {
	if level == "" {
		level = os.Getenv(EnvLogLevel)
	}

	var output io.Writer = os.Stderr
	var c io.Closer
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return err
		}
		output = f
		c = f
	}

	mu.Lock()
	defer mu.Unlock()

	if closer != nil {
		_ = closer.Close()
	}
	closer = c
	Logger = newLogger(output, ParseLevel(level))
	return nil
}

// SetOutput redirects the shared logger, keeping its level.
// Used by tests and by the TUI to keep the alt-screen clean.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	Logger = newLogger(w, Logger.GetLevel())
}

// Close releases the log file opened by Configure, if any
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	return err
}

// ParseLevel converts a level name to a log.Level, defaulting to warn
func ParseLevel(level string) log.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return log.DebugLevel
	case "info":
		return log.InfoLevel
	case "warn", "warning":
		return log.WarnLevel
	case "error":
		return log.ErrorLevel
	case "fatal":
		return log.FatalLevel
	default:
		return log.WarnLevel
	}
}

// WithPrefix returns a component logger sharing the global output and level
func WithPrefix(component string) *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return Logger.WithPrefix(component)
}

// Discard returns a logger that writes nowhere
func Discard() *log.Logger {
	return newLogger(io.Discard, log.FatalLevel)
}
