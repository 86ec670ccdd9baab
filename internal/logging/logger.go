package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Logger is the process-wide logger. It is usable before Init and writes to stderr.
var Logger = newLogger(os.Stderr, log.InfoLevel)

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
	})
}

// Init replaces the global logger with one at the given level ("debug", "info", "warn", "error").
// Unknown levels fall back to info.
func Init(level string) {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = log.InfoLevel
	}
	Logger = newLogger(os.Stderr, lvl)
}

// SetOutput redirects the global logger, mainly for tests.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

func Info(msg string, keyvals ...interface{}) {
	Logger.Info(msg, keyvals...)
}

func Debug(msg string, keyvals ...interface{}) {
	Logger.Debug(msg, keyvals...)
}

func Warn(msg string, keyvals ...interface{}) {
	Logger.Warn(msg, keyvals...)
}

func Error(msg string, keyvals ...interface{}) {
	Logger.Error(msg, keyvals...)
}

// Fatal logs and exits with status 1.
func Fatal(msg string, keyvals ...interface{}) {
	Logger.Fatal(msg, keyvals...)
}

// WithPrefix returns a child logger tagged with a component name.
func WithPrefix(prefix string) *log.Logger {
	return Logger.WithPrefix(prefix)
}
