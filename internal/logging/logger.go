// Package logging builds the loggers used by the cache and its tools.
package logging

import (
	"io"
	"os"

	"github.com/phuslu/log"
)

// CreateDebugLogger returns a console logger that emits everything
// from debug level up.
func CreateDebugLogger() *log.Logger {
	return CreateLogger(log.DebugLevel)
}

// CreateLogger returns a console logger writing to stderr at the given level.
func CreateLogger(level log.Level) *log.Logger {
	return &log.Logger{
		Level:  level,
		Caller: 0,
		Writer: &log.ConsoleWriter{
			Writer:         os.Stderr,
			ColorOutput:    false,
			EndWithMessage: true,
		},
	}
}

// Discard returns a logger that drops every event.
func Discard() *log.Logger {
	return &log.Logger{
		Level:  log.PanicLevel,
		Writer: &log.IOWriter{Writer: io.Discard},
	}
}
