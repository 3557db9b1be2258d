// Package logger provides the process-wide structured logger.
//
// Log level is configured via LOG_LEVEL (debug, info, warn, error) or
// programmatically through SetLevel.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

var (
	// Nop until Init runs, so library code can log before main wires it up.
	log  = zerolog.Nop()
	once sync.Once
)

// Init configures the global logger. If pretty is true, output uses the
// human-readable console writer; otherwise JSON lines go to stdout.
func Init(pretty bool) {
	once.Do(func() {
		level := parseLevel(os.Getenv("LOG_LEVEL"))

		var output io.Writer = os.Stdout
		if pretty {
			output = zerolog.ConsoleWriter{Out: os.Stdout}
		}

		log = zerolog.New(output).
			Level(level).
			With().
			Timestamp().
			Logger()
	})
}

// SetLevel overrides the current log level.
func SetLevel(level string) {
	log = log.Level(parseLevel(level))
}

// With returns a logger scoped to one component; every line carries the
// component name.
func With(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
