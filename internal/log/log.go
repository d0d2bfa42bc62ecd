// Package log provides the logging infrastructure for finchat.
//
// Loggers are plain *slog.Logger values handed to components through their
// constructors; there is no package-level logger. Components narrow their
// logger with With() so every line carries its origin.
//
// Usage:
//
//	// At startup
//	logger := log.New(log.Config{Level: slog.LevelInfo, JSON: true})
//
//	// Injected with context
//	store := auth.New(secret, auth.WithLogger(logger.With("component", "auth")))
//	retriever := rag.New(vec, kw, logger.With("component", "rag"))
//
//	// In tests
//	logger := log.NewNop()
//	// or capture output
//	var buf bytes.Buffer
//	logger := log.NewWithWriter(&buf, log.Config{})
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger is a type alias for *slog.Logger. The standard library type is
// used directly so components keep full access to With() and the slog
// ecosystem without an interface layer in between.
type Logger = *slog.Logger

// Config defines logger configuration options.
type Config struct {
	// Level sets the minimum log level. Default: slog.LevelInfo
	Level slog.Level

	// JSON enables JSON format output. Default: false (text format)
	JSON bool

	// AddSource adds source file information to log entries. Default: false
	AddSource bool
}

// New creates a logger with the given configuration, writing to os.Stderr.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a logger that writes to the specified writer.
// Useful for tests or custom output destinations.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// NewNop creates a logger that discards all output. Test use only:
// production code always runs with a configured writer.
func NewNop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
