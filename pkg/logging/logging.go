// Package logging configures structured logging: colored text with tint for
// terminals, or JSON for log collectors.
//
// Usage:
//
//	level, _ := logging.ParseLevel(cfg.Log.Level)
//	logger := logging.Setup(logging.Options{Level: level, Format: cfg.Log.Format})
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options selects the handler built by New.
type Options struct {
	Level slog.Level
	// Format is FormatText (default) or FormatJSON.
	Format string
	// Writer defaults to os.Stderr.
	Writer io.Writer
	// NoColor disables ANSI colors in text output.
	NoColor bool
}

// New builds a logger from opts.
func New(opts Options) *slog.Logger {
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}
	if opts.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     opts.Level,
			AddSource: true,
		}))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      opts.Level,
		TimeFormat: time.Kitchen,
		AddSource:  true,
		NoColor:    opts.NoColor,
	}))
}

// Setup builds a logger from opts and installs it as slog's default.
func Setup(opts Options) *slog.Logger {
	logger := New(opts)
	slog.SetDefault(logger)
	return logger
}

// ParseLevel converts a level name to a slog.Level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// ValidFormat reports whether format names a supported output format.
func ValidFormat(format string) bool {
	return format == "" || format == FormatText || format == FormatJSON
}
