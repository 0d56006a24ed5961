package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// New creates a configured application logger.
// It writes to Stderr (to separate from Stdout chat and MCP stdio).
// It standardizes common keys (e.g., "error" -> "err").
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, options(level)))
}

// NewJSON is New with a JSON handler, for log collectors.
func NewJSON(level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, options(level)))
}

// NewPretty is New with coloured, compact output for interactive terminals.
func NewPretty(level slog.Level) *slog.Logger {
	opts := options(level)
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:       opts.Level,
		ReplaceAttr: opts.ReplaceAttr,
		TimeFormat:  time.Kitchen,
	}))
}

// Named picks the handler by format name ("json", "pretty" or "text").
func Named(format string, level slog.Level) *slog.Logger {
	switch format {
	case "json":
		return NewJSON(level)
	case "pretty":
		return NewPretty(level)
	default:
		return New(level)
	}
}

// ParseLevel maps a level name to slog; unknown names fall back to info.
func ParseLevel(name string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func options(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Standardize 'error' key to 'err'
			if a.Key == "error" {
				a.Key = "err"
			}
			return a
		},
	}
}
