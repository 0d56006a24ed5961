package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNamed(t *testing.T) {
	if _, ok := Named("json", slog.LevelInfo).Handler().(*slog.JSONHandler); !ok {
		t.Error("json format should use the JSON handler")
	}
	if _, ok := Named("text", slog.LevelInfo).Handler().(*slog.TextHandler); !ok {
		t.Error("text format should use the text handler")
	}
	if !Named("pretty", slog.LevelDebug).Enabled(context.Background(), slog.LevelDebug) {
		t.Error("pretty logger should honour the level")
	}
}
