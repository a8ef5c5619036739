package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestJSONLoggerAddsService(t *testing.T) {
	var buf bytes.Buffer
	logger := newJSONLogger(&buf, "graphrag-api", "info")
	logger.Debug("hidden")
	logger.Info("search_completed", "mode", "local")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected a single json line, got %q: %v", buf.String(), err)
	}
	if entry["service"] != "graphrag-api" || entry["msg"] != "search_completed" || entry["mode"] != "local" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}
