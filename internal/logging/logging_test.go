package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil {
			t.Errorf("ParseLevel(%q) returned error: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseLevel("loud"); err == nil {
		t.Error("Expected error for unknown level")
	}
}

func TestNew(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(&buf, "text", "info")
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		logger.Debug("hidden")
		logger.Info("tick", "session", "ab12")
		out := buf.String()
		if strings.Contains(out, "hidden") {
			t.Error("Debug message should be filtered at info level")
		}
		if !strings.Contains(out, "session=ab12") {
			t.Errorf("Unexpected text output: %s", out)
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(&buf, "json", "debug")
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		logger.Debug("tick", "n", 3)
		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("Expected JSON line, got %q: %v", buf.String(), err)
		}
		if entry["n"] != float64(3) {
			t.Errorf("Expected n=3, got %v", entry["n"])
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		if _, err := New(&bytes.Buffer{}, "xml", "info"); err == nil {
			t.Error("Expected error for unknown format")
		}
	})
}

func TestPrettyJSONHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyJSONHandler(&buf, nil)).
		With("component", "api").
		WithGroup("game")

	logger.Info("crash", "uid", 2, slog.Group("at", "x", 4, "y", 7), "err", errors.New("boom"))

	if !strings.Contains(buf.String(), "\n  \"") {
		t.Errorf("Expected indented output, got %q", buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "crash" || entry["level"] != "INFO" {
		t.Errorf("Unexpected header fields: %v", entry)
	}
	if entry["component"] != "api" {
		t.Errorf("Expected top-level component attr, got %v", entry["component"])
	}

	game, ok := entry["game"].(map[string]any)
	if !ok {
		t.Fatalf("Expected game group, got %v", entry["game"])
	}
	if game["uid"] != float64(2) || game["err"] != "boom" {
		t.Errorf("Unexpected group content: %v", game)
	}
	at, ok := game["at"].(map[string]any)
	if !ok || at["x"] != float64(4) || at["y"] != float64(7) {
		t.Errorf("Unexpected nested group: %v", game["at"])
	}
}

func TestPrettyJSONHandler_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewPrettyJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))
	logger.Info("quiet")
	if buf.Len() != 0 {
		t.Errorf("Expected info to be filtered, got %q", buf.String())
	}
	logger.Warn("loud")
	if !strings.Contains(buf.String(), "loud") {
		t.Error("Expected warn to be written")
	}
}
