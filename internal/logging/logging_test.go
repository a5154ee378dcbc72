package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in).Level(); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Format: "json", Output: &buf}).With(String("model", "DICE2016"))

	l.Debug(context.Background(), "hidden")
	l.Info(context.Background(), "run complete", Int("steps", 81), Float64("peak", 2.5))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if rec["msg"] != "run complete" || rec["model"] != "DICE2016" || rec["steps"] != float64(81) {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestContextLogger(t *testing.T) {
	if _, ok := FromContext(context.Background()).(noopLogger); !ok {
		t.Error("expected noop logger from empty context")
	}
	var buf bytes.Buffer
	l := New(Config{Output: &buf})
	ctx := ContextWithLogger(context.Background(), l)
	FromContext(ctx).Info(ctx, "hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("expected log output, got %q", buf.String())
	}
}
