package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(Config{Level: "info", Format: "json", Output: &buf}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { globalLogger = nil })

	ctx := context.Background()
	Debug(ctx, "hidden")
	ErrorWithErr(ctx, "fetch failed", errors.New("boom"), "symbol", "AAPL")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected exactly one record, got %d: %q", len(lines), buf.String())
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("record is not JSON: %v", err)
	}
	if rec["msg"] != "fetch failed" || rec["error"] != "boom" || rec["symbol"] != "AAPL" {
		t.Errorf("unexpected record %v", rec)
	}
	if IsDebugEnabled() {
		t.Error("debug must be off at info level")
	}
}

func TestOperationTimer_WithoutTracing(t *testing.T) {
	var buf bytes.Buffer
	_ = Init(Config{Level: "debug", Format: "text", Output: &buf})
	t.Cleanup(func() { globalLogger = nil })

	op := StartOperation(context.Background(), "export", "symbol", "MSFT")
	if op.Context() == nil {
		t.Fatal("expected a context")
	}
	op.EndWithError(errors.New("no data"))

	out := buf.String()
	if !strings.Contains(out, "operation started") || !strings.Contains(out, "operation failed") {
		t.Errorf("unexpected log output %q", out)
	}
}
