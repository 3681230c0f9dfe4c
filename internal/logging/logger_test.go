package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nightshift/internal/services"
)

func newTestConsoleLogger(buf *bytes.Buffer) *slog.Logger {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelDebug)
	return slog.New(newConsoleHandler(buf, levelVar, false))
}

func TestConsoleHandlerFormatsLine(t *testing.T) {
	var buf bytes.Buffer
	logger := NewComponentLogger(newTestConsoleLogger(&buf), "scheduler")

	logger.Info("post scheduled", Int64(FieldItemID, 42), String("slot", "2026-01-02T03:04:00Z"))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, " INFO scheduler: post scheduled") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "item_id=42") {
		t.Fatalf("missing item_id attr: %q", line)
	}
	if !strings.Contains(line, "slot=2026-01-02T03:04:00Z") {
		t.Fatalf("missing slot attr: %q", line)
	}
	if strings.Contains(line, "component=") {
		t.Fatalf("component should be a prefix, not an attr: %q", line)
	}
}

func TestConsoleHandlerQuotesAndErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestConsoleLogger(&buf)

	logger.Error("synthesis failed", Error(errors.New("voice not found")), String("title", "part one"))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, `error="voice not found"`) {
		t.Fatalf("error attr not quoted: %q", line)
	}
	if !strings.Contains(line, `title="part one"`) {
		t.Fatalf("spaced value not quoted: %q", line)
	}
	if !strings.Contains(line, "ERROR") {
		t.Fatalf("missing level label: %q", line)
	}
}

func TestConsoleHandlerFlattensGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := newTestConsoleLogger(&buf).WithGroup("render")

	logger.Info("encode complete", Int("attempt", 2))

	line := strings.TrimSpace(buf.String())
	if !strings.Contains(line, "render.attempt=2") {
		t.Fatalf("group not flattened: %q", line)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, levelVar, false))

	logger.Info("quiet")
	logger.Warn("loud")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Fatalf("info leaked past warn level: %q", out)
	}
	if !strings.Contains(out, "loud") {
		t.Fatalf("warn suppressed: %q", out)
	}
}

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "daemon.log")
	logger, err := New(Options{Level: "info", Format: "json", OutputPaths: []string{path}, ErrorOutputPaths: []string{path}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("started", String(FieldWorker, "tts"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"started"`) {
		t.Fatalf("missing message: %q", out)
	}
	if !strings.Contains(out, `"level":"info"`) {
		t.Fatalf("level not lowercased: %q", out)
	}
	if !strings.Contains(out, `"worker":"tts"`) {
		t.Fatalf("missing worker attr: %q", out)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	base := newTestConsoleLogger(&buf)

	ctx := services.WithItemID(context.Background(), 7)
	ctx = services.WithStage(ctx, "render")
	ctx = services.WithRequestID(ctx, "abc123")

	WithContext(ctx, base).Info("working")

	line := strings.TrimSpace(buf.String())
	for _, want := range []string{"item_id=7", "stage=render", "correlation_id=abc123"} {
		if !strings.Contains(line, want) {
			t.Fatalf("missing %s in %q", want, line)
		}
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := NewNop()
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("noop logger should report disabled")
	}
}
