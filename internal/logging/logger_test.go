package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"dubber/internal/services"
)

func TestConsoleHandlerFormatsRecord(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	handler := newConsoleHandler(&buf, levelVar, false)
	logger := slog.New(handler).With(String(FieldComponent, "pipeline"))

	logger.Info("stage started", String(FieldStage, "transcribe"), Int(FieldSegment, 3))

	line := buf.String()
	if !strings.Contains(line, "INFO") {
		t.Fatalf("missing level in %q", line)
	}
	if !strings.Contains(line, "pipeline: stage started") {
		t.Fatalf("missing component prefix in %q", line)
	}
	if !strings.Contains(line, "stage=transcribe") || !strings.Contains(line, "segment=3") {
		t.Fatalf("missing attrs in %q", line)
	}
}

func TestConsoleHandlerQuotesValuesWithSpaces(t *testing.T) {
	var buf bytes.Buffer
	handler := newConsoleHandler(&buf, new(slog.LevelVar), false)
	slog.New(handler).Info("msg", String("description", "Extracting Audio"))
	if !strings.Contains(buf.String(), `description="Extracting Audio"`) {
		t.Fatalf("expected quoted value, got %q", buf.String())
	}
}

func TestWithContextAddsRunAndStage(t *testing.T) {
	var buf bytes.Buffer
	handler := newConsoleHandler(&buf, new(slog.LevelVar), false)
	base := slog.New(handler)

	ctx := services.WithRunID(context.Background(), "run-42")
	ctx = services.WithStage(ctx, "translate")

	WithContext(ctx, base).Info("working")

	line := buf.String()
	if !strings.Contains(line, "run_id=run-42") || !strings.Contains(line, "stage=translate") {
		t.Fatalf("context fields missing in %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestParseLevelDefaultsToInfo(t *testing.T) {
	if got := parseLevel("verbose"); got != slog.LevelInfo {
		t.Fatalf("unexpected level: %v", got)
	}
	if got := parseLevel("debug"); got != slog.LevelDebug {
		t.Fatalf("unexpected level: %v", got)
	}
}
