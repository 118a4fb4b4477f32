package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"newsreel/internal/logging"
	"newsreel/internal/services"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "newsreel.log")
	logger, err := logging.New(logging.Options{
		Level:       "debug",
		Format:      "json",
		OutputPaths: []string{path},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("render complete", logging.String("output", "reel_article_001.mp4"))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(data), &entry); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if entry["msg"] != "render complete" {
		t.Fatalf("unexpected message: %v", entry["msg"])
	}
	if entry["output"] != "reel_article_001.mp4" {
		t.Fatalf("missing attribute: %v", entry)
	}
	if entry["level"] != "info" {
		t.Fatalf("unexpected level: %v", entry["level"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestConsoleHandlerOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")
	logger, err := logging.New(logging.Options{
		Level:       "info",
		Format:      "console",
		OutputPaths: []string{path},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	scoped := logging.WithComponent(logger, "assembler")
	scoped.Debug("should be filtered")
	scoped.Warn("segment shorter than transition", logging.Float64("seconds", 0.4))

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	line := strings.TrimSpace(string(data))
	if strings.Contains(line, "should be filtered") {
		t.Fatalf("debug line leaked through info level: %q", line)
	}
	if !strings.Contains(line, "WARN assembler: segment shorter than transition") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "seconds=0.4") {
		t.Fatalf("missing attribute: %q", line)
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := services.WithRunID(context.Background(), "run-42")
	ctx = services.WithStage(ctx, "narrate")

	logging.WithContext(ctx, base).Info("synthesis started")

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if entry[logging.FieldRunID] != "run-42" {
		t.Fatalf("missing run id: %v", entry)
	}
	if entry[logging.FieldStage] != "narrate" {
		t.Fatalf("missing stage: %v", entry)
	}
}

func TestNewNopDiscards(t *testing.T) {
	logger := logging.NewNop()
	logger.Error("must not panic", logging.Error(nil))
	if logger.Enabled(context.Background(), slog.LevelError) {
		t.Fatal("nop logger should report disabled")
	}
}
