package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"projtrace/internal/config"
	"projtrace/internal/logging"
	"projtrace/internal/services"
)

func TestNewJSONWritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("fit complete", logging.String(logging.FieldBox, "left"), logging.Float64("error", 0.02))

	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &payload); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	if payload["msg"] != "fit complete" {
		t.Fatalf("unexpected msg %v", payload["msg"])
	}
	if payload["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", payload["level"])
	}
	if payload[logging.FieldBox] != "left" {
		t.Fatalf("expected box attribute, got %v", payload[logging.FieldBox])
	}
	if _, ok := payload["ts"]; !ok {
		t.Fatal("expected ts key")
	}
}

func TestNewConsoleFormatsComponentPrefix(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger = logging.NewComponentLogger(logger, "projection")
	logger.Info("histogram computed", logging.Int("bins", 201), logging.String("note", "two words"))

	line := buf.String()
	if !strings.Contains(line, " INFO projection: histogram computed") {
		t.Fatalf("unexpected console line %q", line)
	}
	if !strings.Contains(line, "bins=201") {
		t.Fatalf("expected bins attribute in %q", line)
	}
	if !strings.Contains(line, `note="two words"`) {
		t.Fatalf("expected quoted value in %q", line)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "warn", Format: "console", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("hidden")
	logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") {
		t.Fatalf("info line should be filtered: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("warn line missing: %q", buf.String())
	}
}

func TestUnsupportedFormat(t *testing.T) {
	if _, err := logging.New(logging.Options{Format: "xml", Writer: &bytes.Buffer{}}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestWithContextAddsFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := services.WithImage(context.Background(), "/data/img.tif")
	ctx = services.WithBox(ctx, "meridian")
	ctx = services.WithStage(ctx, "fit")
	ctx = services.WithRequestID(ctx, "run-1")

	logging.WithContext(ctx, logger).Debug("stage start")

	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := map[string]string{
		logging.FieldImage:         "/data/img.tif",
		logging.FieldBox:           "meridian",
		logging.FieldStage:         "fit",
		logging.FieldCorrelationID: "run-1",
	}
	for key, value := range want {
		if payload[key] != value {
			t.Errorf("%s = %v, want %s", key, payload[key], value)
		}
	}
}

func TestWarnWithContextInjectsDefaults(t *testing.T) {
	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logging.WarnWithContext(context.Background(), logger, "baseline rejected", "baseline_rejected",
		logging.String(logging.FieldImpact, "previous baseline kept"))

	var payload map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload[logging.FieldEventType] != "baseline_rejected" {
		t.Fatalf("event_type = %v", payload[logging.FieldEventType])
	}
	if payload[logging.FieldErrorHint] == nil {
		t.Fatal("expected default error_hint")
	}
	if payload[logging.FieldImpact] != "previous baseline kept" {
		t.Fatalf("impact should not be overridden, got %v", payload[logging.FieldImpact])
	}
}

func TestNewFromConfigCreatesLogFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	cfg.Logging.Format = "json"

	logger, err := logging.NewFromConfig(&cfg)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	logger.Info("hello")

	data, err := os.ReadFile(filepath.Join(cfg.Paths.LogDir, "projtrace.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello") {
		t.Fatalf("log file missing entry: %q", data)
	}
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := logging.NewNop()
	if logger.Enabled(context.Background(), 12) {
		t.Fatal("nop logger should not be enabled")
	}
	logger.Error("ignored")
}
