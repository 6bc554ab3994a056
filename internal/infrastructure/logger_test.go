package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sdgwater/internal/config"
)

func TestNewLogger_BothOutputs(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "test.log")
	var stdout bytes.Buffer

	cfg := config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "both",
		FilePath: logFile,
	}

	logger, err := NewLogger(cfg, &stdout)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	logger.Info("test message", "key", "value")

	// Close log file to allow reading on Windows
	if err := logger.Close(); err != nil {
		t.Fatalf("Failed to close logger: %v", err)
	}

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	for name, out := range map[string][]byte{"file": content, "stdout": stdout.Bytes()} {
		var logEntry map[string]interface{}
		if err := json.Unmarshal(out, &logEntry); err != nil {
			t.Fatalf("%s output is not valid JSON: %v", name, err)
		}
		if logEntry["msg"] != "test message" {
			t.Errorf("%s: expected msg='test message', got %v", name, logEntry["msg"])
		}
		if logEntry["key"] != "value" {
			t.Errorf("%s: expected key='value', got %v", name, logEntry["key"])
		}
		if logEntry["level"] != "INFO" {
			t.Errorf("%s: expected level='INFO', got %v", name, logEntry["level"])
		}
	}
}

func TestTraceIDInjection(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggingConfig{Level: "debug", Format: "json", Output: "console"}, &buf)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	ctx := WithTraceID(context.Background(), "test-trace-123")
	logger.With("component", "test").InfoContext(ctx, "test with trace")
	logger.Info("no context")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d", len(lines))
	}

	var withTrace, withoutTrace map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &withTrace); err != nil {
		t.Fatalf("Failed to parse log entry: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &withoutTrace); err != nil {
		t.Fatalf("Failed to parse log entry: %v", err)
	}

	if withTrace["trace_id"] != "test-trace-123" {
		t.Errorf("Expected trace_id='test-trace-123', got %v", withTrace["trace_id"])
	}
	if withTrace["component"] != "test" {
		t.Errorf("Expected component='test', got %v", withTrace["component"])
	}
	if _, ok := withoutTrace["trace_id"]; ok {
		t.Errorf("Did not expect trace_id without context, got %v", withoutTrace["trace_id"])
	}
}

func TestNewLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: "text", Output: "console"}, &buf)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	logger.Info("hello", "rows", 3)

	out := buf.String()
	if !strings.Contains(out, "msg=hello") || !strings.Contains(out, "rows=3") {
		t.Errorf("unexpected text output: %q", out)
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LoggingConfig{Level: "warn", Format: "json", Output: "console"}, &buf)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	logger.Info("dropped")
	logger.Warn("kept")

	if strings.Contains(buf.String(), "dropped") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(buf.String(), "kept") {
		t.Error("warn message should be logged")
	}
}

func TestNewLogger_FileOutputRequiresPath(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "info", Output: "file"}, nil)
	if err == nil {
		t.Fatal("expected error for file output without path")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := parseLogLevel(tt.input); got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestEnsureTraceID(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	id := GetTraceID(ctx)
	if len(id) != 36 {
		t.Fatalf("expected a UUID trace id, got %q", id)
	}

	// existing id is kept
	if got := GetTraceID(EnsureTraceID(ctx)); got != id {
		t.Errorf("EnsureTraceID replaced existing id %q with %q", id, got)
	}

	if GetTraceID(nil) != "" { //nolint:staticcheck
		t.Error("nil context should have no trace id")
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	if WithError(logger, nil) != logger {
		t.Error("nil error should return the same logger")
	}
	WithComponent(WithError(logger, os.ErrNotExist), "loader").Info("x")
	if !strings.Contains(buf.String(), `"error":"file does not exist"`) {
		t.Errorf("missing error attribute: %s", buf.String())
	}
	if !strings.Contains(buf.String(), `"component":"loader"`) {
		t.Errorf("missing component attribute: %s", buf.String())
	}
}
