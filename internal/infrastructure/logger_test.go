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

	"ibpconv/internal/config"
)

func TestInitializeLogger(t *testing.T) {
	defer CloseLogFile()

	logFile := filepath.Join(t.TempDir(), "logs", "test.log")
	cfg := config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}

	logger, err := InitializeLogger(cfg)
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	if logger != GetLogger() {
		t.Error("GetLogger does not return the initialized logger")
	}

	logger.Info("test message", "key", "value")
	CloseLogFile()

	content, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	var logEntry map[string]interface{}
	if err := json.Unmarshal(content, &logEntry); err != nil {
		t.Fatalf("Log output is not valid JSON: %v", err)
	}
	if logEntry["msg"] != "test message" {
		t.Errorf("Expected msg='test message', got %v", logEntry["msg"])
	}
	if logEntry["key"] != "value" {
		t.Errorf("Expected key='value', got %v", logEntry["key"])
	}
	if logEntry["level"] != "INFO" {
		t.Errorf("Expected level='INFO', got %v", logEntry["level"])
	}
}

func TestNewLogger_Outputs(t *testing.T) {
	tests := []struct {
		output     string
		wantStdout bool
		wantStderr bool
	}{
		{output: "stdout", wantStdout: true},
		{output: "stderr", wantStderr: true},
		{output: "", wantStdout: true},
	}

	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			logger, file, err := NewLogger(config.LoggingConfig{Level: "info", Format: "json", Output: tt.output}, &stdout, &stderr)
			if err != nil {
				t.Fatalf("NewLogger: %v", err)
			}
			if file != nil {
				t.Error("no file expected")
			}

			logger.Info("hello")
			if got := stdout.Len() > 0; got != tt.wantStdout {
				t.Errorf("stdout written = %v, want %v", got, tt.wantStdout)
			}
			if got := stderr.Len() > 0; got != tt.wantStderr {
				t.Errorf("stderr written = %v, want %v", got, tt.wantStderr)
			}
		})
	}
}

func TestNewLogger_BothWritesStdoutAndFile(t *testing.T) {
	var stdout bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "both.log")

	logger, file, err := NewLogger(config.LoggingConfig{Level: "info", Output: "both", FilePath: logFile}, &stdout, nil)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Info("twice")
	file.Close()

	content, _ := os.ReadFile(logFile)
	if !strings.Contains(string(content), "twice") || !strings.Contains(stdout.String(), "twice") {
		t.Errorf("expected message in both outputs, file=%q stdout=%q", content, stdout.String())
	}
}

func TestNewLogger_TextFormatAndLevel(t *testing.T) {
	var stdout bytes.Buffer
	logger, _, err := NewLogger(config.LoggingConfig{Level: "warn", Format: "text"}, &stdout, nil)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	logger.Info("filtered")
	logger.Warn("kept", "rows", 3)

	out := stdout.String()
	if strings.Contains(out, "filtered") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "msg=kept") || !strings.Contains(out, "rows=3") {
		t.Errorf("unexpected text output: %q", out)
	}
}

func TestTraceIDInjection(t *testing.T) {
	var stdout bytes.Buffer
	logger, _, err := NewLogger(config.LoggingConfig{Level: "debug", Format: "json"}, &stdout, nil)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	ctx := WithTraceID(context.Background(), "test-trace-123")
	logger.With(slog.String("component", "test")).InfoContext(ctx, "test with trace")

	var logEntry map[string]interface{}
	if err := json.Unmarshal(stdout.Bytes(), &logEntry); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if logEntry["trace_id"] != "test-trace-123" {
		t.Errorf("Expected trace_id='test-trace-123', got %v", logEntry["trace_id"])
	}
	if logEntry["component"] != "test" {
		t.Errorf("Expected component='test', got %v", logEntry["component"])
	}
}

func TestEnsureTraceID(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	id := GetTraceID(ctx)
	if len(id) != 36 {
		t.Fatalf("expected a UUID, got %q", id)
	}
	if GetTraceID(EnsureTraceID(ctx)) != id {
		t.Error("existing trace ID should be kept")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
