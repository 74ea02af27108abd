package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	log := NewJSONLogger(&buf, false)

	log.Info("test message", slog.String("key", "value"), slog.Int("number", 42))

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse log output as JSON: %v\nOutput: %s", err, buf.String())
	}

	if logEntry["msg"] != "test message" {
		t.Errorf("Expected msg to be 'test message', got '%v'", logEntry["msg"])
	}
	if logEntry["key"] != "value" {
		t.Errorf("Expected key to be 'value', got '%v'", logEntry["key"])
	}
	if logEntry["number"] != float64(42) {
		t.Errorf("Expected number to be 42, got '%v'", logEntry["number"])
	}
	if logEntry["level"] != "INFO" {
		t.Errorf("Expected level to be 'INFO', got '%v'", logEntry["level"])
	}
	if _, ok := logEntry["time"]; !ok {
		t.Error("Expected 'time' field in JSON log output")
	}
}

func TestNewJSONLogger_DebugLevel(t *testing.T) {
	var quiet, verbose bytes.Buffer

	NewJSONLogger(&quiet, false).Debug("hidden")
	NewJSONLogger(&verbose, true).Debug("shown")

	if quiet.Len() != 0 {
		t.Errorf("Expected no debug output without debug mode, got %s", quiet.String())
	}
	if !bytes.Contains(verbose.Bytes(), []byte(`"level":"DEBUG"`)) {
		t.Errorf("Expected debug record in debug mode, got %s", verbose.String())
	}
}

// TestInitJSONLogger_OutputFormat verifies that InitJSONLogger writes JSON to stdout.
func TestInitJSONLogger_OutputFormat(t *testing.T) {
	oldStdout := os.Stdout
	oldDefault := slog.Default()
	defer slog.SetDefault(oldDefault)

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Failed to create pipe: %v", err)
	}
	os.Stdout = w

	InitJSONLogger(false)
	slog.Info("test initialization", slog.String("service", "catalog"), slog.Int("port", 3000))

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		t.Fatalf("Failed to read from pipe: %v", err)
	}

	var logEntry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &logEntry); err != nil {
		t.Fatalf("Failed to parse log output as JSON: %v\nOutput: %s", err, buf.String())
	}
	if logEntry["service"] != "catalog" {
		t.Errorf("Expected service to be 'catalog', got '%v'", logEntry["service"])
	}
	if logEntry["port"] != float64(3000) {
		t.Errorf("Expected port to be 3000, got '%v'", logEntry["port"])
	}
}
