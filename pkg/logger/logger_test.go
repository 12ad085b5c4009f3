package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"invalid", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if result := ParseLevel(tt.input); result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSetupWriter(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   interface{}
	}{
		{"stdout output", Config{Output: "stdout"}, os.Stdout},
		{"stderr output", Config{Output: "stderr"}, os.Stderr},
		{"empty defaults to stdout", Config{Output: ""}, os.Stdout},
		{"unknown defaults to stdout", Config{Output: "syslog"}, os.Stdout},
		{"file without filename falls back to stdout", Config{Output: "file"}, os.Stdout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SetupWriter(tt.config); got != tt.want {
				t.Errorf("SetupWriter(%+v) = %v, want %v", tt.config, got, tt.want)
			}
		})
	}
}

func TestSetupWriter_File(t *testing.T) {
	cfg := Config{Output: "file", Filename: "/tmp/timelocker-test.log", MaxSize: 1, MaxBackups: 1, MaxAge: 1}
	w := SetupWriter(cfg)
	if w == os.Stdout {
		t.Error("expected a lumberjack writer, got os.Stdout")
	}
}

func TestNewLogger_JSONFormat(t *testing.T) {
	path := t.TempDir() + string(os.PathSeparator) + "json.log"
	l := NewLogger(Config{Level: "info", Format: "json", Output: "file", Filename: path, MaxSize: 1, MaxBackups: 1, MaxAge: 1})
	l.Info("hello", "key", "value")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected log file to be written, got error: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("expected valid JSON line, got error: %v", err)
	}
	if decoded["msg"] != "hello" {
		t.Errorf("msg = %v, want hello", decoded["msg"])
	}
}

func TestOperationIDRoundTrip(t *testing.T) {
	ctx := WithOperationID(context.Background(), "op-123")
	if got := OperationIDFromContext(ctx); got != "op-123" {
		t.Errorf("OperationIDFromContext() = %q, want op-123", got)
	}
	if got := OperationIDFromContext(context.Background()); got != "" {
		t.Errorf("OperationIDFromContext() on bare context = %q, want empty", got)
	}
}

func TestFromContext_AnnotatesOperationID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx := WithOperationID(context.Background(), "op-abc")
	FromContext(ctx, base).Info("did work")

	if !strings.Contains(buf.String(), `"operation_id":"op-abc"`) {
		t.Errorf("expected operation_id in log line, got: %s", buf.String())
	}
}

func TestFromContext_NoOperationID(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	FromContext(context.Background(), base).Info("did work")

	if strings.Contains(buf.String(), "operation_id") {
		t.Errorf("did not expect operation_id in log line, got: %s", buf.String())
	}
}

func TestGenerateOperationID_Unique(t *testing.T) {
	a := GenerateOperationID()
	b := GenerateOperationID()
	if a == b {
		t.Error("expected two distinct generated operation IDs")
	}
	if !strings.HasPrefix(a, "op_") {
		t.Errorf("expected op_ prefix, got %q", a)
	}
}
