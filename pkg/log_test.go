package pkg

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func withLogger(t *testing.T, logger *slog.Logger) {
	t.Helper()
	original := DefaultLogger
	level := GetLogLevel()
	t.Cleanup(func() {
		SetLogger(original)
		SetLogLevel(level)
	})
	SetLogger(logger)
}

func TestSetLogLevel(t *testing.T) {
	original := GetLogLevel()
	defer SetLogLevel(original)

	tests := []struct {
		name  string
		level slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SetLogLevel(tt.level)
			if got := GetLogLevel(); got != tt.level {
				t.Errorf("GetLogLevel() = %v, want %v", got, tt.level)
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if err != nil {
			t.Fatalf("ParseLogLevel(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if _, err := ParseLogLevel("loud"); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("ParseLogLevel(loud) error = %v, want ErrInvalidParameter", err)
	}
}

func TestParseLogFormat(t *testing.T) {
	if f, err := ParseLogFormat("json"); err != nil || f != LogFormatJSON {
		t.Errorf("ParseLogFormat(json) = %v, %v", f, err)
	}
	if f, err := ParseLogFormat(""); err != nil || f != LogFormatText {
		t.Errorf("ParseLogFormat(\"\") = %v, %v", f, err)
	}
	if _, err := ParseLogFormat("xml"); !errors.Is(err, ErrInvalidParameter) {
		t.Errorf("ParseLogFormat(xml) error = %v, want ErrInvalidParameter", err)
	}
}

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf, nil)
	if logger == nil {
		t.Fatal("NewJSONLogger returned nil")
	}

	logger.Warn("test message")
	if !strings.Contains(buf.String(), `"msg":"test message"`) {
		t.Errorf("JSON log output missing message: %s", buf.String())
	}
}

func TestLogComponentTag(t *testing.T) {
	var buf bytes.Buffer
	withLogger(t, NewLogger(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	LogDebug(ComponentDevconf, "debug message", "key", "value")
	output := buf.String()
	if !strings.Contains(output, "debug message") {
		t.Errorf("debug log missing message: %s", output)
	}
	if !strings.Contains(output, "component=devconf") {
		t.Errorf("debug log missing component: %s", output)
	}
	if !strings.Contains(output, "key=value") {
		t.Errorf("debug log missing attribute: %s", output)
	}
}

func TestLogSeverity(t *testing.T) {
	tests := []struct {
		name  string
		emit  func(Component, string, ...any)
		level string
	}{
		{"info", LogInfo, "level=INFO"},
		{"warn", LogWarn, "level=WARN"},
		{"error", LogError, "level=ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			withLogger(t, NewLogger(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			tt.emit(ComponentStub, tt.name+" message")
			output := buf.String()
			if !strings.Contains(output, tt.level) {
				t.Errorf("log missing %s: %s", tt.level, output)
			}
			if !strings.Contains(output, "component=stub") {
				t.Errorf("log missing component: %s", output)
			}
		})
	}
}

func TestLogLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	withLogger(t, NewLogger(&buf, nil))

	SetLogLevel(slog.LevelWarn)
	LogInfo(ComponentPool, "hidden")
	if buf.Len() != 0 {
		t.Errorf("info message emitted at warn level: %s", buf.String())
	}
	LogWarn(ComponentPool, "shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn message missing: %s", buf.String())
	}
}

func TestSetLogOutput(t *testing.T) {
	original := DefaultLogger
	level := GetLogLevel()
	defer func() {
		SetLogger(original)
		SetLogLevel(level)
	}()

	var buf bytes.Buffer
	SetLogLevel(slog.LevelInfo)
	SetLogOutput(&buf, LogFormatJSON)

	LogInfo(ComponentShell, "routed")
	output := buf.String()
	if !strings.Contains(output, `"msg":"routed"`) {
		t.Errorf("JSON output missing message: %s", output)
	}
	if !strings.Contains(output, `"component":"shell"`) {
		t.Errorf("JSON output missing component: %s", output)
	}
}
