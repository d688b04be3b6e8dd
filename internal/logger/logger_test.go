package logger

import (
	"log/slog"
	"path/filepath"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"WARNING", slog.LevelWarn},
		{"WARN", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"garbage", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLogLevel(tt.in); got != tt.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitialize(t *testing.T) {
	cfg := Config{
		Level:          "DEBUG",
		ConsoleEnabled: false,
		FileEnabled:    true,
		FilePath:       filepath.Join(t.TempDir(), "test.log"),
		FileMaxSizeMB:  1,
	}

	if err := Initialize(cfg); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	// Must not panic through any level
	Debug("debug message", "key", "value")
	Info("info message")
	Warning("warning message")
	Error("error message", "error", "boom")
}

func TestLogBeforeInitialize(t *testing.T) {
	saved := logger
	logger = nil
	defer func() { logger = saved }()

	// Logging before Initialize is a silent no-op
	Debug("dropped")
	Info("dropped")
	Warning("dropped")
	Error("dropped")
}
