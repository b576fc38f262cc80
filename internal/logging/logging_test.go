package logging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo}, // defaults to info
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := parseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input    string
		expected int64
		hasError bool
	}{
		{"100", 100, false},
		{"100B", 100, false},
		{"100KB", 100 * 1024, false},
		{"100MB", 100 * 1024 * 1024, false},
		{"1GB", 1024 * 1024 * 1024, false},
		{"100mb", 100 * 1024 * 1024, false}, // case insensitive
		{"invalid", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := parseSize(tt.input)
			if tt.hasError && err == nil {
				t.Errorf("parseSize(%q) expected error", tt.input)
			}
			if !tt.hasError && err != nil {
				t.Errorf("parseSize(%q) unexpected error: %v", tt.input, err)
			}
			if !tt.hasError && result != tt.expected {
				t.Errorf("parseSize(%q) = %d, want %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParseAge(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		hasError bool
	}{
		{"7d", 7 * 24 * time.Hour, false},
		{"2w", 14 * 24 * time.Hour, false},
		{"1h", time.Hour, false},
		{"30m", 30 * time.Minute, false},
		{"bogus", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := parseAge(tt.input)
			if tt.hasError && err == nil {
				t.Errorf("parseAge(%q) expected error", tt.input)
			}
			if !tt.hasError && err != nil {
				t.Errorf("parseAge(%q) unexpected error: %v", tt.input, err)
			}
			if !tt.hasError && result != tt.expected {
				t.Errorf("parseAge(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestInitFileOutput(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "logibot.log")

	cfg := &Config{
		Level:  "info",
		Format: "json",
		Output: logFile,
	}
	if err := Init(cfg); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer func() {
		_ = Init(DefaultConfig())
	}()

	Logger().Info("dataset build complete", "examples", 42)

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("log file is empty after write")
	}
}

func TestWithContext(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logibot.log")
	if err := Init(&Config{Level: "info", Format: "json", Output: logFile}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer func() {
		_ = Init(DefaultConfig())
	}()

	ctx := context.Background()
	ctx = ContextWithCycleID(ctx, "cycle-123")
	ctx = ContextWithComponent(ctx, "learner")
	ctx = ContextWithModel(ctx, "legacy-ai-srm-20240101")

	WithContext(ctx).Info("cycle event")

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	for _, want := range []string{
		`"cycle_id":"cycle-123"`,
		`"component":"learner"`,
		`"model":"legacy-ai-srm-20240101"`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log line missing %s: %s", want, data)
		}
	}
}

func TestSuppress(t *testing.T) {
	Suppress()
	defer func() {
		_ = Init(DefaultConfig())
	}()

	// Writing after Suppress must not panic
	Logger().Info("should be discarded")
	Logger().Error("also discarded")
}
