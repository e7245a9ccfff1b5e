package logging

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"garbage", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestInitDefaults(t *testing.T) {
	if err := Init(nil); err != nil {
		t.Fatalf("Init(nil) returned error: %v", err)
	}
	if Logger() == nil {
		t.Fatal("Logger() returned nil after Init")
	}
}

func TestInitJSONFormat(t *testing.T) {
	cfg := &Config{Level: "debug", Format: "json", Output: "stderr"}
	if err := Init(cfg); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
}

func TestInitFileOutput(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{
		Level:  "info",
		Format: "text",
		Output: filepath.Join(dir, "drip.log"),
	}
	if err := Init(cfg); err != nil {
		t.Fatalf("Init with file output returned error: %v", err)
	}

	Logger().Info("test entry", "key", "value")
}

func TestWithComponent(t *testing.T) {
	logger := WithComponent("scheduler")
	if logger == nil {
		t.Fatal("WithComponent returned nil")
	}
}

func TestWithLead(t *testing.T) {
	logger := WithLead("lead-42")
	if logger == nil {
		t.Fatal("WithLead returned nil")
	}
}

func TestParseSize(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"100", 100, false},
		{"5KB", 5 * 1024, false},
		{"50MB", 50 * 1024 * 1024, false},
		{"1GB", 1024 * 1024 * 1024, false},
		{"512B", 512, false},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		got, err := parseSize(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseSize(%q) expected error, got %d", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseSize(%q) returned error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseSize(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestParseAge(t *testing.T) {
	tests := []struct {
		input string
		want  time.Duration
	}{
		{"7d", 7 * 24 * time.Hour},
		{"2w", 14 * 24 * time.Hour},
		{"12h", 12 * time.Hour},
	}

	for _, tt := range tests {
		got, err := parseAge(tt.input)
		if err != nil {
			t.Errorf("parseAge(%q) returned error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseAge(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
