package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func capture(t *testing.T, level Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(level)
	t.Cleanup(func() {
		SetLevel(LevelInfo)
		SetOutput(os.Stderr)
	})
	return &buf
}

func TestLevels(t *testing.T) {
	buf := capture(t, LevelWarn)

	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message", errors.New("boom"))

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("expected debug and info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "[WARN] warn message") {
		t.Errorf("expected warn line, got %q", out)
	}
	if !strings.Contains(out, "[ERROR] error message err=boom") {
		t.Errorf("expected error line with err, got %q", out)
	}
}

func TestKeyValues(t *testing.T) {
	buf := capture(t, LevelDebug)

	Info("booked", "title", "Weekly report", "hours", 2, "dangling")

	out := buf.String()
	if !strings.Contains(out, `title="Weekly report"`) {
		t.Errorf("expected quoted title, got %q", out)
	}
	if !strings.Contains(out, "hours=2") {
		t.Errorf("expected hours=2, got %q", out)
	}
	if strings.Contains(out, "dangling") {
		t.Errorf("expected odd trailing value to be dropped, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", "", true},
	}
	for _, tc := range tests {
		got, err := ParseLevel(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseLevel(%q): unexpected error state: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseLevel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
