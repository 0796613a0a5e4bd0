package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
		wantErr  bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"Warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat("JSON"); err != nil || f != FormatJSON {
		t.Errorf("ParseFormat(JSON) = %v, %v", f, err)
	}
	if f, err := ParseFormat(""); err != nil || f != FormatText {
		t.Errorf("ParseFormat(\"\") = %v, %v", f, err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestNew(t *testing.T) {
	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(Config{Level: slog.LevelInfo, Format: FormatJSON, Output: &buf})
		logger.Info("allocated addresses", "users", 2)

		var entry map[string]any
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("expected JSON output, got %q: %v", buf.String(), err)
		}
		if entry["msg"] != "allocated addresses" {
			t.Errorf("unexpected msg %v", entry["msg"])
		}
	})

	t.Run("Level filtering", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(Config{Level: slog.LevelWarn, Output: &buf})
		logger.Info("hidden")
		if buf.Len() > 0 {
			t.Errorf("info should be filtered at warn level, got %q", buf.String())
		}
		logger.Warn("shown")
		if !strings.Contains(buf.String(), "level=WARN") {
			t.Errorf("expected text handler output, got %q", buf.String())
		}
	})
}
