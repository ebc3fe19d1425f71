package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestNew_ProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New("production", "", &buf)
	logger.Info().Str("job_id", "j1").Msg("hello")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["message"] != "hello" {
		t.Errorf("message = %v, want %q", entry["message"], "hello")
	}
	if entry["job_id"] != "j1" {
		t.Errorf("job_id = %v, want %q", entry["job_id"], "j1")
	}
	if _, ok := entry["time"]; !ok {
		t.Error("expected a timestamp field")
	}
}

func TestNew_DefaultLevels(t *testing.T) {
	if got := New("production", "", &bytes.Buffer{}).GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("production level = %v, want info", got)
	}
	if got := New("development", "", &bytes.Buffer{}).GetLevel(); got != zerolog.DebugLevel {
		t.Errorf("development level = %v, want debug", got)
	}
}

func TestNew_ExplicitLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New("production", "WARN", &buf)
	logger.Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
	logger.Warn().Msg("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Errorf("warn output missing: %q", buf.String())
	}
}

func TestNew_InvalidLevelFallsBack(t *testing.T) {
	if got := New("production", "loud", &bytes.Buffer{}).GetLevel(); got != zerolog.InfoLevel {
		t.Errorf("level = %v, want info", got)
	}
}

func TestNew_DevelopmentIsConsole(t *testing.T) {
	var buf bytes.Buffer
	l := New("development", "", &buf)
	l.Info().Msg("readable")
	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Errorf("development output should not be JSON: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "readable") {
		t.Errorf("output = %q, want message", buf.String())
	}
}
