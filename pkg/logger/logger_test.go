package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/yanqian/faq-rag/internal/infra/config"
)

func TestJSONLoggerTagsService(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, config.LogConfig{Level: "info", Format: "json"})
	log.Info("hello", "component", "test")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal log line: %v", err)
	}
	if entry["service"] != "faq-rag" {
		t.Fatalf("expected service tag, got %v", entry["service"])
	}
	if entry["component"] != "test" {
		t.Fatalf("expected component attr, got %v", entry["component"])
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter(&buf, config.LogConfig{Level: "warn", Format: "text"})
	log.Info("dropped")
	log.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Fatalf("warn line missing: %q", out)
	}
}
