package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New("debug", "json", &buf)
	if log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %s", log.GetLevel())
	}

	WithIngestion(WithComponent(log, "session"), "abc", "ESPN").Debug("merged")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected one JSON entry, got %q: %v", buf.String(), err)
	}
	if entry["component"] != "session" || entry["ingestion_id"] != "abc" || entry["source"] != "ESPN" {
		t.Errorf("missing fields in %v", entry)
	}
	if entry["msg"] != "merged" {
		t.Errorf("unexpected message %v", entry["msg"])
	}
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	log := New("WARN", "text", &buf)
	if log.GetLevel() != logrus.WarnLevel {
		t.Fatalf("expected warn level, got %s", log.GetLevel())
	}
	log.Info("hidden")
	log.Warn("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New("chatty", "", &buf)
	if log.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected info fallback, got %s", log.GetLevel())
	}
	if !strings.Contains(buf.String(), "invalid_level=chatty") {
		t.Errorf("expected a warning naming the bad level, got %q", buf.String())
	}
}
