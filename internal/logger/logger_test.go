package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestBuildJSONToFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "app.log")
	log, err := Build(Options{JSON: true, Output: path})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	log.Debug("hidden")
	log.Info("job index ready", Stage("index"), zap.Duration("took", 1500*time.Millisecond))
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected a single info entry, got %d lines: %s", len(lines), data)
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("decoding entry: %v", err)
	}
	if entry["step"] != "job index ready" || entry["level"] != "info" || entry["stage"] != "index" {
		t.Fatalf("unexpected entry: %v", entry)
	}
	if entry["took"] != "1.5s" {
		t.Fatalf("expected string duration, got %v", entry["took"])
	}
}

func TestBuildDebugLevel(t *testing.T) {
	t.Parallel()

	log, err := Build(Options{Debug: true, Output: filepath.Join(t.TempDir(), "debug.log")})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	if !log.Core().Enabled(zap.DebugLevel) {
		t.Fatal("expected debug level to be enabled")
	}
}

func TestOrNop(t *testing.T) {
	t.Parallel()

	if OrNop(nil) == nil {
		t.Fatal("expected a no-op logger")
	}
	l := zap.NewExample()
	if OrNop(l) != l {
		t.Fatal("expected the same logger back")
	}
}
