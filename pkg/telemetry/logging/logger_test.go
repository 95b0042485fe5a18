package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"
)

// TestNew_JSONOutput tests that log lines are structured JSON with the
// standard fields.
func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	l.Info("batch started", "component", "batch", "batch_id", "b1")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if line["msg"] != "batch started" || line["component"] != "batch" || line["batch_id"] != "b1" {
		t.Errorf("unexpected log line: %v", line)
	}
}

// TestNew_LevelFilter tests that lines below the configured level are
// suppressed.
func TestNew_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(Config{Level: "warn", Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	l.Debug("hidden")
	l.Info("also hidden")
	l.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("suppressed levels leaked: %s", out)
	}
	if !strings.Contains(out, "visible") {
		t.Errorf("warn line missing: %s", out)
	}
}

// TestNew_FileSink tests teeing into the per-run log file.
func TestNew_FileSink(t *testing.T) {
	dir := t.TempDir()
	var buf bytes.Buffer
	l, err := New(Config{Level: "info", Dir: dir, Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	l.Info("record committed", "destination", "out/a.dcm.json")
	if err := l.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	path := l.Path()
	if !strings.Contains(path, "anonymization_") {
		t.Errorf("log file name missing timestamp prefix: %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if !strings.Contains(string(data), "record committed") {
		t.Errorf("file sink missing log line: %s", data)
	}
	if !strings.Contains(buf.String(), "record committed") {
		t.Errorf("console sink missing log line")
	}
}

// TestNew_InvalidConfig tests rejection of unknown levels and formats.
func TestNew_InvalidConfig(t *testing.T) {
	if _, err := New(Config{Level: "verbose"}); err == nil {
		t.Errorf("New() should reject unknown level")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Errorf("New() should reject unknown format")
	}
}
