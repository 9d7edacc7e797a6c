package logging

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestInitLoggerJSONWithComponent(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	logger := InitLogger("info", "json", &buf)
	NewComponentLogger(logger, "capture").Info("capture_complete", "bytes", 160000)

	out := buf.String()
	if !strings.Contains(out, `"component":"capture"`) {
		t.Fatalf("expected component attr in %q", out)
	}
	if !strings.Contains(out, `"bytes":160000`) {
		t.Fatalf("expected bytes attr in %q", out)
	}
}

func TestInitLoggerFallsBackOnBadValues(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	InitLogger("loud", "yaml", &buf)
	out := buf.String()
	if !strings.Contains(out, "invalid log level") || !strings.Contains(out, "invalid log format") {
		t.Fatalf("expected fallback warnings, got %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	if lvl, ok := ParseLevel("warning"); !ok || lvl != slog.LevelWarn {
		t.Fatalf("expected WARN, got %v ok=%v", lvl, ok)
	}
	if _, ok := ParseLevel("verbose"); ok {
		t.Fatalf("expected unknown level to be rejected")
	}
}
