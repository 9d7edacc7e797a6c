package configutil

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestValidateSettingsReportsMissingAndUnknown(t *testing.T) {
	schema := Schema{Required: []string{"source"}, Optional: []string{"tone_hz"}}
	err := ValidateSettings(map[string]any{"toneHz": 440, "volume": 3}, schema)
	if !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("expected ErrInvalidSettings, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "missing: source") || !strings.Contains(msg, "unknown: volume") {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestValidateSettingsEmptyRequiredString(t *testing.T) {
	schema := Schema{Required: []string{"source_path"}}
	if err := ValidateSettings(map[string]any{"source-path": "  "}, schema); err == nil {
		t.Fatalf("expected blank required value to fail")
	}
	if err := ValidateSettings(map[string]any{"source-path": "a.wav"}, schema); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDecodeSettingsWeakTypesAndDurations(t *testing.T) {
	var out struct {
		ChunkBytes int           `mapstructure:"chunk_bytes"`
		Realtime   bool          `mapstructure:"realtime"`
		Debounce   time.Duration `mapstructure:"debounce"`
	}
	in := map[string]any{"chunk-bytes": "512", "realtime": "true", "debounce": "20ms"}
	if err := DecodeSettings(in, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ChunkBytes != 512 || !out.Realtime || out.Debounce != 20*time.Millisecond {
		t.Fatalf("unexpected decode result %+v", out)
	}
}

func TestDurationMS(t *testing.T) {
	if got := DurationMS(0, time.Second); got != time.Second {
		t.Fatalf("expected fallback, got %v", got)
	}
	if got := DurationMS(250, time.Second); got != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %v", got)
	}
}
