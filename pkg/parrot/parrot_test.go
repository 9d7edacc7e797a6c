package parrot

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/harunnryd/parrot/pkg/i2s"
	"github.com/harunnryd/parrot/pkg/i2s/sim"
	"github.com/harunnryd/parrot/pkg/logging"
	"github.com/harunnryd/parrot/pkg/metrics"
	"github.com/harunnryd/parrot/pkg/runner"
	"github.com/harunnryd/parrot/pkg/session"
	"github.com/harunnryd/parrot/pkg/trigger"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.RecordDuration() != 5*time.Second {
		t.Fatalf("expected 5s recording, got %v", cfg.RecordDuration())
	}
	if cfg.TransferTimeout() != time.Second {
		t.Fatalf("expected 1s timeout, got %v", cfg.TransferTimeout())
	}
	tx := cfg.PlaybackI2S()
	if tx.Pins.BCLK != 15 || tx.Pins.WS != 16 || tx.Pins.DOUT != 7 || tx.Pins.MCLK != i2s.NoPin || !tx.AutoClear {
		t.Fatalf("unexpected playback config %+v", tx)
	}
	if cfg.Display.Prompt != session.DefaultPrompt {
		t.Fatalf("unexpected prompt %q", cfg.Display.Prompt)
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	t.Setenv("PARROT_TEST_SINK", "/tmp/out.wav")
	path := filepath.Join(t.TempDir(), "parrot.yaml")
	body := `
log_level: debug
audio:
  record_seconds: 2
  timeout_ms: 250
driver:
  provider: sim
  settings:
    source: silence
    sink_path: ${PARROT_TEST_SINK}
trigger:
  provider: interval
  settings:
    every_ms: 10
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RecordDuration() != 2*time.Second || cfg.TransferTimeout() != 250*time.Millisecond {
		t.Fatalf("unexpected audio config %+v", cfg.Audio)
	}
	if cfg.Driver.Settings["sink_path"] != "/tmp/out.wav" {
		t.Fatalf("expected env expansion in settings, got %v", cfg.Driver.Settings["sink_path"])
	}
	if cfg.Audio.Capture.DIN != 6 {
		t.Fatalf("expected capture defaults to survive, got %+v", cfg.Audio.Capture)
	}
}

func TestLoadConfigRejectsOtherFormats(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parrot.yaml")
	if err := os.WriteFile(path, []byte("audio:\n  sample_rate: 44100\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); err == nil || !strings.Contains(err.Error(), "fixed") {
		t.Fatalf("expected fixed-format error, got %v", err)
	}
}

func TestValidateRejectsRecordingBeyondMaxDuration(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Audio.RecordSeconds = 200 * 3600
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "record_seconds") {
		t.Fatalf("expected record_seconds error, got %v", err)
	}
}

func TestConfigYAML(t *testing.T) {
	out, err := DefaultConfig().YAML()
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if !bytes.Contains(out, []byte("record_seconds: 5")) {
		t.Fatalf("expected record_seconds in %s", out)
	}
}

func TestRegistryUnknownProvider(t *testing.T) {
	_, err := DefaultRegistry().BuildTrigger(ProviderConfig{Provider: "gpio"}, Env{})
	if err == nil || !strings.Contains(err.Error(), "keyboard") {
		t.Fatalf("expected unknown provider error listing known ones, got %v", err)
	}
}

func TestPanelDisplaySnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "panel.png")
	d, err := DefaultRegistry().BuildDisplay(DisplayConfig{
		Provider: "panel",
		Settings: map[string]any{"snapshot_path": path, "width": 120, "height": 60},
	}, Env{Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := d.RenderStatus("hi"); err != nil {
		t.Fatalf("render: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Fatalf("expected png snapshot, err=%v", err)
	}
}

func TestDeviceBootsAndRestarts(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Trigger = ProviderConfig{Provider: "manual"}
	cfg.Display = DisplayConfig{Provider: "none"}
	cfg.Audio.RecordSeconds = 0.25
	cfg.Observability.ArtifactsDir = t.TempDir()
	cfg.Observability.RecordAudio = true

	obs := metrics.NewMemoryObserver()
	dev, err := NewDevice(cfg, nil, Env{Logger: logging.Discard()}, WithObserver(obs))
	if err != nil {
		t.Fatalf("device: %v", err)
	}
	manual := dev.Trigger().(*trigger.Manual)
	manual.Press()

	r := runner.NewLifecycleRunner(dev, runner.Options{MaxBoots: 1, Logger: logging.Discard(), Observer: obs})
	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	played := dev.Driver().(*sim.Driver).Played()
	if len(played) != 8000 {
		t.Fatalf("expected 8000 played bytes, got %d", len(played))
	}
	states := obs.Named(metrics.EventSessionState)
	if len(states) != 4 || states[3].Tags[metrics.TagState] != "RESTARTING" {
		t.Fatalf("expected four transitions ending in RESTARTING, got %d", len(states))
	}
	if states[0].Tags[metrics.TagSessionID] == "" {
		t.Fatalf("expected session id tag")
	}
	clips, _ := filepath.Glob(filepath.Join(cfg.Observability.ArtifactsDir, "clips", "*.wav"))
	if len(clips) != 1 {
		t.Fatalf("expected one archived clip, got %v", clips)
	}
}

func TestDeviceRecorderAndPlayer(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Trigger = ProviderConfig{Provider: "manual"}
	cfg.Display = DisplayConfig{Provider: "none"}
	dev, err := NewDevice(cfg, nil, Env{Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("device: %v", err)
	}
	buf, err := dev.Recorder().Capture(100 * time.Millisecond)
	if err != nil || len(buf) != 3200 {
		t.Fatalf("expected 3200 bytes, got %d err=%v", len(buf), err)
	}
	if err := dev.Player().Play(nil); err != nil {
		t.Fatalf("play default clip: %v", err)
	}
}

func TestObservabilityWritesSummaries(t *testing.T) {
	dir := t.TempDir()
	o := NewObservability(ObservabilityConfig{ArtifactsDir: dir, Timeline: true, EventLog: true}, logging.Discard())
	for _, state := range []string{"AWAITING_TRIGGER", "CAPTURING", "PLAYING", "RESTARTING"} {
		o.Observer.RecordEvent(metrics.MetricsEvent{
			Name: metrics.EventSessionState,
			Time: time.Now(),
			Tags: map[string]string{metrics.TagSessionID: "s1", metrics.TagState: state},
		})
	}
	if err := o.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "summaries", "s1.summary.json")); err != nil {
		t.Fatalf("expected summary file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "timelines", "s1.jsonl")); err != nil {
		t.Fatalf("expected timeline file: %v", err)
	}
	raw, err := os.ReadFile(filepath.Join(dir, "events.jsonl"))
	if err != nil || bytes.Count(raw, []byte("\n")) != 4 {
		t.Fatalf("expected four event log lines, err=%v", err)
	}
}

func TestOptionalComponentsFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Network.NewEchoClient(nil) != nil {
		t.Fatalf("expected no echo client without ws_url")
	}
	cfg.Network.WSURL = "ws://127.0.0.1:8080"
	if c := cfg.Network.NewEchoClient(logging.Discard()); c == nil || c.MaxReplies != 10 {
		t.Fatalf("unexpected echo client %+v", c)
	}
	if cfg.Restart.NewBreaker() == nil {
		t.Fatalf("expected breaker with default threshold")
	}
	cfg.Restart.FailureThreshold = 0
	if cfg.Restart.NewBreaker() != nil {
		t.Fatalf("expected no breaker when disabled")
	}
}

func TestObservabilityPurgesOldArtifacts(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "clips", "old.wav")
	fresh := filepath.Join(dir, "clips", "fresh.wav")
	if err := os.MkdirAll(filepath.Dir(old), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, p := range []string{old, fresh} {
		if err := os.WriteFile(p, []byte("RIFF"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	stale := time.Now().Add(-72 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	o := NewObservability(ObservabilityConfig{ArtifactsDir: dir, RetentionDays: 1}, logging.Discard())
	defer o.Close()

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected stale clip removed, err=%v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("expected fresh clip kept: %v", err)
	}
}
