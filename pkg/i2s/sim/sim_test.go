package sim

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harunnryd/parrot/pkg/i2s"
	"github.com/harunnryd/parrot/pkg/pcm"
)

func newDriver(t *testing.T, s Settings) *Driver {
	t.Helper()
	d, err := New(s)
	if err != nil {
		t.Fatalf("new driver: %v", err)
	}
	return d
}

func rx() i2s.Config {
	return i2s.StdConfig(pcm.SampleRate).
		WithPins(i2s.Pins{BCLK: 5, WS: 4, DIN: 6, DOUT: i2s.NoPin, MCLK: i2s.NoPin})
}

func tx(autoClear bool) i2s.Config {
	return i2s.StdConfig(pcm.SampleRate).WithPort(1).WithAutoClear(autoClear).
		WithPins(i2s.Pins{BCLK: 15, WS: 16, DOUT: 7, DIN: i2s.NoPin, MCLK: i2s.NoPin})
}

func play(t *testing.T, iface *i2s.Interface, cfg i2s.Config, b []byte, timeout time.Duration) (int, error) {
	t.Helper()
	h, err := iface.Configure(i2s.Playback, cfg)
	if err != nil {
		t.Fatalf("configure tx: %v", err)
	}
	defer h.Close()
	if err := h.Enable(); err != nil {
		t.Fatalf("enable tx: %v", err)
	}
	return h.Transfer(b, timeout)
}

func TestDecodeSettingsDefaults(t *testing.T) {
	s, err := DecodeSettings(map[string]any{"chunk_bytes": "256", "source": "silence"})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.ChunkBytes != 256 || s.Source != SourceSilence || s.MaxPin != 48 {
		t.Fatalf("unexpected settings %+v", s)
	}
	if _, err := DecodeSettings(map[string]any{"chunk_bytes": 3}); err == nil {
		t.Fatalf("expected odd chunk size to be rejected")
	}
	if _, err := DecodeSettings(map[string]any{"volume": 3}); err == nil {
		t.Fatalf("expected unknown key to be rejected")
	}
}

func TestCaptureReadsSource(t *testing.T) {
	d := newDriver(t, DefaultSettings())
	want := pcm.FromSamples([]int16{1, 2, 3, 4, 5, 6})
	d.SetClip(want)

	iface := i2s.NewInterface(d)
	h, err := iface.Configure(i2s.Capture, rx())
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	defer h.Close()
	_ = h.Enable()
	got := make([]byte, len(want)+4)
	if _, err := h.Transfer(got, time.Second); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if !bytes.Equal(got[:len(want)], want) {
		t.Fatalf("expected clip bytes first")
	}
	if !bytes.Equal(got[len(want):], make([]byte, 4)) {
		t.Fatalf("expected silence after the clip")
	}
}

func TestPinRangeChecked(t *testing.T) {
	s := DefaultSettings()
	s.MaxPin = 10
	iface := i2s.NewInterface(newDriver(t, s))
	_, err := iface.Configure(i2s.Playback, tx(true))
	if !errors.Is(err, i2s.ErrInvalidPin) || !errors.Is(err, i2s.ErrConfig) {
		t.Fatalf("expected invalid pin config error, got %v", err)
	}
}

func TestResidueLeaksWithoutAutoClear(t *testing.T) {
	d := newDriver(t, DefaultSettings())
	iface := i2s.NewInterface(d)
	stale := []byte{0xAA, 0xAA, 0xBB, 0xBB}
	fresh := []byte{1, 0, 2, 0}

	d.SeedResidue(stale)
	if _, err := play(t, iface, tx(false), fresh, time.Second); err != nil {
		t.Fatalf("play: %v", err)
	}
	if got := d.TakePlayed(); !bytes.Equal(got, append(append([]byte{}, stale...), fresh...)) {
		t.Fatalf("expected stale residue ahead of the clip, got %v", got)
	}

	d.SeedResidue(stale)
	if _, err := play(t, iface, tx(true), fresh, time.Second); err != nil {
		t.Fatalf("play: %v", err)
	}
	if got := d.TakePlayed(); !bytes.Equal(got, fresh) {
		t.Fatalf("expected auto clear to drop residue, got %v", got)
	}
}

func TestStallLeavesResidueAndTimesOut(t *testing.T) {
	s := DefaultSettings()
	s.StallAfterBytes = 1024
	d := newDriver(t, s)
	iface := i2s.NewInterface(d)

	n, err := play(t, iface, tx(true), make([]byte, 4096), 5*time.Millisecond)
	if !errors.Is(err, i2s.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if n != 1024 {
		t.Fatalf("expected 1024 bytes before the stall, got %d", n)
	}
	if len(d.Residue()) == 0 {
		t.Fatalf("expected queued bytes left in the FIFO")
	}
}

func TestEnableFault(t *testing.T) {
	d := newDriver(t, DefaultSettings())
	d.FailEnable(errors.New("clock tree"))
	iface := i2s.NewInterface(d)
	h, err := iface.Configure(i2s.Capture, rx())
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	defer h.Close()
	if err := h.Enable(); !errors.Is(err, i2s.ErrHardware) {
		t.Fatalf("expected ErrHardware, got %v", err)
	}
}

func TestSinkWritesWAV(t *testing.T) {
	s := DefaultSettings()
	s.SinkPath = filepath.Join(t.TempDir(), "out.wav")
	iface := i2s.NewInterface(newDriver(t, s))
	clip := pcm.FromSamples([]int16{10, -10, 20, -20})
	if _, err := play(t, iface, tx(true), clip, time.Second); err != nil {
		t.Fatalf("play: %v", err)
	}
	raw, err := os.ReadFile(s.SinkPath)
	if err != nil {
		t.Fatalf("read sink: %v", err)
	}
	got, err := pcm.DecodeWAV(raw)
	if err != nil {
		t.Fatalf("decode sink: %v", err)
	}
	if !bytes.Equal(got, clip) {
		t.Fatalf("sink content differs")
	}
}
