package capture

import (
	"errors"
	"testing"
	"time"

	"github.com/harunnryd/parrot/pkg/errorsx"
	"github.com/harunnryd/parrot/pkg/i2s"
	"github.com/harunnryd/parrot/pkg/i2s/sim"
	"github.com/harunnryd/parrot/pkg/logging"
	"github.com/harunnryd/parrot/pkg/metrics"
	"github.com/harunnryd/parrot/pkg/pcm"
)

func rxPins() i2s.Config {
	return i2s.StdConfig(pcm.SampleRate).
		WithPins(i2s.Pins{BCLK: 5, WS: 4, DIN: 6, DOUT: i2s.NoPin, MCLK: i2s.NoPin})
}

func newRecorder(t *testing.T, s sim.Settings) (*Recorder, *sim.Driver, *metrics.MemoryObserver) {
	t.Helper()
	drv, err := sim.New(s)
	if err != nil {
		t.Fatalf("sim: %v", err)
	}
	obs := metrics.NewMemoryObserver()
	return &Recorder{
		Interface: i2s.NewInterface(drv),
		Config:    rxPins(),
		Timeout:   10 * time.Millisecond,
		Logger:    logging.Discard(),
		Observer:  obs,
	}, drv, obs
}

func TestCaptureFiveSecondsIsExact(t *testing.T) {
	rec, _, obs := newRecorder(t, sim.DefaultSettings())
	buf, err := rec.Capture(5 * time.Second)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if len(buf) != 160000 {
		t.Fatalf("expected 160000 bytes, got %d", len(buf))
	}
	if rec.Interface.Live(i2s.Capture) {
		t.Fatalf("expected receiver released")
	}
	if len(obs.Named(metrics.EventCaptureDone)) != 1 {
		t.Fatalf("expected capture_complete event")
	}
}

func TestCaptureLengthMatchesDuration(t *testing.T) {
	rec, _, _ := newRecorder(t, sim.DefaultSettings())
	for _, d := range []time.Duration{time.Millisecond, 250 * time.Millisecond, 1500 * time.Millisecond} {
		buf, err := rec.Capture(d)
		if err != nil {
			t.Fatalf("capture %s: %v", d, err)
		}
		if want := pcm.BytesInDuration(d); len(buf) != want {
			t.Fatalf("capture %s: expected %d bytes, got %d", d, want, len(buf))
		}
	}
}

func TestCaptureZeroTouchesNoHardware(t *testing.T) {
	rec, drv, _ := newRecorder(t, sim.DefaultSettings())
	_, err := rec.Capture(0)
	if !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
	if errorsx.Reason(err) != errorsx.ReasonCaptureInvalidDuration {
		t.Fatalf("unexpected reason %q", errorsx.Reason(err))
	}
	if drv.Configured() != 0 {
		t.Fatalf("expected no configure call, got %d", drv.Configured())
	}
}

func TestCaptureRejectsOversizedDuration(t *testing.T) {
	rec, drv, _ := newRecorder(t, sim.DefaultSettings())
	for _, d := range []time.Duration{pcm.MaxDuration + time.Second, 200 * time.Hour} {
		buf, err := rec.Capture(d)
		if !errors.Is(err, ErrInvalidDuration) {
			t.Fatalf("%s: expected ErrInvalidDuration, got %v", d, err)
		}
		if buf != nil {
			t.Fatalf("%s: expected no buffer", d)
		}
	}
	if drv.Configured() != 0 {
		t.Fatalf("expected no configure call, got %d", drv.Configured())
	}
}

func TestCaptureTimeoutReturnsNoBuffer(t *testing.T) {
	s := sim.DefaultSettings()
	s.StallAfterBytes = 4096
	rec, _, _ := newRecorder(t, s)
	start := time.Now()
	buf, err := rec.Capture(time.Second)
	elapsed := time.Since(start)
	if !errors.Is(err, ErrTimeout) || !errors.Is(err, i2s.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
	if elapsed < rec.Timeout || elapsed > rec.Timeout+250*time.Millisecond {
		t.Fatalf("expected capture to give up after about %s, took %s", rec.Timeout, elapsed)
	}
	if buf != nil {
		t.Fatalf("expected no partial buffer, got %d bytes", len(buf))
	}
	if errorsx.Reason(err) != errorsx.ReasonCaptureTimeout {
		t.Fatalf("unexpected reason %q", errorsx.Reason(err))
	}
	if rec.Interface.Live(i2s.Capture) {
		t.Fatalf("expected receiver released after timeout")
	}
}

func TestCaptureConfigError(t *testing.T) {
	rec, _, _ := newRecorder(t, sim.DefaultSettings())
	rec.Config = rec.Config.WithPins(i2s.Pins{BCLK: 5, WS: 4, DIN: i2s.NoPin, DOUT: i2s.NoPin, MCLK: i2s.NoPin})
	_, err := rec.Capture(time.Second)
	if !errors.Is(err, ErrConfig) || !errors.Is(err, i2s.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestCaptureHardwareError(t *testing.T) {
	rec, drv, _ := newRecorder(t, sim.DefaultSettings())
	drv.FailEnable(errors.New("pll unlock"))
	_, err := rec.Capture(time.Second)
	if !errors.Is(err, ErrHardware) {
		t.Fatalf("expected ErrHardware, got %v", err)
	}
	if rec.Interface.Live(i2s.Capture) {
		t.Fatalf("expected receiver released after enable fault")
	}
}

func TestCaptureWhilePlaybackLive(t *testing.T) {
	rec, _, _ := newRecorder(t, sim.DefaultSettings())
	tx, err := rec.Interface.Configure(i2s.Playback, i2s.StdConfig(pcm.SampleRate).WithPort(1).
		WithPins(i2s.Pins{BCLK: 15, WS: 16, DOUT: 7, DIN: i2s.NoPin, MCLK: i2s.NoPin}))
	if err != nil {
		t.Fatalf("configure tx: %v", err)
	}
	defer tx.Close()
	if _, err := rec.Capture(time.Second); !errors.Is(err, i2s.ErrDirectionBusy) {
		t.Fatalf("expected ErrDirectionBusy, got %v", err)
	}
}
