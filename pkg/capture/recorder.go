// Package capture records a fixed-length clip from the I2S receiver.
package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/harunnryd/parrot/pkg/errorsx"
	"github.com/harunnryd/parrot/pkg/i2s"
	"github.com/harunnryd/parrot/pkg/metrics"
	"github.com/harunnryd/parrot/pkg/pcm"
)

var (
	ErrInvalidDuration = errors.New("capture: duration out of range")
	ErrTimeout         = errors.New("capture: timed out before the buffer filled")
	ErrConfig          = errors.New("capture: receiver rejected configuration")
	ErrHardware        = errors.New("capture: receiver fault")
)

var reasons = map[error]errorsx.ReasonCode{
	ErrInvalidDuration: errorsx.ReasonCaptureInvalidDuration,
	ErrTimeout:         errorsx.ReasonCaptureTimeout,
	ErrConfig:          errorsx.ReasonCaptureConfig,
	ErrHardware:        errorsx.ReasonCaptureHardware,
}

// Recorder captures from one receiver configuration. Config carries the
// pins and port; the format fields are forced to the fixed PCM contract.
type Recorder struct {
	Interface *i2s.Interface
	Config    i2s.Config
	// Timeout bounds each hardware wait. Zero means i2s.DefaultTimeout.
	Timeout  time.Duration
	Logger   *slog.Logger
	Observer metrics.Observer
}

// Capture records exactly d worth of audio. It either returns a full buffer
// or an error; a short read is never handed back. d <= 0 or d > pcm.MaxDuration
// fails before the hardware is touched. The receiver is released on every path.
func (r *Recorder) Capture(d time.Duration) (pcm.Buffer, error) {
	log := r.logger()
	if d <= 0 || d > pcm.MaxDuration {
		return nil, errorsx.Wrap(fmt.Errorf("%w: %s", ErrInvalidDuration, d), errorsx.ReasonCaptureInvalidDuration)
	}
	buf := pcm.NewBuffer(d)
	if len(buf) == 0 {
		return nil, errorsx.Wrap(fmt.Errorf("%w: %s is shorter than one frame", ErrInvalidDuration, d), errorsx.ReasonCaptureInvalidDuration)
	}

	start := time.Now()
	err := r.record(buf)
	elapsed := time.Since(start)
	if err != nil {
		err = errorsx.Classify(err, errorsx.ReasonCaptureHardware, reasons)
		log.Error("capture_failed", "duration", d, "elapsed", elapsed, "error", err, errorsx.LogAttr(err))
		return nil, err
	}

	log.Info("capture_complete", "bytes", len(buf), "duration", d, "elapsed", elapsed)
	metrics.OrNoop(r.Observer).RecordEvent(metrics.MetricsEvent{
		Name:   metrics.EventCaptureDone,
		Time:   time.Now(),
		Value:  float64(len(buf)),
		Tags:   map[string]string{metrics.TagDirection: i2s.Capture.String()},
		Fields: map[string]any{"elapsed_ms": elapsed.Milliseconds()},
	})
	return buf, nil
}

func (r *Recorder) record(buf pcm.Buffer) (err error) {
	cfg := r.Config.
		WithSampleRate(pcm.SampleRate).
		WithBitWidth(pcm.BitDepth).
		WithSlotMode(i2s.Mono)

	h, err := r.Interface.Configure(i2s.Capture, cfg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfig, err)
	}
	defer func() {
		if cerr := h.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("%w: %w", ErrHardware, cerr)
		}
	}()

	if err := h.Enable(); err != nil {
		return fmt.Errorf("%w: %w", ErrHardware, err)
	}
	n, err := h.Transfer(buf, r.Timeout)
	switch {
	case errors.Is(err, i2s.ErrTimeout):
		return fmt.Errorf("%w: got %d of %d bytes: %w", ErrTimeout, n, len(buf), err)
	case err != nil:
		return fmt.Errorf("%w: %w", ErrHardware, err)
	case n != len(buf):
		return fmt.Errorf("%w: got %d of %d bytes", ErrTimeout, n, len(buf))
	}
	return nil
}

func (r *Recorder) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}
