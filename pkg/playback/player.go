// Package playback sends a clip to the I2S transmitter.
package playback

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/harunnryd/parrot/pkg/errorsx"
	"github.com/harunnryd/parrot/pkg/i2s"
	"github.com/harunnryd/parrot/pkg/metrics"
	"github.com/harunnryd/parrot/pkg/pcm"
)

//go:embed assets/hello.pcm
var defaultClip []byte

var (
	ErrTimeout  = errors.New("playback: timed out before the clip drained")
	ErrConfig   = errors.New("playback: transmitter rejected configuration")
	ErrHardware = errors.New("playback: transmitter fault")
)

var reasons = map[error]errorsx.ReasonCode{
	pcm.ErrMisaligned: errorsx.ReasonPlaybackInvalidBuffer,
	ErrTimeout:        errorsx.ReasonPlaybackTimeout,
	ErrConfig:         errorsx.ReasonPlaybackConfig,
	ErrHardware:       errorsx.ReasonPlaybackHardware,
}

// DefaultClip returns a copy of the bundled one second greeting.
func DefaultClip() pcm.Buffer {
	return pcm.Buffer(defaultClip).Clone()
}

// Player drives one transmitter configuration. AutoClear is always forced on
// so residual FIFO contents from an earlier run never reach the speaker.
type Player struct {
	Interface *i2s.Interface
	Config    i2s.Config
	// Timeout bounds each hardware wait. Zero means i2s.DefaultTimeout.
	Timeout  time.Duration
	Logger   *slog.Logger
	Observer metrics.Observer
}

// Play transmits audio, or the default clip when audio is nil. An empty,
// non-nil buffer plays nothing and succeeds. There is no retry on timeout.
func (p *Player) Play(audio pcm.Buffer) error {
	log := p.logger()
	source := "buffer"
	if audio == nil {
		audio = pcm.Buffer(defaultClip)
		source = "default_clip"
	}
	if err := audio.Validate(); err != nil {
		err = errorsx.Wrap(err, errorsx.ReasonPlaybackInvalidBuffer)
		log.Error("playback_rejected", "bytes", len(audio), "error", err, errorsx.LogAttr(err))
		return err
	}

	start := time.Now()
	err := p.play(audio)
	elapsed := time.Since(start)
	if err != nil {
		err = errorsx.Classify(err, errorsx.ReasonPlaybackHardware, reasons)
		log.Error("playback_failed", "source", source, "bytes", len(audio), "elapsed", elapsed, "error", err, errorsx.LogAttr(err))
		return err
	}

	log.Info("playback_complete", "source", source, "bytes", len(audio), "elapsed", elapsed)
	metrics.OrNoop(p.Observer).RecordEvent(metrics.MetricsEvent{
		Name:   metrics.EventPlaybackDone,
		Time:   time.Now(),
		Value:  float64(len(audio)),
		Tags:   map[string]string{metrics.TagDirection: i2s.Playback.String()},
		Fields: map[string]any{"elapsed_ms": elapsed.Milliseconds(), "source": source},
	})
	return nil
}

func (p *Player) play(audio pcm.Buffer) (err error) {
	cfg := p.Config.
		WithSampleRate(pcm.SampleRate).
		WithBitWidth(pcm.BitDepth).
		WithSlotMode(i2s.Mono).
		WithAutoClear(true)

	h, err := p.Interface.Configure(i2s.Playback, cfg)
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
	if len(audio) == 0 {
		return nil
	}
	n, err := h.Transfer(audio, p.Timeout)
	switch {
	case errors.Is(err, i2s.ErrTimeout):
		return fmt.Errorf("%w: sent %d of %d bytes: %w", ErrTimeout, n, len(audio), err)
	case err != nil:
		return fmt.Errorf("%w: %w", ErrHardware, err)
	case n != len(audio):
		return fmt.Errorf("%w: sent %d of %d bytes", ErrTimeout, n, len(audio))
	}
	return nil
}

func (p *Player) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
