// Package parrot assembles the record-and-replay device from configuration:
// the I2S driver, trigger and display providers, and one session per boot.
package parrot

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/harunnryd/parrot/pkg/capture"
	"github.com/harunnryd/parrot/pkg/i2s"
	"github.com/harunnryd/parrot/pkg/logging"
	"github.com/harunnryd/parrot/pkg/metrics"
	"github.com/harunnryd/parrot/pkg/observers"
	"github.com/harunnryd/parrot/pkg/playback"
	"github.com/harunnryd/parrot/pkg/runner"
	"github.com/harunnryd/parrot/pkg/session"
)

// Device holds what survives a reboot: the platform driver (and with it the
// peripheral FIFOs), the trigger and the display. Everything else is rebuilt
// by Boot.
type Device struct {
	cfg      Config
	driver   i2s.Driver
	trigger  session.Trigger
	display  session.Display
	clips    session.ClipSink
	observer metrics.Observer
	log      *slog.Logger

	restarter session.Restarter
}

type DeviceOption func(*Device)

func WithObserver(obs metrics.Observer) DeviceOption {
	return func(d *Device) { d.observer = metrics.OrNoop(obs) }
}

func WithRestarter(r session.Restarter) DeviceOption {
	return func(d *Device) { d.restarter = r }
}

func NewDevice(cfg Config, reg *Registry, env Env, opts ...DeviceOption) (*Device, error) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	if env.Logger == nil {
		env.Logger = slog.Default()
	}
	d := &Device{cfg: cfg, observer: metrics.NoopObserver{}, log: env.Logger}
	for _, opt := range opts {
		opt(d)
	}

	var err error
	if d.driver, err = reg.BuildDriver(cfg.Driver, env); err != nil {
		return nil, fmt.Errorf("build driver: %w", err)
	}
	if d.trigger, err = reg.BuildTrigger(cfg.Trigger, env); err != nil {
		return nil, fmt.Errorf("build trigger: %w", err)
	}
	if d.display, err = reg.BuildDisplay(cfg.Display, env); err != nil {
		return nil, fmt.Errorf("build display: %w", err)
	}
	if cfg.Observability.RecordAudio && cfg.Observability.ArtifactsDir != "" {
		d.clips = observers.ClipArchive{Dir: filepath.Join(cfg.Observability.ArtifactsDir, "clips")}
	}
	return d, nil
}

// Close releases the trigger's background reader, if it has one.
func (d *Device) Close() error {
	if c, ok := d.trigger.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (d *Device) Driver() i2s.Driver       { return d.driver }
func (d *Device) Trigger() session.Trigger { return d.trigger }
func (d *Device) Config() Config           { return d.cfg }

// Boot builds a fresh interface, recorder, player and controller for boot n.
func (d *Device) Boot(_ context.Context, n int) (runner.Session, error) {
	id := uuid.NewString()
	obs := metrics.WithTags(d.observer, map[string]string{metrics.TagSessionID: id})
	log := d.log.With("boot", n)

	iface := d.newInterface(obs, log)
	return &session.Controller{
		Trigger:        d.trigger,
		Display:        d.display,
		Recorder:       d.recorder(iface, obs, log),
		Player:         d.player(iface, obs, log),
		Restarter:      d.restarter,
		Clips:          d.clips,
		Prompt:         d.cfg.Display.Prompt,
		RecordDuration: d.cfg.RecordDuration(),
		SessionID:      id,
		Logger:         logging.NewComponentLogger(log, "session"),
		Observer:       obs,
	}, nil
}

// Recorder returns a standalone recorder over its own interface, for one-shot
// commands.
func (d *Device) Recorder() *capture.Recorder {
	iface := d.newInterface(d.observer, d.log)
	return d.recorder(iface, d.observer, d.log)
}

// Player returns a standalone player over its own interface.
func (d *Device) Player() *playback.Player {
	iface := d.newInterface(d.observer, d.log)
	return d.player(iface, d.observer, d.log)
}

func (d *Device) newInterface(obs metrics.Observer, log *slog.Logger) *i2s.Interface {
	return i2s.NewInterface(d.driver,
		i2s.WithObserver(obs),
		i2s.WithChunkSampleRate(d.cfg.Observability.ChunkSampleRate),
		i2s.WithLogger(logging.NewComponentLogger(log, "i2s")),
	)
}

func (d *Device) recorder(iface *i2s.Interface, obs metrics.Observer, log *slog.Logger) *capture.Recorder {
	return &capture.Recorder{
		Interface: iface,
		Config:    d.cfg.CaptureI2S(),
		Timeout:   d.cfg.TransferTimeout(),
		Logger:    logging.NewComponentLogger(log, "capture"),
		Observer:  obs,
	}
}

func (d *Device) player(iface *i2s.Interface, obs metrics.Observer, log *slog.Logger) *playback.Player {
	return &playback.Player{
		Interface: iface,
		Config:    d.cfg.PlaybackI2S(),
		Timeout:   d.cfg.TransferTimeout(),
		Logger:    logging.NewComponentLogger(log, "playback"),
		Observer:  obs,
	}
}
