package i2s

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/parrot/pkg/metrics"
)

// DefaultTimeout bounds a single hardware wait when a caller passes no timeout.
const DefaultTimeout = 1000 * time.Millisecond

// Interface hands out direction handles over one Driver and keeps track of
// who owns what. Capture and playback are mutually exclusive: a direction can
// only be configured while the other one is released.
type Interface struct {
	driver    Driver
	obs       metrics.Observer
	chunkObs  metrics.Observer
	chunkRate float64
	log       *slog.Logger

	mu   sync.Mutex
	live map[Direction]*Handle
	pins map[Pin]Direction
}

type Option func(*Interface)

// WithObserver reports transfer progress and timeouts to obs.
func WithObserver(obs metrics.Observer) Option {
	return func(i *Interface) { i.obs = metrics.OrNoop(obs) }
}

// WithChunkSampleRate forwards only about rate of the per-chunk progress
// events. Timeouts are always reported.
func WithChunkSampleRate(rate float64) Option {
	return func(i *Interface) { i.chunkRate = rate }
}

func WithLogger(log *slog.Logger) Option {
	return func(i *Interface) {
		if log != nil {
			i.log = log
		}
	}
}

func NewInterface(driver Driver, opts ...Option) *Interface {
	i := &Interface{
		driver:    driver,
		obs:       metrics.NoopObserver{},
		chunkRate: 1,
		log:       slog.Default(),
		live:      make(map[Direction]*Handle),
		pins:      make(map[Pin]Direction),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.chunkObs = i.obs
	if i.chunkRate < 1 {
		i.chunkObs = metrics.NewSamplingObserver(i.obs, i.chunkRate)
	}
	return i
}

// Configure validates cfg, claims dir and its pins, and asks the driver to
// program the peripheral. The returned handle is disabled; call Enable before
// Transfer and Close when done.
func (i *Interface) Configure(dir Direction, cfg Config) (*Handle, error) {
	h, err := i.configure(dir, cfg)
	if err != nil {
		i.log.Warn("i2s_configure_rejected",
			"direction", dir.String(),
			"port", cfg.Port,
			"error", err,
			"reason_code", string(Reason(err)),
		)
		return nil, err
	}
	i.log.Debug("i2s_configured",
		"direction", dir.String(),
		"port", cfg.Port,
		"sample_rate", cfg.SampleRate,
		"auto_clear", cfg.AutoClear,
	)
	return h, nil
}

func (i *Interface) configure(dir Direction, cfg Config) (*Handle, error) {
	if err := cfg.Validate(dir); err != nil {
		return nil, err
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.live[dir]; ok {
		return nil, fmt.Errorf("%w: %s direction", ErrAlreadyBound, dir)
	}
	for other := range i.live {
		if other != dir {
			return nil, fmt.Errorf("%w: %s requested while %s is held", ErrDirectionBusy, dir, other)
		}
	}
	for _, pin := range cfg.Pins.Bound() {
		if owner, ok := i.pins[pin]; ok {
			return nil, fmt.Errorf("%w: pin %d held by %s", ErrAlreadyBound, pin, owner)
		}
	}

	ch, err := i.driver.Configure(dir, cfg)
	if err != nil {
		if errors.Is(err, ErrConfig) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrConfig, dir, err)
	}

	h := &Handle{iface: i, dir: dir, cfg: cfg, ch: ch}
	i.live[dir] = h
	for _, pin := range cfg.Pins.Bound() {
		i.pins[pin] = dir
	}
	return h, nil
}

// Live reports whether a handle for dir is currently held.
func (i *Interface) Live(dir Direction) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	_, ok := i.live[dir]
	return ok
}

func (i *Interface) release(h *Handle) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.live[h.dir] != h {
		return
	}
	delete(i.live, h.dir)
	for _, pin := range h.cfg.Pins.Bound() {
		if i.pins[pin] == h.dir {
			delete(i.pins, pin)
		}
	}
}
