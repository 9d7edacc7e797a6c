package i2s

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/harunnryd/parrot/pkg/errorsx"
	"github.com/harunnryd/parrot/pkg/metrics"
)

// Handle is the exclusive claim on one direction. It is meant to be driven
// by a single goroutine.
type Handle struct {
	iface *Interface
	dir   Direction
	cfg   Config
	ch    Channel

	mu      sync.Mutex
	enabled bool
	closed  bool
}

func (h *Handle) Direction() Direction { return h.dir }
func (h *Handle) Config() Config       { return h.cfg }

// Enable arms clocks and DMA. It must be called exactly once.
func (h *Handle) Enable() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrClosed
	}
	if h.enabled {
		return ErrAlreadyEnabled
	}
	if err := h.ch.Enable(); err != nil {
		return fmt.Errorf("%w: enable %s: %w", ErrHardware, h.dir, err)
	}
	h.enabled = true
	return nil
}

// Transfer fills buf (capture) or drains it (playback). It returns once every
// byte has moved or a single hardware wait exceeds timeout; in the latter case
// n is the real count moved and err wraps ErrTimeout. Other driver faults wrap
// ErrHardware. A timeout <= 0 means DefaultTimeout.
func (h *Handle) Transfer(buf []byte, timeout time.Duration) (int, error) {
	h.mu.Lock()
	switch {
	case h.closed:
		h.mu.Unlock()
		return 0, ErrClosed
	case !h.enabled:
		h.mu.Unlock()
		return 0, ErrNotEnabled
	}
	h.mu.Unlock()

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var off int
	for off < len(buf) {
		var (
			n   int
			err error
		)
		if h.dir == Capture {
			n, err = h.ch.Read(buf[off:], timeout)
		} else {
			n, err = h.ch.Write(buf[off:], timeout)
		}
		if n < 0 || n > len(buf)-off {
			return off, fmt.Errorf("%w: %s driver reported %d bytes", ErrHardware, h.dir, n)
		}
		off += n
		if n > 0 {
			h.report(metrics.EventTransferChunk, float64(n), off, len(buf))
		}
		if err != nil {
			if errors.Is(err, ErrTimeout) {
				h.report(metrics.EventTransferTimeout, float64(off), off, len(buf))
				h.iface.log.Warn("i2s_transfer_timeout",
					"direction", h.dir.String(),
					"done", off,
					"total", len(buf),
					"timeout", timeout,
					"reason_code", string(errorsx.ReasonI2STimeout),
				)
				return off, fmt.Errorf("%s stalled after %d of %d bytes: %w", h.dir, off, len(buf), err)
			}
			return off, fmt.Errorf("%w: %s after %d of %d bytes: %w", ErrHardware, h.dir, off, len(buf), err)
		}
		if n == 0 {
			return off, fmt.Errorf("%w: %s channel made no progress", ErrHardware, h.dir)
		}
	}
	return off, nil
}

// Close disables the channel if needed, closes it and releases the claim.
// Calling Close more than once is a no-op.
func (h *Handle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	wasEnabled := h.enabled
	h.enabled = false
	h.mu.Unlock()

	var errs error
	if wasEnabled {
		errs = errors.Join(errs, h.ch.Disable())
	}
	errs = errors.Join(errs, h.ch.Close())
	h.iface.release(h)
	if errs != nil {
		return fmt.Errorf("%w: close %s: %w", ErrHardware, h.dir, errs)
	}
	return nil
}

func (h *Handle) report(name string, value float64, done, total int) {
	obs := h.iface.obs
	if name == metrics.EventTransferChunk {
		obs = h.iface.chunkObs
	}
	obs.RecordEvent(metrics.MetricsEvent{
		Name:  name,
		Time:  time.Now(),
		Value: value,
		Tags:  map[string]string{metrics.TagDirection: h.dir.String()},
		Fields: map[string]any{
			"done":  done,
			"total": total,
		},
	})
}
