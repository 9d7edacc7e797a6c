// Package trigger turns a button level into "pressed" events.
package trigger

import (
	"context"
	"sync/atomic"
	"time"
)

const (
	DefaultPoll     = 10 * time.Millisecond
	DefaultDebounce = 20 * time.Millisecond
)

// Pin reads a digital input level.
type Pin interface {
	Level() bool
}

// EdgeDetector waits for an inactive-to-active transition that stays active
// for at least Debounce. ActiveLow inverts the level, for buttons wired to
// ground with a pull-up.
type EdgeDetector struct {
	Pin       Pin
	Poll      time.Duration
	Debounce  time.Duration
	ActiveLow bool
}

// WaitRisingEdge blocks until the next debounced press. A button already held
// down when the wait starts must be released first.
func (e *EdgeDetector) WaitRisingEdge(ctx context.Context) error {
	poll := e.Poll
	if poll <= 0 {
		poll = DefaultPoll
	}
	debounce := e.Debounce
	if debounce < 0 {
		debounce = 0
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	armed := !e.active()
	var since time.Time
	for {
		if armed {
			if e.active() {
				if since.IsZero() {
					since = time.Now()
				}
				if time.Since(since) >= debounce {
					return nil
				}
			} else {
				since = time.Time{}
			}
		} else if !e.active() {
			armed = true
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *EdgeDetector) active() bool {
	return e.Pin.Level() != e.ActiveLow
}

// SimPin is a settable level, for hosts and tests.
type SimPin struct {
	level atomic.Bool
}

func (p *SimPin) Level() bool { return p.level.Load() }

func (p *SimPin) Set(level bool) { p.level.Store(level) }

// Pulse drives the pin high for hold, then low again. It blocks for hold.
func (p *SimPin) Pulse(hold time.Duration) {
	p.Set(true)
	time.Sleep(hold)
	p.Set(false)
}
