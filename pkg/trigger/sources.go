package trigger

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

// ErrClosed is returned by a Keyboard wait after Close.
var ErrClosed = errors.New("trigger: keyboard closed")

// DefaultHold is how long a simulated press keeps the pin active.
const DefaultHold = 100 * time.Millisecond

// Keyboard presses a simulated button for every line read from R. It stands in
// for the k0 key on hosts. The reader goroutine ends at EOF or on Close; a Read
// already blocked on R returns only when R is closed or yields data.
type Keyboard struct {
	R      io.Reader
	Hold   time.Duration
	Logger *slog.Logger
	Edge   EdgeDetector

	once      sync.Once
	closeOnce sync.Once
	done      chan struct{}
	stopped   chan struct{}
	pin       SimPin
}

func (k *Keyboard) WaitRisingEdge(ctx context.Context) error {
	k.once.Do(k.start)
	select {
	case <-k.done:
		return ErrClosed
	default:
	}
	return k.Edge.WaitRisingEdge(ctx)
}

// Close stops the reader goroutine and closes R when it is an io.Closer.
func (k *Keyboard) Close() error {
	k.once.Do(k.init)
	var err error
	k.closeOnce.Do(func() {
		close(k.done)
		if c, ok := k.R.(io.Closer); ok {
			err = c.Close()
		}
	})
	return err
}

// Stopped is closed once the reader goroutine has exited.
func (k *Keyboard) Stopped() <-chan struct{} {
	k.once.Do(k.start)
	return k.stopped
}

func (k *Keyboard) init() {
	k.done = make(chan struct{})
	k.stopped = make(chan struct{})
	close(k.stopped)
}

func (k *Keyboard) start() {
	k.done = make(chan struct{})
	k.stopped = make(chan struct{})
	k.Edge.Pin = &k.pin
	hold := k.Hold
	if hold <= 0 {
		hold = DefaultHold
	}
	log := k.Logger
	if log == nil {
		log = slog.Default()
	}
	go func() {
		defer close(k.stopped)
		sc := bufio.NewScanner(k.R)
		for sc.Scan() {
			select {
			case <-k.done:
				return
			default:
			}
			log.Debug("trigger_key_pressed")
			k.pin.Pulse(hold)
		}
		select {
		case <-k.done:
			return
		default:
		}
		if err := sc.Err(); err != nil {
			log.Warn("trigger_keyboard_closed", "error", err)
		}
	}()
}

// Interval presses automatically Every after each wait starts. Useful for
// unattended soak runs.
type Interval struct {
	Every time.Duration
}

func (i Interval) WaitRisingEdge(ctx context.Context) error {
	t := time.NewTimer(i.Every)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Manual fires when Press is called. Presses made while nobody waits are
// kept, up to the buffer size given to NewManual.
type Manual struct {
	ch chan struct{}
}

func NewManual(buffer int) *Manual {
	if buffer < 1 {
		buffer = 1
	}
	return &Manual{ch: make(chan struct{}, buffer)}
}

// Press queues a press. It reports false when the buffer is full.
func (m *Manual) Press() bool {
	select {
	case m.ch <- struct{}{}:
		return true
	default:
		return false
	}
}

func (m *Manual) WaitRisingEdge(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ch:
		return nil
	}
}
