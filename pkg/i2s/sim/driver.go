// Package sim is an in-memory i2s.Driver for hosts without audio hardware.
//
// Capture reads from a configurable source. Playback records every byte that
// would have reached the DAC; Played returns them. Like the real peripheral,
// the transmit FIFO keeps whatever was queued when a channel stops, and that
// residue goes out first on the next enable unless the channel was
// configured with AutoClear.
package sim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/harunnryd/parrot/pkg/i2s"
	"github.com/harunnryd/parrot/pkg/pcm"
)

var errChannelOff = errors.New("sim: channel not enabled")

type Driver struct {
	settings Settings

	mu           sync.Mutex
	source       io.Reader
	played       bytes.Buffer
	residue      []byte
	configureErr error
	enableErr    error
	stallAfter   int
	configured   int
}

// New builds a driver from settings. A file source is loaded eagerly.
func New(s Settings) (*Driver, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	d := &Driver{settings: s, stallAfter: s.StallAfterBytes}
	switch s.Source {
	case SourceTone:
		d.source = &tone{hz: s.ToneHz, amp: float64(s.Amplitude)}
	case SourceSilence:
		d.source = silence{}
	case SourceFile:
		raw, err := os.ReadFile(s.SourcePath)
		if err != nil {
			return nil, fmt.Errorf("sim driver: read source: %w", err)
		}
		clip, err := pcm.Load(raw)
		if err != nil {
			return nil, fmt.Errorf("sim driver: %s: %w", s.SourcePath, err)
		}
		d.source = clipSource(clip)
	}
	return d, nil
}

// SetSource replaces the capture source. Exhausted sources read as silence.
func (d *Driver) SetSource(r io.Reader) {
	d.mu.Lock()
	d.source = thenSilence(r)
	d.mu.Unlock()
}

// SetClip makes the next captures return b followed by silence.
func (d *Driver) SetClip(b pcm.Buffer) {
	d.mu.Lock()
	d.source = clipSource(b.Clone())
	d.mu.Unlock()
}

// FailConfigure makes Configure return err until cleared with nil.
func (d *Driver) FailConfigure(err error) {
	d.mu.Lock()
	d.configureErr = err
	d.mu.Unlock()
}

// FailEnable makes Enable return err until cleared with nil.
func (d *Driver) FailEnable(err error) {
	d.mu.Lock()
	d.enableErr = err
	d.mu.Unlock()
}

// StallAfter makes channels configured from now on withhold data after n
// bytes. Zero turns the stall off.
func (d *Driver) StallAfter(n int) {
	d.mu.Lock()
	d.stallAfter = n
	d.mu.Unlock()
}

// SeedResidue puts b into the transmit FIFO as if a previous run had been cut
// short.
func (d *Driver) SeedResidue(b []byte) {
	d.mu.Lock()
	d.residue = slices.Clone(b)
	d.mu.Unlock()
}

func (d *Driver) Residue() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.residue)
}

// Played returns every byte transmitted so far.
func (d *Driver) Played() pcm.Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	return pcm.Buffer(bytes.Clone(d.played.Bytes()))
}

// TakePlayed returns and forgets the bytes transmitted so far.
func (d *Driver) TakePlayed() pcm.Buffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := pcm.Buffer(bytes.Clone(d.played.Bytes()))
	d.played.Reset()
	return out
}

// Configured counts successful Configure calls.
func (d *Driver) Configured() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.configured
}

func (d *Driver) Configure(dir i2s.Direction, cfg i2s.Config) (i2s.Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.configureErr != nil {
		return nil, d.configureErr
	}
	switch cfg.SampleRate {
	case 8000, 16000, 22050, 44100, 48000:
	default:
		return nil, fmt.Errorf("%w: %d Hz", i2s.ErrUnsupportedRate, cfg.SampleRate)
	}
	for _, pin := range cfg.Pins.Bound() {
		if int(pin) > d.settings.MaxPin {
			return nil, fmt.Errorf("%w: gpio %d above %d", i2s.ErrInvalidPin, pin, d.settings.MaxPin)
		}
	}
	if dir == i2s.Playback && cfg.AutoClear {
		d.residue = nil
	}
	d.configured++
	return &channel{d: d, dir: dir, stallAfter: d.stallAfter}, nil
}

type channel struct {
	d          *Driver
	dir        i2s.Direction
	stallAfter int

	enabled bool
	moved   int
	session bytes.Buffer
}

func (c *channel) Enable() error {
	c.d.mu.Lock()
	defer c.d.mu.Unlock()
	if c.d.enableErr != nil {
		return c.d.enableErr
	}
	c.enabled = true
	if c.dir == i2s.Playback && len(c.d.residue) > 0 {
		c.d.played.Write(c.d.residue)
		c.session.Write(c.d.residue)
		c.d.residue = nil
	}
	return nil
}

func (c *channel) Disable() error {
	c.enabled = false
	return nil
}

func (c *channel) Read(p []byte, timeout time.Duration) (int, error) {
	n, err := c.budget(len(p), timeout)
	if n == 0 {
		return 0, err
	}
	c.d.mu.Lock()
	got, rerr := io.ReadFull(c.d.source, p[:n])
	c.d.mu.Unlock()
	if rerr != nil {
		return got, fmt.Errorf("sim: capture source: %w", rerr)
	}
	c.moved += got
	c.pace(got)
	return got, nil
}

func (c *channel) Write(p []byte, timeout time.Duration) (int, error) {
	n, err := c.budget(len(p), timeout)
	if n == 0 {
		if errors.Is(err, i2s.ErrTimeout) && len(p) > 0 {
			// The DMA never drained; the next chunk sits in the FIFO.
			c.d.mu.Lock()
			c.d.residue = slices.Clone(p[:min(len(p), c.d.settings.ChunkBytes)])
			c.d.mu.Unlock()
		}
		return 0, err
	}
	c.d.mu.Lock()
	c.d.played.Write(p[:n])
	c.session.Write(p[:n])
	c.d.mu.Unlock()
	c.moved += n
	c.pace(n)
	return n, nil
}

// budget decides how many bytes the next DMA chunk may move.
func (c *channel) budget(want int, timeout time.Duration) (int, error) {
	if !c.enabled {
		return 0, errChannelOff
	}
	n := min(want, c.d.settings.ChunkBytes) &^ 1
	if c.stallAfter > 0 {
		if c.moved >= c.stallAfter {
			time.Sleep(timeout)
			return 0, i2s.ErrTimeout
		}
		n = min(n, c.stallAfter-c.moved)
	}
	if n == 0 {
		return 0, fmt.Errorf("sim: %d byte transfer is not a whole frame", want)
	}
	return n, nil
}

func (c *channel) pace(n int) {
	if c.d.settings.Realtime {
		time.Sleep(pcm.Duration(n))
	}
}

func (c *channel) Close() error {
	c.enabled = false
	if c.dir != i2s.Playback || c.d.settings.SinkPath == "" || c.session.Len() == 0 {
		return nil
	}
	f, err := os.Create(c.d.settings.SinkPath)
	if err != nil {
		return fmt.Errorf("sim: create sink: %w", err)
	}
	if err := pcm.EncodeWAV(f, pcm.Buffer(c.session.Bytes())); err != nil {
		_ = f.Close()
		return fmt.Errorf("sim: write sink: %w", err)
	}
	return f.Close()
}
