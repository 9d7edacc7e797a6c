package i2s

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/harunnryd/parrot/pkg/errorsx"
	"github.com/harunnryd/parrot/pkg/metrics"
)

type fakeChannel struct {
	chunk       int
	stallAfter  int
	moved       int
	readErr     error
	enableErr   error
	disabled    bool
	closed      bool
	lastTimeout time.Duration
}

func (c *fakeChannel) Enable() error  { return c.enableErr }
func (c *fakeChannel) Disable() error { c.disabled = true; return nil }
func (c *fakeChannel) Close() error   { c.closed = true; return nil }

func (c *fakeChannel) Read(p []byte, timeout time.Duration) (int, error) {
	return c.move(p, timeout)
}

func (c *fakeChannel) Write(p []byte, timeout time.Duration) (int, error) {
	return c.move(p, timeout)
}

func (c *fakeChannel) move(p []byte, timeout time.Duration) (int, error) {
	c.lastTimeout = timeout
	if c.readErr != nil {
		return 0, c.readErr
	}
	if c.stallAfter > 0 && c.moved >= c.stallAfter {
		// A stalled DMA waits out the full timeout like the hardware does.
		time.Sleep(timeout)
		return 0, ErrTimeout
	}
	n := min(len(p), c.chunk)
	if c.stallAfter > 0 {
		n = min(n, c.stallAfter-c.moved)
	}
	for i := range n {
		p[i] = byte(c.moved + i)
	}
	c.moved += n
	return n, nil
}

type fakeDriver struct {
	channels []*fakeChannel
	err      error
	chunk    int
}

func (d *fakeDriver) Configure(Direction, Config) (Channel, error) {
	if d.err != nil {
		return nil, d.err
	}
	chunk := d.chunk
	if chunk == 0 {
		chunk = 512
	}
	ch := &fakeChannel{chunk: chunk}
	d.channels = append(d.channels, ch)
	return ch, nil
}

func rxConfig() Config {
	return StdConfig(16000).WithPins(Pins{BCLK: 5, WS: 4, DIN: 6, DOUT: NoPin, MCLK: NoPin})
}

func txConfig() Config {
	return StdConfig(16000).WithPort(1).WithAutoClear(true).
		WithPins(Pins{BCLK: 15, WS: 16, DOUT: 7, DIN: NoPin, MCLK: NoPin})
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		dir  Direction
		cfg  Config
		ok   bool
	}{
		{"capture", Capture, rxConfig(), true},
		{"playback", Playback, txConfig(), true},
		{"rate", Capture, rxConfig().WithSampleRate(44100), false},
		{"width", Capture, rxConfig().WithBitWidth(24), false},
		{"stereo", Playback, txConfig().WithSlotMode(Stereo), false},
		{"capture without din", Capture, txConfig(), false},
		{"playback without dout", Playback, rxConfig(), false},
		{"duplicate pin", Capture, rxConfig().WithPins(Pins{BCLK: 5, WS: 5, DIN: 6, DOUT: NoPin, MCLK: NoPin}), false},
		{"negative pin", Capture, rxConfig().WithPins(Pins{BCLK: -3, WS: 4, DIN: 6, DOUT: NoPin, MCLK: NoPin}), false},
	}
	for _, tc := range cases {
		err := tc.cfg.Validate(tc.dir)
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrConfig) {
			t.Fatalf("%s: expected ErrConfig, got %v", tc.name, err)
		}
	}
}

func TestConfigureRejectsSecondBinding(t *testing.T) {
	iface := NewInterface(&fakeDriver{})
	h, err := iface.Configure(Capture, rxConfig())
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if _, err := iface.Configure(Capture, rxConfig()); !errors.Is(err, ErrAlreadyBound) {
		t.Fatalf("expected ErrAlreadyBound, got %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	h2, err := iface.Configure(Capture, rxConfig())
	if err != nil {
		t.Fatalf("configure after release: %v", err)
	}
	_ = h2.Close()
}

func TestDirectionsAreMutuallyExclusive(t *testing.T) {
	iface := NewInterface(&fakeDriver{})
	h, err := iface.Configure(Capture, rxConfig())
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	if _, err := iface.Configure(Playback, txConfig()); !errors.Is(err, ErrDirectionBusy) {
		t.Fatalf("expected ErrDirectionBusy, got %v", err)
	}
	_ = h.Close()
	if iface.Live(Capture) {
		t.Fatalf("expected capture released")
	}
	tx, err := iface.Configure(Playback, txConfig())
	if err != nil {
		t.Fatalf("playback after capture release: %v", err)
	}
	_ = tx.Close()
}

func TestConfigureWrapsDriverRejection(t *testing.T) {
	iface := NewInterface(&fakeDriver{err: ErrInvalidPin})
	_, err := iface.Configure(Capture, rxConfig())
	if !errors.Is(err, ErrConfig) || !errors.Is(err, ErrInvalidPin) {
		t.Fatalf("expected ErrConfig wrapping ErrInvalidPin, got %v", err)
	}
	if iface.Live(Capture) {
		t.Fatalf("failed configure must not hold the direction")
	}
}

func TestEnableOnce(t *testing.T) {
	iface := NewInterface(&fakeDriver{})
	h, _ := iface.Configure(Capture, rxConfig())
	defer h.Close()
	if _, err := h.Transfer(make([]byte, 4), time.Second); !errors.Is(err, ErrNotEnabled) {
		t.Fatalf("expected ErrNotEnabled, got %v", err)
	}
	if err := h.Enable(); err != nil {
		t.Fatalf("enable: %v", err)
	}
	if err := h.Enable(); !errors.Is(err, ErrAlreadyEnabled) {
		t.Fatalf("expected ErrAlreadyEnabled, got %v", err)
	}
}

func TestTransferFillsBuffer(t *testing.T) {
	obs := metrics.NewMemoryObserver()
	drv := &fakeDriver{chunk: 1000}
	iface := NewInterface(drv, WithObserver(obs))
	h, _ := iface.Configure(Capture, rxConfig())
	defer h.Close()
	if err := h.Enable(); err != nil {
		t.Fatalf("enable: %v", err)
	}
	buf := make([]byte, 160000)
	n, err := h.Transfer(buf, 0)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if n != len(buf) {
		t.Fatalf("expected %d bytes, got %d", len(buf), n)
	}
	if drv.channels[0].lastTimeout != DefaultTimeout {
		t.Fatalf("expected default timeout, got %v", drv.channels[0].lastTimeout)
	}
	if got := len(obs.Named(metrics.EventTransferChunk)); got != 160 {
		t.Fatalf("expected 160 chunk events, got %d", got)
	}
}

func TestTransferTimeoutReportsPartialCount(t *testing.T) {
	obs := metrics.NewMemoryObserver()
	drv := &fakeDriver{}
	iface := NewInterface(drv, WithObserver(obs))
	h, _ := iface.Configure(Playback, txConfig())
	defer h.Close()
	_ = h.Enable()
	drv.channels[0].stallAfter = 2048

	const timeout = 10 * time.Millisecond
	start := time.Now()
	n, err := h.Transfer(make([]byte, 8192), timeout)
	elapsed := time.Since(start)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed < timeout || elapsed > timeout+250*time.Millisecond {
		t.Fatalf("expected transfer to return after about %s, took %s", timeout, elapsed)
	}
	if n != 2048 {
		t.Fatalf("expected 2048 bytes moved, got %d", n)
	}
	if len(obs.Named(metrics.EventTransferTimeout)) != 1 {
		t.Fatalf("expected one timeout event")
	}
}

func TestTransferWrapsHardwareFault(t *testing.T) {
	drv := &fakeDriver{}
	iface := NewInterface(drv)
	h, _ := iface.Configure(Capture, rxConfig())
	defer h.Close()
	_ = h.Enable()
	drv.channels[0].readErr = errors.New("dma descriptor lost")
	if _, err := h.Transfer(make([]byte, 64), time.Second); !errors.Is(err, ErrHardware) {
		t.Fatalf("expected ErrHardware, got %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	drv := &fakeDriver{}
	iface := NewInterface(drv)
	h, _ := iface.Configure(Capture, rxConfig())
	_ = h.Enable()
	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	ch := drv.channels[0]
	if !ch.disabled || !ch.closed {
		t.Fatalf("expected channel disabled and closed")
	}
	if _, err := h.Transfer(make([]byte, 2), time.Second); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestChunkSamplingKeepsTimeouts(t *testing.T) {
	obs := metrics.NewMemoryObserver()
	drv := &fakeDriver{}
	iface := NewInterface(drv, WithObserver(obs), WithChunkSampleRate(0))
	h, _ := iface.Configure(Capture, rxConfig())
	defer h.Close()
	_ = h.Enable()
	drv.channels[0].stallAfter = 1024
	_, _ = h.Transfer(make([]byte, 4096), time.Millisecond)
	if len(obs.Named(metrics.EventTransferChunk)) != 0 {
		t.Fatalf("expected chunk events sampled away")
	}
	if len(obs.Named(metrics.EventTransferTimeout)) != 1 {
		t.Fatalf("expected the timeout event to survive sampling")
	}
}

func TestReason(t *testing.T) {
	cases := []struct {
		err  error
		want errorsx.ReasonCode
	}{
		{fmt.Errorf("%w: %w", ErrHardware, ErrTimeout), errorsx.ReasonI2STimeout},
		{fmt.Errorf("x: %w", ErrDirectionBusy), errorsx.ReasonI2SBusy},
		{ErrNotEnabled, errorsx.ReasonI2SEnable},
		{fmt.Errorf("%w: %w", ErrConfig, ErrUnsupportedRate), errorsx.ReasonI2SConfig},
		{errors.New("spi"), errorsx.ReasonI2SHardware},
		{nil, errorsx.ReasonUnknown},
	}
	for _, tc := range cases {
		if got := Reason(tc.err); got != tc.want {
			t.Fatalf("Reason(%v): expected %s, got %s", tc.err, tc.want, got)
		}
	}
}
