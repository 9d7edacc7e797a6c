package i2s

import (
	"fmt"

	"github.com/harunnryd/parrot/pkg/pcm"
)

// Direction selects the receive or transmit half of the interface.
type Direction int

const (
	Capture Direction = iota
	Playback
)

func (d Direction) String() string {
	switch d {
	case Capture:
		return "rx"
	case Playback:
		return "tx"
	default:
		return "unknown"
	}
}

// Pin is a GPIO number. NoPin marks an unused role.
type Pin int

const NoPin Pin = -1

// Pins assigns GPIOs to the bus roles.
type Pins struct {
	BCLK Pin
	WS   Pin
	DOUT Pin
	DIN  Pin
	MCLK Pin
}

// Bound lists the pins in use, skipping NoPin.
func (p Pins) Bound() []Pin {
	var out []Pin
	for _, pin := range []Pin{p.BCLK, p.WS, p.DOUT, p.DIN, p.MCLK} {
		if pin != NoPin {
			out = append(out, pin)
		}
	}
	return out
}

type SlotMode int

const (
	Mono SlotMode = iota
	Stereo
)

func (m SlotMode) String() string {
	if m == Stereo {
		return "stereo"
	}
	return "mono"
}

type Standard int

const (
	Philips Standard = iota
	MSB
	PCMShort
)

func (s Standard) String() string {
	switch s {
	case Philips:
		return "philips"
	case MSB:
		return "msb"
	case PCMShort:
		return "pcm_short"
	default:
		return "unknown"
	}
}

// Config is everything a driver needs to program one direction. It is plain
// data; the With methods return modified copies.
type Config struct {
	// Port selects the peripheral instance (I2S0, I2S1, ...).
	Port       int
	SampleRate int
	BitWidth   int
	SlotMode   SlotMode
	Standard   Standard
	Pins       Pins
	// AutoClear asks the driver to drop residual FIFO contents when the
	// channel is configured, so stale samples never reach the wire.
	AutoClear bool
}

// StdConfig returns the Philips, 16-bit, mono configuration at rate with all
// pins unassigned.
func StdConfig(rate int) Config {
	return Config{
		SampleRate: rate,
		BitWidth:   pcm.BitDepth,
		SlotMode:   Mono,
		Standard:   Philips,
		Pins:       Pins{BCLK: NoPin, WS: NoPin, DOUT: NoPin, DIN: NoPin, MCLK: NoPin},
	}
}

func (c Config) WithPort(port int) Config       { c.Port = port; return c }
func (c Config) WithPins(p Pins) Config         { c.Pins = p; return c }
func (c Config) WithAutoClear(on bool) Config   { c.AutoClear = on; return c }
func (c Config) WithStandard(s Standard) Config { c.Standard = s; return c }
func (c Config) WithSlotMode(m SlotMode) Config { c.SlotMode = m; return c }
func (c Config) WithSampleRate(rate int) Config { c.SampleRate = rate; return c }
func (c Config) WithBitWidth(bits int) Config   { c.BitWidth = bits; return c }

// Validate checks the configuration against the fixed PCM contract and the
// pin roles dir needs. Platform limits are the driver's business.
func (c Config) Validate(dir Direction) error {
	if dir != Capture && dir != Playback {
		return fmt.Errorf("%w: unknown direction %d", ErrConfig, int(dir))
	}
	if c.SampleRate != pcm.SampleRate {
		return fmt.Errorf("%w: sample rate %d, want %d", ErrConfig, c.SampleRate, pcm.SampleRate)
	}
	if c.BitWidth != pcm.BitDepth {
		return fmt.Errorf("%w: bit width %d, want %d", ErrConfig, c.BitWidth, pcm.BitDepth)
	}
	if c.SlotMode != Mono {
		return fmt.Errorf("%w: slot mode %s, want mono", ErrConfig, c.SlotMode)
	}
	if c.Port < 0 {
		return fmt.Errorf("%w: port %d", ErrConfig, c.Port)
	}
	if c.Pins.BCLK == NoPin || c.Pins.WS == NoPin {
		return fmt.Errorf("%w: bclk and ws pins are required", ErrConfig)
	}
	switch dir {
	case Capture:
		if c.Pins.DIN == NoPin {
			return fmt.Errorf("%w: capture needs a din pin", ErrConfig)
		}
	case Playback:
		if c.Pins.DOUT == NoPin {
			return fmt.Errorf("%w: playback needs a dout pin", ErrConfig)
		}
	}
	seen := make(map[Pin]bool)
	for _, pin := range c.Pins.Bound() {
		if pin < 0 {
			return fmt.Errorf("%w: pin %d", ErrConfig, pin)
		}
		if seen[pin] {
			return fmt.Errorf("%w: pin %d assigned to two roles", ErrConfig, pin)
		}
		seen[pin] = true
	}
	return nil
}
