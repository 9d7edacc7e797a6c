// Package display drives the status panel: a 240x240 ST7789 on SPI.
package display

import (
	"errors"
	"fmt"
)

var ErrConfig = errors.New("display: invalid panel configuration")

type ColorOrder int

const (
	OrderRGB ColorOrder = iota
	OrderBGR
)

// SPIPins assigns GPIOs to the panel bus. -1 marks an unused line.
type SPIPins struct {
	MOSI int
	CLK  int
	CS   int
	DC   int
	RST  int
}

// PanelConfig is plain data describing the panel and its bus. Apply consumes
// it once to bring the panel up.
type PanelConfig struct {
	Width      int
	Height     int
	ColorOrder ColorOrder
	// LittleEndian selects the RGB565 byte order on the wire.
	LittleEndian bool
	SPIHost      int
	Pins         SPIPins
	SPIMode      int
	ClockHz      int
	Invert       bool
	SwapXY       bool
	MirrorX      bool
	MirrorY      bool
}

// DefaultPanelConfig matches the board: SPI3, mode 3 at 40 MHz, colours
// inverted, no mirroring.
func DefaultPanelConfig() PanelConfig {
	return PanelConfig{
		Width:        240,
		Height:       240,
		ColorOrder:   OrderRGB,
		LittleEndian: true,
		SPIHost:      3,
		Pins:         SPIPins{MOSI: 47, CLK: 21, CS: 41, DC: 40, RST: 45},
		SPIMode:      3,
		ClockHz:      40_000_000,
		Invert:       true,
	}
}

func (c PanelConfig) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrConfig, c.Width, c.Height)
	}
	if c.SPIMode < 0 || c.SPIMode > 3 {
		return fmt.Errorf("%w: spi mode %d", ErrConfig, c.SPIMode)
	}
	if c.ClockHz <= 0 || c.ClockHz > 80_000_000 {
		return fmt.Errorf("%w: spi clock %d Hz", ErrConfig, c.ClockHz)
	}
	if c.Pins.MOSI < 0 || c.Pins.CLK < 0 || c.Pins.DC < 0 {
		return fmt.Errorf("%w: mosi, clk and dc pins are required", ErrConfig)
	}
	return nil
}

// Driver is the panel controller behind the SPI bus.
type Driver interface {
	Reset() error
	Init() error
	InvertColors(on bool) error
	SwapXY(on bool) error
	Mirror(x, y bool) error
	DisplayOn(on bool) error
	// DrawBitmap writes pixel data for the half-open window [x0,x1) x [y0,y1).
	DrawBitmap(x0, y0, x1, y1 int, data []byte) error
}

// Apply brings the panel up: reset, init, colour inversion, axis swap,
// mirroring and display on, in that order.
func (c PanelConfig) Apply(d Driver) (*Panel, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	steps := []struct {
		name string
		fn   func() error
	}{
		{"reset", d.Reset},
		{"init", d.Init},
		{"invert", func() error { return d.InvertColors(c.Invert) }},
		{"swap_xy", func() error { return d.SwapXY(c.SwapXY) }},
		{"mirror", func() error { return d.Mirror(c.MirrorX, c.MirrorY) }},
		{"display_on", func() error { return d.DisplayOn(true) }},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			return nil, fmt.Errorf("display: %s: %w", step.name, err)
		}
	}
	return &Panel{cfg: c, driver: d, fb: NewFramebuffer(c.Width, c.Height, c.LittleEndian)}, nil
}
