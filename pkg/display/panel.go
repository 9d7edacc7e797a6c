package display

import (
	"fmt"
	"image"
	"io"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Composer paints status text into a frame.
type Composer interface {
	Compose(fb *Framebuffer, text string) error
}

// TextComposer draws left-aligned lines with a bitmap font. Runes the face
// lacks are drawn as its fallback glyph.
type TextComposer struct {
	Face       font.Face
	Foreground RGB565
	Background RGB565
	Margin     int
}

func NewTextComposer() *TextComposer {
	return &TextComposer{Face: basicfont.Face7x13, Foreground: Green, Background: Black, Margin: 8}
}

func (t *TextComposer) Compose(fb *Framebuffer, text string) error {
	fb.Fill(t.Background)
	face := t.Face
	if face == nil {
		face = basicfont.Face7x13
	}
	d := &font.Drawer{Dst: fb, Src: image.NewUniform(t.Foreground), Face: face}
	lineHeight := face.Metrics().Height.Ceil()
	y := t.Margin + face.Metrics().Ascent.Ceil()
	for _, line := range strings.Split(text, "\n") {
		d.Dot = fixed.P(t.Margin, y)
		d.DrawString(strings.TrimSpace(line))
		y += lineHeight
	}
	return nil
}

// Panel owns the configured panel driver and its frame.
type Panel struct {
	cfg    PanelConfig
	driver Driver

	mu       sync.Mutex
	fb       *Framebuffer
	composer Composer
}

// SetComposer replaces the text renderer. With no composer the panel shows
// a cleared frame.
func (p *Panel) SetComposer(c Composer) {
	p.mu.Lock()
	p.composer = c
	p.mu.Unlock()
}

func (p *Panel) Config() PanelConfig { return p.cfg }

// RenderStatus composes text and pushes the full frame to the panel.
func (p *Panel) RenderStatus(text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.composer != nil {
		if err := p.composer.Compose(p.fb, text); err != nil {
			return fmt.Errorf("display: compose: %w", err)
		}
	} else {
		p.fb.Fill(Black)
	}
	if err := p.driver.DrawBitmap(0, 0, p.cfg.Width, p.cfg.Height, p.fb.Pix); err != nil {
		return fmt.Errorf("display: draw: %w", err)
	}
	return nil
}

// Frame returns a copy of the last frame pushed.
func (p *Panel) Frame() *Framebuffer {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := *p.fb
	out.Pix = append([]byte(nil), p.fb.Pix...)
	return &out
}

// Console shows status text on a writer instead of a panel.
type Console struct {
	W io.Writer

	mu sync.Mutex
}

func (c *Console) RenderStatus(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, line := range strings.Split(text, "\n") {
		if _, err := fmt.Fprintf(c.W, "[display] %s\n", strings.TrimSpace(line)); err != nil {
			return err
		}
	}
	return nil
}
