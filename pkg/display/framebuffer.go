package display

import (
	"encoding/binary"
	"image"
	"image/color"
)

// RGB565 is a 16-bit colour: 5 bits red, 6 green, 5 blue.
type RGB565 uint16

func RGB(r, g, b uint8) RGB565 {
	return RGB565(uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3))
}

func (c RGB565) RGBA() (r, g, b, a uint32) {
	r8 := uint32(c>>11) & 0x1f
	g8 := uint32(c>>5) & 0x3f
	b8 := uint32(c) & 0x1f
	r = (r8<<3 | r8>>2) * 0x101
	g = (g8<<2 | g8>>4) * 0x101
	b = (b8<<3 | b8>>2) * 0x101
	return r, g, b, 0xffff
}

var (
	Black = RGB565(0x0000)
	White = RGB565(0xffff)
	Green = RGB(0, 255, 0)
)

// RGB565Model converts any colour to RGB565.
var RGB565Model = color.ModelFunc(func(c color.Color) color.Color {
	if v, ok := c.(RGB565); ok {
		return v
	}
	r, g, b, _ := c.RGBA()
	return RGB(uint8(r>>8), uint8(g>>8), uint8(b>>8))
})

// Framebuffer holds one full frame in wire format. It implements draw.Image
// so the standard image and font packages can paint into it.
type Framebuffer struct {
	W, H         int
	LittleEndian bool
	Pix          []byte
}

func NewFramebuffer(w, h int, littleEndian bool) *Framebuffer {
	return &Framebuffer{W: w, H: h, LittleEndian: littleEndian, Pix: make([]byte, w*h*2)}
}

func (f *Framebuffer) ColorModel() color.Model { return RGB565Model }
func (f *Framebuffer) Bounds() image.Rectangle { return image.Rect(0, 0, f.W, f.H) }

func (f *Framebuffer) At(x, y int) color.Color {
	if !(image.Point{x, y}.In(f.Bounds())) {
		return Black
	}
	i := (y*f.W + x) * 2
	if f.LittleEndian {
		return RGB565(binary.LittleEndian.Uint16(f.Pix[i:]))
	}
	return RGB565(binary.BigEndian.Uint16(f.Pix[i:]))
}

func (f *Framebuffer) Set(x, y int, c color.Color) {
	if !(image.Point{x, y}.In(f.Bounds())) {
		return
	}
	f.put(x, y, RGB565Model.Convert(c).(RGB565))
}

func (f *Framebuffer) put(x, y int, c RGB565) {
	i := (y*f.W + x) * 2
	if f.LittleEndian {
		binary.LittleEndian.PutUint16(f.Pix[i:], uint16(c))
	} else {
		binary.BigEndian.PutUint16(f.Pix[i:], uint16(c))
	}
}

func (f *Framebuffer) Fill(c RGB565) {
	for y := 0; y < f.H; y++ {
		for x := 0; x < f.W; x++ {
			f.put(x, y, c)
		}
	}
}
