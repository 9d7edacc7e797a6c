package display

import (
	"bytes"
	"strings"
	"testing"
)

func TestDefaultPanelConfig(t *testing.T) {
	c := DefaultPanelConfig()
	if c.Width != 240 || c.Height != 240 || !c.Invert || c.SwapXY || c.MirrorX || c.MirrorY {
		t.Fatalf("unexpected default %+v", c)
	}
	if c.Pins != (SPIPins{MOSI: 47, CLK: 21, CS: 41, DC: 40, RST: 45}) || c.SPIMode != 3 || c.ClockHz != 40_000_000 {
		t.Fatalf("unexpected bus settings %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestApplyOrder(t *testing.T) {
	drv := &MemoryDriver{}
	if _, err := DefaultPanelConfig().Apply(drv); err != nil {
		t.Fatalf("apply: %v", err)
	}
	want := "reset,init,invert,swap_xy,mirror,display_on"
	if got := strings.Join(drv.Snapshot(), ","); got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if !drv.Inverted || !drv.On {
		t.Fatalf("expected inverted panel switched on")
	}
}

func TestApplyStopsOnFailure(t *testing.T) {
	drv := &MemoryDriver{FailOn: "init"}
	if _, err := DefaultPanelConfig().Apply(drv); err == nil || !strings.Contains(err.Error(), "init") {
		t.Fatalf("expected init failure, got %v", err)
	}
	if got := drv.Snapshot(); len(got) != 2 {
		t.Fatalf("expected apply to stop after init, got %v", got)
	}
}

func TestRenderStatusPushesFullFrame(t *testing.T) {
	drv := &MemoryDriver{}
	panel, err := DefaultPanelConfig().Apply(drv)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	panel.SetComposer(NewTextComposer())
	if err := panel.RenderStatus("Hello, ESP32!\n press k0"); err != nil {
		t.Fatalf("render: %v", err)
	}
	if drv.Draws != 1 || len(drv.Frame) != 240*240*2 {
		t.Fatalf("expected one full-frame draw, got %d draws of %d bytes", drv.Draws, len(drv.Frame))
	}
	if bytes.Count(drv.Frame, []byte{0}) == len(drv.Frame) {
		t.Fatalf("expected text pixels in the frame")
	}
}

func TestFramebufferLittleEndian(t *testing.T) {
	fb := NewFramebuffer(2, 1, true)
	fb.Set(1, 0, RGB565(0x1234))
	if fb.Pix[2] != 0x34 || fb.Pix[3] != 0x12 {
		t.Fatalf("expected little-endian pixel, got % x", fb.Pix)
	}
	if fb.At(1, 0).(RGB565) != 0x1234 {
		t.Fatalf("expected At to read back the pixel")
	}
	fb.Set(5, 5, White) // out of bounds is ignored
}

func TestRGBRoundTripsPrimaries(t *testing.T) {
	r, g, b, _ := RGB(255, 0, 0).RGBA()
	if r != 0xffff || g != 0 || b != 0 {
		t.Fatalf("unexpected red %x %x %x", r, g, b)
	}
}

func TestConsole(t *testing.T) {
	var out bytes.Buffer
	c := &Console{W: &out}
	if err := c.RenderStatus("a\n b"); err != nil {
		t.Fatalf("render: %v", err)
	}
	if out.String() != "[display] a\n[display] b\n" {
		t.Fatalf("unexpected console output %q", out.String())
	}
}
