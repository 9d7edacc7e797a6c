package display

import (
	"fmt"
	"sync"
)

// MemoryDriver is a Driver that keeps panel state in memory. It backs the
// "panel" display provider and the tests.
type MemoryDriver struct {
	mu       sync.Mutex
	Calls    []string
	Inverted bool
	Swapped  bool
	MirrorX  bool
	MirrorY  bool
	On       bool
	Frame    []byte
	Draws    int
	// FailOn makes the named call fail.
	FailOn string
}

func (m *MemoryDriver) record(name string, apply func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, name)
	if m.FailOn == name {
		return fmt.Errorf("memory panel: %s failed", name)
	}
	if apply != nil {
		apply()
	}
	return nil
}

func (m *MemoryDriver) Reset() error { return m.record("reset", nil) }
func (m *MemoryDriver) Init() error  { return m.record("init", nil) }

func (m *MemoryDriver) InvertColors(on bool) error {
	return m.record("invert", func() { m.Inverted = on })
}

func (m *MemoryDriver) SwapXY(on bool) error {
	return m.record("swap_xy", func() { m.Swapped = on })
}

func (m *MemoryDriver) Mirror(x, y bool) error {
	return m.record("mirror", func() { m.MirrorX, m.MirrorY = x, y })
}

func (m *MemoryDriver) DisplayOn(on bool) error {
	return m.record("display_on", func() { m.On = on })
}

func (m *MemoryDriver) DrawBitmap(x0, y0, x1, y1 int, data []byte) error {
	if want := (x1 - x0) * (y1 - y0) * 2; len(data) != want {
		return fmt.Errorf("memory panel: window needs %d bytes, got %d", want, len(data))
	}
	return m.record("draw", func() {
		m.Frame = append(m.Frame[:0], data...)
		m.Draws++
	})
}

// Snapshot returns the call log.
func (m *MemoryDriver) Snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Calls...)
}
