// Package i2s is the serial audio interface abstraction used by the capture
// and playback pipelines.
//
// A platform supplies a [Driver] that knows how to program the peripheral for
// one direction. [Interface] sits on top of it and enforces ownership: one
// live [Handle] per direction, no pin bound twice, and never both directions
// at once. Handles must be enabled before they move data and are dead once
// closed.
//
//	iface := i2s.NewInterface(driver)
//	h, err := iface.Configure(i2s.Playback, i2s.StdConfig(pcm.SampleRate).WithPins(pins))
//	if err != nil { ... }
//	defer h.Close()
//	if err := h.Enable(); err != nil { ... }
//	n, err := h.Transfer(clip, time.Second)
package i2s
