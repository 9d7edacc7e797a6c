package pcm

import (
	"encoding/binary"
	"fmt"
	"time"
)

// Buffer is an owned run of PCM bytes in the fixed format.
type Buffer []byte

// NewBuffer allocates a zeroed buffer holding exactly d worth of audio.
func NewBuffer(d time.Duration) Buffer {
	return make(Buffer, BytesInDuration(d))
}

// Validate rejects buffers that do not hold whole frames. It never pads or
// truncates.
func (b Buffer) Validate() error {
	if len(b)%FrameSize != 0 {
		return fmt.Errorf("%w: %d bytes", ErrMisaligned, len(b))
	}
	return nil
}

func (b Buffer) Len() int { return len(b) }

func (b Buffer) Duration() time.Duration { return Duration(len(b)) }

// Samples decodes the buffer into signed samples. A trailing partial frame is
// ignored; call Validate first when that matters.
func (b Buffer) Samples() []int16 {
	out := make([]int16, len(b)/FrameSize)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*FrameSize:]))
	}
	return out
}

// FromSamples encodes samples as a little-endian buffer.
func FromSamples(samples []int16) Buffer {
	out := make(Buffer, len(samples)*FrameSize)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*FrameSize:], uint16(s))
	}
	return out
}

// Clone returns an independent copy.
func (b Buffer) Clone() Buffer {
	if b == nil {
		return nil
	}
	return append(Buffer(nil), b...)
}
