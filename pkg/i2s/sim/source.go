package sim

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/harunnryd/parrot/pkg/pcm"
)

// tone is an endless sine wave. Phase carries across reads and sessions.
type tone struct {
	hz  float64
	amp float64
	n   int
}

func (t *tone) Read(p []byte) (int, error) {
	n := len(p) &^ 1
	for i := 0; i < n; i += pcm.FrameSize {
		v := int16(t.amp * math.Sin(2*math.Pi*t.hz*float64(t.n)/pcm.SampleRate))
		binary.LittleEndian.PutUint16(p[i:], uint16(v))
		t.n++
	}
	return n, nil
}

type silence struct{}

func (silence) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// thenSilence plays r once and then reads zeros.
func thenSilence(r io.Reader) io.Reader {
	return io.MultiReader(r, silence{})
}

func clipSource(b pcm.Buffer) io.Reader {
	return thenSilence(bytes.NewReader(b))
}
