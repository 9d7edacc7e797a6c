package pcm

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const wavHeaderSize = 44

// ErrUnsupportedWAV reports a WAV file that is not 16 kHz, 16-bit, mono PCM.
var ErrUnsupportedWAV = errors.New("pcm: unsupported wav format")

type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// EncodeWAV writes b to w as a canonical 44-byte-header WAV file.
func EncodeWAV(w io.Writer, b Buffer) error {
	if err := b.Validate(); err != nil {
		return err
	}
	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + len(b)),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   Channels,
		SampleRate:    SampleRate,
		ByteRate:      BytesPerSecond,
		BlockAlign:    FrameSize,
		BitsPerSample: BitDepth,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(len(b)),
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	return nil
}

// DecodeWAV extracts the sample data of a WAV file. Chunks other than "fmt "
// and "data" are skipped.
func DecodeWAV(data []byte) (Buffer, error) {
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE header", ErrUnsupportedWAV)
	}
	var (
		sawFmt bool
		pos    = 12
	)
	for pos+8 <= len(data) {
		id := string(data[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if size < 0 || body+size > len(data) {
			return nil, fmt.Errorf("%w: chunk %q overruns file", ErrUnsupportedWAV, id)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: short fmt chunk", ErrUnsupportedWAV)
			}
			f := data[body : body+size]
			audioFormat := binary.LittleEndian.Uint16(f[0:2])
			channels := binary.LittleEndian.Uint16(f[2:4])
			rate := binary.LittleEndian.Uint32(f[4:8])
			bits := binary.LittleEndian.Uint16(f[14:16])
			if audioFormat != 1 || channels != Channels || rate != SampleRate || bits != BitDepth {
				return nil, fmt.Errorf("%w: format=%d channels=%d rate=%d bits=%d",
					ErrUnsupportedWAV, audioFormat, channels, rate, bits)
			}
			sawFmt = true
		case "data":
			if !sawFmt {
				return nil, fmt.Errorf("%w: data before fmt chunk", ErrUnsupportedWAV)
			}
			out := Buffer(bytes.Clone(data[body : body+size]))
			if err := out.Validate(); err != nil {
				return nil, err
			}
			return out, nil
		}
		pos = body + size + size%2
	}
	return nil, fmt.Errorf("%w: no data chunk", ErrUnsupportedWAV)
}

// Load accepts either a WAV file or headerless PCM in the fixed format.
func Load(data []byte) (Buffer, error) {
	if len(data) >= wavHeaderSize && string(data[0:4]) == "RIFF" {
		return DecodeWAV(data)
	}
	b := Buffer(bytes.Clone(data))
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}
