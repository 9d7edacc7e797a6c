// Package pcm holds the fixed audio contract shared by capture and playback:
// 16 kHz, signed 16-bit little-endian, mono.
package pcm

import (
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	SampleRate = 16000
	BitDepth   = 16
	Channels   = 1

	// FrameSize is the byte size of one frame (one sample per channel).
	FrameSize      = Channels * BitDepth / 8
	BytesPerSecond = SampleRate * FrameSize
)

// MaxDuration is the longest clip a single buffer may hold, about 18 hours.
// It keeps byte counts inside an int32.
const MaxDuration = time.Duration(math.MaxInt32/BytesPerSecond) * time.Second

// ErrMisaligned reports a buffer whose length is not a whole number of frames.
var ErrMisaligned = errors.New("pcm: buffer length is not a multiple of the frame size")

// BytesInDuration returns the byte length of d worth of audio, rounded down to
// a whole frame. Durations above MaxDuration are clamped to it.
func BytesInDuration(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	d = min(d, MaxDuration)
	secs, rem := int64(d/time.Second), int64(d%time.Second)
	frames := secs*SampleRate + rem*SampleRate/int64(time.Second)
	return int(frames) * FrameSize
}

// Duration returns the playing time of n bytes.
func Duration(n int) time.Duration {
	return time.Duration(n/FrameSize) * time.Second / SampleRate
}

// Samples returns the number of frames in n bytes.
func Samples(n int) int {
	return n / FrameSize
}

// String describes the format in media type notation.
func String() string {
	return fmt.Sprintf("audio/L16; rate=%d; channels=%d", SampleRate, Channels)
}
