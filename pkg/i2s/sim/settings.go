package sim

import (
	"fmt"

	"github.com/harunnryd/parrot/pkg/configutil"
)

// Source kinds for the simulated microphone.
const (
	SourceTone    = "tone"
	SourceSilence = "silence"
	SourceFile    = "file"
)

// Settings configures the simulated peripheral. It is decoded from the
// driver.settings config map.
type Settings struct {
	Source     string  `mapstructure:"source"`
	ToneHz     float64 `mapstructure:"tone_hz"`
	Amplitude  int     `mapstructure:"amplitude"`
	SourcePath string  `mapstructure:"source_path"`
	// Realtime paces transfers to the wall clock, 32 kB per second.
	Realtime   bool `mapstructure:"realtime"`
	ChunkBytes int  `mapstructure:"chunk_bytes"`
	// MaxPin is the highest GPIO number the simulated chip exposes.
	MaxPin int `mapstructure:"max_pin"`
	// StallAfterBytes makes every channel stop moving data once it has
	// transferred this many bytes. Zero disables the stall.
	StallAfterBytes int `mapstructure:"stall_after_bytes"`
	// SinkPath, when set, receives each playback session as a WAV file.
	SinkPath string `mapstructure:"sink_path"`
}

var Schema = configutil.Schema{
	Optional: []string{
		"source", "tone_hz", "amplitude", "source_path", "realtime",
		"chunk_bytes", "max_pin", "stall_after_bytes", "sink_path",
	},
}

func DefaultSettings() Settings {
	return Settings{
		Source:     SourceTone,
		ToneHz:     440,
		Amplitude:  8000,
		ChunkBytes: 512,
		MaxPin:     48,
	}
}

// DecodeSettings overlays raw onto DefaultSettings.
func DecodeSettings(raw map[string]any) (Settings, error) {
	s := DefaultSettings()
	if err := configutil.Load(raw, Schema, &s); err != nil {
		return Settings{}, fmt.Errorf("sim driver: %w", err)
	}
	return s, s.Validate()
}

func (s Settings) Validate() error {
	switch s.Source {
	case SourceTone:
		if s.ToneHz <= 0 || s.ToneHz >= 8000 {
			return fmt.Errorf("sim driver: tone_hz %.1f outside (0, 8000)", s.ToneHz)
		}
	case SourceSilence:
	case SourceFile:
		if err := configutil.RequireString(s.SourcePath, "driver.settings.source_path"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("sim driver: unknown source %q", s.Source)
	}
	if s.ChunkBytes <= 0 || s.ChunkBytes%2 != 0 {
		return fmt.Errorf("sim driver: chunk_bytes must be a positive even number, got %d", s.ChunkBytes)
	}
	if s.MaxPin < 0 {
		return fmt.Errorf("sim driver: max_pin %d", s.MaxPin)
	}
	if s.StallAfterBytes < 0 {
		return fmt.Errorf("sim driver: stall_after_bytes %d", s.StallAfterBytes)
	}
	return nil
}
