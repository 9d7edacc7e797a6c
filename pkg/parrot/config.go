package parrot

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/harunnryd/parrot/pkg/configutil"
	"github.com/harunnryd/parrot/pkg/i2s"
	"github.com/harunnryd/parrot/pkg/pcm"
	"github.com/harunnryd/parrot/pkg/session"
)

type Config struct {
	Environment   string              `mapstructure:"environment"`
	LogLevel      string              `mapstructure:"log_level"`
	LogFormat     string              `mapstructure:"log_format"`
	Audio         AudioConfig         `mapstructure:"audio"`
	Driver        ProviderConfig      `mapstructure:"driver"`
	Trigger       ProviderConfig      `mapstructure:"trigger"`
	Display       DisplayConfig       `mapstructure:"display"`
	Network       NetworkConfig       `mapstructure:"network"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Restart       RestartConfig       `mapstructure:"restart"`
}

type AudioConfig struct {
	SampleRate    int        `mapstructure:"sample_rate"`
	BitDepth      int        `mapstructure:"bit_depth"`
	Channels      int        `mapstructure:"channels"`
	RecordSeconds float64    `mapstructure:"record_seconds"`
	TimeoutMS     int        `mapstructure:"timeout_ms"`
	Capture       PortConfig `mapstructure:"capture"`
	Playback      PortConfig `mapstructure:"playback"`
}

// PortConfig places one I2S direction on a peripheral and its GPIOs. Unused
// pins are -1.
type PortConfig struct {
	Port int `mapstructure:"port"`
	BCLK int `mapstructure:"bclk"`
	WS   int `mapstructure:"ws"`
	DOUT int `mapstructure:"dout"`
	DIN  int `mapstructure:"din"`
	MCLK int `mapstructure:"mclk"`
}

type ProviderConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type DisplayConfig struct {
	Provider string         `mapstructure:"provider"`
	Prompt   string         `mapstructure:"prompt"`
	Settings map[string]any `mapstructure:"settings"`
}

type NetworkConfig struct {
	WSURL         string `mapstructure:"ws_url"`
	MaxReplies    int    `mapstructure:"max_replies"`
	ReplyDelayMS  int    `mapstructure:"reply_delay_ms"`
	DialRetries   int    `mapstructure:"dial_retries"`
	DialBackoffMS int    `mapstructure:"dial_backoff_ms"`
}

type ObservabilityConfig struct {
	ArtifactsDir    string  `mapstructure:"artifacts_dir"`
	RecordAudio     bool    `mapstructure:"record_audio"`
	RetentionDays   int     `mapstructure:"retention_days"`
	MetricsAddr     string  `mapstructure:"metrics_addr"`
	Timeline        bool    `mapstructure:"timeline"`
	EventLog        bool    `mapstructure:"event_log"`
	ChunkSampleRate float64 `mapstructure:"chunk_sample_rate"`
}

type RestartConfig struct {
	FailureThreshold int `mapstructure:"failure_threshold"`
	CooldownMS       int `mapstructure:"cooldown_ms"`
	DrainTimeoutMS   int `mapstructure:"drain_timeout_ms"`
	MaxBoots         int `mapstructure:"max_boots"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	v.SetDefault("audio.sample_rate", pcm.SampleRate)
	v.SetDefault("audio.bit_depth", pcm.BitDepth)
	v.SetDefault("audio.channels", pcm.Channels)
	v.SetDefault("audio.record_seconds", session.DefaultRecordDuration.Seconds())
	v.SetDefault("audio.timeout_ms", i2s.DefaultTimeout.Milliseconds())
	v.SetDefault("audio.capture.port", 0)
	v.SetDefault("audio.capture.bclk", 5)
	v.SetDefault("audio.capture.ws", 4)
	v.SetDefault("audio.capture.din", 6)
	v.SetDefault("audio.capture.dout", -1)
	v.SetDefault("audio.capture.mclk", -1)
	v.SetDefault("audio.playback.port", 1)
	v.SetDefault("audio.playback.bclk", 15)
	v.SetDefault("audio.playback.ws", 16)
	v.SetDefault("audio.playback.dout", 7)
	v.SetDefault("audio.playback.din", -1)
	v.SetDefault("audio.playback.mclk", -1)

	v.SetDefault("driver.provider", "sim")
	v.SetDefault("trigger.provider", "keyboard")
	v.SetDefault("display.provider", "console")
	v.SetDefault("display.prompt", session.DefaultPrompt)

	v.SetDefault("network.ws_url", "")
	v.SetDefault("network.max_replies", 10)
	v.SetDefault("network.reply_delay_ms", 1000)
	v.SetDefault("network.dial_retries", 3)
	v.SetDefault("network.dial_backoff_ms", 500)

	v.SetDefault("observability.artifacts_dir", "")
	v.SetDefault("observability.record_audio", false)
	v.SetDefault("observability.retention_days", 0)
	v.SetDefault("observability.metrics_addr", "")
	v.SetDefault("observability.timeline", false)
	v.SetDefault("observability.event_log", false)
	v.SetDefault("observability.chunk_sample_rate", 0.1)

	v.SetDefault("restart.failure_threshold", 3)
	v.SetDefault("restart.cooldown_ms", 5000)
	v.SetDefault("restart.drain_timeout_ms", 2000)
	v.SetDefault("restart.max_boots", 0)
}

// LoadConfig reads path (YAML) over the defaults. An empty path yields the
// defaults. PARROT_* environment variables override file values, with dots
// replaced by underscores (PARROT_AUDIO_TIMEOUT_MS).
func LoadConfig(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("parrot")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	cfg, err := LoadConfig("")
	if err != nil {
		panic(err)
	}
	return cfg
}

func (c *Config) Validate() error {
	if c.Audio.SampleRate != pcm.SampleRate || c.Audio.BitDepth != pcm.BitDepth || c.Audio.Channels != pcm.Channels {
		return fmt.Errorf("audio format is fixed at %s, got %d Hz/%d bit/%d ch",
			pcm.String(), c.Audio.SampleRate, c.Audio.BitDepth, c.Audio.Channels)
	}
	if c.Audio.RecordSeconds <= 0 || c.Audio.RecordSeconds > pcm.MaxDuration.Seconds() {
		return fmt.Errorf("audio.record_seconds must be in (0, %.0f], got %g", pcm.MaxDuration.Seconds(), c.Audio.RecordSeconds)
	}
	if err := configutil.RequirePositive(c.Audio.TimeoutMS, "audio.timeout_ms"); err != nil {
		return err
	}
	if err := c.CaptureI2S().Validate(i2s.Capture); err != nil {
		return fmt.Errorf("audio.capture: %w", err)
	}
	if err := c.PlaybackI2S().Validate(i2s.Playback); err != nil {
		return fmt.Errorf("audio.playback: %w", err)
	}
	for path, value := range map[string]string{
		"driver.provider":  c.Driver.Provider,
		"trigger.provider": c.Trigger.Provider,
		"display.provider": c.Display.Provider,
	} {
		if err := configutil.RequireString(value, path); err != nil {
			return err
		}
	}
	if r := c.Observability.ChunkSampleRate; r < 0 || r > 1 {
		return fmt.Errorf("observability.chunk_sample_rate must be within [0, 1], got %v", r)
	}
	if c.Network.WSURL != "" && !strings.HasPrefix(c.Network.WSURL, "ws://") && !strings.HasPrefix(c.Network.WSURL, "wss://") {
		return fmt.Errorf("network.ws_url must be a ws:// or wss:// url")
	}
	return nil
}

func (c Config) CaptureI2S() i2s.Config {
	return c.Audio.Capture.i2s(c.Audio.SampleRate)
}

// PlaybackI2S always enables AutoClear.
func (c Config) PlaybackI2S() i2s.Config {
	return c.Audio.Playback.i2s(c.Audio.SampleRate).WithAutoClear(true)
}

func (p PortConfig) i2s(rate int) i2s.Config {
	return i2s.StdConfig(rate).WithPort(p.Port).WithPins(i2s.Pins{
		BCLK: i2s.Pin(p.BCLK),
		WS:   i2s.Pin(p.WS),
		DOUT: i2s.Pin(p.DOUT),
		DIN:  i2s.Pin(p.DIN),
		MCLK: i2s.Pin(p.MCLK),
	})
}

func (c Config) RecordDuration() time.Duration {
	return time.Duration(c.Audio.RecordSeconds * float64(time.Second))
}

func (c Config) TransferTimeout() time.Duration {
	return configutil.DurationMS(c.Audio.TimeoutMS, i2s.DefaultTimeout)
}

// YAML renders the effective configuration.
func (c Config) YAML() ([]byte, error) {
	var out map[string]any
	if err := mapstructure.Decode(c, &out); err != nil {
		return nil, err
	}
	return yaml.Marshal(out)
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Driver.Settings = expandSettings(cfg.Driver.Settings)
	cfg.Trigger.Settings = expandSettings(cfg.Trigger.Settings)
	cfg.Display.Settings = expandSettings(cfg.Display.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	}
}
