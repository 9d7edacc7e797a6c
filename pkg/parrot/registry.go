package parrot

import (
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/harunnryd/parrot/pkg/configutil"
	"github.com/harunnryd/parrot/pkg/display"
	"github.com/harunnryd/parrot/pkg/i2s"
	"github.com/harunnryd/parrot/pkg/i2s/sim"
	"github.com/harunnryd/parrot/pkg/session"
	"github.com/harunnryd/parrot/pkg/trigger"
)

// Env is what provider factories may use from the host process.
type Env struct {
	Stdin  io.Reader
	Stdout io.Writer
	Logger *slog.Logger
}

type DriverFactory func(settings map[string]any, env Env) (i2s.Driver, error)
type TriggerFactory func(settings map[string]any, env Env) (session.Trigger, error)
type DisplayFactory func(cfg DisplayConfig, env Env) (session.Display, error)

// Registry maps provider names from the config to factories.
type Registry struct {
	drivers  map[string]DriverFactory
	triggers map[string]TriggerFactory
	displays map[string]DisplayFactory
}

func NewRegistry() *Registry {
	return &Registry{
		drivers:  make(map[string]DriverFactory),
		triggers: make(map[string]TriggerFactory),
		displays: make(map[string]DisplayFactory),
	}
}

// DefaultRegistry has the host providers registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.RegisterDriver("sim", newSimDriver)
	r.RegisterTrigger("keyboard", newKeyboardTrigger)
	r.RegisterTrigger("interval", newIntervalTrigger)
	r.RegisterTrigger("manual", func(map[string]any, Env) (session.Trigger, error) {
		return trigger.NewManual(1), nil
	})
	r.RegisterDisplay("console", newConsoleDisplay)
	r.RegisterDisplay("panel", newPanelDisplay)
	r.RegisterDisplay("none", func(DisplayConfig, Env) (session.Display, error) { return nil, nil })
	return r
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (r *Registry) RegisterDriver(name string, f DriverFactory) { r.drivers[normalizeName(name)] = f }

func (r *Registry) RegisterTrigger(name string, f TriggerFactory) {
	r.triggers[normalizeName(name)] = f
}

func (r *Registry) RegisterDisplay(name string, f DisplayFactory) {
	r.displays[normalizeName(name)] = f
}

func (r *Registry) BuildDriver(cfg ProviderConfig, env Env) (i2s.Driver, error) {
	fn := r.drivers[normalizeName(cfg.Provider)]
	if fn == nil {
		return nil, fmt.Errorf("driver provider not registered: %s (have %s)", cfg.Provider, names(r.drivers))
	}
	return fn(cfg.Settings, env)
}

func (r *Registry) BuildTrigger(cfg ProviderConfig, env Env) (session.Trigger, error) {
	fn := r.triggers[normalizeName(cfg.Provider)]
	if fn == nil {
		return nil, fmt.Errorf("trigger provider not registered: %s (have %s)", cfg.Provider, names(r.triggers))
	}
	return fn(cfg.Settings, env)
}

func (r *Registry) BuildDisplay(cfg DisplayConfig, env Env) (session.Display, error) {
	fn := r.displays[normalizeName(cfg.Provider)]
	if fn == nil {
		return nil, fmt.Errorf("display provider not registered: %s (have %s)", cfg.Provider, names(r.displays))
	}
	return fn(cfg, env)
}

func names[V any](m map[string]V) string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return strings.Join(out, ", ")
}

func newSimDriver(settings map[string]any, _ Env) (i2s.Driver, error) {
	s, err := sim.DecodeSettings(settings)
	if err != nil {
		return nil, err
	}
	return sim.New(s)
}

type edgeSettings struct {
	PollMS     int  `mapstructure:"poll_ms"`
	DebounceMS int  `mapstructure:"debounce_ms"`
	HoldMS     int  `mapstructure:"hold_ms"`
	ActiveLow  bool `mapstructure:"active_low"`
}

var keyboardSchema = configutil.Schema{Optional: []string{"poll_ms", "debounce_ms", "hold_ms", "active_low"}}

func newKeyboardTrigger(settings map[string]any, env Env) (session.Trigger, error) {
	var s edgeSettings
	if err := configutil.Load(settings, keyboardSchema, &s); err != nil {
		return nil, fmt.Errorf("keyboard trigger: %w", err)
	}
	stdin := env.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	return &trigger.Keyboard{
		R:      stdin,
		Hold:   configutil.DurationMS(s.HoldMS, trigger.DefaultHold),
		Logger: env.Logger,
		Edge: trigger.EdgeDetector{
			Poll:      configutil.DurationMS(s.PollMS, trigger.DefaultPoll),
			Debounce:  configutil.DurationMS(s.DebounceMS, trigger.DefaultDebounce),
			ActiveLow: s.ActiveLow,
		},
	}, nil
}

var intervalSchema = configutil.Schema{Required: []string{"every_ms"}}

func newIntervalTrigger(settings map[string]any, _ Env) (session.Trigger, error) {
	var s struct {
		EveryMS int `mapstructure:"every_ms"`
	}
	if err := configutil.Load(settings, intervalSchema, &s); err != nil {
		return nil, fmt.Errorf("interval trigger: %w", err)
	}
	if err := configutil.RequirePositive(s.EveryMS, "trigger.settings.every_ms"); err != nil {
		return nil, err
	}
	return trigger.Interval{Every: time.Duration(s.EveryMS) * time.Millisecond}, nil
}

func newConsoleDisplay(_ DisplayConfig, env Env) (session.Display, error) {
	w := env.Stdout
	if w == nil {
		w = os.Stdout
	}
	return &display.Console{W: w}, nil
}

type panelSettings struct {
	Width        *int   `mapstructure:"width"`
	Height       *int   `mapstructure:"height"`
	Invert       *bool  `mapstructure:"invert"`
	SwapXY       bool   `mapstructure:"swap_xy"`
	MirrorX      bool   `mapstructure:"mirror_x"`
	MirrorY      bool   `mapstructure:"mirror_y"`
	ClockHz      int    `mapstructure:"clock_hz"`
	SnapshotPath string `mapstructure:"snapshot_path"`
}

var panelSchema = configutil.Schema{
	Optional: []string{"width", "height", "invert", "swap_xy", "mirror_x", "mirror_y", "clock_hz", "snapshot_path"},
}

// newPanelDisplay brings up the ST7789 panel over the in-memory controller.
// With snapshot_path set, every rendered frame is also written as a PNG.
func newPanelDisplay(cfg DisplayConfig, env Env) (session.Display, error) {
	var s panelSettings
	if err := configutil.Load(cfg.Settings, panelSchema, &s); err != nil {
		return nil, fmt.Errorf("panel display: %w", err)
	}
	pc := display.DefaultPanelConfig()
	pc.Width = configutil.IntValue(s.Width, pc.Width)
	pc.Height = configutil.IntValue(s.Height, pc.Height)
	pc.Invert = configutil.BoolValue(s.Invert, pc.Invert)
	pc.SwapXY, pc.MirrorX, pc.MirrorY = s.SwapXY, s.MirrorX, s.MirrorY
	if s.ClockHz > 0 {
		pc.ClockHz = s.ClockHz
	}
	panel, err := pc.Apply(&display.MemoryDriver{})
	if err != nil {
		return nil, err
	}
	panel.SetComposer(display.NewTextComposer())
	if s.SnapshotPath == "" {
		return panel, nil
	}
	return &snapshotDisplay{panel: panel, path: s.SnapshotPath, log: env.Logger}, nil
}

type snapshotDisplay struct {
	panel *display.Panel
	path  string
	log   *slog.Logger
}

func (d *snapshotDisplay) RenderStatus(text string) error {
	if err := d.panel.RenderStatus(text); err != nil {
		return err
	}
	f, err := os.Create(d.path)
	if err != nil {
		return fmt.Errorf("panel snapshot: %w", err)
	}
	if err := png.Encode(f, d.panel.Frame()); err != nil {
		_ = f.Close()
		return fmt.Errorf("panel snapshot: %w", err)
	}
	if d.log != nil {
		d.log.Debug("display_snapshot_written", "path", d.path)
	}
	return f.Close()
}
