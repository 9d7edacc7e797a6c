package observers

import (
	"context"
	"log/slog"
	"sort"

	"github.com/harunnryd/parrot/pkg/metrics"
)

// LoggerObserver writes every event as a DEBUG "metrics" record. Events named
// in skip are dropped, which keeps per-chunk transfer noise out of the log.
type LoggerObserver struct {
	log  *slog.Logger
	skip map[string]bool
}

func NewLoggerObserver(log *slog.Logger, skip ...string) *LoggerObserver {
	if log == nil {
		log = slog.Default()
	}
	o := &LoggerObserver{log: log, skip: make(map[string]bool, len(skip))}
	for _, name := range skip {
		o.skip[name] = true
	}
	return o
}

func (o *LoggerObserver) RecordEvent(ev metrics.MetricsEvent) {
	if o.skip[ev.Name] || !o.log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	attrs := []slog.Attr{
		slog.String("name", ev.Name),
		slog.Time("time", ev.Time),
		slog.Float64("value", ev.Value),
	}
	for _, k := range sortedKeys(ev.Tags) {
		attrs = append(attrs, slog.String(k, ev.Tags[k]))
	}
	for _, k := range sortedKeys(ev.Fields) {
		attrs = append(attrs, slog.Any(k, ev.Fields[k]))
	}
	o.log.LogAttrs(context.Background(), slog.LevelDebug, "metrics", attrs...)
}

// MultiObserver fans events out to several observers.
type MultiObserver struct {
	list []metrics.Observer
}

func NewMultiObserver(list ...metrics.Observer) *MultiObserver {
	return &MultiObserver{list: list}
}

func (m *MultiObserver) RecordEvent(ev metrics.MetricsEvent) {
	for _, obs := range m.list {
		if obs != nil {
			obs.RecordEvent(ev)
		}
	}
}

// Flush flushes every member that supports it and returns the first error.
func (m *MultiObserver) Flush() error {
	var first error
	for _, obs := range m.list {
		if f, ok := obs.(metrics.Flusher); ok {
			if err := f.Flush(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
