package metrics

import "maps"

// TaggedObserver stamps a fixed set of tags onto every event before passing
// it on. Tags already present on the event win.
type TaggedObserver struct {
	inner Observer
	tags  map[string]string
}

func WithTags(inner Observer, tags map[string]string) *TaggedObserver {
	return &TaggedObserver{inner: OrNoop(inner), tags: maps.Clone(tags)}
}

func (t *TaggedObserver) RecordEvent(ev MetricsEvent) {
	merged := make(map[string]string, len(t.tags)+len(ev.Tags))
	maps.Copy(merged, t.tags)
	maps.Copy(merged, ev.Tags)
	ev.Tags = merged
	t.inner.RecordEvent(ev)
}

func (t *TaggedObserver) Flush() error {
	if f, ok := t.inner.(Flusher); ok {
		return f.Flush()
	}
	return nil
}
