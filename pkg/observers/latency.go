package observers

import (
	"log/slog"
	"sync"
	"time"

	"github.com/harunnryd/parrot/pkg/metrics"
)

// LatencyObserver logs one "session_latency" line per session with the time
// spent waiting for the button, capturing, and playing.
type LatencyObserver struct {
	mu     sync.Mutex
	traces map[string]*trace
	log    *slog.Logger
}

type trace struct {
	awaiting  time.Time
	triggered time.Time
	captured  time.Time
	played    time.Time
	failed    string
}

func NewLatencyObserver(log *slog.Logger) *LatencyObserver {
	if log == nil {
		log = slog.Default()
	}
	return &LatencyObserver{
		traces: make(map[string]*trace),
		log:    log,
	}
}

func (o *LatencyObserver) RecordEvent(ev metrics.MetricsEvent) {
	id := ev.Tags[metrics.TagSessionID]
	if id == "" {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	t := o.traces[id]
	if t == nil {
		t = &trace{}
		o.traces[id] = t
	}
	switch ev.Name {
	case metrics.EventSessionState:
		switch ev.Tags[metrics.TagState] {
		case "AWAITING_TRIGGER":
			t.awaiting = ev.Time
		case "RESTARTING", "IDLE":
			o.logLocked(id, t, ev.Time)
			delete(o.traces, id)
		}
	case metrics.EventTriggerFired:
		t.triggered = ev.Time
	case metrics.EventCaptureDone:
		t.captured = ev.Time
	case metrics.EventPlaybackDone:
		t.played = ev.Time
	case metrics.EventSessionFailed:
		t.failed = ev.Tags[metrics.TagReason]
	}
}

// Pending returns the number of sessions still being tracked.
func (o *LatencyObserver) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.traces)
}

func (o *LatencyObserver) logLocked(id string, t *trace, end time.Time) {
	o.log.Info("session_latency",
		"session_id", id,
		"wait_ms", durationMs(t.awaiting, t.triggered),
		"capture_ms", durationMs(t.triggered, t.captured),
		"playback_ms", durationMs(t.captured, t.played),
		"total_ms", durationMs(t.awaiting, end),
		"reason_code", t.failed,
	)
}

func durationMs(a, b time.Time) int64 {
	if a.IsZero() || b.IsZero() {
		return -1
	}
	return b.Sub(a).Milliseconds()
}
