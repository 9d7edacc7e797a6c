package observers

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harunnryd/parrot/pkg/metrics"
	"github.com/harunnryd/parrot/pkg/pcm"
)

// SessionSummary is the per-session record written by SummaryObserver.
type SessionSummary struct {
	SessionID       string  `json:"session_id"`
	CapturedBytes   int     `json:"captured_bytes"`
	CapturedSeconds float64 `json:"captured_seconds"`
	PlayedBytes     int     `json:"played_bytes"`
	PlayedSeconds   float64 `json:"played_seconds"`
	Timeouts        int     `json:"i2s_timeouts"`
	FailureReason   string  `json:"failure_reason,omitempty"`
	FinalState      string  `json:"final_state"`
	RecordedAtUTC   string  `json:"recorded_at_utc"`
}

// SummaryObserver accumulates audio totals per session and writes
// <session>.summary.json to dir when the session ends.
type SummaryObserver struct {
	dir   string
	mu    sync.Mutex
	stats map[string]*SessionSummary
}

func NewSummaryObserver(dir string) *SummaryObserver {
	return &SummaryObserver{dir: dir, stats: make(map[string]*SessionSummary)}
}

func (o *SummaryObserver) RecordEvent(ev metrics.MetricsEvent) {
	id := ev.Tags[metrics.TagSessionID]
	if id == "" || strings.TrimSpace(o.dir) == "" {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	stat := o.stats[id]
	if stat == nil {
		stat = &SessionSummary{SessionID: id}
		o.stats[id] = stat
	}
	switch ev.Name {
	case metrics.EventCaptureDone:
		stat.CapturedBytes += int(ev.Value)
		stat.CapturedSeconds = audioSeconds(stat.CapturedBytes)
	case metrics.EventPlaybackDone:
		stat.PlayedBytes += int(ev.Value)
		stat.PlayedSeconds = audioSeconds(stat.PlayedBytes)
	case metrics.EventTransferTimeout:
		stat.Timeouts++
	case metrics.EventSessionFailed:
		stat.FailureReason = ev.Tags[metrics.TagReason]
	case metrics.EventSessionState:
		state := ev.Tags[metrics.TagState]
		stat.FinalState = state
		if sessionEnded(state) {
			_ = o.writeLocked(stat)
			delete(o.stats, id)
		}
	}
}

// Close writes whatever sessions are still open.
func (o *SummaryObserver) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	var errOut error
	for id, stat := range o.stats {
		errOut = errors.Join(errOut, o.writeLocked(stat))
		delete(o.stats, id)
	}
	return errOut
}

func (o *SummaryObserver) writeLocked(stat *SessionSummary) error {
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return err
	}
	stat.RecordedAtUTC = time.Now().UTC().Format(time.RFC3339)
	b, err := json.MarshalIndent(stat, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(o.dir, sanitizeID(stat.SessionID)+".summary.json")
	return os.WriteFile(path, b, 0o644)
}

func audioSeconds(n int) float64 {
	return float64(n) / pcm.BytesPerSecond
}

var _ metrics.Observer = (*SummaryObserver)(nil)
