package metrics

import "time"

// Event names emitted by the audio pipeline and session controller.
const (
	EventSessionState    = "session_state"
	EventSessionFailed   = "session_failed"
	EventTriggerFired    = "trigger_fired"
	EventCaptureDone     = "capture_complete"
	EventPlaybackDone    = "playback_complete"
	EventTransferChunk   = "i2s_chunk"
	EventTransferTimeout = "i2s_timeout"
	EventDeviceRestart   = "device_restart"
)

// Well-known tag keys.
const (
	TagSessionID = "session_id"
	TagDirection = "direction"
	TagState     = "state"
	TagFrom      = "from"
	TagReason    = "reason_code"
)

type MetricsEvent struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

type Observer interface {
	RecordEvent(ev MetricsEvent)
}

type Flusher interface {
	Flush() error
}

type NoopObserver struct{}

func (NoopObserver) RecordEvent(MetricsEvent) {}

// OrNoop returns obs, or a NoopObserver when obs is nil.
func OrNoop(obs Observer) Observer {
	if obs == nil {
		return NoopObserver{}
	}
	return obs
}
