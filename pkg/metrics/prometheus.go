package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusObserver folds pipeline events into Prometheus collectors on its
// own registry.
type PrometheusObserver struct {
	registry *prometheus.Registry

	StateTransitions *prometheus.CounterVec
	SessionFailures  *prometheus.CounterVec
	TriggersFired    prometheus.Counter
	CaptureBytes     prometheus.Counter
	CaptureDuration  prometheus.Histogram
	PlaybackBytes    prometheus.Counter
	PlaybackDuration prometheus.Histogram
	TransferTimeouts *prometheus.CounterVec
	DeviceRestarts   prometheus.Counter
}

func NewPrometheusObserver() *PrometheusObserver {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &PrometheusObserver{
		registry: reg,
		StateTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parrot_session_state_transitions_total",
			Help: "Session controller transitions by target state",
		}, []string{"state"}),
		SessionFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parrot_session_failures_total",
			Help: "Sessions that ended in a capture or playback failure",
		}, []string{"reason_code"}),
		TriggersFired: factory.NewCounter(prometheus.CounterOpts{
			Name: "parrot_triggers_total",
			Help: "Rising edges accepted from the trigger",
		}),
		CaptureBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "parrot_capture_bytes_total",
			Help: "PCM bytes captured by completed recordings",
		}),
		CaptureDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "parrot_capture_duration_seconds",
			Help:    "Wall-clock time spent capturing a clip",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		PlaybackBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "parrot_playback_bytes_total",
			Help: "PCM bytes drained by completed playbacks",
		}),
		PlaybackDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "parrot_playback_duration_seconds",
			Help:    "Wall-clock time spent playing a clip",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		TransferTimeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "parrot_i2s_timeouts_total",
			Help: "I2S transfers that stalled past their timeout",
		}, []string{"direction"}),
		DeviceRestarts: factory.NewCounter(prometheus.CounterOpts{
			Name: "parrot_device_restarts_total",
			Help: "Restarts performed by the device runner",
		}),
	}
}

func (p *PrometheusObserver) RecordEvent(ev MetricsEvent) {
	switch ev.Name {
	case EventSessionState:
		p.StateTransitions.WithLabelValues(ev.Tags[TagState]).Inc()
	case EventSessionFailed:
		p.SessionFailures.WithLabelValues(ev.Tags[TagReason]).Inc()
	case EventTriggerFired:
		p.TriggersFired.Inc()
	case EventCaptureDone:
		p.CaptureBytes.Add(ev.Value)
		if s, ok := elapsedSeconds(ev); ok {
			p.CaptureDuration.Observe(s)
		}
	case EventPlaybackDone:
		p.PlaybackBytes.Add(ev.Value)
		if s, ok := elapsedSeconds(ev); ok {
			p.PlaybackDuration.Observe(s)
		}
	case EventTransferTimeout:
		p.TransferTimeouts.WithLabelValues(ev.Tags[TagDirection]).Inc()
	case EventDeviceRestart:
		p.DeviceRestarts.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusObserver) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *PrometheusObserver) Registry() *prometheus.Registry { return p.registry }

func elapsedSeconds(ev MetricsEvent) (float64, bool) {
	switch v := ev.Fields["elapsed_ms"].(type) {
	case int64:
		return float64(v) / 1000, true
	case int:
		return float64(v) / 1000, true
	case float64:
		return v / 1000, true
	default:
		return 0, false
	}
}
