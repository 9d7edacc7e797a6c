package parrot

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/harunnryd/parrot/pkg/logging"
	"github.com/harunnryd/parrot/pkg/metrics"
	"github.com/harunnryd/parrot/pkg/netlink"
	"github.com/harunnryd/parrot/pkg/observers"
	"github.com/harunnryd/parrot/pkg/resilience"
)

// Observability is the observer stack built from the config. Observer is
// what the device and runner record into.
type Observability struct {
	Observer   metrics.Observer
	Prometheus *metrics.PrometheusObserver

	async    *metrics.AsyncObserver
	timeline *observers.TimelineObserver
	summary  *observers.SummaryObserver
	eventLog *os.File
	log      *slog.Logger
}

// NewObservability wires the configured sinks behind one async observer.
// Artifacts older than retention_days are purged first.
func NewObservability(cfg ObservabilityConfig, log *slog.Logger) *Observability {
	if log == nil {
		log = slog.Default()
	}
	o := &Observability{Prometheus: metrics.NewPrometheusObserver(), log: log}
	sinks := []metrics.Observer{
		o.Prometheus,
		observers.NewLoggerObserver(logging.NewComponentLogger(log, "events"), metrics.EventTransferChunk),
		observers.NewLatencyObserver(logging.NewComponentLogger(log, "latency")),
	}

	if dir := cfg.ArtifactsDir; dir != "" {
		if cfg.RetentionDays > 0 {
			purgeArtifacts(dir, time.Duration(cfg.RetentionDays)*24*time.Hour, log)
		}
		o.summary = observers.NewSummaryObserver(filepath.Join(dir, "summaries"))
		sinks = append(sinks, o.summary)
		if cfg.Timeline {
			o.timeline = observers.NewTimelineObserver(filepath.Join(dir, "timelines"))
			sinks = append(sinks, o.timeline)
		}
		if cfg.EventLog {
			f, err := openEventLog(dir)
			if err != nil {
				log.Warn("event_log_open_failed", "dir", dir, "error", err)
			} else {
				o.eventLog = f
				sinks = append(sinks, metrics.NewJSONLObserver(f))
			}
		}
	}

	o.async = metrics.NewAsyncObserver(observers.NewMultiObserver(sinks...), 1024)
	o.Observer = o.async
	return o
}

var artifactSubdirs = []string{"", "summaries", "timelines", "clips"}

func purgeArtifacts(dir string, maxAge time.Duration, log *slog.Logger) {
	for _, sub := range artifactSubdirs {
		path := filepath.Join(dir, sub)
		n, err := observers.PurgeArtifacts(path, maxAge, ".jsonl", ".json", ".wav")
		if err != nil {
			log.Warn("artifact_purge_failed", "dir", path, "error", err)
			continue
		}
		if n > 0 {
			log.Info("artifacts_purged", "dir", path, "removed", n)
		}
	}
}

func openEventLog(dir string) (*os.File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(filepath.Join(dir, "events.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// Close drains queued events, then closes the file sinks.
func (o *Observability) Close() error {
	o.async.Close()
	if n := o.async.Dropped(); n > 0 {
		o.log.Warn("observer_events_dropped", "dropped", n)
	}
	var errs []error
	if o.timeline != nil {
		errs = append(errs, o.timeline.Close())
	}
	if o.summary != nil {
		errs = append(errs, o.summary.Close())
	}
	if o.eventLog != nil {
		errs = append(errs, o.eventLog.Close())
	}
	return errors.Join(errs...)
}

// NewBreaker returns nil when restart back-off is disabled.
func (c RestartConfig) NewBreaker() *resilience.CircuitBreaker {
	if c.FailureThreshold <= 0 {
		return nil
	}
	return resilience.NewCircuitBreaker(c.FailureThreshold, time.Duration(c.CooldownMS)*time.Millisecond)
}

func (c RestartConfig) DrainTimeout() time.Duration {
	return time.Duration(c.DrainTimeoutMS) * time.Millisecond
}

// NewEchoClient returns nil when no ws_url is configured.
func (c NetworkConfig) NewEchoClient(log *slog.Logger) *netlink.EchoClient {
	if c.WSURL == "" {
		return nil
	}
	retry := resilience.NewRetryPolicy(c.DialRetries, time.Duration(c.DialBackoffMS)*time.Millisecond)
	retry.Multiplier = 2
	retry.MaxBackoff = 10 * time.Second
	return &netlink.EchoClient{
		URL:        c.WSURL,
		MaxReplies: c.MaxReplies,
		ReplyDelay: time.Duration(c.ReplyDelayMS) * time.Millisecond,
		Retry:      retry,
		Logger:     logging.NewComponentLogger(log, "netlink"),
	}
}
