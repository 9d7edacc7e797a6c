package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/harunnryd/parrot/pkg/errorsx"
	"github.com/harunnryd/parrot/pkg/metrics"
	"github.com/harunnryd/parrot/pkg/resilience"
)

// Options tune a LifecycleRunner. Zero values are usable.
type Options struct {
	Hooks   Hooks
	Drainer Drainer
	// DrainTimeout bounds Drainer.Drain on shutdown.
	DrainTimeout time.Duration
	// Breaker delays the next boot after repeated failed sessions. It never
	// prevents the restart.
	Breaker *resilience.CircuitBreaker
	// MaxBoots stops the loop after that many boots. Zero runs forever.
	MaxBoots int
	Banner   io.Writer
	Logger   *slog.Logger
	Observer metrics.Observer
}

// LifecycleRunner emulates the device power cycle: boot, run one session,
// and boot again whenever the session asks for a restart.
type LifecycleRunner struct {
	state    int32
	ctx      context.Context
	cancel   context.CancelFunc
	onceStop sync.Once
	booter   Booter
	opts     Options
	stopErr  error
	boots    atomic.Int64
}

func NewLifecycleRunner(booter Booter, opts Options) *LifecycleRunner {
	if opts.DrainTimeout <= 0 {
		opts.DrainTimeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	opts.Observer = metrics.OrNoop(opts.Observer)
	ctx, cancel := context.WithCancel(context.Background())
	return &LifecycleRunner{
		state:  int32(StateNew),
		ctx:    ctx,
		cancel: cancel,
		booter: booter,
		opts:   opts,
	}
}

// Run boots until ctx ends, MaxBoots is reached, or a session fails in a way
// a restart cannot fix (a boot error or a dead trigger).
func (r *LifecycleRunner) Run(ctx context.Context) error {
	if !r.casState(StateNew, StateStarting) {
		return errors.New("runner: invalid state transition")
	}
	PrintBanner(r.opts.Banner)
	if ctx != nil {
		r.ctx, r.cancel = context.WithCancel(ctx)
	}
	if r.opts.Hooks.OnStart != nil {
		r.opts.Hooks.OnStart()
	}
	r.setState(StateRunning)

	runErr := r.loop(r.ctx)
	return errors.Join(runErr, r.stop())
}

func (r *LifecycleRunner) loop(ctx context.Context) error {
	log := r.opts.Logger
	for n := 1; ; n++ {
		if ctx.Err() != nil {
			return nil
		}
		r.boots.Store(int64(n))
		log.Info("device_boot", "boot", n)
		s, err := r.booter.Boot(ctx, n)
		if err != nil {
			err = errorsx.Wrap(fmt.Errorf("runner: boot %d: %w", n, err), errorsx.ReasonSessionBoot)
			log.Error("device_boot_failed", "boot", n, "error", err, errorsx.LogAttr(err))
			return err
		}

		report, err := s.Run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error("device_session_aborted", "boot", n, "error", err, errorsx.LogAttr(err))
			return err
		}
		if !report.Restart {
			return nil
		}

		if br := r.opts.Breaker; br != nil {
			if report.Failure != nil {
				br.OnError(report.Failure)
			} else {
				br.OnSuccess()
			}
		}
		r.opts.Observer.RecordEvent(metrics.MetricsEvent{
			Name:  metrics.EventDeviceRestart,
			Time:  time.Now(),
			Value: 1,
			Tags: map[string]string{
				metrics.TagSessionID: report.SessionID,
				metrics.TagReason:    string(errorsx.Reason(report.Failure)),
			},
			Fields: map[string]any{"boot": n, "failed": report.Failure != nil},
		})
		log.Info("device_restart", "boot", n, "session_id", report.SessionID, "failed", report.Failure != nil)
		if r.opts.Hooks.OnRestart != nil {
			r.opts.Hooks.OnRestart(n, report)
		}

		if r.opts.MaxBoots > 0 && n >= r.opts.MaxBoots {
			log.Info("device_max_boots_reached", "boots", n)
			return nil
		}
		if br := r.opts.Breaker; br != nil {
			if wait := br.Wait(); wait > 0 {
				log.Warn("device_restart_backoff", "wait", wait, "consecutive_failures", br.Failures())
				if err := sleep(ctx, wait); err != nil {
					return nil
				}
			}
		}
	}
}

func (r *LifecycleRunner) Stop() error {
	r.cancel()
	return r.stop()
}

func (r *LifecycleRunner) State() State {
	return State(atomic.LoadInt32(&r.state))
}

// Boots returns the number of the current or last boot.
func (r *LifecycleRunner) Boots() int {
	return int(r.boots.Load())
}

func (r *LifecycleRunner) stop() error {
	r.onceStop.Do(func() {
		r.setState(StateDraining)
		if r.opts.Drainer != nil {
			done := make(chan struct{})
			go func() {
				_ = r.opts.Drainer.Drain()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(r.opts.DrainTimeout):
				r.stopErr = errors.New("runner: drain timeout")
			}
		}
		if r.opts.Hooks.OnStop != nil {
			r.opts.Hooks.OnStop()
		}
		r.setState(StateStopped)
	})
	return r.stopErr
}

func (r *LifecycleRunner) casState(from, to State) bool {
	return atomic.CompareAndSwapInt32(&r.state, int32(from), int32(to))
}

func (r *LifecycleRunner) setState(s State) {
	atomic.StoreInt32(&r.state, int32(s))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
