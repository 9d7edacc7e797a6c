// Package session sequences one boot of the device: show the prompt, wait for
// the button, record, play the recording back, then ask for a restart.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/harunnryd/parrot/pkg/errorsx"
	"github.com/harunnryd/parrot/pkg/metrics"
	"github.com/harunnryd/parrot/pkg/pcm"
)

// DefaultRecordDuration is how long the device listens after the button.
const DefaultRecordDuration = 5 * time.Second

// DefaultPrompt is the text shown while waiting for the button.
const DefaultPrompt = "Hello, ESP32!\n 请按下k0开始录音"

type Trigger interface {
	// WaitRisingEdge blocks until the next press or until ctx is done.
	WaitRisingEdge(ctx context.Context) error
}

type Display interface {
	RenderStatus(text string) error
}

type Recorder interface {
	Capture(d time.Duration) (pcm.Buffer, error)
}

type Player interface {
	Play(audio pcm.Buffer) error
}

// Restarter performs the reset once a session reaches Restarting. On the
// device this reboots the chip and does not return.
type Restarter interface {
	Restart(ctx context.Context, report Report) error
}

// ClipSink receives each successfully captured clip, for archiving.
type ClipSink interface {
	SaveClip(sessionID string, clip pcm.Buffer) error
}

// Report summarises one session.
type Report struct {
	SessionID string
	Final     State
	// Restart is true when the session ended in Restarting and the device
	// must reboot.
	Restart bool
	// Failure holds the capture or playback error that cut the session
	// short, if any. It never stops the restart.
	Failure     error
	FailedIn    State
	Captured    int
	StartedAt   time.Time
	TriggeredAt time.Time
	FinishedAt  time.Time
	CaptureTime time.Duration
	PlayTime    time.Duration
}

// Controller owns the state machine and runs a single session per Run.
type Controller struct {
	Trigger   Trigger
	Display   Display
	Recorder  Recorder
	Player    Player
	Restarter Restarter
	Clips     ClipSink

	Prompt         string
	RecordDuration time.Duration
	// SessionID is generated when empty.
	SessionID string
	Logger    *slog.Logger
	Observer  metrics.Observer
	Listeners []StateListener

	machine *Machine
}

// Machine exposes the session state machine once Run has started.
func (c *Controller) Machine() *Machine { return c.machine }

// Run executes one session. The only blocking wait that honours ctx is the
// trigger; once capture starts the session runs to Restarting. Cancellation
// during the wait moves the machine back to Idle and returns ctx.Err() with
// Report.Restart false.
func (c *Controller) Run(ctx context.Context) (Report, error) {
	if c.SessionID == "" {
		c.SessionID = uuid.NewString()
	}
	obs := metrics.OrNoop(c.Observer)
	log := c.logger().With(metrics.TagSessionID, c.SessionID)
	report := Report{SessionID: c.SessionID, StartedAt: time.Now(), Final: StateIdle}

	if c.Trigger == nil || c.Recorder == nil || c.Player == nil {
		return report, errorsx.Wrap(errors.New("session: trigger, recorder and player are required"), errorsx.ReasonSessionBoot)
	}

	c.machine = NewMachine(c.SessionID)
	c.machine.AddListener(observerListener{obs: obs})
	for _, l := range c.Listeners {
		c.machine.AddListener(l)
	}

	move := func(to State, reason string) error {
		if err := c.machine.Transition(to, reason); err != nil {
			return errorsx.Wrap(err, errorsx.ReasonSessionTransition)
		}
		report.Final = to
		return nil
	}

	c.showPrompt(log)
	if err := move(StateAwaitingTrigger, "boot"); err != nil {
		return report, err
	}

	log.Info("session_awaiting_trigger")
	if err := c.Trigger.WaitRisingEdge(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			log.Info("session_cancelled", "state", StateAwaitingTrigger.String())
			if terr := move(StateIdle, "cancelled"); terr != nil {
				return report, terr
			}
			report.FinishedAt = time.Now()
			return report, ctxErr
		}
		err = errorsx.Wrap(fmt.Errorf("session: wait for trigger: %w", err), errorsx.ReasonTriggerWait)
		log.Error("session_trigger_failed", "error", err, errorsx.LogAttr(err))
		_ = move(StateIdle, "trigger failed")
		report.FinishedAt = time.Now()
		return report, err
	}
	report.TriggeredAt = time.Now()
	obs.RecordEvent(metrics.MetricsEvent{
		Name:  metrics.EventTriggerFired,
		Time:  report.TriggeredAt,
		Value: 1,
		Tags:  map[string]string{metrics.TagSessionID: c.SessionID},
		Fields: map[string]any{
			"elapsed_ms": report.TriggeredAt.Sub(report.StartedAt).Milliseconds(),
		},
	})

	if err := move(StateCapturing, "trigger"); err != nil {
		return report, err
	}
	start := time.Now()
	clip, err := c.Recorder.Capture(c.duration())
	report.CaptureTime = time.Since(start)
	if err != nil {
		c.fail(log, obs, &report, StateCapturing, err)
		return c.restart(ctx, log, move, &report, "capture failed")
	}
	report.Captured = len(clip)
	log.Info("session_captured", "bytes", len(clip), "elapsed", report.CaptureTime)
	if c.Clips != nil {
		if err := c.Clips.SaveClip(c.SessionID, clip); err != nil {
			log.Warn("session_clip_archive_failed", "error", err)
		}
	}

	if err := move(StatePlaying, "captured"); err != nil {
		return report, err
	}
	start = time.Now()
	err = c.Player.Play(clip)
	report.PlayTime = time.Since(start)
	if err != nil {
		c.fail(log, obs, &report, StatePlaying, err)
		return c.restart(ctx, log, move, &report, "playback failed")
	}
	log.Info("session_played", "bytes", len(clip), "elapsed", report.PlayTime)
	return c.restart(ctx, log, move, &report, "playback complete")
}

// restart updates report in place; move writes Final through the same Report.
func (c *Controller) restart(ctx context.Context, log *slog.Logger, move func(State, string) error, report *Report, reason string) (Report, error) {
	if err := move(StateRestarting, reason); err != nil {
		return *report, err
	}
	report.Restart = true
	report.FinishedAt = time.Now()
	log.Info("session_restart", "reason", reason, "failed", report.Failure != nil)
	if c.Restarter != nil {
		if err := c.Restarter.Restart(ctx, *report); err != nil {
			return *report, fmt.Errorf("session: restart: %w", err)
		}
	}
	return *report, nil
}

func (c *Controller) fail(log *slog.Logger, obs metrics.Observer, report *Report, in State, err error) {
	report.Failure = err
	report.FailedIn = in
	log.Error("session_failed", "state", in.String(), "error", err, errorsx.LogAttr(err))
	obs.RecordEvent(metrics.MetricsEvent{
		Name:  metrics.EventSessionFailed,
		Time:  time.Now(),
		Value: 1,
		Tags: map[string]string{
			metrics.TagSessionID: c.SessionID,
			metrics.TagState:     in.String(),
			metrics.TagReason:    string(errorsx.Reason(err)),
		},
	})
}

func (c *Controller) showPrompt(log *slog.Logger) {
	if c.Display == nil {
		return
	}
	prompt := c.Prompt
	if prompt == "" {
		prompt = DefaultPrompt
	}
	if err := c.Display.RenderStatus(prompt); err != nil {
		err = errorsx.Wrap(err, errorsx.ReasonDisplayRender)
		log.Warn("session_display_failed", "error", err, errorsx.LogAttr(err))
	}
}

func (c *Controller) duration() time.Duration {
	if c.RecordDuration <= 0 {
		return DefaultRecordDuration
	}
	return c.RecordDuration
}

func (c *Controller) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// observerListener turns transitions into session_state events.
type observerListener struct {
	obs metrics.Observer
}

func (l observerListener) OnStateChange(ev StateChange) {
	l.obs.RecordEvent(metrics.MetricsEvent{
		Name:  metrics.EventSessionState,
		Time:  ev.Timestamp,
		Value: 1,
		Tags: map[string]string{
			metrics.TagSessionID: ev.SessionID,
			metrics.TagFrom:      ev.FromState.String(),
			metrics.TagState:     ev.ToState.String(),
		},
		Fields: map[string]any{"reason": ev.Reason},
	})
}
