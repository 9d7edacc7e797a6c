package runner

import (
	"bytes"
	"context"
	"io"

	"github.com/dimiro1/banner"

	"github.com/harunnryd/parrot/pkg/session"
)

type State int

const (
	StateNew State = iota
	StateStarting
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type Runner interface {
	Run(ctx context.Context) error
	Stop() error
	State() State
}

type Hooks struct {
	OnStart func()
	// OnRestart runs after boot n ended in RESTARTING, before the next boot.
	OnRestart func(n int, report session.Report)
	OnStop    func()
}

type Drainer interface {
	Drain() error
}

// Session is one boot's worth of work. *session.Controller satisfies it.
type Session interface {
	Run(ctx context.Context) (session.Report, error)
}

// Booter brings the device up and hands back the session for boot n,
// counting from 1.
type Booter interface {
	Boot(ctx context.Context, n int) (Session, error)
}

// BootFunc adapts a function to Booter.
type BootFunc func(ctx context.Context, n int) (Session, error)

func (f BootFunc) Boot(ctx context.Context, n int) (Session, error) { return f(ctx, n) }

// Version is stamped by the build.
var Version = "dev"

// PrintBanner writes the startup banner to w.
func PrintBanner(w io.Writer) {
	if w == nil {
		return
	}
	tpl := "{{ .Title \"PARROT\" \"\" 0 }}\nVersion: " + Version + "\n"
	banner.Init(w, true, false, bytes.NewBufferString(tpl))
}
