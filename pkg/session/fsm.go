package session

import (
	"slices"
	"sync"
	"time"
)

// StateChange represents a state transition event.
type StateChange struct {
	SessionID string
	FromState State
	ToState   State
	Timestamp time.Time
	Reason    string
}

// StateListener observes session state changes.
type StateListener interface {
	OnStateChange(event StateChange)
}

// ListenerFunc adapts a function to StateListener.
type ListenerFunc func(StateChange)

func (f ListenerFunc) OnStateChange(event StateChange) { f(event) }

var validTransitions = map[State][]State{
	StateIdle:            {StateAwaitingTrigger},
	StateAwaitingTrigger: {StateCapturing, StateIdle},
	StateCapturing:       {StatePlaying, StateRestarting},
	StatePlaying:         {StateRestarting},
}

// Machine is the session state machine. Restarting is terminal; the next
// boot starts a fresh machine.
type Machine struct {
	sessionID string

	mu        sync.RWMutex
	current   State
	entered   time.Time
	listeners []StateListener
}

func NewMachine(sessionID string) *Machine {
	return &Machine{sessionID: sessionID, current: StateIdle, entered: time.Now()}
}

// State returns the current state.
func (m *Machine) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Since returns how long the machine has been in its current state.
func (m *Machine) Since() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return time.Since(m.entered)
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to State) bool {
	return slices.Contains(validTransitions[from], to)
}

// Transition moves to a new state with validation. Listeners run after the
// lock is released.
func (m *Machine) Transition(to State, reason string) error {
	m.mu.Lock()
	from := m.current
	if !CanTransition(from, to) {
		m.mu.Unlock()
		return &InvalidTransitionError{From: from, To: to}
	}
	now := time.Now()
	m.current = to
	m.entered = now
	listeners := slices.Clone(m.listeners)
	m.mu.Unlock()

	event := StateChange{
		SessionID: m.sessionID,
		FromState: from,
		ToState:   to,
		Timestamp: now,
		Reason:    reason,
	}
	for _, listener := range listeners {
		listener.OnStateChange(event)
	}
	return nil
}

// AddListener registers a listener for state change events.
func (m *Machine) AddListener(listener StateListener) {
	if listener == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, listener)
}

// InvalidTransitionError represents an invalid state transition attempt
type InvalidTransitionError struct {
	From State
	To   State
}

func (e *InvalidTransitionError) Error() string {
	return "invalid session transition from " + e.From.String() + " to " + e.To.String()
}
