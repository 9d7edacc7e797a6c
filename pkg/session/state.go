package session

// State is a session controller state.
type State int

const (
	StateIdle State = iota
	StateAwaitingTrigger
	StateCapturing
	StatePlaying
	StateRestarting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateAwaitingTrigger:
		return "AWAITING_TRIGGER"
	case StateCapturing:
		return "CAPTURING"
	case StatePlaying:
		return "PLAYING"
	case StateRestarting:
		return "RESTARTING"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether nothing can follow s in this boot.
func (s State) Terminal() bool {
	return s == StateRestarting
}
