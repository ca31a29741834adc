package agent

// State represents the lifecycle state of an Agent.
type State int32

const (
	// StatePending indicates the Agent has been constructed but Start has
	// not been called.
	StatePending State = iota

	// StateIdle indicates no update is running and none are queued.
	StateIdle

	// StateUpdating indicates an update is in flight. Further updates may be
	// queued behind it and waiters may be parked until the queue drains.
	StateUpdating

	// StateStopped indicates the Agent exited normally, either because its
	// context was canceled or Stop was called.
	StateStopped

	// StateFailed indicates an update returned an error or panicked and the
	// Agent terminated.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateIdle:
		return "idle"
	case StateUpdating:
		return "updating"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final.
func (s State) Terminal() bool {
	return s == StateStopped || s == StateFailed
}
