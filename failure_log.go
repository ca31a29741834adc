package agent

import (
	"sync"
	"time"
)

// Failure is one escalated agent failure as recorded by a Supervisor.
type Failure struct {
	// Agent is the name of the agent that failed.
	Agent string

	// Err is the failure, usually an *UpdateError.
	Err error

	// At is when the supervisor received the failure.
	At time.Time
}

// failureLog is a bounded, thread-safe log of the most recent failures.
// A nil log records nothing.
type failureLog struct {
	mu      sync.RWMutex
	entries []Failure
	next    int
	full    bool
}

// newFailureLog returns a log holding up to size failures, or nil when
// size is not positive.
func newFailureLog(size int) *failureLog {
	if size <= 0 {
		return nil
	}
	return &failureLog{entries: make([]Failure, size)}
}

func (l *failureLog) record(f Failure) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[l.next] = f
	l.next++
	if l.next == len(l.entries) {
		l.next = 0
		l.full = true
	}
}

// snapshot returns the recorded failures, oldest first.
func (l *failureLog) snapshot() []Failure {
	if l == nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()

	if !l.full {
		if l.next == 0 {
			return nil
		}
		return append([]Failure(nil), l.entries[:l.next]...)
	}
	out := make([]Failure, 0, len(l.entries))
	out = append(out, l.entries[l.next:]...)
	return append(out, l.entries[:l.next]...)
}
