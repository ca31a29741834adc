package agent

import (
	"errors"
	"fmt"
)

var (
	// ErrDeadAgent is returned by every request addressed to an Agent whose
	// loop has exited. When the exit was caused by an update failure the
	// returned error also wraps the *UpdateError.
	ErrDeadAgent = errors.New("agent is dead")

	// ErrNotStarted is returned when a request is made before Start.
	ErrNotStarted = errors.New("agent not started")

	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("agent already started")

	// ErrMalformedRequest is returned to callers whose request the loop
	// rejected, such as a nil extractor.
	ErrMalformedRequest = errors.New("malformed request")

	// ErrExtractorPanic is returned when a Get extractor panics. The agent
	// keeps running.
	ErrExtractorPanic = errors.New("extractor panicked")

	// ErrFeedDecode marks a Feed payload that its Codec could not decode.
	ErrFeedDecode = errors.New("feed payload decode failed")

	// ErrSupervisorWaiting is returned by Start when the agent's Supervisor
	// is already in Wait. Agents must be linked before Wait is called.
	ErrSupervisorWaiting = errors.New("supervisor is waiting; no new agents can be linked")
)

// UpdateError describes an update function that returned an error or
// panicked. It terminates the agent that ran it.
type UpdateError struct {
	// Agent is the name of the agent that ran the update.
	Agent string

	// Sequence is the per-agent sequence number of the failed update.
	Sequence uint64

	// Err is the error returned by the update function, if any.
	Err error

	// Panic is the recovered panic value, if the update panicked.
	Panic any

	// Stack is the goroutine stack captured at the panic site.
	Stack []byte
}

func (e *UpdateError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("agent %s: update %d panicked: %v", e.Agent, e.Sequence, e.Panic)
	}
	return fmt.Sprintf("agent %s: update %d failed: %v", e.Agent, e.Sequence, e.Err)
}

// Unwrap returns the returned error, or the panic value when it is an error
// (for example a runtime.Error from an integer division by zero).
func (e *UpdateError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	if err, ok := e.Panic.(error); ok {
		return err
	}
	return nil
}

// deadError builds the error returned to callers of a terminated agent.
func deadError(name string, cause error) error {
	if cause == nil {
		return fmt.Errorf("%w: %s", ErrDeadAgent, name)
	}
	return fmt.Errorf("%w: %w", ErrDeadAgent, cause)
}
