package agent

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on key agent events.
// Callbacks run on the agent's loop goroutine and must not block.
type MetricsProvider interface {
	// OnStateChange is called when the agent transitions between states.
	OnStateChange(from, to State)

	// OnUpdateQueued is called when an update is parked behind the active one.
	// Depth is the queue length after the update was appended.
	OnUpdateQueued(depth int)

	// OnUpdateApplied is called when an update result is committed.
	// Duration is the time the update function spent executing.
	OnUpdateApplied(duration time.Duration)

	// OnUpdateFailed is called when an update returns an error or panics.
	OnUpdateFailed(duration time.Duration)

	// OnRequestRejected is called when a malformed request is dropped.
	// Kind is "update", "value", "wait" or "unknown".
	OnRequestRejected(kind string)
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnStateChange(_, _ State)        {}
func (NoOpMetricsProvider) OnUpdateQueued(_ int)            {}
func (NoOpMetricsProvider) OnUpdateApplied(_ time.Duration) {}
func (NoOpMetricsProvider) OnUpdateFailed(_ time.Duration)  {}
func (NoOpMetricsProvider) OnRequestRejected(_ string)      {}
