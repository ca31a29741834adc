package agent

import "github.com/zoobzio/capitan"

// Field keys for Agent events.
var (
	// KeyAgent is the name of the Agent emitting the event.
	KeyAgent = capitan.NewStringKey("agent")

	// KeyState is the current state of the Agent.
	KeyState = capitan.NewStringKey("state")

	// KeyOldState is the previous state before a transition.
	KeyOldState = capitan.NewStringKey("old_state")

	// KeyNewState is the new state after a transition.
	KeyNewState = capitan.NewStringKey("new_state")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyDuration is the time an update spent executing.
	KeyDuration = capitan.NewDurationKey("duration")

	// KeyQueueDepth is the number of updates waiting behind the active one.
	KeyQueueDepth = capitan.NewIntKey("queue_depth")

	// KeyWaiters is the number of waiters released or parked.
	KeyWaiters = capitan.NewIntKey("waiters")

	// KeySequence is the per-agent sequence number of an update.
	KeySequence = capitan.NewIntKey("sequence")

	// KeyRequest is the kind of a rejected request.
	KeyRequest = capitan.NewStringKey("request")
)
