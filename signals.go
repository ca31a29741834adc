package agent

import "github.com/zoobzio/capitan"

// Agent lifecycle signals.
var (
	// AgentStarted is emitted when an Agent's loop begins.
	AgentStarted = capitan.NewSignal(
		"agent.started",
		"Agent loop started",
	)

	// AgentStopped is emitted when an Agent's loop exits for any reason.
	AgentStopped = capitan.NewSignal(
		"agent.stopped",
		"Agent loop stopped",
	)

	// AgentFailed is emitted when an update failure terminates an Agent.
	AgentFailed = capitan.NewSignal(
		"agent.failed",
		"Agent terminated by update failure",
	)

	// AgentStateChanged is emitted when an Agent transitions between states.
	AgentStateChanged = capitan.NewSignal(
		"agent.state.changed",
		"Agent state transition",
	)
)

// Update processing signals.
var (
	// UpdateQueued is emitted when an update is parked behind an active one.
	UpdateQueued = capitan.NewSignal(
		"agent.update.queued",
		"Update queued behind active update",
	)

	// UpdateApplied is emitted when an update result is committed.
	UpdateApplied = capitan.NewSignal(
		"agent.update.applied",
		"Update applied",
	)

	// UpdateFailed is emitted when an update returns an error or panics.
	UpdateFailed = capitan.NewSignal(
		"agent.update.failed",
		"Update function failed",
	)
)

// Request signals.
var (
	// WaitDeferred is emitted when a Wait arrives while updates are outstanding.
	WaitDeferred = capitan.NewSignal(
		"agent.wait.deferred",
		"Wait deferred until queue drains",
	)

	// WaitReleased is emitted when parked waiters are answered.
	WaitReleased = capitan.NewSignal(
		"agent.wait.released",
		"Deferred waiters released",
	)

	// RequestRejected is emitted when the loop receives a request it cannot serve.
	RequestRejected = capitan.NewSignal(
		"agent.request.rejected",
		"Malformed request rejected",
	)
)

// Feed and supervision signals.
var (
	// FeedDecodeFailed is emitted when a Feed cannot decode a change.
	FeedDecodeFailed = capitan.NewSignal(
		"agent.feed.decode.failed",
		"Feed change could not be decoded",
	)

	// FeedPayloadDropped is emitted when a Feed discards a decoded change,
	// for example because a rate limit in drop mode was exceeded.
	FeedPayloadDropped = capitan.NewSignal(
		"agent.feed.payload.dropped",
		"Feed change dropped before reaching the agent",
	)

	// SupervisorEscalated is emitted when a linked Agent reports a failure.
	SupervisorEscalated = capitan.NewSignal(
		"agent.supervisor.escalated",
		"Linked agent failure escalated",
	)
)
