// Package agent provides a single-owner concurrency primitive for a mutable value.
//
// An Agent owns one value of type V on its own goroutine. Any number of
// goroutines may read it, queue transformations against it, or wait for those
// transformations to finish.
//
// # Operations
//
//   - Update / UpdateContext: fire-and-forget. The function is queued and
//     applied later, one at a time, in the order the agent received it.
//   - Value / Get: answered immediately from whatever value is current when
//     the request is processed. Get runs an extractor on the agent's
//     goroutine so only a projection leaves it.
//   - Wait: answered once every update the agent had received before this
//     request has been applied. With nothing outstanding it answers at once.
//
// Each update runs on a fresh goroutine (an executor) against a copy of the
// current value, so the agent keeps answering Value and Wait while a slow
// update runs. Only one executor is active per agent. Values that contain
// maps, slices or pointers are shared with the executor, so update functions
// should build a new value rather than mutate the old one in place.
//
// # State Machine
//
// An Agent is in one of five states:
//
//   - Pending: constructed, Start not called yet
//   - Idle: nothing running, nothing queued
//   - Updating: one update running, zero or more queued, waiters possibly parked
//   - Stopped: context canceled or Stop called
//   - Failed: an update returned an error or panicked
//
// # Failure
//
// A failing update is never retried and never swallowed. It terminates the
// agent. Every later request returns an error matching ErrDeadAgent that also
// wraps the *UpdateError. Update itself never reports that a particular
// update failed. Callers find out through Done, Err, or a linked Supervisor,
// whose context is canceled with the failure as its cause.
//
// # Observability
//
// Lifecycle and update events are emitted as capitan signals (see signals.go)
// and reported to an optional MetricsProvider. Rejected requests and failures
// are also logged through xlog.
//
// # Feeds
//
// Feed drives an agent from a Watcher. Each emission runs through a pipz
// pipeline that decodes it, optionally filters and rate limits it, and
// submits it with Update. See WithFilter, WithRateLimit and WithErrorHandler.
//
// # Example
//
//	counter := agent.Spawn(ctx, 125)
//
//	_ = counter.Update(func(n int) int { return n + 100 })
//
//	now, _ := counter.Value(ctx) // 125 or 225, whichever is current
//	after, _ := counter.Wait(ctx) // 225
//
//	half, _ := agent.Get(ctx, counter, func(n int) int { return n / 2 })
//
// Tasks run one computation in the background:
//
//	task := agent.SpawnTask(ctx, func(ctx context.Context) (string, error) {
//	    return fetch(ctx, url)
//	})
//	body, err := task.Wait(ctx)
package agent
