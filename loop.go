package agent

import (
	"context"
	"fmt"

	"github.com/mudler/xlog"
	"github.com/zoobzio/capitan"
)

// run is the agent's loop. It is the only goroutine that touches the value,
// the update queue and the waiter queue.
func (a *Agent[V]) run(ctx context.Context, unlink func() bool) {
	defer a.terminate(ctx, unlink)

	if a.seed != nil {
		a.submit(ctx, a.seed)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case req := <-a.mailbox:
			a.handle(ctx, req)

		case out := <-a.completions:
			if !a.complete(ctx, out) {
				return
			}
		}
	}
}

// handle serves one request from the mailbox.
func (a *Agent[V]) handle(ctx context.Context, req request) {
	switch r := req.(type) {
	case updateRequest[V]:
		if r.fn == nil {
			a.reject(ctx, r.kind(), "nil update function")
			return
		}
		a.submit(ctx, r.fn)

	case valueRequest[V]:
		if r.extract == nil {
			a.reject(ctx, r.kind(), "nil extractor")
			r.reply <- reply[any]{err: ErrMalformedRequest}
			return
		}
		r.reply <- a.extract(r.extract)

	case waitRequest[V]:
		if !a.active {
			r.reply <- reply[V]{value: a.value}
			return
		}
		a.waiters.Enqueue(r.reply)
		a.parked++
		capitan.Emit(ctx, WaitDeferred,
			KeyAgent.Field(a.name),
			KeyWaiters.Field(a.parked),
			KeyQueueDepth.Field(a.depth),
		)

	default:
		// Dropped and logged; the loop keeps serving.
		a.reject(ctx, "unknown", fmt.Sprintf("unexpected request %T", req))
	}
}

// extract runs fn against the current value, converting a panic into an
// error for the caller.
func (a *Agent[V]) extract(fn func(V) any) (r reply[any]) {
	defer func() {
		if p := recover(); p != nil {
			xlog.Warn("agent extractor panicked", "agent", a.name, "panic", p)
			r = reply[any]{err: fmt.Errorf("%w: agent %s: %v", ErrExtractorPanic, a.name, p)}
		}
	}()
	return reply[any]{value: fn(a.value)}
}

// submit starts fn now if nothing is running, otherwise queues it.
func (a *Agent[V]) submit(ctx context.Context, fn updateFunc[V]) {
	if !a.active {
		a.spawn(ctx, fn)
		return
	}
	a.pending.Enqueue(fn)
	a.depth++
	a.metrics.OnUpdateQueued(a.depth)
	capitan.Emit(ctx, UpdateQueued,
		KeyAgent.Field(a.name),
		KeyQueueDepth.Field(a.depth),
	)
}

// complete commits an executor outcome. It returns false when the loop must
// exit.
func (a *Agent[V]) complete(ctx context.Context, out outcome[V]) bool {
	a.active = false

	// Stopping; the outcome of an abandoned update is discarded.
	if ctx.Err() != nil {
		return false
	}

	if out.err != nil {
		a.fail(ctx, out)
		return false
	}

	a.value = out.value
	a.metrics.OnUpdateApplied(out.elapsed)
	capitan.Emit(ctx, UpdateApplied,
		KeyAgent.Field(a.name),
		KeySequence.Field(int(out.seq)),
		KeyDuration.Field(out.elapsed),
	)

	if a.depth > 0 {
		next := a.pending.Dequeue()
		a.depth--
		a.spawn(ctx, next)
		return true
	}

	a.transitionState(ctx, StateIdle)
	a.release(ctx)
	return true
}

// release answers every parked waiter with the committed value.
func (a *Agent[V]) release(ctx context.Context) {
	if a.parked == 0 {
		return
	}
	n := a.parked
	for !a.waiters.Empty() {
		ch := a.waiters.Dequeue()
		ch <- reply[V]{value: a.value}
	}
	a.parked = 0
	capitan.Emit(ctx, WaitReleased,
		KeyAgent.Field(a.name),
		KeyWaiters.Field(n),
	)
}

// fail records a terminal update failure and escalates it.
func (a *Agent[V]) fail(ctx context.Context, out outcome[V]) {
	a.err = out.err
	a.metrics.OnUpdateFailed(out.elapsed)

	capitan.Emit(ctx, UpdateFailed,
		KeyAgent.Field(a.name),
		KeySequence.Field(int(out.seq)),
		KeyDuration.Field(out.elapsed),
		KeyError.Field(out.err.Error()),
	)
	capitan.Emit(ctx, AgentFailed,
		KeyAgent.Field(a.name),
		KeyError.Field(out.err.Error()),
	)
	xlog.Error("agent update failed", "agent", a.name, "sequence", out.seq, "error", out.err)

	if a.supervisor != nil {
		a.supervisor.escalate(ctx, a.name, out.err)
	}
}

// reject logs and signals a request the loop cannot serve.
func (a *Agent[V]) reject(ctx context.Context, kind, reason string) {
	xlog.Warn("agent rejected request", "agent", a.name, "request", kind, "reason", reason)
	a.metrics.OnRequestRejected(kind)
	capitan.Emit(ctx, RequestRejected,
		KeyAgent.Field(a.name),
		KeyRequest.Field(kind),
		KeyError.Field(reason),
	)
}

// transitionState updates the state and emits a state change event if changed.
func (a *Agent[V]) transitionState(ctx context.Context, newState State) {
	oldState := State(a.state.Swap(int32(newState)))
	if oldState == newState {
		return
	}
	a.metrics.OnStateChange(oldState, newState)
	capitan.Emit(ctx, AgentStateChanged,
		KeyAgent.Field(a.name),
		KeyOldState.Field(oldState.String()),
		KeyNewState.Field(newState.String()),
	)
}

// terminate runs once when the loop exits.
func (a *Agent[V]) terminate(ctx context.Context, unlink func() bool) {
	// ctx is usually canceled by now; signals still need to go out.
	ctx = context.WithoutCancel(ctx)

	final := StateStopped
	if a.err != nil {
		final = StateFailed
	}
	a.transitionState(ctx, final)
	close(a.done)

	a.cancel()
	if unlink != nil {
		unlink()
	}

	capitan.Emit(ctx, AgentStopped,
		KeyAgent.Field(a.name),
		KeyState.Field(final.String()),
	)

	if a.onStop != nil {
		a.onStop(final)
	}
	if a.supervisor != nil {
		a.supervisor.unlink()
	}
}
