package agent

import (
	"context"
	"runtime/debug"
)

// spawn starts the executor for fn against the current value. The loop
// calls it only when no other executor is active.
func (a *Agent[V]) spawn(ctx context.Context, fn updateFunc[V]) {
	a.seq++
	a.active = true
	a.transitionState(ctx, StateUpdating)

	seq, current, start := a.seq, a.value, a.clock.Now()

	go func() {
		out := outcome[V]{seq: seq}
		defer func() {
			if p := recover(); p != nil {
				out.err = &UpdateError{Agent: a.name, Sequence: seq, Panic: p, Stack: debug.Stack()}
			}
			out.elapsed = a.clock.Since(start)
			// Buffered; at most one executor is outstanding.
			a.completions <- out
		}()

		v, err := fn(ctx, current)
		if err != nil {
			out.err = &UpdateError{Agent: a.name, Sequence: seq, Err: err}
			return
		}
		out.value = v
	}()
}
