package agent

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zyedidia/generic/queue"
)

// DefaultMailbox is the default number of requests that can be handed to an
// agent's loop without the sender waiting for the loop to pick them up.
// It bounds the hand-off only; queued updates are unbounded.
const DefaultMailbox = 128

// Agent is the single owner of a value of type V.
//
// Reads (Value, Get) are answered synchronously from whatever value is
// current when the request reaches the loop. Writes (Update) are queued and
// applied one at a time, in arrival order, on a separate goroutine so the
// loop never runs caller logic that might block. Wait answers once every
// update outstanding at the time of the call has been applied.
//
// An Agent is safe for concurrent use by any number of goroutines.
type Agent[V any] struct {
	name        string
	mailboxSize int
	clock       clockz.Clock
	metrics     MetricsProvider
	onStop      func(State)
	supervisor  *Supervisor
	seed        updateFunc[V]

	mailbox     chan request
	completions chan outcome[V]
	done        chan struct{}

	state atomic.Int32

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc

	// Owned by the loop goroutine.
	value   V
	pending *queue.Queue[updateFunc[V]]
	depth   int
	waiters *queue.Queue[chan reply[V]]
	parked  int
	active  bool
	seq     uint64

	// Written by the loop before done is closed.
	err error
}

// New creates an Agent holding initial. The agent does not serve requests
// until Start is called.
//
// Example:
//
//	counter := agent.New(0).Name("counter")
//	if err := counter.Start(ctx); err != nil {
//	    return err
//	}
//	_ = counter.Update(func(n int) int { return n + 1 })
//	n, err := counter.Wait(ctx)
func New[V any](initial V) *Agent[V] {
	a := &Agent[V]{
		name:        uuid.NewString(),
		mailboxSize: DefaultMailbox,
		clock:       clockz.RealClock,
		metrics:     NoOpMetricsProvider{},
		completions: make(chan outcome[V], 1),
		done:        make(chan struct{}),
		value:       initial,
		pending:     queue.New[updateFunc[V]](),
		waiters:     queue.New[chan reply[V]](),
	}
	a.state.Store(int32(StatePending))
	return a
}

// NewTask creates an Agent with no seed value whose first update is fn.
// When Start is called fn runs immediately in the background; Wait returns
// its result. Arguments to fn are captured by the closure.
//
// Example:
//
//	task := agent.NewTask(func(ctx context.Context) (Report, error) {
//	    return build(ctx, input)
//	})
//	_ = task.Start(ctx)
//	report, err := task.Wait(ctx)
func NewTask[V any](fn func(ctx context.Context) (V, error)) *Agent[V] {
	var zero V
	a := New(zero)
	if fn != nil {
		a.seed = func(ctx context.Context, _ V) (V, error) {
			return fn(ctx)
		}
	}
	return a
}

// Spawn creates and starts an Agent holding initial.
func Spawn[V any](ctx context.Context, initial V) *Agent[V] {
	a := New(initial)
	_ = a.Start(ctx) //nolint:errcheck // fresh agent cannot be started twice
	return a
}

// SpawnTask creates and starts a task Agent. See NewTask.
func SpawnTask[V any](ctx context.Context, fn func(ctx context.Context) (V, error)) *Agent[V] {
	a := NewTask(fn)
	_ = a.Start(ctx) //nolint:errcheck // fresh agent cannot be started twice
	return a
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// Name sets the name used in signals, logs and errors.
// Default: a random UUID. Must be called before Start().
func (a *Agent[V]) Name(name string) *Agent[V] {
	if name != "" {
		a.name = name
	}
	return a
}

// Mailbox sets how many requests may be handed to the loop before senders
// wait for it. Zero makes every hand-off synchronous.
// Default: DefaultMailbox. Must be called before Start().
func (a *Agent[V]) Mailbox(n int) *Agent[V] {
	if n < 0 {
		n = 0
	}
	a.mailboxSize = n
	return a
}

// Clock sets a custom clock for measuring update durations.
// Use this with clockz.FakeClock for deterministic metrics testing.
// Must be called before Start().
func (a *Agent[V]) Clock(clock clockz.Clock) *Agent[V] {
	if clock != nil {
		a.clock = clock
	}
	return a
}

// Metrics sets a metrics provider for observability integration.
// Must be called before Start().
func (a *Agent[V]) Metrics(provider MetricsProvider) *Agent[V] {
	if provider != nil {
		a.metrics = provider
	}
	return a
}

// OnStop sets a callback invoked once the loop has exited. It receives the
// final state (StateStopped or StateFailed). Must be called before Start().
func (a *Agent[V]) OnStop(fn func(State)) *Agent[V] {
	a.onStop = fn
	return a
}

// Supervisor links the agent to s. A failing update is escalated to s,
// and the agent stops when s's context ends. Must be called before Start().
func (a *Agent[V]) Supervisor(s *Supervisor) *Agent[V] {
	a.supervisor = s
	return a
}

// Configure applies a Config. Zero fields leave the current setting alone.
// Must be called before Start().
func (a *Agent[V]) Configure(cfg Config) *Agent[V] {
	a.Name(cfg.Name)
	if cfg.Mailbox != nil {
		a.Mailbox(*cfg.Mailbox)
	}
	return a
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start launches the agent's loop. The loop runs until ctx is canceled,
// Stop is called, the linked Supervisor ends, or an update fails.
//
// Start can only be called once. Subsequent calls return ErrAlreadyStarted.
// An agent stopped before Start never runs: Start returns ErrDeadAgent and
// the agent is left in StateStopped. Linking to a Supervisor whose Wait has
// begun fails with ErrSupervisorWaiting and leaves the agent pending.
func (a *Agent[V]) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.started {
		a.mu.Unlock()
		return ErrAlreadyStarted
	}
	if a.stopped {
		a.started = true
		a.mu.Unlock()
		a.transitionState(ctx, StateStopped)
		close(a.done)
		return deadError(a.name, nil)
	}
	if a.supervisor != nil {
		if err := a.supervisor.link(); err != nil {
			a.mu.Unlock()
			return err
		}
	}
	a.started = true
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	a.mailbox = make(chan request, a.mailboxSize)
	a.mu.Unlock()

	var unlink func() bool
	if a.supervisor != nil {
		unlink = context.AfterFunc(a.supervisor.ctx, cancel)
	}

	capitan.Emit(ctx, AgentStarted,
		KeyAgent.Field(a.name),
	)
	a.transitionState(ctx, StateIdle)

	go a.run(ctx, unlink)
	return nil
}

// Stop requests the agent's loop to exit. An update in flight is abandoned;
// its context is canceled. Subsequent requests return ErrDeadAgent.
// Stop is safe to call more than once. Called before Start, it is recorded
// and the agent never runs.
func (a *Agent[V]) Stop() {
	a.mu.Lock()
	if !a.started {
		a.stopped = true
	}
	cancel := a.cancel
	a.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Done returns a channel that is closed when the agent's loop has exited.
func (a *Agent[V]) Done() <-chan struct{} {
	return a.done
}

// Err returns the failure that terminated the agent, or nil if it is
// running or stopped normally.
func (a *Agent[V]) Err() error {
	select {
	case <-a.done:
		return a.err
	default:
		return nil
	}
}

// State returns the current state of the agent.
func (a *Agent[V]) State() State {
	return State(a.state.Load())
}

// ID returns the agent's name.
func (a *Agent[V]) ID() string {
	return a.name
}

// -----------------------------------------------------------------------------
// Requests
// -----------------------------------------------------------------------------

// Update submits fn to be applied to the agent's value. It returns as soon
// as the loop has accepted the request; it does not wait for fn to run.
//
// Updates are applied one at a time in the order the loop receives them.
// A panic in fn terminates the agent. The only way to observe that is
// through Done, Err, a Supervisor, or ErrDeadAgent on later requests.
func (a *Agent[V]) Update(fn func(V) V) error {
	var u updateFunc[V]
	if fn != nil {
		u = func(_ context.Context, v V) (V, error) {
			return fn(v), nil
		}
	}
	return a.send(context.Background(), updateRequest[V]{fn: u})
}

// UpdateContext is Update for functions that can fail or that need to
// observe agent shutdown. A returned error terminates the agent.
func (a *Agent[V]) UpdateContext(fn func(ctx context.Context, v V) (V, error)) error {
	return a.send(context.Background(), updateRequest[V]{fn: fn})
}

// Value returns the agent's current value. It does not wait for queued or
// in-flight updates.
func (a *Agent[V]) Value(ctx context.Context) (V, error) {
	return Get(ctx, a, func(v V) V { return v })
}

// Wait returns the value once every update submitted before the loop
// received this request has been applied. With nothing outstanding it
// returns the current value immediately.
func (a *Agent[V]) Wait(ctx context.Context) (V, error) {
	req := waitRequest[V]{reply: make(chan reply[V], 1)}
	if err := a.send(ctx, req); err != nil {
		var zero V
		return zero, err
	}
	return await(ctx, a, req.reply)
}

// Get returns extract applied to the agent's current value. The extractor
// runs on the agent's loop and blocks every other request while it runs,
// so it must be cheap. A panicking extractor fails only this call with
// ErrExtractorPanic.
func Get[V, R any](ctx context.Context, a *Agent[V], extract func(V) R) (R, error) {
	var zero R
	req := valueRequest[V]{reply: make(chan reply[any], 1)}
	if extract != nil {
		req.extract = func(v V) any { return extract(v) }
	}
	if err := a.send(ctx, req); err != nil {
		return zero, err
	}
	v, err := await(ctx, a, req.reply)
	if err != nil {
		return zero, err
	}
	r, _ := v.(R)
	return r, nil
}

// send hands req to the loop.
func (a *Agent[V]) send(ctx context.Context, req request) error {
	if a.State() == StatePending {
		return ErrNotStarted
	}
	select {
	case <-a.done:
		return deadError(a.name, a.err)
	default:
	}
	select {
	case a.mailbox <- req:
		return nil
	case <-a.done:
		return deadError(a.name, a.err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// await blocks until the loop replies on ch, the agent dies, or ctx ends.
func await[V, T any](ctx context.Context, a *Agent[V], ch <-chan reply[T]) (T, error) {
	var zero T
	select {
	case r := <-ch:
		return r.value, r.err
	case <-a.done:
		// The loop may have replied just before exiting.
		select {
		case r := <-ch:
			return r.value, r.err
		default:
		}
		return zero, deadError(a.name, a.err)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
