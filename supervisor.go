package agent

import (
	"context"
	"sync"

	"github.com/mudler/xlog"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
)

// Supervisor links a creator to the agents it starts. The first update
// failure among linked agents cancels the supervisor's context with that
// failure as its cause, which in turn stops every other linked agent.
//
// Every linked agent must be started before Wait is called. Once Wait has
// begun, Start on a newly linked agent returns ErrSupervisorWaiting.
//
// Example:
//
//	sup := agent.NewSupervisor(ctx)
//	cache := agent.New(map[string]int{}).Supervisor(sup)
//	_ = cache.Start(sup.Context())
//	...
//	if err := sup.Wait(); err != nil {
//	    // an agent failed; err is its *UpdateError
//	}
type Supervisor struct {
	ctx     context.Context
	cancel  context.CancelCauseFunc
	clock   clockz.Clock
	history *failureLog
	wg      sync.WaitGroup

	mu      sync.Mutex
	err     error
	waiting bool
}

// NewSupervisor creates a Supervisor whose context derives from ctx.
func NewSupervisor(ctx context.Context) *Supervisor {
	ctx, cancel := context.WithCancelCause(ctx)
	return &Supervisor{
		ctx:    ctx,
		cancel: cancel,
		clock:  clockz.RealClock,
	}
}

// ErrorHistorySize sets the number of escalated failures to retain.
// Use 0 (default) to only retain the first failure via Err().
// Must be called before any agent is linked.
func (s *Supervisor) ErrorHistorySize(n int) *Supervisor {
	s.history = newFailureLog(n)
	return s
}

// Clock sets the clock used to timestamp failures.
// Must be called before any agent is linked.
func (s *Supervisor) Clock(clock clockz.Clock) *Supervisor {
	if clock != nil {
		s.clock = clock
	}
	return s
}

// Configure applies a SupervisorConfig. Must be called before any agent is linked.
func (s *Supervisor) Configure(cfg SupervisorConfig) *Supervisor {
	return s.ErrorHistorySize(cfg.ErrorHistory)
}

// Context returns the supervisor's context. It is canceled when a linked
// agent fails (context.Cause returns the failure) or when Stop is called.
func (s *Supervisor) Context() context.Context {
	return s.ctx
}

// Err returns the first escalated failure, or nil.
func (s *Supervisor) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Failures returns the recent escalated failures, oldest first.
// Returns nil if error history is not enabled (see ErrorHistorySize).
func (s *Supervisor) Failures() []Failure {
	return s.history.snapshot()
}

// Stop cancels the supervisor's context, stopping every linked agent.
func (s *Supervisor) Stop() {
	s.cancel(nil)
}

// Wait blocks until every linked agent has exited and returns the first
// escalated failure, if any. No agent can be linked once Wait has begun.
func (s *Supervisor) Wait() error {
	s.mu.Lock()
	s.waiting = true
	s.mu.Unlock()

	s.wg.Wait()
	return s.Err()
}

// link registers a starting agent.
func (s *Supervisor) link() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.waiting {
		return ErrSupervisorWaiting
	}
	s.wg.Add(1)
	return nil
}

func (s *Supervisor) unlink() {
	s.wg.Done()
}

// escalate records a linked agent's failure and tears down its siblings.
func (s *Supervisor) escalate(ctx context.Context, name string, err error) {
	s.mu.Lock()
	first := s.err == nil
	if first {
		s.err = err
	}
	s.mu.Unlock()

	s.history.record(Failure{Agent: name, Err: err, At: s.clock.Now()})

	capitan.Emit(ctx, SupervisorEscalated,
		KeyAgent.Field(name),
		KeyError.Field(err.Error()),
	)
	xlog.Error("supervisor received agent failure", "agent", name, "error", err, "first", first)

	s.cancel(err)
}
