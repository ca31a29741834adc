// Package testing provides test utilities and helpers for agent testing.
package testing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zoobzio/agent"
)

// DefaultTimeout bounds every blocking helper in this package.
const DefaultTimeout = 2 * time.Second

// WaitFor polls a condition until it returns true or timeout is reached.
// Returns true if the condition was met, false if timeout occurred.
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// WaitForState waits until the agent reaches the expected state or timeout occurs.
func WaitForState[V any](t *testing.T, a *agent.Agent[V], expected agent.State, timeout time.Duration) bool {
	t.Helper()
	return WaitFor(t, timeout, func() bool {
		return a.State() == expected
	})
}

// RequireState fails the test immediately if the agent is not in the expected state.
func RequireState[V any](t *testing.T, a *agent.Agent[V], expected agent.State) {
	t.Helper()
	if got := a.State(); got != expected {
		t.Fatalf("expected state %s, got %s", expected, got)
	}
}

// RequireValue waits for the agent to drain and fails the test unless
// check accepts the resulting value.
func RequireValue[V any](t *testing.T, a *agent.Agent[V], check func(V) bool) V {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	v, err := a.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if !check(v) {
		t.Fatalf("value check failed: %+v", v)
	}
	return v
}

// RequireDead fails the test unless the agent has terminated and rejects
// requests with agent.ErrDeadAgent. It returns the error from Value.
func RequireDead[V any](t *testing.T, a *agent.Agent[V]) error {
	t.Helper()
	select {
	case <-a.Done():
	case <-time.After(DefaultTimeout):
		t.Fatal("agent did not terminate")
	}

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTimeout)
	defer cancel()

	_, err := a.Value(ctx)
	if !errors.Is(err, agent.ErrDeadAgent) {
		t.Fatalf("expected ErrDeadAgent, got %v", err)
	}
	return err
}

// NewTestAgent starts an agent holding initial and stops it when the test ends.
func NewTestAgent[V any](t *testing.T, initial V) *agent.Agent[V] {
	t.Helper()
	a := agent.New(initial).Name(t.Name())
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(a.Stop)
	return a
}

// Gate blocks updates until it is opened. Use it to hold an agent in the
// updating state while a test issues reads and waits.
type Gate struct {
	entered chan struct{}
	open    chan struct{}
}

// NewGate creates a closed Gate.
func NewGate() *Gate {
	return &Gate{
		entered: make(chan struct{}, 64),
		open:    make(chan struct{}),
	}
}

// Hold returns an update that blocks until the gate opens, then applies fn.
func Hold[V any](g *Gate, fn func(V) V) func(V) V {
	return func(v V) V {
		g.entered <- struct{}{}
		<-g.open
		return fn(v)
	}
}

// Entered blocks until a held update has started running.
func (g *Gate) Entered(t *testing.T) {
	t.Helper()
	select {
	case <-g.entered:
	case <-time.After(DefaultTimeout):
		t.Fatal("held update never started")
	}
}

// Open releases every held update.
func (g *Gate) Open() {
	close(g.open)
}
