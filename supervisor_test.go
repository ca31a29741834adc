package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func TestSupervisor_FailureStopsSiblings(t *testing.T) {
	ctx := testContext(t)
	sup := NewSupervisor(ctx).ErrorHistorySize(4)

	healthy := New("steady").Name("healthy").Supervisor(sup)
	failing := New(0).Name("failing").Supervisor(sup)
	_ = healthy.Start(sup.Context())
	_ = failing.Start(sup.Context())

	boom := errors.New("boom")
	_ = failing.UpdateContext(func(context.Context, int) (int, error) { return 0, boom })

	err := sup.Wait()
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom from Wait, got %v", err)
	}

	if healthy.State() != StateStopped {
		t.Errorf("expected sibling stopped, got %s", healthy.State())
	}
	if healthy.Err() != nil {
		t.Errorf("expected sibling to stop cleanly, got %v", healthy.Err())
	}
	if failing.State() != StateFailed {
		t.Errorf("expected failing agent failed, got %s", failing.State())
	}

	failures := sup.Failures()
	if len(failures) != 1 {
		t.Fatalf("expected 1 recorded failure, got %d", len(failures))
	}
	if failures[0].Agent != "failing" {
		t.Errorf("expected failure from 'failing', got %q", failures[0].Agent)
	}
	if !errors.Is(failures[0].Err, boom) {
		t.Errorf("expected recorded boom, got %v", failures[0].Err)
	}
}

func TestSupervisor_StopEndsAgentsCleanly(t *testing.T) {
	ctx := testContext(t)
	sup := NewSupervisor(ctx)

	a := New(1).Supervisor(sup)
	b := New(2).Supervisor(sup)
	_ = a.Start(ctx)
	_ = b.Start(ctx)

	sup.Stop()

	if err := sup.Wait(); err != nil {
		t.Errorf("expected nil from Wait, got %v", err)
	}
	for _, s := range []State{a.State(), b.State()} {
		if s != StateStopped {
			t.Errorf("expected stopped, got %s", s)
		}
	}
	if sup.Err() != nil {
		t.Errorf("expected nil Err, got %v", sup.Err())
	}
}

func TestSupervisor_NoHistoryByDefault(t *testing.T) {
	ctx := testContext(t)
	sup := NewSupervisor(ctx)

	a := New(0).Supervisor(sup)
	_ = a.Start(ctx)
	_ = a.Update(func(int) int { panic("no") })

	if err := sup.Wait(); err == nil {
		t.Fatal("expected failure from Wait")
	}
	if sup.Failures() != nil {
		t.Error("expected nil failures without history")
	}
}

func TestSupervisor_FailureTimestamp(t *testing.T) {
	ctx := testContext(t)
	clock := clockz.NewFakeClock()
	sup := NewSupervisor(ctx).Clock(clock).Configure(SupervisorConfig{ErrorHistory: 2})

	a := New(0).Supervisor(sup)
	_ = a.Start(ctx)
	_ = a.Update(func(int) int { panic("no") })
	_ = sup.Wait()

	failures := sup.Failures()
	if len(failures) != 1 {
		t.Fatalf("expected 1 failure, got %d", len(failures))
	}
	if !failures[0].At.Equal(clock.Now()) {
		t.Errorf("expected timestamp %s, got %s", clock.Now(), failures[0].At)
	}
}

func TestSupervisor_ParentContextCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	sup := NewSupervisor(parent)

	a := New(0).Supervisor(sup)
	_ = a.Start(context.Background())

	cancel()

	done := make(chan error, 1)
	go func() { done <- sup.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop linked agent")
	}
}

func TestSupervisor_LinkAfterWaitRejected(t *testing.T) {
	ctx := testContext(t)
	sup := NewSupervisor(ctx)

	first := New(0).Supervisor(sup)
	if err := first.Start(sup.Context()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- sup.Wait() }()

	late := New(0).Supervisor(sup)
	waitUntil(t, time.Second, func() bool {
		sup.mu.Lock()
		defer sup.mu.Unlock()
		return sup.waiting
	})

	if err := late.Start(sup.Context()); !errors.Is(err, ErrSupervisorWaiting) {
		t.Fatalf("expected ErrSupervisorWaiting, got %v", err)
	}
	if late.State() != StatePending {
		t.Errorf("expected rejected agent to stay pending, got %s", late.State())
	}

	first.Stop()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after linked agent stopped")
	}
}
