package integration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zoobzio/agent"
	agenttest "github.com/zoobzio/agent/testing"
)

func TestSupervision_FailureCancelsGroup(t *testing.T) {
	ctx := testContext(t)
	sup := agent.NewSupervisor(ctx).ErrorHistorySize(4)

	workers := make([]*agent.Agent[int], 5)
	for i := range workers {
		workers[i] = agent.New(i).Supervisor(sup)
		require.NoError(t, workers[i].Start(sup.Context()))
	}

	for _, w := range workers {
		require.NoError(t, w.Update(func(n int) int { return n * 10 }))
	}
	for i, w := range workers {
		v, err := w.Wait(ctx)
		require.NoError(t, err)
		require.Equal(t, i*10, v)
	}

	quota := errors.New("quota exceeded")
	require.NoError(t, workers[2].UpdateContext(func(_ context.Context, n int) (int, error) {
		return n, quota
	}))

	err := sup.Wait()
	require.ErrorIs(t, err, quota)
	require.ErrorIs(t, context.Cause(sup.Context()), quota)

	for i, w := range workers {
		<-w.Done()
		if i == 2 {
			agenttest.RequireState(t, w, agent.StateFailed)
			continue
		}
		agenttest.RequireState(t, w, agent.StateStopped)
		require.NoError(t, w.Err())
	}

	failures := sup.Failures()
	require.Len(t, failures, 1)
	require.Equal(t, workers[2].ID(), failures[0].Agent)
}

func TestSupervision_ConcurrentProducersAndWaiters(t *testing.T) {
	ctx := testContext(t)
	a := agenttest.NewTestAgent(t, 0)

	const producers, perProducer = 8, 250
	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				_ = a.Update(func(n int) int { return n + 1 })
			}
		}()
	}

	waitErrs := make(chan error, producers)
	for w := 0; w < producers; w++ {
		go func() {
			_, err := a.Wait(ctx)
			waitErrs <- err
		}()
	}

	wg.Wait()
	for w := 0; w < producers; w++ {
		require.NoError(t, <-waitErrs)
	}

	agenttest.RequireValue(t, a, func(n int) bool { return n == producers*perProducer })
}
