package benchmarks

import (
	"context"
	"testing"

	"github.com/zoobzio/agent"
)

func BenchmarkAgent_Update(b *testing.B) {
	ctx := context.Background()
	a := agent.Spawn(ctx, 0)
	defer a.Stop()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = a.Update(func(n int) int { return n + 1 })
	}
	if _, err := a.Wait(ctx); err != nil {
		b.Fatalf("Wait() error = %v", err)
	}
}

func BenchmarkAgent_UpdateWait(b *testing.B) {
	ctx := context.Background()
	a := agent.Spawn(ctx, 0)
	defer a.Stop()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = a.Update(func(n int) int { return n + 1 })
		if _, err := a.Wait(ctx); err != nil {
			b.Fatalf("Wait() error = %v", err)
		}
	}
}

func BenchmarkAgent_Value(b *testing.B) {
	ctx := context.Background()
	a := agent.Spawn(ctx, 42)
	defer a.Stop()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := a.Value(ctx); err != nil {
			b.Fatalf("Value() error = %v", err)
		}
	}
}

func BenchmarkAgent_ValueParallel(b *testing.B) {
	ctx := context.Background()
	a := agent.Spawn(ctx, 42)
	defer a.Stop()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = a.Value(ctx)
		}
	})
}

func BenchmarkAgent_Get(b *testing.B) {
	type record struct {
		ID    int
		Label string
		Tags  []string
	}
	ctx := context.Background()
	a := agent.Spawn(ctx, record{ID: 7, Label: "seven", Tags: []string{"a", "b"}})
	defer a.Stop()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := agent.Get(ctx, a, func(r record) int { return r.ID }); err != nil {
			b.Fatalf("Get() error = %v", err)
		}
	}
}

func BenchmarkTask(b *testing.B) {
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		task := agent.SpawnTask(ctx, func(context.Context) (int, error) { return i, nil })
		if _, err := task.Wait(ctx); err != nil {
			b.Fatalf("Wait() error = %v", err)
		}
		task.Stop()
	}
}

func BenchmarkFeed_Channel(b *testing.B) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	payloads := make(chan []byte, b.N)
	for i := 0; i < b.N; i++ {
		payloads <- []byte(`{"add": 1}`)
	}
	close(payloads)

	type delta struct {
		Add int `json:"add"`
	}
	a := agent.Spawn(ctx, 0)
	defer a.Stop()

	b.ResetTimer()
	err := agent.Feed(ctx, a, agent.NewSyncChannelWatcher(payloads), agent.JSONCodec{},
		func(n int, d delta) int { return n + d.Add })
	if err != nil {
		b.Fatalf("Feed() error = %v", err)
	}
	if _, err := a.Wait(ctx); err != nil {
		b.Fatalf("Wait() error = %v", err)
	}
}
