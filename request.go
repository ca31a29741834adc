package agent

import (
	"context"
	"time"
)

// updateFunc is the normalized form of every update submitted to an agent.
type updateFunc[V any] func(ctx context.Context, v V) (V, error)

// request is an item in an agent's mailbox. Each request that expects an
// answer carries its own reply channel, buffered so the loop never blocks
// on a caller that has gone away.
type request interface {
	kind() string
}

// reply carries a result back to a single caller.
type reply[T any] struct {
	value T
	err   error
}

type updateRequest[V any] struct {
	fn updateFunc[V]
}

func (updateRequest[V]) kind() string { return "update" }

type valueRequest[V any] struct {
	extract func(V) any
	reply   chan reply[any]
}

func (valueRequest[V]) kind() string { return "value" }

type waitRequest[V any] struct {
	reply chan reply[V]
}

func (waitRequest[V]) kind() string { return "wait" }

// outcome is what an executor reports back to the loop.
type outcome[V any] struct {
	seq     uint64
	value   V
	err     error
	elapsed time.Duration
}
