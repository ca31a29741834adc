package agent

import "context"

// Watcher observes an external source and emits raw bytes on a channel.
// Feed turns every emission into an update.
type Watcher interface {
	// Watch begins observing the source and returns a channel that emits
	// raw bytes when changes occur. The channel is closed when the context
	// is canceled or the source ends.
	Watch(ctx context.Context) (<-chan []byte, error)
}
