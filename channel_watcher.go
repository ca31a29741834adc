package agent

import "context"

// ChannelWatcher adapts an existing byte channel to Watcher.
// Useful for tests and for sources that already produce bytes.
type ChannelWatcher struct {
	ch     <-chan []byte
	direct bool
}

// NewChannelWatcher creates a ChannelWatcher that relays values from ch
// through its own goroutine, stopping when the Watch context ends.
func NewChannelWatcher(ch <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{ch: ch}
}

// NewSyncChannelWatcher creates a ChannelWatcher that hands ch back
// unchanged. The Watch context is ignored; the feed ends when ch is closed.
func NewSyncChannelWatcher(ch <-chan []byte) *ChannelWatcher {
	return &ChannelWatcher{ch: ch, direct: true}
}

// Watch returns a channel that emits values from the wrapped channel.
func (w *ChannelWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	if w.direct {
		return w.ch, nil
	}

	out := make(chan []byte)
	go func() {
		defer close(out)
		for {
			var (
				v  []byte
				ok bool
			)
			select {
			case <-ctx.Done():
				return
			case v, ok = <-w.ch:
				if !ok {
					return
				}
			}
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
