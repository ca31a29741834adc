package agent

import (
	"context"
	"fmt"
	"sync"
)

// MergedWatcher fans several watchers into one channel. Emissions from a
// single source keep their order; emissions from different sources
// interleave in arrival order.
type MergedWatcher struct {
	sources []Watcher
}

// MergeWatchers creates a Watcher over every source.
//
// Example:
//
//	defaults := agent.NewFileWatcher("/etc/app/defaults.json")
//	overrides := agent.NewFileWatcher("/etc/app/overrides.json")
//	go agent.Feed(ctx, settings, agent.MergeWatchers(defaults, overrides), agent.JSONCodec{}, overlay)
func MergeWatchers(sources ...Watcher) *MergedWatcher {
	return &MergedWatcher{sources: sources}
}

// Watch starts every source. If any source fails to start, the ones already
// started are canceled and the error is returned. The merged channel closes
// once every source channel has closed or ctx ends.
func (m *MergedWatcher) Watch(ctx context.Context) (<-chan []byte, error) {
	ctx, cancel := context.WithCancel(ctx)

	chans := make([]<-chan []byte, 0, len(m.sources))
	for i, w := range m.sources {
		ch, err := w.Watch(ctx)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
		chans = append(chans, ch)
	}

	out := make(chan []byte)
	var wg sync.WaitGroup
	wg.Add(len(chans))

	for _, ch := range chans {
		go func(ch <-chan []byte) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case raw, ok := <-ch:
					if !ok {
						return
					}
					select {
					case out <- raw:
					case <-ctx.Done():
						return
					}
				}
			}
		}(ch)
	}

	go func() {
		wg.Wait()
		cancel()
		close(out)
	}()

	return out, nil
}
