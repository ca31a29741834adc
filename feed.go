package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mudler/xlog"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/pipz"
)

// Identities of the stages every Feed pipeline is built from. They appear in
// the Path of the *pipz.Error handed to WithErrorHandler.
var (
	FeedPipelineID = pipz.NewIdentity("agent:feed", "Feeds watcher payloads into an agent")
	FeedDecodeID   = pipz.NewIdentity("agent:feed:decode", "Decodes a watcher payload with the feed codec")
	FeedSubmitID   = pipz.NewIdentity("agent:feed:submit", "Submits a decoded payload as an agent update")
	FeedFilterID   = pipz.NewIdentity("agent:feed:filter", "Skips payloads rejected by the feed filter")
	FeedLimitID    = pipz.NewIdentity("agent:feed:rate-limit", "Limits the rate of feed submissions")
	FeedHandlerID  = pipz.NewIdentity("agent:feed:error-handler", "Observes feed pipeline failures")
	feedObserverID = pipz.NewIdentity("agent:feed:error-observer", "Forwards feed failures to the caller")
)

// Payload is one watcher emission on its way into an agent.
type Payload[D any] struct {
	// Raw is the emission as received from the watcher.
	Raw []byte

	// Data is Raw decoded by the feed codec.
	Data D
}

// FeedOption configures a Feed.
type FeedOption func(*feedConfig)

type feedConfig struct {
	debounce  time.Duration
	clock     clockz.Clock
	filter    func(any) bool
	rate      float64
	burst     int
	dropOver  bool
	onFailure func(context.Context, error)
}

// Debounce coalesces bursts of emissions. A payload is held until d passes
// with no newer emission, and only the latest payload of a burst is decoded
// and applied. A payload still held when the watcher closes is applied.
// Zero or negative durations apply every emission.
func Debounce(d time.Duration) FeedOption {
	return func(c *feedConfig) {
		c.debounce = d
	}
}

// FeedClock sets the clock used for debouncing and rate limiting.
// Use this with clockz.FakeClock for deterministic testing.
func FeedClock(clock clockz.Clock) FeedOption {
	return func(c *feedConfig) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithFilter submits only decoded payloads for which keep returns true.
// Others are skipped silently. D must match the Feed's payload type;
// payloads of any other type are skipped.
//
// Example:
//
//	agent.WithFilter(func(s Settings) bool { return s.MaxConns > 0 })
func WithFilter[D any](keep func(D) bool) FeedOption {
	return func(c *feedConfig) {
		if keep == nil {
			return
		}
		c.filter = func(v any) bool {
			d, ok := v.(D)
			return ok && keep(d)
		}
	}
}

// WithRateLimit limits submissions to rps per second with the given burst.
// Submissions over the limit wait for capacity.
func WithRateLimit(rps float64, burst int) FeedOption {
	return func(c *feedConfig) {
		c.rate = rps
		c.burst = burst
		c.dropOver = false
	}
}

// WithRateLimitDrop is WithRateLimit but discards submissions over the
// limit instead of waiting. Dropped payloads are signalled with
// FeedPayloadDropped.
func WithRateLimitDrop(rps float64, burst int) FeedOption {
	return func(c *feedConfig) {
		c.rate = rps
		c.burst = burst
		c.dropOver = true
	}
}

// WithErrorHandler observes every payload the pipeline fails on, including
// decode failures. err is a *pipz.Error whose Path names the failing stage;
// errors.Is(err, ErrFeedDecode) identifies decode failures. The handler
// cannot change what Feed does with the failure.
func WithErrorHandler(fn func(ctx context.Context, err error)) FeedOption {
	return func(c *feedConfig) {
		c.onFailure = fn
	}
}

// buildFeedPipeline assembles decode, then filter and rate limit around
// submit, wrapped by the error handler when one is set.
func buildFeedPipeline[V, D any](a *Agent[V], codec Codec, apply func(V, D) V, cfg feedConfig) pipz.Chainable[*Payload[D]] {
	decode := pipz.Apply(FeedDecodeID, func(_ context.Context, p *Payload[D]) (*Payload[D], error) {
		if err := codec.Unmarshal(p.Raw, &p.Data); err != nil {
			return p, fmt.Errorf("%w: %w", ErrFeedDecode, err)
		}
		return p, nil
	})

	var submit pipz.Chainable[*Payload[D]] = pipz.Effect(FeedSubmitID, func(_ context.Context, p *Payload[D]) error {
		d := p.Data
		return a.Update(func(v V) V { return apply(v, d) })
	})

	if cfg.rate > 0 {
		limiter := pipz.NewRateLimiter(FeedLimitID, cfg.rate, cfg.burst, submit).WithClock(cfg.clock)
		if cfg.dropOver {
			limiter = limiter.SetMode("drop")
		}
		submit = limiter
	}

	if cfg.filter != nil {
		keep := cfg.filter
		submit = pipz.NewFilter(FeedFilterID, func(_ context.Context, p *Payload[D]) bool {
			return keep(p.Data)
		}, submit)
	}

	var pipeline pipz.Chainable[*Payload[D]] = pipz.NewSequence(FeedPipelineID, decode, submit)

	if cfg.onFailure != nil {
		observe := cfg.onFailure
		pipeline = pipz.NewHandle(FeedHandlerID, pipeline,
			pipz.Effect(feedObserverID, func(ctx context.Context, e *pipz.Error[*Payload[D]]) error {
				observe(ctx, e)
				return nil
			}),
		)
	}
	return pipeline
}

// Feed drives a from w. Every emission is decoded into a D with codec and
// submitted as an update that folds it into the current value with apply.
// Updates keep the order in which w emitted them.
//
// Emissions pass through a pipz pipeline: decode, then the optional filter
// and rate limit, then submission. A payload that fails to decode is
// logged, signalled with FeedDecodeFailed and skipped; it never reaches the
// agent. A payload dropped by the rate limit is signalled with
// FeedPayloadDropped. Neither stops the feed, and an update is never
// resubmitted.
//
// Feed blocks until the watcher's channel closes (returns nil), ctx ends
// (returns ctx.Err()), or the agent dies (returns an ErrDeadAgent error).
// Run it on its own goroutine for long-lived sources.
//
// Example:
//
//	settings := agent.Spawn(ctx, Settings{})
//	go agent.Feed(ctx, settings, agent.NewFileWatcher(path), agent.CodecFor(path),
//	    func(_ Settings, next Settings) Settings { return next },
//	    agent.Debounce(200*time.Millisecond),
//	    agent.WithFilter(func(s Settings) bool { return s.MaxConns > 0 }),
//	)
func Feed[V, D any](ctx context.Context, a *Agent[V], w Watcher, codec Codec, apply func(V, D) V, opts ...FeedOption) error {
	if apply == nil {
		return fmt.Errorf("feed %s: %w: nil apply function", a.name, ErrMalformedRequest)
	}
	if codec == nil {
		codec = JSONCodec{}
	}
	cfg := feedConfig{clock: clockz.RealClock}
	for _, opt := range opts {
		opt(&cfg)
	}

	pipeline := buildFeedPipeline(a, codec, apply, cfg)
	defer pipeline.Close() //nolint:errcheck // stateless stages

	changes, err := w.Watch(ctx)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	deliver := func(raw []byte) error {
		_, err := pipeline.Process(ctx, &Payload[D]{Raw: raw})
		switch {
		case err == nil:
			return nil

		case errors.Is(err, ErrDeadAgent):
			return deadError(a.name, a.err)

		case errors.Is(err, ErrNotStarted):
			return fmt.Errorf("feed %s: %w", a.name, ErrNotStarted)

		case ctx.Err() != nil:
			return ctx.Err()

		case errors.Is(err, ErrFeedDecode):
			xlog.Warn("feed decode failed", "agent", a.name, "content_type", codec.ContentType(), "error", err)
			capitan.Emit(ctx, FeedDecodeFailed,
				KeyAgent.Field(a.name),
				KeyError.Field(err.Error()),
			)
			return nil

		default:
			xlog.Warn("feed payload dropped", "agent", a.name, "error", err)
			capitan.Emit(ctx, FeedPayloadDropped,
				KeyAgent.Field(a.name),
				KeyError.Field(err.Error()),
			)
			return nil
		}
	}

	var (
		timer      clockz.Timer
		pending    []byte
		hasPending bool
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-a.Done():
			return deadError(a.name, a.err)

		case raw, ok := <-changes:
			if !ok {
				if hasPending {
					return deliver(pending)
				}
				return nil
			}
			if cfg.debounce <= 0 {
				if err := deliver(raw); err != nil {
					return err
				}
				continue
			}

			pending = raw
			hasPending = true

			// Reset or start the debounce timer
			if timer == nil {
				timer = cfg.clock.NewTimer(cfg.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C():
					default:
					}
				}
				timer.Reset(cfg.debounce)
			}

		case <-timerC:
			if hasPending {
				hasPending = false
				if err := deliver(pending); err != nil {
					return err
				}
			}
		}
	}
}
