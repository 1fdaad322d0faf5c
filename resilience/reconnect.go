package resilience

import (
	"context"
	"time"
)

// ReconnectEvent is emitted on every connect attempt and its outcome.
type ReconnectEvent struct {
	EventMeta

	// Kind is one of "connecting", "connected", "failed", "give_up".
	Kind    string
	Attempt int
	Err     error
}

// ReconnectConfig configures the reconnect loop.
type ReconnectConfig struct {
	// Name identifies this reconnect instance in events/telemetry.
	Name string

	// Backoff computes the delay before each connect attempt after the
	// first.
	// Default: ExponentialJitter(100ms, 30s, 2.0)
	Backoff BackoffFunc

	// MaxAttempts bounds how many attempts are made before giving up.
	// Zero means retry indefinitely until ctx is done.
	MaxAttempts int
}

// Reconnect repeatedly invokes a connect function until it succeeds, ctx
// is cancelled, or MaxAttempts is exhausted, backing off between
// attempts.
type Reconnect struct {
	config ReconnectConfig
	events ListenerSet[ReconnectEvent]
}

// NewReconnect creates a new reconnect loop.
func NewReconnect(config ReconnectConfig) *Reconnect {
	if config.Backoff == nil {
		config.Backoff = ExponentialJitter(100*time.Millisecond, 30*time.Second, 2.0)
	}
	return &Reconnect{config: config}
}

// OnEvent registers a listener for reconnect events.
func (r *Reconnect) OnEvent(l Listener[ReconnectEvent]) {
	r.events.Add(l)
}

// Run drives the reconnect loop, calling connect until it returns nil,
// ctx is done, or MaxAttempts is reached.
func (r *Reconnect) Run(ctx context.Context, connect func(context.Context) error) error {
	attempt := 0
	for {
		attempt++
		r.events.Emit(ReconnectEvent{EventMeta: newEventMeta(r.config.Name), Kind: "connecting", Attempt: attempt})

		err := connect(ctx)
		if err == nil {
			r.events.Emit(ReconnectEvent{EventMeta: newEventMeta(r.config.Name), Kind: "connected", Attempt: attempt})
			return nil
		}

		r.events.Emit(ReconnectEvent{EventMeta: newEventMeta(r.config.Name), Kind: "failed", Attempt: attempt, Err: err})

		if r.config.MaxAttempts > 0 && attempt >= r.config.MaxAttempts {
			r.events.Emit(ReconnectEvent{EventMeta: newEventMeta(r.config.Name), Kind: "give_up", Attempt: attempt, Err: err})
			return ErrMaxAttemptsExceeded
		}

		delay := r.config.Backoff(attempt)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
