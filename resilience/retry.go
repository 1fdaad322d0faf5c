package resilience

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// BackoffFunc computes the delay before the given retry attempt (1-based:
// attempt 1 is the delay before the first retry, after the initial call
// failed).
type BackoffFunc func(attempt int) time.Duration

// Fixed returns a BackoffFunc that always waits d, built on
// backoff.ConstantBackOff.
func Fixed(d time.Duration) BackoffFunc {
	b := backoff.NewConstantBackOff(d)
	return func(attempt int) time.Duration {
		return b.NextBackOff()
	}
}

// Exponential returns a BackoffFunc that grows the delay by multiplier on
// every attempt, capped at max, with no randomization. Built on
// backoff.ExponentialBackOff.
func Exponential(initial, max time.Duration, multiplier float64) BackoffFunc {
	return exponentialBackoff(initial, max, multiplier, 0)
}

// ExponentialJitter is Exponential with +/-50% randomization applied to
// every computed delay, to avoid synchronized retry storms across callers.
func ExponentialJitter(initial, max time.Duration, multiplier float64) BackoffFunc {
	return exponentialBackoff(initial, max, multiplier, backoff.DefaultRandomizationFactor)
}

func exponentialBackoff(initial, max time.Duration, multiplier, randomization float64) BackoffFunc {
	return func(attempt int) time.Duration {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initial
		b.MaxInterval = max
		b.Multiplier = multiplier
		b.RandomizationFactor = randomization

		var d time.Duration
		for i := 0; i < attempt; i++ {
			d = b.NextBackOff()
		}
		return d
	}
}

// RetryEvent is emitted on every attempt outcome.
type RetryEvent struct {
	EventMeta

	// Kind is one of "retry", "success", "error", "ignored_error".
	// "ignored_error" marks an error that RetryIf declined to retry.
	Kind string

	Attempt int
	Err     error
	Delay   time.Duration
}

// RetryConfig configures the retry behavior.
type RetryConfig struct {
	// Name identifies this retry instance in events/telemetry.
	Name string

	// MaxAttempts is the maximum number of attempts (including initial).
	// Default: 3
	MaxAttempts int

	// Backoff computes the delay before each retry attempt.
	// Default: ExponentialJitter(100ms, 30s, 2.0)
	Backoff BackoffFunc

	// RetryIf determines if an error should trigger a retry.
	// Default: all non-nil errors trigger retry.
	RetryIf func(err error) bool

	// OnRetry is called before each retry attempt, in addition to any
	// registered RetryEvent listeners. Kept as a plain callback field for
	// drop-in parity with single-callback retry usage.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Retry implements retry with backoff.
type Retry struct {
	config RetryConfig
	events ListenerSet[RetryEvent]
}

// NewRetry creates a new retry handler.
func NewRetry(config RetryConfig) *Retry {
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.Backoff == nil {
		config.Backoff = ExponentialJitter(100*time.Millisecond, 30*time.Second, 2.0)
	}
	if config.RetryIf == nil {
		config.RetryIf = func(err error) bool { return err != nil }
	}

	return &Retry{config: config}
}

// OnEvent registers a listener for retry events.
func (r *Retry) OnEvent(l Listener[RetryEvent]) {
	r.events.Add(l)
}

// Execute runs the operation with retry logic.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		err := op(ctx)

		if err == nil {
			r.events.Emit(RetryEvent{EventMeta: newEventMeta(r.config.Name), Kind: "success", Attempt: attempt})
			return nil
		}

		lastErr = err

		if !r.config.RetryIf(err) {
			r.events.Emit(RetryEvent{EventMeta: newEventMeta(r.config.Name), Kind: "ignored_error", Attempt: attempt, Err: err})
			return err
		}

		if attempt >= r.config.MaxAttempts {
			break
		}

		delay := r.config.Backoff(attempt)

		r.events.Emit(RetryEvent{EventMeta: newEventMeta(r.config.Name), Kind: "retry", Attempt: attempt, Err: err, Delay: delay})
		if r.config.OnRetry != nil {
			r.config.OnRetry(attempt, err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	r.events.Emit(RetryEvent{EventMeta: newEventMeta(r.config.Name), Kind: "error", Attempt: r.config.MaxAttempts, Err: lastErr})
	return lastErr
}

// Config returns the retry configuration.
func (r *Retry) Config() RetryConfig {
	return r.config
}
