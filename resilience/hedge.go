package resilience

import (
	"context"
	"sync/atomic"
	"time"
)

// HedgeEvent is emitted as hedged attempts start and resolve.
type HedgeEvent struct {
	EventMeta

	// Kind is one of "primary_started", "primary_succeeded",
	// "hedge_started", "hedge_succeeded", "all_failed".
	Kind string

	// Attempt is 0 for the primary call, 1..MaxHedgedAttempts-1 for hedges.
	Attempt int
}

// HedgeConfig configures the hedger.
type HedgeConfig struct {
	// Name identifies this hedger instance in events/telemetry.
	Name string

	// MaxHedgedAttempts is the total number of copies of the call that may
	// run, including the primary. A value of 1 disables hedging (the
	// primary runs alone); 2 allows one hedge alongside the primary, and
	// so on.
	// Default: 2
	MaxHedgedAttempts int

	// Delay computes how long to wait, after the primary started, before
	// launching hedge attempt N. Attempt 1's delay is measured from the
	// primary's start; later attempts are staggered from there.
	// Default: Fixed(50ms)
	Delay BackoffFunc
}

// Hedger runs extra, concurrent copies of an idempotent call after a
// delay, racing them against the original and taking the first success.
// Losing attempts' context is cancelled once a winner is claimed, but
// Execute does not wait for them to unwind.
type Hedger struct {
	config HedgeConfig
	events ListenerSet[HedgeEvent]
}

// NewHedger creates a new hedger.
func NewHedger(config HedgeConfig) *Hedger {
	if config.MaxHedgedAttempts <= 0 {
		config.MaxHedgedAttempts = 2
	}
	if config.Delay == nil {
		config.Delay = Fixed(50 * time.Millisecond)
	}

	return &Hedger{config: config}
}

// OnEvent registers a listener for hedge events.
func (h *Hedger) OnEvent(l Listener[HedgeEvent]) {
	h.events.Add(l)
}

// Name returns this hedger's configured instance name.
func (h *Hedger) Name() string {
	return h.config.Name
}

// Execute runs op as the primary attempt and, if it hasn't completed by
// the scheduled delays, launches concurrent retries of op until
// MaxHedgedAttempts total copies (primary included) are in flight. op
// must be idempotent: it may run more than once concurrently. The first
// attempt to succeed wins; its error (nil) is returned and the rest are
// cancelled in the background.
func (h *Hedger) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	total := h.config.MaxHedgedAttempts
	type attemptResult struct {
		attempt int
		err     error
	}
	resultCh := make(chan attemptResult, total)
	var claimed atomic.Bool

	runAttempt := func(attempt int) {
		if attempt == 0 {
			h.events.Emit(HedgeEvent{EventMeta: newEventMeta(h.config.Name), Kind: "primary_started"})
		} else {
			h.events.Emit(HedgeEvent{EventMeta: newEventMeta(h.config.Name), Kind: "hedge_started", Attempt: attempt})
		}
		resultCh <- attemptResult{attempt: attempt, err: op(ctx)}
	}

	go runAttempt(0)

	go func() {
		for attempt := 1; attempt < total; attempt++ {
			timer := time.NewTimer(h.config.Delay(attempt))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			if claimed.Load() {
				return
			}
			go runAttempt(attempt)
		}
	}()

	var lastErr error
	for i := 0; i < total; i++ {
		select {
		case r := <-resultCh:
			if r.err == nil {
				if claimed.CompareAndSwap(false, true) {
					kind := "hedge_succeeded"
					if r.attempt == 0 {
						kind = "primary_succeeded"
					}
					h.events.Emit(HedgeEvent{EventMeta: newEventMeta(h.config.Name), Kind: kind, Attempt: r.attempt})
					cancel()
				}
				return nil
			}
			lastErr = r.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	h.events.Emit(HedgeEvent{EventMeta: newEventMeta(h.config.Name), Kind: "all_failed"})
	if lastErr != nil {
		return lastErr
	}
	return ErrMaxAttemptsExceeded
}
