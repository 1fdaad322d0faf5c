package resilience

import (
	"context"
	"sync"
	"time"
)

// RateLimiterAlgorithm selects the window accounting strategy.
type RateLimiterAlgorithm int

const (
	// AlgoFixedWindow resets a single counter every RefreshPeriod.
	AlgoFixedWindow RateLimiterAlgorithm = iota
	// AlgoSlidingLog keeps every admitted request's timestamp and evicts
	// entries older than RefreshPeriod on each acquire.
	AlgoSlidingLog
	// AlgoSlidingCounter interpolates between the previous and current
	// fixed buckets, admitting at most LimitForPeriod+1 in the worst case.
	AlgoSlidingCounter
)

// RateLimiterEvent is emitted on every admission decision and on window
// refresh/rollover.
type RateLimiterEvent struct {
	EventMeta

	// Kind is one of "acquired", "rejected", "refreshed".
	Kind string

	// Wait is the duration the caller waited before being admitted
	// (Kind == "acquired" after a wait) or the timeout duration that was
	// exceeded (Kind == "rejected").
	Wait time.Duration
}

// RateLimiterConfig configures the rate limiter.
type RateLimiterConfig struct {
	// Name identifies this limiter instance in events/telemetry.
	Name string

	// Algorithm selects the window accounting strategy.
	// Default: AlgoFixedWindow
	Algorithm RateLimiterAlgorithm

	// LimitForPeriod is the number of permits granted per RefreshPeriod.
	// Default: 100
	LimitForPeriod int

	// RefreshPeriod is the window length.
	// Default: 1 second
	RefreshPeriod time.Duration

	// TimeoutDuration bounds how long Acquire/Execute will wait for a
	// permit before rejecting. Zero means reject immediately on
	// contention rather than waiting.
	TimeoutDuration time.Duration
}

func (c *RateLimiterConfig) applyDefaults() {
	if c.LimitForPeriod <= 0 {
		c.LimitForPeriod = 100
	}
	if c.RefreshPeriod <= 0 {
		c.RefreshPeriod = time.Second
	}
}

// RateLimiter admits calls under one of three window algorithms (fixed
// window, sliding log, sliding counter), with a bounded permit wait.
// State is guarded by a single short critical section per admit, per
// spec's shared-resource discipline.
type RateLimiter struct {
	config RateLimiterConfig

	mu sync.Mutex

	// fixed window state
	fixedCount int
	fixedStart time.Time

	// sliding log state
	logTimestamps []time.Time

	// sliding counter state
	prevCount  int
	currCount  int
	bucketFrom time.Time

	events ListenerSet[RateLimiterEvent]
}

// NewRateLimiter creates a new rate limiter.
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	config.applyDefaults()
	now := time.Now()
	return &RateLimiter{
		config:     config,
		fixedStart: now,
		bucketFrom: now,
	}
}

// OnEvent registers a listener for rate limiter events.
func (rl *RateLimiter) OnEvent(l Listener[RateLimiterEvent]) {
	rl.events.Add(l)
}

// Name returns this limiter's configured instance name.
func (rl *RateLimiter) Name() string {
	return rl.config.Name
}

// Allow reports whether a single request is admitted right now, without
// waiting.
func (rl *RateLimiter) Allow() bool {
	admitted, _ := rl.tryAcquire(time.Now())
	kind := "acquired"
	if !admitted {
		kind = "rejected"
	}
	rl.events.Emit(RateLimiterEvent{EventMeta: newEventMeta(rl.config.Name), Kind: kind})
	return admitted
}

// Wait blocks until a permit is available or ctx is cancelled. It returns
// ErrRateLimitExceeded without waiting when TimeoutDuration is zero or
// the next permit is not due within the remaining TimeoutDuration.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	waited := time.Duration(0)
	for {
		admitted, until := rl.tryAcquire(time.Now())
		if admitted {
			rl.events.Emit(RateLimiterEvent{EventMeta: newEventMeta(rl.config.Name), Kind: "acquired", Wait: waited})
			return nil
		}

		if until <= 0 {
			until = time.Millisecond
		}
		if rl.config.TimeoutDuration <= 0 || until > rl.config.TimeoutDuration-waited {
			rl.events.Emit(RateLimiterEvent{EventMeta: newEventMeta(rl.config.Name), Kind: "rejected", Wait: rl.config.TimeoutDuration})
			return ErrRateLimitExceeded
		}

		timer := time.NewTimer(until)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			waited += until
		}
	}
}

// Execute runs the operation if a permit is available. If
// TimeoutDuration > 0 it waits for a permit up to that bound; otherwise
// it rejects immediately on contention.
func (rl *RateLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if rl.config.TimeoutDuration > 0 {
		if err := rl.Wait(ctx); err != nil {
			return err
		}
	} else if !rl.Allow() {
		return ErrRateLimitExceeded
	}

	return op(ctx)
}

// tryAcquire attempts to admit one request under the configured
// algorithm. On rejection it also returns how long the caller would need
// to wait for the next opportunity.
func (rl *RateLimiter) tryAcquire(now time.Time) (admitted bool, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	switch rl.config.Algorithm {
	case AlgoSlidingLog:
		return rl.tryAcquireSlidingLogLocked(now)
	case AlgoSlidingCounter:
		return rl.tryAcquireSlidingCounterLocked(now)
	default:
		return rl.tryAcquireFixedWindowLocked(now)
	}
}

func (rl *RateLimiter) tryAcquireFixedWindowLocked(now time.Time) (bool, time.Duration) {
	if now.Sub(rl.fixedStart) >= rl.config.RefreshPeriod {
		rl.fixedCount = 0
		rl.fixedStart = now
		rl.events.Emit(RateLimiterEvent{EventMeta: newEventMeta(rl.config.Name), Kind: "refreshed"})
	}

	if rl.fixedCount < rl.config.LimitForPeriod {
		rl.fixedCount++
		return true, 0
	}

	return false, rl.config.RefreshPeriod - now.Sub(rl.fixedStart)
}

func (rl *RateLimiter) tryAcquireSlidingLogLocked(now time.Time) (bool, time.Duration) {
	cutoff := now.Add(-rl.config.RefreshPeriod)
	i := 0
	for i < len(rl.logTimestamps) && !rl.logTimestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		rl.logTimestamps = append(rl.logTimestamps[:0], rl.logTimestamps[i:]...)
	}

	if len(rl.logTimestamps) < rl.config.LimitForPeriod {
		rl.logTimestamps = append(rl.logTimestamps, now)
		return true, 0
	}

	oldest := rl.logTimestamps[0]
	return false, oldest.Add(rl.config.RefreshPeriod).Sub(now)
}

func (rl *RateLimiter) tryAcquireSlidingCounterLocked(now time.Time) (bool, time.Duration) {
	elapsed := now.Sub(rl.bucketFrom)
	if elapsed >= rl.config.RefreshPeriod {
		shifts := int(elapsed / rl.config.RefreshPeriod)
		if shifts == 1 {
			rl.prevCount = rl.currCount
		} else {
			rl.prevCount = 0
		}
		rl.currCount = 0
		rl.bucketFrom = rl.bucketFrom.Add(rl.config.RefreshPeriod * time.Duration(shifts))
		elapsed = now.Sub(rl.bucketFrom)
		rl.events.Emit(RateLimiterEvent{EventMeta: newEventMeta(rl.config.Name), Kind: "refreshed"})
	}

	frac := elapsed.Seconds() / rl.config.RefreshPeriod.Seconds()
	weighted := float64(rl.prevCount)*(1-frac) + float64(rl.currCount)

	if weighted < float64(rl.config.LimitForPeriod) {
		rl.currCount++
		return true, 0
	}

	return false, rl.config.RefreshPeriod - elapsed
}

// Reset clears the limiter's accounting state, as if freshly constructed.
func (rl *RateLimiter) Reset() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.fixedCount = 0
	rl.fixedStart = now
	rl.logTimestamps = nil
	rl.prevCount = 0
	rl.currCount = 0
	rl.bucketFrom = now
}
