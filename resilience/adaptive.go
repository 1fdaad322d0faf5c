package resilience

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// AdaptiveController supplies the limit an AdaptiveLimiter enforces and
// learns from every completed call's outcome and latency. AIMDController
// and VegasController both implement it.
type AdaptiveController interface {
	Limit() int64
	OnSample(d time.Duration, success bool)
}

// AdaptiveLimiterEvent is emitted on admission decisions and call
// completion.
type AdaptiveLimiterEvent struct {
	EventMeta

	// Kind is one of "permitted", "rejected", "finished", "failed".
	Kind string

	Duration time.Duration
	Limit    int64
}

// AdaptiveLimiterConfig configures the adaptive limiter.
type AdaptiveLimiterConfig struct {
	// Name identifies this limiter instance in events/telemetry.
	Name string

	// Controller supplies and updates the concurrency limit.
	// Default: NewAIMDController(AIMDConfig{})
	Controller AdaptiveController

	// MaxWait bounds how long Acquire waits for the active count to drop
	// below the current limit before rejecting.
	// Default: 0 (reject immediately on contention)
	MaxWait time.Duration

	// PollInterval is the backoff between over-limit checks while
	// waiting. Kept short and bounded rather than busy-spinning.
	// Default: 5ms
	PollInterval time.Duration
}

// AdaptiveLimiter bounds concurrency like a Bulkhead, but its ceiling is
// not fixed: a pluggable AdaptiveController raises it on success and
// lowers it on failure (or, for VegasController, on rising latency).
// Because the ceiling changes continuously, admission can't use a fixed
// channel-backed semaphore; instead an atomic counter is compared
// against Controller.Limit() on each attempt, with a bounded, polled
// backoff instead of a busy spin while over limit.
type AdaptiveLimiter struct {
	config     AdaptiveLimiterConfig
	controller AdaptiveController
	active     atomic.Int64

	mu        sync.Mutex
	maxActive int64
	rejected  int64

	events ListenerSet[AdaptiveLimiterEvent]
}

// NewAdaptiveLimiter creates a new adaptive limiter.
func NewAdaptiveLimiter(config AdaptiveLimiterConfig) *AdaptiveLimiter {
	if config.Controller == nil {
		config.Controller = NewAIMDController(AIMDConfig{})
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 5 * time.Millisecond
	}

	return &AdaptiveLimiter{config: config, controller: config.Controller}
}

// OnEvent registers a listener for adaptive limiter events.
func (a *AdaptiveLimiter) OnEvent(l Listener[AdaptiveLimiterEvent]) {
	a.events.Add(l)
}

// Name returns this limiter's configured instance name.
func (a *AdaptiveLimiter) Name() string {
	return a.config.Name
}

// Acquire reserves a slot, waiting up to MaxWait (polling every
// PollInterval) if the limit is currently exhausted.
func (a *AdaptiveLimiter) Acquire(ctx context.Context) error {
	start := time.Now()

	for {
		limit := a.controller.Limit()
		cur := a.active.Load()
		if cur < limit {
			if a.active.CompareAndSwap(cur, cur+1) {
				a.onAcquired()
				a.events.Emit(AdaptiveLimiterEvent{EventMeta: newEventMeta(a.config.Name), Kind: "permitted", Limit: limit})
				return nil
			}
			continue
		}

		if a.config.MaxWait <= 0 || time.Since(start) >= a.config.MaxWait {
			a.onRejected()
			a.events.Emit(AdaptiveLimiterEvent{EventMeta: newEventMeta(a.config.Name), Kind: "rejected", Limit: limit})
			return ErrLimitReached
		}

		timer := time.NewTimer(a.config.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (a *AdaptiveLimiter) onAcquired() {
	a.mu.Lock()
	cur := a.active.Load()
	if cur > a.maxActive {
		a.maxActive = cur
	}
	a.mu.Unlock()
}

func (a *AdaptiveLimiter) onRejected() {
	a.mu.Lock()
	a.rejected++
	a.mu.Unlock()
}

// Release frees a slot acquired with Acquire.
func (a *AdaptiveLimiter) Release() {
	a.active.Add(-1)
}

// Execute runs op under the limiter, feeding its outcome and latency back
// into the controller. The slot is released on every exit path,
// including a panic inside op.
func (a *AdaptiveLimiter) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := a.Acquire(ctx); err != nil {
		return err
	}

	start := time.Now()
	finished := false
	defer func() {
		a.Release()
		if r := recover(); r != nil {
			if !finished {
				a.controller.OnSample(time.Since(start), false)
				a.events.Emit(AdaptiveLimiterEvent{EventMeta: newEventMeta(a.config.Name), Kind: "failed", Duration: time.Since(start)})
			}
			panic(r)
		}
	}()

	err := op(ctx)
	finished = true
	d := time.Since(start)

	a.controller.OnSample(d, err == nil)

	kind := "finished"
	if err != nil {
		kind = "failed"
	}
	a.events.Emit(AdaptiveLimiterEvent{EventMeta: newEventMeta(a.config.Name), Kind: kind, Duration: d})

	return err
}

// Metrics returns current adaptive limiter statistics.
func (a *AdaptiveLimiter) Metrics() AdaptiveLimiterMetrics {
	a.mu.Lock()
	defer a.mu.Unlock()

	return AdaptiveLimiterMetrics{
		Active:    a.active.Load(),
		MaxActive: a.maxActive,
		Limit:     a.controller.Limit(),
		Rejected:  a.rejected,
	}
}

// AdaptiveLimiterMetrics contains adaptive limiter statistics.
type AdaptiveLimiterMetrics struct {
	Active    int64
	MaxActive int64
	Limit     int64
	Rejected  int64
}

// VegasConfig configures a VegasController.
type VegasConfig struct {
	// Initial is the starting limit.
	// Default: 20
	Initial int64

	// Min is the floor the limit never drops below.
	// Default: 1
	Min int64

	// Max is the ceiling the limit never exceeds.
	// Default: 1000
	Max int64

	// Alpha is the estimated-queue-size floor, in requests, below which
	// the limit grows.
	// Default: 2
	Alpha float64

	// Beta is the estimated-queue-size ceiling, in requests, above which
	// the limit shrinks.
	// Default: 4
	Beta float64
}

func (c *VegasConfig) applyDefaults() {
	if c.Initial <= 0 {
		c.Initial = 20
	}
	if c.Min <= 0 {
		c.Min = 1
	}
	if c.Max <= 0 {
		c.Max = 1000
	}
	if c.Alpha <= 0 {
		c.Alpha = 2
	}
	if c.Beta <= 0 {
		c.Beta = 4
	}
}

// VegasController is a TCP-Vegas-style congestion controller: it tracks
// the smallest observed latency as a proxy for the uncongested RTT, uses
// the gap between that and the current sample to estimate how many
// requests are queued, and grows or shrinks the limit to keep the
// estimated queue between Alpha and Beta.
type VegasController struct {
	config VegasConfig

	mu     sync.Mutex
	limit  float64
	minRTT time.Duration
}

// NewVegasController creates a new Vegas congestion controller.
func NewVegasController(config VegasConfig) *VegasController {
	config.applyDefaults()
	return &VegasController{config: config, limit: float64(config.Initial)}
}

// Limit returns the current limit.
func (v *VegasController) Limit() int64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return int64(v.limit)
}

// OnSample records a completed call's latency and outcome.
func (v *VegasController) OnSample(d time.Duration, success bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !success {
		v.limit = math.Max(float64(v.config.Min), v.limit*0.9)
		return
	}

	if d <= 0 {
		return
	}
	if v.minRTT == 0 || d < v.minRTT {
		v.minRTT = d
	}

	queue := v.limit * (1 - float64(v.minRTT)/float64(d))

	switch {
	case queue < v.config.Alpha:
		v.limit = math.Min(float64(v.config.Max), v.limit+1)
	case queue > v.config.Beta:
		v.limit = math.Max(float64(v.config.Min), v.limit-1)
	}
}

// Reset clears the learned RTT baseline and returns the limit to
// Initial.
func (v *VegasController) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.limit = float64(v.config.Initial)
	v.minRTT = 0
}
