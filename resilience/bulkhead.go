package resilience

import (
	"context"
	"sync"
	"time"
)

// BulkheadEvent is emitted on admission decisions and call completion.
type BulkheadEvent struct {
	EventMeta

	// Kind is one of "permitted", "rejected", "finished", "failed".
	Kind string

	// Duration is the call duration, populated for finished/failed.
	Duration time.Duration
}

// BulkheadConfig configures the bulkhead.
type BulkheadConfig struct {
	// Name identifies this bulkhead instance in events/telemetry.
	Name string

	// MaxConcurrent is the maximum number of concurrent operations.
	// Default: 10
	MaxConcurrent int

	// MaxWait is the maximum time to wait for a slot.
	// Default: 0 (no waiting, fail immediately)
	MaxWait time.Duration
}

// Bulkhead limits concurrent operations using a counting permit pool.
// Permits are released on every exit path, including a panicking inner
// operation: Execute recovers, releases, and re-panics.
type Bulkhead struct {
	config BulkheadConfig
	sem    chan struct{}

	mu        sync.Mutex
	active    int
	maxActive int
	rejected  int64

	events ListenerSet[BulkheadEvent]
}

// NewBulkhead creates a new bulkhead.
func NewBulkhead(config BulkheadConfig) *Bulkhead {
	// Apply defaults
	if config.MaxConcurrent <= 0 {
		config.MaxConcurrent = 10
	}

	return &Bulkhead{
		config: config,
		sem:    make(chan struct{}, config.MaxConcurrent),
	}
}

// OnEvent registers a listener for bulkhead events.
func (b *Bulkhead) OnEvent(l Listener[BulkheadEvent]) {
	b.events.Add(l)
}

// Name returns this bulkhead's configured instance name.
func (b *Bulkhead) Name() string {
	return b.config.Name
}

// Acquire acquires a slot in the bulkhead.
// Returns ErrBulkheadFull if no slot is available.
func (b *Bulkhead) Acquire(ctx context.Context) error {
	// Fast path: try non-blocking acquire
	select {
	case b.sem <- struct{}{}:
		b.onAcquired()
		b.events.Emit(BulkheadEvent{EventMeta: newEventMeta(b.config.Name), Kind: "permitted"})
		return nil
	default:
		// Fall through to waiting logic
	}

	// No immediate slot available
	if b.config.MaxWait <= 0 {
		b.onRejected()
		b.events.Emit(BulkheadEvent{EventMeta: newEventMeta(b.config.Name), Kind: "rejected"})
		return ErrBulkheadFull
	}

	// Wait for a slot
	timer := time.NewTimer(b.config.MaxWait)
	defer timer.Stop()

	select {
	case b.sem <- struct{}{}:
		b.onAcquired()
		b.events.Emit(BulkheadEvent{EventMeta: newEventMeta(b.config.Name), Kind: "permitted"})
		return nil
	case <-timer.C:
		b.onRejected()
		b.events.Emit(BulkheadEvent{EventMeta: newEventMeta(b.config.Name), Kind: "rejected"})
		return ErrBulkheadFull
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Bulkhead) onAcquired() {
	b.mu.Lock()
	b.active++
	if b.active > b.maxActive {
		b.maxActive = b.active
	}
	b.mu.Unlock()
}

func (b *Bulkhead) onRejected() {
	b.mu.Lock()
	b.rejected++
	b.mu.Unlock()
}

// Release releases a slot in the bulkhead.
func (b *Bulkhead) Release() {
	select {
	case <-b.sem:
		b.mu.Lock()
		b.active--
		b.mu.Unlock()
	default:
		// Semaphore was empty, this shouldn't happen in normal usage
	}
}

// Execute runs the operation within the bulkhead. The permit is released
// on every exit path, including a panic inside op.
func (b *Bulkhead) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := b.Acquire(ctx); err != nil {
		return err
	}

	start := time.Now()
	finished := false
	defer func() {
		b.Release()
		if r := recover(); r != nil {
			if !finished {
				b.events.Emit(BulkheadEvent{
					EventMeta: newEventMeta(b.config.Name),
					Kind:      "failed",
					Duration:  time.Since(start),
				})
			}
			panic(r)
		}
	}()

	err := op(ctx)
	finished = true
	d := time.Since(start)

	kind := "finished"
	if err != nil {
		kind = "failed"
	}
	b.events.Emit(BulkheadEvent{EventMeta: newEventMeta(b.config.Name), Kind: kind, Duration: d})

	return err
}

// Metrics returns current bulkhead metrics.
func (b *Bulkhead) Metrics() BulkheadMetrics {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BulkheadMetrics{
		Active:        b.active,
		MaxActive:     b.maxActive,
		Available:     b.config.MaxConcurrent - b.active,
		MaxConcurrent: b.config.MaxConcurrent,
		Rejected:      b.rejected,
	}
}

// BulkheadMetrics contains bulkhead statistics.
type BulkheadMetrics struct {
	Active        int
	MaxActive     int
	Available     int
	MaxConcurrent int
	Rejected      int64
}
