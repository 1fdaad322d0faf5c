package resilience

import (
	"context"
	"sync"
	"time"
)

// State represents the circuit breaker state.
type State int

const (
	// StateClosed means the circuit is operating normally.
	StateClosed State = iota
	// StateOpen means the circuit is blocking all requests.
	StateOpen
	// StateHalfOpen means the circuit is testing if the service recovered.
	StateHalfOpen
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitEvent is emitted on admission decisions, call outcomes, and
// state transitions.
type CircuitEvent struct {
	EventMeta

	// Kind is one of "permitted", "rejected", "success", "failure",
	// "state_transition".
	Kind string

	// From/To are populated for Kind == "state_transition".
	From, To State

	// Duration is the call duration, populated for success/failure.
	Duration time.Duration

	// Slow reports whether a success/failure call crossed the slow
	// threshold.
	Slow bool
}

// CircuitBreakerConfig configures the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies this breaker instance in events/telemetry.
	Name string

	// WindowType selects count- or time-based aggregation.
	// Default: WindowCount
	WindowType WindowType

	// SlidingWindowSize is the ring buffer capacity for WindowCount.
	// Default: 100
	SlidingWindowSize int

	// SlidingWindowDuration is the window length for WindowTime.
	// Default: 60s
	SlidingWindowDuration time.Duration

	// MinimumNumberOfCalls is the minimum window population before
	// failure/slow rates are evaluated.
	// Default: 10
	MinimumNumberOfCalls int

	// FailureRateThreshold, in [0,1], opens the circuit when the window's
	// failure rate is >= this value (inclusive).
	// Default: 0.5
	FailureRateThreshold float64

	// SlowCallRateThreshold, in [0,1], opens the circuit when the
	// window's slow-call rate is >= this value (inclusive).
	// Default: 1.0 (effectively disabled unless lowered)
	SlowCallRateThreshold float64

	// SlowCallDurationThreshold classifies a call as slow when its
	// duration is >= this value (inclusive).
	// Default: 0 (disabled)
	SlowCallDurationThreshold time.Duration

	// WaitDurationInOpen is how long to stay Open before probing again.
	// Default: 30 seconds
	WaitDurationInOpen time.Duration

	// PermittedCallsInHalfOpen is how many calls are admitted while
	// HalfOpen before a decision is reached.
	// Default: 1
	PermittedCallsInHalfOpen int

	// OnStateChange is called synchronously on every state transition, in
	// addition to any registered CircuitEvent listeners. Kept as a plain
	// callback field (rather than requiring OnEvent) for drop-in parity
	// with single-callback circuit breaker usage.
	OnStateChange func(from, to State)

	// IsFailure classifies a raw result as a failure. Default: all
	// non-nil errors are failures. This is the authoritative definition
	// of "failure" for window accounting.
	IsFailure func(err error) bool
}

func (c *CircuitBreakerConfig) applyDefaults() {
	if c.WindowType != WindowTime {
		c.WindowType = WindowCount
	}
	if c.SlidingWindowSize <= 0 {
		c.SlidingWindowSize = 100
	}
	if c.SlidingWindowDuration <= 0 {
		c.SlidingWindowDuration = 60 * time.Second
	}
	if c.MinimumNumberOfCalls <= 0 {
		c.MinimumNumberOfCalls = 10
	}
	if c.FailureRateThreshold <= 0 {
		c.FailureRateThreshold = 0.5
	}
	if c.SlowCallRateThreshold <= 0 {
		c.SlowCallRateThreshold = 1.0
	}
	if c.WaitDurationInOpen <= 0 {
		c.WaitDurationInOpen = 30 * time.Second
	}
	if c.PermittedCallsInHalfOpen <= 0 {
		c.PermittedCallsInHalfOpen = 1
	}
	if c.IsFailure == nil {
		c.IsFailure = func(err error) bool { return err != nil }
	}
}

// CircuitBreaker implements the circuit breaker pattern: sliding-window
// failure/slow-call accounting driving a Closed/Open/HalfOpen state
// machine. State is read and written under a single mutex, which is cheap
// since every operation is O(1) or amortized O(1); State/Metrics return a
// consistent snapshot without yielding.
type CircuitBreaker struct {
	config CircuitBreakerConfig

	mu                sync.Mutex
	state             State
	window            window
	lastStateChange   time.Time
	halfOpenSuccesses int
	halfOpenFailures  int

	events ListenerSet[CircuitEvent]
}

// NewCircuitBreaker creates a new circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	config.applyDefaults()

	var w window
	if config.WindowType == WindowTime {
		w = newTimeWindow(config.SlidingWindowDuration)
	} else {
		w = newCountWindow(config.SlidingWindowSize)
	}

	return &CircuitBreaker{
		config:          config,
		state:           StateClosed,
		window:          w,
		lastStateChange: time.Now(),
	}
}

// OnEvent registers a listener for circuit breaker events. Must be called
// before the breaker is used concurrently by other goroutines.
func (cb *CircuitBreaker) OnEvent(l Listener[CircuitEvent]) {
	cb.events.Add(l)
}

// Name returns this breaker's configured instance name.
func (cb *CircuitBreaker) Name() string {
	return cb.config.Name
}

// Execute runs the operation through the circuit breaker.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.tryAcquire(); err != nil {
		cb.events.Emit(CircuitEvent{EventMeta: newEventMeta(cb.config.Name), Kind: "rejected"})
		return err
	}
	cb.events.Emit(CircuitEvent{EventMeta: newEventMeta(cb.config.Name), Kind: "permitted"})

	start := time.Now()
	err := op(ctx)
	d := time.Since(start)

	cb.record(err, d)
	return err
}

// State returns the current circuit state without yielding.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentStateLocked()
}

// IsOpen reports whether the breaker currently rejects calls.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.State() == StateOpen
}

// ForceOpen forces the breaker into the Open state, resetting the
// wait-in-open timer.
func (cb *CircuitBreaker) ForceOpen() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionLocked(StateOpen)
}

// ForceClosed forces the breaker into the Closed state, clearing counters.
func (cb *CircuitBreaker) ForceClosed() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionLocked(StateClosed)
}

// Reset resets the circuit breaker to closed state and clears the window.
func (cb *CircuitBreaker) Reset() {
	cb.ForceClosed()
}

// tryAcquire implements the admission logic of spec.md §4.C.
func (cb *CircuitBreaker) tryAcquire() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.currentStateLocked() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.halfOpenSuccesses+cb.halfOpenFailures >= cb.config.PermittedCallsInHalfOpen {
			return ErrCircuitOpen
		}
	}
	return nil
}

// record implements the recording logic of spec.md §4.C.
func (cb *CircuitBreaker) record(err error, d time.Duration) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	isFailure := cb.config.IsFailure(err)
	slow := cb.config.SlowCallDurationThreshold > 0 && d >= cb.config.SlowCallDurationThreshold

	outcome := OutcomeSuccess
	kind := "success"
	if isFailure {
		outcome = OutcomeFailure
		kind = "failure"
	}
	cb.events.Emit(CircuitEvent{
		EventMeta: newEventMeta(cb.config.Name),
		Kind:      kind,
		Duration:  d,
		Slow:      slow,
	})

	switch cb.state {
	case StateHalfOpen:
		if isFailure {
			cb.halfOpenFailures++
			cb.transitionLocked(StateOpen)
			return
		}
		cb.halfOpenSuccesses++
		if cb.halfOpenSuccesses >= cb.config.PermittedCallsInHalfOpen {
			cb.transitionLocked(StateClosed)
		}

	default: // StateClosed; Open calls never reach here since tryAcquire rejected them.
		cb.window.record(outcome, d)
		rates := cb.window.rates(cb.config.SlowCallDurationThreshold)
		if rates.Total >= cb.config.MinimumNumberOfCalls {
			if rates.FailureRate >= cb.config.FailureRateThreshold ||
				rates.SlowRate >= cb.config.SlowCallRateThreshold {
				cb.transitionLocked(StateOpen)
			}
		}
	}
}

// currentStateLocked returns the logical state, lazily transitioning
// Open -> HalfOpen once the wait duration has elapsed. Must be called
// with cb.mu held.
func (cb *CircuitBreaker) currentStateLocked() State {
	if cb.state == StateOpen && time.Since(cb.lastStateChange) >= cb.config.WaitDurationInOpen {
		cb.transitionLocked(StateHalfOpen)
	}
	return cb.state
}

// transitionLocked moves to a new state, zeroing counters and emitting
// events. Must be called with cb.mu held. A transition to the current
// state still resets counters and the timer (used by
// ForceOpen/ForceClosed), matching "any -> target" in spec.md's
// transition table, but does not re-emit a state_transition event.
func (cb *CircuitBreaker) transitionLocked(to State) {
	from := cb.state
	cb.state = to
	cb.lastStateChange = time.Now()
	cb.window.reset()
	cb.halfOpenSuccesses = 0
	cb.halfOpenFailures = 0

	if from == to {
		return
	}

	cb.events.Emit(CircuitEvent{
		EventMeta: newEventMeta(cb.config.Name),
		Kind:      "state_transition",
		From:      from,
		To:        to,
	})
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
}

// Metrics returns current circuit breaker statistics.
func (cb *CircuitBreaker) Metrics() CircuitBreakerMetrics {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	rates := cb.window.rates(cb.config.SlowCallDurationThreshold)
	return CircuitBreakerMetrics{
		State:       cb.currentStateLocked(),
		FailureRate: rates.FailureRate,
		SlowRate:    rates.SlowRate,
		TotalCalls:  rates.Total,
		LastChange:  cb.lastStateChange,
	}
}

// CircuitBreakerMetrics contains circuit breaker statistics.
type CircuitBreakerMetrics struct {
	State       State
	FailureRate float64
	SlowRate    float64
	TotalCalls  int
	LastChange  time.Time
}
