package resilience

import (
	"errors"
	"fmt"
)

// Sentinel errors for resilience operations. Callers should use errors.Is.
var (
	// ErrCircuitOpen is returned when the circuit breaker is open or the
	// half-open probe budget is exhausted.
	ErrCircuitOpen = errors.New("resilience: circuit breaker is open")

	// ErrMaxRetriesExceeded marks exhausted retry attempts. Retry.Execute
	// does not return it: when attempts run out it returns the last
	// attempt's error.
	ErrMaxRetriesExceeded = errors.New("resilience: max retries exceeded")

	// ErrRateLimitExceeded is returned when the rate limit is exceeded and
	// no further waiting is possible within the configured timeout.
	ErrRateLimitExceeded = errors.New("resilience: rate limit exceeded")

	// ErrBulkheadFull is returned when the bulkhead is at capacity and the
	// caller declined to wait, or the bounded wait timed out.
	ErrBulkheadFull = errors.New("resilience: bulkhead at capacity")

	// ErrTimeout is returned when an operation times out.
	ErrTimeout = errors.New("resilience: operation timed out")

	// ErrLeaderCancelled is returned to coalescer waiters when the leader's
	// call was abandoned before producing a result.
	ErrLeaderCancelled = errors.New("resilience: coalescer leader cancelled")

	// ErrReceiveError is returned by a coalescer waiter that could not
	// receive the leader's broadcast result.
	ErrReceiveError = errors.New("resilience: coalescer receive error")

	// ErrLimitReached is returned by the adaptive limiter when its
	// controller's current limit has no spare capacity.
	ErrLimitReached = errors.New("resilience: adaptive limit reached")

	// ErrMaxAttemptsExceeded is returned by the reconnect wrapper when all
	// connection attempts have failed.
	ErrMaxAttemptsExceeded = errors.New("resilience: max connect attempts exceeded")
)

// Layer identifies which pattern produced an aggregate ResilienceError.
type Layer string

// Known layer names used in ResilienceError.
const (
	LayerCircuitBreaker Layer = "circuit_breaker"
	LayerBulkhead       Layer = "bulkhead"
	LayerRateLimiter    Layer = "rate_limiter"
	LayerRetry          Layer = "retry"
	LayerTimeout        Layer = "timeout"
	LayerCoalescer      Layer = "coalescer"
	LayerHedger         Layer = "hedger"
	LayerAdaptive       Layer = "adaptive"
	LayerReconnect      Layer = "reconnect"
	LayerFallback       Layer = "fallback"
	LayerChaos          Layer = "chaos"
	LayerCache          Layer = "cache"
)

// ResilienceError is the aggregate error every pattern's error composes
// into at a composition boundary (Executor). It carries which
// layer rejected or timed out the call, and wraps the underlying cause.
type ResilienceError struct {
	// Layer identifies the pattern that produced this error.
	Layer Layer

	// Kind classifies the failure: "timeout", "circuit_open",
	// "bulkhead_full", "rate_limited", or "application".
	Kind string

	// Name is the offending pattern instance's name, if any.
	Name string

	// RetryAfter is set for rate-limited rejections that carry a hint.
	RetryAfter *float64 // seconds; pointer so zero is distinguishable from absent

	// Current and Max are set for bulkhead-full rejections.
	Current, Max int

	// Cause is the underlying error (the application error, or the
	// sentinel this aggregate wraps).
	Cause error
}

// Error implements error.
func (e *ResilienceError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("resilience: %s[%s] %s: %v", e.Layer, e.Name, e.Kind, e.Cause)
	}
	return fmt.Sprintf("resilience: %s %s: %v", e.Layer, e.Kind, e.Cause)
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *ResilienceError) Unwrap() error {
	return e.Cause
}

// MapApplication rewrites the wrapped application error, returning a new
// *ResilienceError (the receiver is not mutated). Only meaningful when
// Kind == "application"; other kinds return the receiver unchanged, since
// their Cause is a resilience sentinel, not an application error.
func (e *ResilienceError) MapApplication(fn func(err error) error) *ResilienceError {
	if e.Kind != "application" {
		return e
	}
	cp := *e
	cp.Cause = fn(e.Cause)
	return &cp
}

// wrapResilienceError converts a raw error produced by one of the core
// patterns into a *ResilienceError, classifying it by comparing against
// the timeout, circuit-open, bulkhead-full and rate-limit sentinels. Any
// other error, including the package's other sentinels, is classed as an
// application error. An error that already carries a *ResilienceError
// from an inner layer is returned unchanged, so the innermost tag is kept.
func wrapResilienceError(layer Layer, name string, err error) error {
	if err == nil {
		return nil
	}

	var inner *ResilienceError
	if errors.As(err, &inner) {
		return err
	}

	re := &ResilienceError{Layer: layer, Name: name, Cause: err}

	switch {
	case errors.Is(err, ErrTimeout):
		re.Kind = "timeout"
	case errors.Is(err, ErrCircuitOpen):
		re.Kind = "circuit_open"
	case errors.Is(err, ErrBulkheadFull):
		re.Kind = "bulkhead_full"
	case errors.Is(err, ErrRateLimitExceeded):
		re.Kind = "rate_limited"
	default:
		re.Kind = "application"
	}

	return re
}
