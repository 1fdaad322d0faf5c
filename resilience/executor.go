package resilience

import (
	"context"
	"time"
)

// Executor composes multiple resilience patterns around a single
// operation. Every configured pattern's raw error is converted to a
// *ResilienceError at this boundary, tagged with the layer that produced
// it, rather than patterns doing that conversion themselves.
type Executor struct {
	rateLimiter     *RateLimiter
	bulkhead        *Bulkhead
	adaptiveLimiter *AdaptiveLimiter
	circuitBreaker  *CircuitBreaker
	hedger          *Hedger
	retry           *Retry
	timeout         *Timeout
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor creates a new resilience executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithCircuitBreaker adds a circuit breaker to the executor.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) {
		e.circuitBreaker = cb
	}
}

// WithRetry adds retry logic to the executor.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) {
		e.retry = r
	}
}

// WithRateLimiter adds rate limiting to the executor.
func WithRateLimiter(rl *RateLimiter) ExecutorOption {
	return func(e *Executor) {
		e.rateLimiter = rl
	}
}

// WithBulkhead adds bulkhead isolation to the executor.
func WithBulkhead(b *Bulkhead) ExecutorOption {
	return func(e *Executor) {
		e.bulkhead = b
	}
}

// WithAdaptiveLimiter adds an adaptive concurrency limit to the executor,
// in place of (or alongside) a fixed-size Bulkhead.
func WithAdaptiveLimiter(a *AdaptiveLimiter) ExecutorOption {
	return func(e *Executor) {
		e.adaptiveLimiter = a
	}
}

// WithHedger adds request hedging to the executor.
func WithHedger(h *Hedger) ExecutorOption {
	return func(e *Executor) {
		e.hedger = h
	}
}

// WithTimeout adds timeout to the executor.
func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		e.timeout = NewTimeout(TimeoutConfig{Timeout: timeout})
	}
}

// WithTimeoutConfig adds timeout with custom config to the executor.
func WithTimeoutConfig(t *Timeout) ExecutorOption {
	return func(e *Executor) {
		e.timeout = t
	}
}

// Execute runs the operation through all configured resilience patterns.
//
// The execution order, outermost to innermost, is:
//  1. Rate Limiter  - limits request rate
//  2. Bulkhead / Adaptive Limiter - limits concurrency
//  3. Circuit Breaker - prevents cascading failures
//  4. Hedger        - races extra attempts against a slow primary
//  5. Retry         - retries on failure
//  6. Timeout       - limits execution time (innermost, per attempt)
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	execute := op

	if e.timeout != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return wrapResilienceError(LayerTimeout, e.timeout.Config().Name, e.timeout.Execute(ctx, inner))
		}
	}

	if e.retry != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return wrapResilienceError(LayerRetry, e.retry.Config().Name, e.retry.Execute(ctx, inner))
		}
	}

	if e.hedger != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return wrapResilienceError(LayerHedger, e.hedger.Name(), e.hedger.Execute(ctx, inner))
		}
	}

	if e.circuitBreaker != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return wrapResilienceError(LayerCircuitBreaker, e.circuitBreaker.Name(), e.circuitBreaker.Execute(ctx, inner))
		}
	}

	if e.adaptiveLimiter != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return wrapResilienceError(LayerAdaptive, e.adaptiveLimiter.Name(), e.adaptiveLimiter.Execute(ctx, inner))
		}
	}

	if e.bulkhead != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return wrapResilienceError(LayerBulkhead, e.bulkhead.Name(), e.bulkhead.Execute(ctx, inner))
		}
	}

	if e.rateLimiter != nil {
		inner := execute
		execute = func(ctx context.Context) error {
			return wrapResilienceError(LayerRateLimiter, e.rateLimiter.Name(), e.rateLimiter.Execute(ctx, inner))
		}
	}

	return execute(ctx)
}
