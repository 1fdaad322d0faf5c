// Package resilience provides composable fault-tolerance patterns for
// calls to unreliable dependencies: network services, databases, queues,
// or anything else that can be slow or fail.
//
// Patterns are small, independently usable types (CircuitBreaker,
// Bulkhead, RateLimiter, Retry, Timeout, Coalescer, Hedger,
// AdaptiveLimiter, Fallback, Reconnect, Router, Chaos) that can be
// composed with Executor to build a full execution pipeline, or used
// standalone.
//
// # Resilience Patterns
//
//   - [CircuitBreaker]: stops calling a failing dependency once its
//     sliding-window failure or slow-call rate crosses a threshold.
//     Transitions through Closed -> Open -> HalfOpen.
//
//   - [Bulkhead]: bounds concurrent calls to a fixed ceiling using a
//     channel-based semaphore, isolating one dependency's backpressure
//     from the rest of the system.
//
//   - [AdaptiveLimiter]: like Bulkhead, but the ceiling is raised and
//     lowered at runtime by an [AdaptiveController] ([AIMDController] or
//     [VegasController]) reacting to call outcomes and latency.
//
//   - [RateLimiter]: admits calls under a fixed window, sliding log, or
//     sliding counter algorithm, with an optional bounded wait.
//
//   - [Retry]: re-runs a failed call with a [BackoffFunc] delay schedule
//     ([Fixed], [Exponential], [ExponentialJitter]).
//
//   - [Hedger]: races extra copies of a slow, idempotent call and takes
//     the first to succeed.
//
//   - [Coalescer]: collapses concurrent callers requesting the same key
//     into one underlying call.
//
//   - [Timeout]: bounds a call's execution time.
//
//   - [Fallback]: substitutes a backup call when the primary fails.
//
//   - [Reconnect]: drives a connect loop with backoff until it succeeds.
//
//   - [Router]: selects among several targets using each target's
//     CircuitBreaker state and/or health checker.
//
//   - [Chaos]: injects synthetic latency and failures for testing the
//     rest of a pipeline.
//
// # Quick Start
//
//	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	    Name:                 "payments-api",
//	    FailureRateThreshold: 0.5,
//	    MinimumNumberOfCalls: 20,
//	})
//
//	executor := resilience.NewExecutor(
//	    resilience.WithRateLimiter(resilience.NewRateLimiter(resilience.RateLimiterConfig{
//	        LimitForPeriod: 100,
//	        RefreshPeriod:  time.Second,
//	    })),
//	    resilience.WithCircuitBreaker(cb),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
//	        MaxAttempts: 3,
//	        Backoff:     resilience.ExponentialJitter(100*time.Millisecond, 5*time.Second, 2.0),
//	    })),
//	    resilience.WithTimeout(5*time.Second),
//	)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    return callExternalService(ctx)
//	})
//
// To export pattern activity as OpenTelemetry metrics, build a meter-backed
// [observe.ResilienceInstruments] and add [WithObserver] after the other
// With* options:
//
//	instr, err := observe.NewResilienceInstruments(meter)
//	executor := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(cb),
//	    resilience.WithRetry(retry),
//	    resilience.WithObserver(instr),
//	)
//
// # Execution Order
//
// When using Executor, patterns wrap the call outermost-first:
//
//  1. Rate Limiter        - limits request rate
//  2. Bulkhead / Adaptive Limiter - limits concurrency
//  3. Circuit Breaker     - prevents cascading failures
//  4. Hedger              - races extra attempts against a slow primary
//  5. Retry               - retries on failure
//  6. Timeout             - limits execution time, per attempt (innermost)
//
// # Events and Observability
//
// Every pattern exposes OnEvent(Listener[E]) for its own event type
// (CircuitEvent, BulkheadEvent, and so on), delivered synchronously and
// panic-isolated. Config structs also keep single-callback fields
// (OnStateChange, OnRetry) for drop-in use without registering a
// listener. [WithObserver] registers an OnEvent listener per configured
// pattern other than Timeout that feeds observe.ResilienceInstruments, the OpenTelemetry
// counters and gauges the observe package exposes; wiring it is opt-in
// per Executor, not automatic.
//
// # Error Handling
//
// Executor wraps every configured pattern's error into a
// *[ResilienceError] tagged with the layer that produced it; use
// errors.As to inspect it, or errors.Is against the pattern's sentinel
// (ErrCircuitOpen, ErrBulkheadFull, ErrRateLimitExceeded, ErrTimeout,
// ErrLimitReached, ErrLeaderCancelled, ErrReceiveError,
// ErrMaxAttemptsExceeded) when using a pattern standalone.
//
//	err := executor.Execute(ctx, operation)
//	var re *resilience.ResilienceError
//	if errors.As(err, &re) && re.Kind == "circuit_open" {
//	    return fallbackResult, nil
//	}
package resilience
