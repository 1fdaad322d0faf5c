package resilience

import (
	"context"

	"github.com/faultlinehq/resilience/observe"
)

// WithObserver wires the circuit breaker, rate limiter, bulkhead, adaptive
// limiter, retry and hedger already configured on the executor to instr,
// translating each pattern's events into the named instruments
// observe.NewResilienceInstruments exposes. A configured Timeout is not
// instrumented. Because it inspects the
// Executor's fields as they stand when it runs, place it after the other
// With* options that configure patterns.
func WithObserver(instr *observe.ResilienceInstruments) ExecutorOption {
	return func(e *Executor) {
		if instr == nil {
			return
		}
		if e.circuitBreaker != nil {
			InstrumentCircuitBreaker(e.circuitBreaker, instr)
		}
		if e.rateLimiter != nil {
			InstrumentRateLimiter(e.rateLimiter, instr)
		}
		if e.bulkhead != nil {
			InstrumentBulkhead(e.bulkhead, instr)
		}
		if e.adaptiveLimiter != nil {
			InstrumentAdaptiveLimiter(e.adaptiveLimiter, instr)
		}
		if e.retry != nil {
			InstrumentRetry(e.retry, instr)
		}
		if e.hedger != nil {
			InstrumentHedger(e.hedger, instr)
		}
	}
}

// InstrumentCircuitBreaker records every state transition cb makes into
// the circuitbreaker_state gauge.
func InstrumentCircuitBreaker(cb *CircuitBreaker, instr *observe.ResilienceInstruments) {
	cb.OnEvent(func(e CircuitEvent) {
		if e.Kind != "state_transition" {
			return
		}
		instr.RecordCircuitBreakerState(context.Background(), e.PatternName(), int64(e.To), e.To.String())
	})
}

// InstrumentRateLimiter records every admission decision rl makes into
// the ratelimiter_calls_total counter.
func InstrumentRateLimiter(rl *RateLimiter, instr *observe.ResilienceInstruments) {
	rl.OnEvent(func(e RateLimiterEvent) {
		switch e.Kind {
		case "acquired":
			instr.RecordRateLimiterCall(context.Background(), e.PatternName(), "permitted")
		case "rejected":
			instr.RecordRateLimiterCall(context.Background(), e.PatternName(), "rejected")
		}
	})
}

// InstrumentBulkhead records every admission decision and outcome b makes
// into the bulkhead_calls_total counter.
func InstrumentBulkhead(b *Bulkhead, instr *observe.ResilienceInstruments) {
	b.OnEvent(func(e BulkheadEvent) {
		instr.RecordBulkheadCall(context.Background(), e.PatternName(), e.Kind)
	})
}

// InstrumentRetry records every retry attempt r makes (beyond the first)
// into the retry_attempts_total counter.
func InstrumentRetry(r *Retry, instr *observe.ResilienceInstruments) {
	r.OnEvent(func(e RetryEvent) {
		if e.Kind != "retry" {
			return
		}
		instr.RecordRetryAttempt(context.Background(), e.PatternName())
	})
}

// InstrumentHedger records every hedge attempt h launches into the
// hedger_attempts_total counter.
func InstrumentHedger(h *Hedger, instr *observe.ResilienceInstruments) {
	h.OnEvent(func(e HedgeEvent) {
		if e.Kind != "hedge_started" {
			return
		}
		instr.RecordHedgerAttempt(context.Background(), e.PatternName())
	})
}

// InstrumentAdaptiveLimiter records a's current limit into the
// adaptivelimiter_limit gauge on every permitted/rejected decision.
func InstrumentAdaptiveLimiter(a *AdaptiveLimiter, instr *observe.ResilienceInstruments) {
	a.OnEvent(func(e AdaptiveLimiterEvent) {
		if e.Kind != "permitted" && e.Kind != "rejected" {
			return
		}
		instr.RecordAdaptiveLimiterLimit(context.Background(), e.PatternName(), e.Limit)
	})
}

// InstrumentCoalescer records every leader/follower role c assigns into
// the coalescer_leader_total counter. A free function rather than a
// method on Coalescer since Go methods cannot introduce new type
// parameters.
func InstrumentCoalescer[K comparable, Req, Resp any](c *Coalescer[K, Req, Resp], instr *observe.ResilienceInstruments) {
	c.OnEvent(func(e CoalesceEvent) {
		switch e.Kind {
		case "leader":
			instr.RecordCoalescerRole(context.Background(), e.PatternName(), "leader")
		case "follower":
			instr.RecordCoalescerRole(context.Background(), e.PatternName(), "follower")
		}
	})
}
