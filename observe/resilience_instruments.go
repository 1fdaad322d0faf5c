package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ResilienceInstruments holds the per-pattern OpenTelemetry instruments
// that the resilience package's event listeners record into. Unlike
// Metrics, which records one generic calls/errors/duration triple per
// call, these carry the exact names and labels each pattern's events
// naturally produce (a state transition, a permit/reject outcome, an
// attempt count).
type ResilienceInstruments struct {
	circuitBreakerState  metric.Int64Gauge
	ratelimiterCalls     metric.Int64Counter
	bulkheadCalls        metric.Int64Counter
	retryAttempts        metric.Int64Counter
	coalescerLeaderTotal metric.Int64Counter
	hedgerAttempts       metric.Int64Counter
	adaptiveLimiterLimit metric.Int64Gauge
}

// NewResilienceInstruments creates the named instruments resilience event
// listeners record into, on the given meter.
func NewResilienceInstruments(meter metric.Meter) (*ResilienceInstruments, error) {
	circuitBreakerState, err := meter.Int64Gauge(
		"circuitbreaker_state",
		metric.WithDescription("Current circuit breaker state (0=closed, 1=open, 2=half_open)"),
	)
	if err != nil {
		return nil, err
	}

	ratelimiterCalls, err := meter.Int64Counter(
		"ratelimiter_calls_total",
		metric.WithDescription("Total rate limiter admission decisions"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	bulkheadCalls, err := meter.Int64Counter(
		"bulkhead_calls_total",
		metric.WithDescription("Total bulkhead admission decisions and outcomes"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	retryAttempts, err := meter.Int64Counter(
		"retry_attempts_total",
		metric.WithDescription("Total retry attempts made beyond the first"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	coalescerLeaderTotal, err := meter.Int64Counter(
		"coalescer_leader_total",
		metric.WithDescription("Total coalesced calls by leader/follower role"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	hedgerAttempts, err := meter.Int64Counter(
		"hedger_attempts_total",
		metric.WithDescription("Total hedged attempts launched alongside a primary call"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	adaptiveLimiterLimit, err := meter.Int64Gauge(
		"adaptivelimiter_limit",
		metric.WithDescription("Current adaptive concurrency limit"),
	)
	if err != nil {
		return nil, err
	}

	return &ResilienceInstruments{
		circuitBreakerState:  circuitBreakerState,
		ratelimiterCalls:     ratelimiterCalls,
		bulkheadCalls:        bulkheadCalls,
		retryAttempts:        retryAttempts,
		coalescerLeaderTotal: coalescerLeaderTotal,
		hedgerAttempts:       hedgerAttempts,
		adaptiveLimiterLimit: adaptiveLimiterLimit,
	}, nil
}

// RecordCircuitBreakerState records the numeric state a circuit breaker
// transitioned into.
func (i *ResilienceInstruments) RecordCircuitBreakerState(ctx context.Context, name string, state int64, stateLabel string) {
	i.circuitBreakerState.Record(ctx, state, metric.WithAttributes(
		attribute.String("name", name),
		attribute.String("state", stateLabel),
	))
}

// RecordRateLimiterCall records a rate limiter admission decision.
func (i *ResilienceInstruments) RecordRateLimiterCall(ctx context.Context, name, result string) {
	i.ratelimiterCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("name", name),
		attribute.String("result", result),
	))
}

// RecordBulkheadCall records a bulkhead admission decision or outcome.
func (i *ResilienceInstruments) RecordBulkheadCall(ctx context.Context, name, result string) {
	i.bulkheadCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("name", name),
		attribute.String("result", result),
	))
}

// RecordRetryAttempt records one retry attempt (not counting the first).
func (i *ResilienceInstruments) RecordRetryAttempt(ctx context.Context, name string) {
	i.retryAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("name", name),
	))
}

// RecordCoalescerRole records a coalesced call's leader/follower role.
func (i *ResilienceInstruments) RecordCoalescerRole(ctx context.Context, name, role string) {
	i.coalescerLeaderTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("name", name),
		attribute.String("role", role),
	))
}

// RecordHedgerAttempt records one hedge attempt launched alongside the
// primary.
func (i *ResilienceInstruments) RecordHedgerAttempt(ctx context.Context, name string) {
	i.hedgerAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("name", name),
	))
}

// RecordAdaptiveLimiterLimit records the adaptive limiter's current limit.
func (i *ResilienceInstruments) RecordAdaptiveLimiterLimit(ctx context.Context, name string, limit int64) {
	i.adaptiveLimiterLimit.Record(ctx, limit, metric.WithAttributes(
		attribute.String("name", name),
	))
}
