package resilience

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/faultlinehq/resilience/health"
)

// RouteTarget is one destination a Router can select, paired with the
// signals used to judge its health.
type RouteTarget struct {
	// Name identifies this target in events/telemetry.
	Name string

	// Breaker, if set, excludes the target while its circuit is open.
	Breaker *CircuitBreaker

	// Checker, if set, excludes the target while its last health check
	// reported anything other than health.StatusHealthy.
	Checker health.Checker

	// Execute performs the call against this target.
	Execute func(context.Context) error
}

func (t *RouteTarget) healthy(ctx context.Context) bool {
	if t.Breaker != nil && t.Breaker.IsOpen() {
		return false
	}
	if t.Checker != nil && t.Checker.Check(ctx).Status != health.StatusHealthy {
		return false
	}
	return true
}

// RouterEvent is emitted on every routing decision.
type RouterEvent struct {
	EventMeta

	// Kind is one of "routed", "no_healthy_targets".
	Kind   string
	Target string
}

// RouterConfig configures the router.
type RouterConfig struct {
	// Name identifies this router instance in events/telemetry.
	Name string
}

// Router selects among a fixed set of targets using each target's
// CircuitBreaker state and/or health.Checker result, round-robining
// across whichever are currently healthy. A target's CircuitBreaker
// already tracks exactly the signal a router needs, so Router reads it
// directly instead of keeping its own failure accounting.
type Router struct {
	config  RouterConfig
	targets []*RouteTarget

	mu   sync.Mutex
	next int

	events ListenerSet[RouterEvent]
}

// NewRouter creates a new router over the given targets.
func NewRouter(config RouterConfig, targets ...*RouteTarget) *Router {
	return &Router{config: config, targets: targets}
}

// OnEvent registers a listener for router events.
func (r *Router) OnEvent(l Listener[RouterEvent]) {
	r.events.Add(l)
}

// Execute picks the next healthy target, round-robin, and runs it.
// Returns ErrCircuitOpen if no target is currently healthy.
func (r *Router) Execute(ctx context.Context) error {
	target := r.pick(ctx)
	if target == nil {
		r.events.Emit(RouterEvent{EventMeta: newEventMeta(r.config.Name), Kind: "no_healthy_targets"})
		return ErrCircuitOpen
	}

	r.events.Emit(RouterEvent{EventMeta: newEventMeta(r.config.Name), Kind: "routed", Target: target.Name})
	return target.Execute(ctx)
}

// TargetStatus reports one target's health as of a Snapshot call.
type TargetStatus struct {
	Name    string
	Healthy bool
}

// Snapshot runs every target's health check concurrently and reports
// their status, independent of routing. Unlike pick (which stops at the
// first healthy candidate), this evaluates all targets, so it fans the
// checks out with an errgroup rather than walking them one at a time.
func (r *Router) Snapshot(ctx context.Context) ([]TargetStatus, error) {
	statuses := make([]TargetStatus, len(r.targets))

	g, gctx := errgroup.WithContext(ctx)
	for i, target := range r.targets {
		i, target := i, target
		g.Go(func() error {
			statuses[i] = TargetStatus{Name: target.Name, Healthy: target.healthy(gctx)}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return statuses, nil
}

func (r *Router) pick(ctx context.Context) *RouteTarget {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.targets)
	for i := 0; i < n; i++ {
		idx := (r.next + i) % n
		if r.targets[idx].healthy(ctx) {
			r.next = (idx + 1) % n
			return r.targets[idx]
		}
	}
	return nil
}
