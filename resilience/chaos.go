package resilience

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"
)

// ErrChaosInjected is returned by a Chaos injector's default error
// factory.
var ErrChaosInjected = errors.New("resilience: chaos-injected failure")

// ChaosEvent is emitted whenever a call is perturbed.
type ChaosEvent struct {
	EventMeta

	// Kind is one of "latency_injected", "error_injected",
	// "passed_through".
	Kind     string
	Duration time.Duration
}

// ChaosConfig configures the chaos injector.
type ChaosConfig struct {
	// Name identifies this injector instance in events/telemetry.
	Name string

	// ErrorRate is the probability, in [0,1], that a call is failed
	// outright instead of reaching op.
	ErrorRate float64

	// ErrorFactory builds the error returned for an injected failure.
	// Default: returns ErrChaosInjected.
	ErrorFactory func() error

	// LatencyProbability is the probability, in [0,1], that a call is
	// delayed before reaching op (or being failed).
	LatencyProbability float64

	// LatencyMin and LatencyMax bound the injected delay, sampled
	// uniformly. LatencyMax must be >= LatencyMin.
	LatencyMin, LatencyMax time.Duration
}

// Chaos injects synthetic latency and failures ahead of an operation, for
// exercising the rest of a resilience pipeline under fault conditions.
// Not for use against production traffic.
type Chaos struct {
	config ChaosConfig
	events ListenerSet[ChaosEvent]
}

// NewChaos creates a new chaos injector.
func NewChaos(config ChaosConfig) *Chaos {
	if config.ErrorFactory == nil {
		config.ErrorFactory = func() error { return ErrChaosInjected }
	}
	if config.LatencyMax < config.LatencyMin {
		config.LatencyMax = config.LatencyMin
	}
	return &Chaos{config: config}
}

// OnEvent registers a listener for chaos events.
func (c *Chaos) OnEvent(l Listener[ChaosEvent]) {
	c.events.Add(l)
}

// Execute possibly injects latency, possibly injects a failure, and
// otherwise runs op.
func (c *Chaos) Execute(ctx context.Context, op func(context.Context) error) error {
	if c.config.LatencyProbability > 0 && rand.Float64() < c.config.LatencyProbability {
		d := c.config.LatencyMin
		if span := c.config.LatencyMax - c.config.LatencyMin; span > 0 {
			d += time.Duration(rand.Int64N(int64(span) + 1))
		}
		c.events.Emit(ChaosEvent{EventMeta: newEventMeta(c.config.Name), Kind: "latency_injected", Duration: d})

		timer := time.NewTimer(d)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if c.config.ErrorRate > 0 && rand.Float64() < c.config.ErrorRate {
		c.events.Emit(ChaosEvent{EventMeta: newEventMeta(c.config.Name), Kind: "error_injected"})
		return c.config.ErrorFactory()
	}

	c.events.Emit(ChaosEvent{EventMeta: newEventMeta(c.config.Name), Kind: "passed_through"})
	return op(ctx)
}
