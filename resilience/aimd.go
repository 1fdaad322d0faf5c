package resilience

import (
	"sync/atomic"
	"time"
)

// AIMDConfig configures an additive-increase/multiplicative-decrease
// controller.
type AIMDConfig struct {
	// Initial is the starting limit.
	// Default: 10
	Initial int64

	// Min is the floor the limit never drops below.
	// Default: 1
	Min int64

	// Max is the ceiling the limit never exceeds.
	// Default: 1000
	Max int64

	// IncreaseBy is added to the limit on every recorded success.
	// Default: 1
	IncreaseBy int64

	// DecreaseFactor multiplies the limit on a recorded failure, in
	// (0, 1).
	// Default: 0.5
	DecreaseFactor float64
}

func (c *AIMDConfig) applyDefaults() {
	if c.Initial <= 0 {
		c.Initial = 10
	}
	if c.Min <= 0 {
		c.Min = 1
	}
	if c.Max <= 0 {
		c.Max = 1000
	}
	if c.IncreaseBy <= 0 {
		c.IncreaseBy = 1
	}
	if c.DecreaseFactor <= 0 || c.DecreaseFactor >= 1 {
		c.DecreaseFactor = 0.5
	}
}

// AIMDController tracks a limit that climbs additively on success and
// collapses multiplicatively on failure. The limit is stored in a single
// atomic word so OnSuccess/OnFailure never block each other or Limit().
type AIMDController struct {
	config AIMDConfig
	limit  atomic.Int64
}

// NewAIMDController creates a new AIMD controller.
func NewAIMDController(config AIMDConfig) *AIMDController {
	config.applyDefaults()
	c := &AIMDController{config: config}
	c.limit.Store(config.Initial)
	return c
}

// Limit returns the current limit.
func (c *AIMDController) Limit() int64 {
	return c.limit.Load()
}

// OnSuccess records a success, additively increasing the limit up to Max.
func (c *AIMDController) OnSuccess() {
	c.OnSuccesses(1)
}

// OnSuccesses records n successes at once, equivalent to calling
// OnSuccess n times but without the intermediate CAS retries.
func (c *AIMDController) OnSuccesses(n int64) {
	if n <= 0 {
		return
	}
	for {
		cur := c.limit.Load()
		next := cur + c.config.IncreaseBy*n
		if next > c.config.Max {
			next = c.config.Max
		}
		if cur == next || c.limit.CompareAndSwap(cur, next) {
			return
		}
	}
}

// OnFailure records a failure, multiplicatively collapsing the limit
// down to Min.
func (c *AIMDController) OnFailure() {
	for {
		cur := c.limit.Load()
		next := int64(float64(cur) * c.config.DecreaseFactor)
		if next < c.config.Min {
			next = c.config.Min
		}
		if cur == next || c.limit.CompareAndSwap(cur, next) {
			return
		}
	}
}

// Reset returns the limit to its initial value.
func (c *AIMDController) Reset() {
	c.limit.Store(c.config.Initial)
}

// OnSample satisfies AdaptiveController, dispatching to OnSuccess or
// OnFailure and ignoring the sampled duration: the AIMD strategy reacts
// only to outcome, not latency.
func (c *AIMDController) OnSample(_ time.Duration, success bool) {
	if success {
		c.OnSuccess()
	} else {
		c.OnFailure()
	}
}
