package resilience

import (
	"context"
	"time"
)

// TimeoutEvent is emitted on every call outcome.
type TimeoutEvent struct {
	EventMeta

	// Kind is one of "success", "error", "timeout".
	Kind     string
	Duration time.Duration
}

// TimeoutConfig configures the timeout wrapper.
type TimeoutConfig struct {
	// Name identifies this timeout instance in events/telemetry.
	Name string

	// Timeout is the maximum duration for the operation.
	// Default: 30 seconds
	Timeout time.Duration
}

// Timeout wraps operations with a timeout. On expiry the wrapped
// operation's context is cancelled and Execute returns immediately;
// the operation's goroutine is not waited on and must observe ctx.Done
// itself to stop promptly. A wrapped op that ignores context
// cancellation keeps running in the background after Execute returns.
type Timeout struct {
	config TimeoutConfig
	events ListenerSet[TimeoutEvent]
}

// NewTimeout creates a new timeout wrapper.
func NewTimeout(config TimeoutConfig) *Timeout {
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	return &Timeout{config: config}
}

// OnEvent registers a listener for timeout events.
func (t *Timeout) OnEvent(l Listener[TimeoutEvent]) {
	t.events.Add(l)
}

// Execute runs the operation with a timeout.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, t.config.Timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)

	go func() {
		done <- op(ctx)
	}()

	select {
	case err := <-done:
		d := time.Since(start)
		kind := "success"
		if err != nil {
			kind = "error"
		}
		t.events.Emit(TimeoutEvent{EventMeta: newEventMeta(t.config.Name), Kind: kind, Duration: d})
		return err
	case <-ctx.Done():
		d := time.Since(start)
		if ctx.Err() == context.DeadlineExceeded {
			t.events.Emit(TimeoutEvent{EventMeta: newEventMeta(t.config.Name), Kind: "timeout", Duration: d})
			return ErrTimeout
		}
		t.events.Emit(TimeoutEvent{EventMeta: newEventMeta(t.config.Name), Kind: "error", Duration: d})
		return ctx.Err()
	}
}

// Config returns the timeout configuration.
func (t *Timeout) Config() TimeoutConfig {
	return t.config
}

// ExecuteWithTimeout is a convenience function to run an operation with a
// one-off timeout, without constructing a reusable Timeout value.
func ExecuteWithTimeout(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	t := NewTimeout(TimeoutConfig{Timeout: timeout})
	return t.Execute(ctx, op)
}
