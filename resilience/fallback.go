package resilience

import "context"

// FallbackEvent is emitted on every primary/fallback outcome.
type FallbackEvent struct {
	EventMeta

	// Kind is one of "primary_succeeded", "fallback_succeeded",
	// "fallback_failed", "primary_failed_no_fallback".
	Kind string
	Err  error
}

// FallbackConfig configures the fallback wrapper.
type FallbackConfig struct {
	// Name identifies this fallback instance in events/telemetry.
	Name string

	// ShouldFallback decides whether a primary error should trigger the
	// fallback, or be returned as-is.
	// Default: all non-nil errors trigger the fallback.
	ShouldFallback func(err error) bool
}

// Fallback runs a primary operation and, on a qualifying failure, runs a
// substitute operation instead of propagating the error.
type Fallback struct {
	config FallbackConfig
	events ListenerSet[FallbackEvent]
}

// NewFallback creates a new fallback wrapper.
func NewFallback(config FallbackConfig) *Fallback {
	if config.ShouldFallback == nil {
		config.ShouldFallback = func(err error) bool { return err != nil }
	}
	return &Fallback{config: config}
}

// OnEvent registers a listener for fallback events.
func (f *Fallback) OnEvent(l Listener[FallbackEvent]) {
	f.events.Add(l)
}

// Execute runs primary; if it fails and ShouldFallback accepts the error,
// fallback runs instead and its result (success or failure) is returned.
func (f *Fallback) Execute(ctx context.Context, primary, fallback func(context.Context) error) error {
	err := primary(ctx)
	if err == nil {
		f.events.Emit(FallbackEvent{EventMeta: newEventMeta(f.config.Name), Kind: "primary_succeeded"})
		return nil
	}

	if !f.config.ShouldFallback(err) {
		f.events.Emit(FallbackEvent{EventMeta: newEventMeta(f.config.Name), Kind: "primary_failed_no_fallback", Err: err})
		return err
	}

	if ferr := fallback(ctx); ferr != nil {
		f.events.Emit(FallbackEvent{EventMeta: newEventMeta(f.config.Name), Kind: "fallback_failed", Err: ferr})
		return ferr
	}

	f.events.Emit(FallbackEvent{EventMeta: newEventMeta(f.config.Name), Kind: "fallback_succeeded"})
	return nil
}
