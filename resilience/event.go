package resilience

import (
	"time"
)

// Event is implemented by every pattern's event type. Every variant
// carries the pattern instance name and a monotonic-ish wall timestamp.
type Event interface {
	PatternName() string
	Time() time.Time
}

// EventMeta is embedded in every concrete event type to satisfy Event.
type EventMeta struct {
	Name string
	At   time.Time
}

// PatternName returns the owning pattern instance's name.
func (m EventMeta) PatternName() string { return m.Name }

// Time returns when the event was produced.
func (m EventMeta) Time() time.Time { return m.At }

// newEventMeta stamps an EventMeta with the current time.
func newEventMeta(name string) EventMeta {
	return EventMeta{Name: name, At: time.Now()}
}

// Listener is a callback invoked for every event of type E.
type Listener[E Event] func(E)

// ListenerSet is an append-only, build-once collection of listeners for a
// single event type. It is safe to share across clones of a pattern
// (copying it copies only the slice header, so copies share the
// listeners) and safe to invoke
// concurrently without external locking: Add is only valid before the
// pattern is considered built, Emit never mutates the set.
//
// Listener panics are caught and isolated: a panicking listener never
// prevents sibling listeners from observing the event, nor prevents
// future Emit calls from delivering to all listeners. Listeners run
// synchronously, on the calling goroutine, in registration order.
type ListenerSet[E Event] struct {
	listeners []Listener[E]
}

// Add registers a listener. Intended to be called only while a pattern is
// being constructed, never concurrently with Emit.
func (s *ListenerSet[E]) Add(l Listener[E]) {
	if l == nil {
		return
	}
	s.listeners = append(s.listeners, l)
}

// Emit delivers ev to every registered listener, in registration order,
// isolating panics so that emission always returns normally.
func (s *ListenerSet[E]) Emit(ev E) {
	for _, l := range s.listeners {
		s.safeInvoke(l, ev)
	}
}

func (s *ListenerSet[E]) safeInvoke(l Listener[E], ev E) {
	defer func() {
		_ = recover()
	}()
	l(ev)
}

// Len reports how many listeners are registered. Mostly useful in tests.
func (s *ListenerSet[E]) Len() int {
	return len(s.listeners)
}
