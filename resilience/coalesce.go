package resilience

import (
	"context"
	"fmt"
	"sync"
)

// CoalesceEvent is emitted for each caller's role in a coalesced call and
// for cancellation outcomes.
type CoalesceEvent struct {
	EventMeta

	// Kind is one of "leader", "follower", "leader_cancelled",
	// "receive_error".
	Kind string
}

// coalesceCall is the in-flight state shared by a leader and its
// followers. finish is idempotent: whichever of op's completion or the
// leader's cancellation happens first wins, and the other is a no-op.
type coalesceCall[Resp any] struct {
	once sync.Once
	done chan struct{}
	resp Resp
	err  error
}

func newCoalesceCall[Resp any]() *coalesceCall[Resp] {
	return &coalesceCall[Resp]{done: make(chan struct{})}
}

func (c *coalesceCall[Resp]) finish(resp Resp, err error) {
	c.once.Do(func() {
		c.resp = resp
		c.err = err
		close(c.done)
	})
}

// Coalescer collapses concurrent requests for the same key into a single
// underlying call, fanning the result out to every waiter. Unlike a
// singleflight.Group, each key's in-flight call is a coalesceCall this
// type manages directly: that's what lets a cancelled leader immediately
// free the key for a fresh leader and immediately unblock its followers
// with ErrLeaderCancelled, rather than leaving them to receive whatever
// result the abandoned call eventually produces.
type Coalescer[K comparable, Req, Resp any] struct {
	name    string
	keyFunc func(Req) K
	clone   func(Resp) Resp

	mu    sync.Mutex
	calls map[string]*coalesceCall[Resp]

	events ListenerSet[CoalesceEvent]
}

// CoalescerConfig configures a Coalescer.
type CoalescerConfig[K comparable, Req, Resp any] struct {
	// Name identifies this coalescer instance in events/telemetry.
	Name string

	// KeyFunc derives the coalescing key from a request. Concurrent
	// requests that map to the same key share one underlying call.
	// Required.
	KeyFunc func(Req) K

	// Clone, if set, is applied to the shared result before returning it
	// to each waiter, so callers can't mutate a value shared by others.
	Clone func(Resp) Resp
}

// NewCoalescer creates a new Coalescer. KeyFunc must be set.
func NewCoalescer[K comparable, Req, Resp any](config CoalescerConfig[K, Req, Resp]) *Coalescer[K, Req, Resp] {
	if config.KeyFunc == nil {
		panic("resilience: CoalescerConfig.KeyFunc is required")
	}

	return &Coalescer[K, Req, Resp]{
		name:    config.Name,
		keyFunc: config.KeyFunc,
		clone:   config.Clone,
		calls:   make(map[string]*coalesceCall[Resp]),
	}
}

// OnEvent registers a listener for coalescer events.
func (c *Coalescer[K, Req, Resp]) OnEvent(l Listener[CoalesceEvent]) {
	c.events.Add(l)
}

// Execute runs op for req, sharing one in-flight call across every
// concurrent caller whose KeyFunc(req) matches. The first caller for a
// key is the leader and runs op; later callers for the same key are
// followers that only wait on the shared result.
//
// If a follower's ctx is cancelled before the shared result is ready, it
// returns ErrReceiveError; the leader's call is unaffected. If the
// leader's ctx is cancelled first, the key is freed immediately (a
// subsequent caller becomes a fresh leader rather than joining the
// abandoned call) and every follower still waiting observes
// ErrLeaderCancelled. op itself is not interrupted — it may still run to
// completion in the background — but its result is discarded.
func (c *Coalescer[K, Req, Resp]) Execute(ctx context.Context, req Req, op func(context.Context, Req) (Resp, error)) (Resp, error) {
	var zero Resp
	key := fmt.Sprintf("%v", c.keyFunc(req))

	c.mu.Lock()
	call, exists := c.calls[key]
	isLeader := !exists
	if isLeader {
		call = newCoalesceCall[Resp]()
		c.calls[key] = call
	}
	c.mu.Unlock()

	kind := "follower"
	if isLeader {
		kind = "leader"
	}
	c.events.Emit(CoalesceEvent{EventMeta: newEventMeta(c.name), Kind: kind})

	if !isLeader {
		select {
		case <-call.done:
			if call.err != nil {
				return zero, call.err
			}
			resp := call.resp
			if c.clone != nil {
				resp = c.clone(resp)
			}
			return resp, nil
		case <-ctx.Done():
			c.events.Emit(CoalesceEvent{EventMeta: newEventMeta(c.name), Kind: "receive_error"})
			return zero, ErrReceiveError
		}
	}

	go func() {
		resp, err := op(ctx, req)
		call.finish(resp, err)
	}()

	select {
	case <-call.done:
		c.release(key, call)
		if call.err != nil {
			return zero, call.err
		}
		resp := call.resp
		if c.clone != nil {
			resp = c.clone(resp)
		}
		return resp, nil
	case <-ctx.Done():
		c.release(key, call)
		call.finish(zero, ErrLeaderCancelled)
		c.events.Emit(CoalesceEvent{EventMeta: newEventMeta(c.name), Kind: "leader_cancelled"})
		return zero, ErrLeaderCancelled
	}
}

// release removes call from the map if it is still the current entry for
// key, so the next caller starts fresh rather than joining a resolved or
// abandoned one.
func (c *Coalescer[K, Req, Resp]) release(key string, call *coalesceCall[Resp]) {
	c.mu.Lock()
	if c.calls[key] == call {
		delete(c.calls, key)
	}
	c.mu.Unlock()
}

// Forget removes any cached in-flight call for req's key, so the next
// Execute for that key starts a fresh call rather than joining a stale
// one.
func (c *Coalescer[K, Req, Resp]) Forget(req Req) {
	key := fmt.Sprintf("%v", c.keyFunc(req))
	c.mu.Lock()
	delete(c.calls, key)
	c.mu.Unlock()
}
