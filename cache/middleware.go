package cache

import (
	"context"
	"strings"
	"time"

	"github.com/faultlinehq/resilience/resilience"
)

// SkipRule determines whether to skip caching for a given request, keyed
// by whatever tags the caller associates with it (e.g. operation tags
// like "write" or "danger").
// Returns true if caching should be skipped.
type SkipRule func(tags []string) bool

// UnsafeTags are tags that indicate a request has side effects and should not be cached.
var UnsafeTags = []string{"write", "danger", "unsafe", "mutation", "delete"}

// DefaultSkipRule skips caching for requests carrying unsafe tags.
// Tag matching is case-insensitive.
func DefaultSkipRule(tags []string) bool {
	for _, tag := range tags {
		tagLower := strings.ToLower(tag)
		for _, unsafe := range UnsafeTags {
			if tagLower == unsafe {
				return true
			}
		}
	}
	return false
}

// CacheEvent is emitted on every lookup.
type CacheEvent struct {
	resilience.EventMeta

	// Kind is one of "hit", "miss", "stored", "bypassed".
	Kind string
}

// Codec converts a cached Resp to and from bytes, since Cache stores
// []byte. A Handler whose Resp is already []byte can use BytesCodec.
type Codec[Resp any] interface {
	Encode(Resp) ([]byte, error)
	Decode([]byte) (Resp, error)
}

// HandlerConfig configures a caching Handler.
type HandlerConfig[Req, Resp any] struct {
	// Name identifies this cache instance in events/telemetry and, via
	// DefaultKeyer, namespaces its keys within a shared Cache.
	Name string

	// Cache backs the lookups. Required.
	Cache Cache

	// Keyer derives a cache key from a request.
	// Default: NewDefaultKeyer[Req](Name)
	Keyer Keyer[Req]

	// Codec converts between Resp and the []byte Cache stores. Required.
	Codec Codec[Resp]

	// Policy controls TTL and unsafe-tag handling.
	// Default: DefaultPolicy(). A zero Policy is replaced by the default,
	// and NoCachePolicy() is the zero Policy, so it does not turn caching
	// off here.
	Policy Policy

	// Tags classifies every call made through this Handler (e.g. "write",
	// "read"), consulted by SkipRule.
	Tags []string

	// SkipRule decides whether a call should bypass caching entirely,
	// independent of Policy.AllowUnsafe.
	// Default: DefaultSkipRule
	SkipRule SkipRule
}

// Handler wraps an inner resilience.Handler with caching: a hit returns
// the cached response without invoking inner; a miss invokes inner and,
// on success, stores the result under Policy's effective TTL. Errors are
// never cached.
type Handler[Req, Resp any] struct {
	config HandlerConfig[Req, Resp]
	inner  resilience.Handler[Req, Resp]
	events resilience.ListenerSet[CacheEvent]
}

// NewHandler creates a new caching Handler wrapping inner.
func NewHandler[Req, Resp any](inner resilience.Handler[Req, Resp], config HandlerConfig[Req, Resp]) *Handler[Req, Resp] {
	if config.Keyer == nil {
		config.Keyer = NewDefaultKeyer[Req](config.Name)
	}
	if config.SkipRule == nil {
		config.SkipRule = DefaultSkipRule
	}
	if config.Policy == (Policy{}) {
		config.Policy = DefaultPolicy()
	}
	return &Handler[Req, Resp]{config: config, inner: inner}
}

// OnEvent registers a listener for cache events.
func (h *Handler[Req, Resp]) OnEvent(l resilience.Listener[CacheEvent]) {
	h.events.Add(l)
}

func (h *Handler[Req, Resp]) emit(kind string) {
	h.events.Emit(CacheEvent{
		EventMeta: resilience.EventMeta{Name: h.config.Name, At: time.Now()},
		Kind:      kind,
	})
}

// Execute serves req from the cache on a hit; otherwise it runs inner and
// caches a successful result.
func (h *Handler[Req, Resp]) Execute(ctx context.Context, req Req) (Resp, error) {
	var zero Resp

	if !h.config.Policy.AllowUnsafe && h.config.SkipRule(h.config.Tags) {
		h.emit("bypassed")
		return h.inner.Execute(ctx, req)
	}
	if !h.config.Policy.ShouldCache() {
		h.emit("bypassed")
		return h.inner.Execute(ctx, req)
	}

	key, err := h.config.Keyer.Key(req)
	if err != nil {
		return h.inner.Execute(ctx, req)
	}

	if raw, ok := h.config.Cache.Get(ctx, key); ok {
		resp, decErr := h.config.Codec.Decode(raw)
		if decErr == nil {
			h.emit("hit")
			return resp, nil
		}
	}
	h.emit("miss")

	resp, err := h.inner.Execute(ctx, req)
	if err != nil {
		return zero, err
	}

	ttl := h.config.Policy.EffectiveTTL(0)
	if ttl > 0 {
		if raw, encErr := h.config.Codec.Encode(resp); encErr == nil {
			if err := h.config.Cache.Set(ctx, key, raw, ttl); err == nil {
				h.emit("stored")
			}
		}
	}

	return resp, nil
}
