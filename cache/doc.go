// Package cache provides deterministic result caching as a resilience.Handler
// decorator.
//
// It provides a Cache interface with a memory implementation, SHA-256-based
// key derivation, and TTL policies with unsafe-tag handling.
//
// # Ecosystem Position
//
// cache sits in front of a resilience.Handler, intercepting calls to avoid
// redundant work:
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                        Call Flow                                 │
//	├─────────────────────────────────────────────────────────────────┤
//	│                                                                 │
//	│   caller             cache.Handler          inner Handler       │
//	│   ┌──────┐         ┌─────────┐          ┌─────────┐            │
//	│   │ Call │────────▶│ Handler │─────────▶│ Execute │            │
//	│   └──────┘         │         │  miss    └─────────┘            │
//	│       ▲            │ ┌─────┐ │              │                   │
//	│       │            │ │Keyer│ │              │                   │
//	│       │            │ ├─────┤ │              │                   │
//	│       │            │ │Cache│◀──────────────┘                   │
//	│       │            │ ├─────┤ │   store                         │
//	│       │    hit     │ │Codec│ │                                 │
//	│       └────────────│ └─────┘ │                                 │
//	│                    └─────────┘                                 │
//	│                                                                 │
//	└─────────────────────────────────────────────────────────────────┘
//
// # Core Components
//
//   - [Cache]: interface for caching results (Get/Set/Delete)
//   - [MemoryCache]: thread-safe in-memory cache with TTL support
//   - [Keyer]: interface for deterministic cache key generation from a request
//   - [DefaultKeyer]: SHA-256 based keyer with canonical JSON serialization
//   - [Codec]: converts a typed response to and from the bytes Cache stores
//   - [Policy]: configures TTL defaults, maximums, and unsafe tag handling
//   - [Handler]: a resilience.Handler decorator that caches successful results
//
// # Quick Start
//
//	policy := cache.DefaultPolicy() // 5min TTL, 1hr max
//	memCache := cache.NewMemoryCache(policy)
//
//	h := cache.NewHandler[SearchRequest, SearchResponse](searchHandler, cache.HandlerConfig[SearchRequest, SearchResponse]{
//	    Name:  "github.search",
//	    Cache: memCache,
//	    Codec: cache.JSONCodec[SearchResponse]{},
//	})
//
//	resp, err := h.Execute(ctx, req)
//
// h implements resilience.Handler, so it composes with any other Handler
// decorator in this module (retries, circuit breakers, bulkheads).
//
// # Key Generation
//
// [DefaultKeyer] generates deterministic cache keys using:
//
//	cache:<name>:<hash>
//
// where hash is the first 16 hex characters of SHA-256(canonical JSON(req)).
// Canonical JSON sorts map keys for deterministic serialization.
//
// # TTL Policies
//
// [Policy] controls caching behavior:
//
//   - DefaultTTL: applied when no specific TTL is provided
//   - MaxTTL: upper bound for any TTL (prevents excessive caching)
//   - AllowUnsafe: whether to cache calls tagged unsafe
//
// Preset policies:
//
//   - [DefaultPolicy]: 5 minute default, 1 hour max, unsafe=false
//   - [NoCachePolicy]: disabled (0 TTL)
//
// # Unsafe Tag Handling
//
// Calls tagged with certain strings should not be cached because they have
// side effects:
//
//   - write, danger, unsafe, mutation, delete
//
// [DefaultSkipRule] checks [HandlerConfig.Tags] for these (case-insensitive)
// and skips caching. Override via [HandlerConfig.SkipRule].
//
// # Thread Safety
//
// All exported types are safe for concurrent use:
//
//   - [MemoryCache]: sync.RWMutex protects all operations
//   - [DefaultKeyer]: stateless, concurrent-safe
//   - [Handler]: delegates to thread-safe Cache/Keyer/Codec
//   - [Policy]: immutable struct, concurrent-safe
//
// # Error Handling
//
// Sentinel errors (use errors.Is for checking):
//
//   - [ErrNilCache]: Cache is nil
//   - [ErrInvalidKey]: key is empty, whitespace-only, or contains newlines
//   - [ErrKeyTooLong]: key exceeds MaxKeyLength (512 characters)
//
// Cache.Get never returns errors; it returns (nil, false) on miss. Key
// validation is performed via [ValidateKey].
package cache
