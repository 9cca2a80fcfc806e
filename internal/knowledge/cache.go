// Package knowledge caches retrieval results behind a fallback chain.
// A query is fingerprinted, looked up in the cache, and on a miss
// resolved by trying each strategy in order; only successes are cached,
// so a failed retrieval is retried in full on the next request.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/act-dev-25/agents/internal/domain"
	"github.com/act-dev-25/agents/internal/logging"
	"github.com/act-dev-25/agents/internal/store"
)

const (
	// DefaultTTL is how long a cached result stays fresh.
	DefaultTTL = time.Hour
	// DefaultAttemptTimeout bounds each strategy attempt so one slow
	// source cannot stall the whole chain.
	DefaultAttemptTimeout = 10 * time.Second
)

// Cache resolves queries through an ordered strategy chain with a TTL
// cache in front. Concurrent requests for the same fingerprint are
// collapsed into a single retrieval.
type Cache struct {
	kv             store.KV
	strategies     []Strategy
	ttl            time.Duration
	attemptTimeout time.Duration
	log            *logging.Logger
	flight         singleflight.Group
}

func NewCache(kv store.KV, strategies []Strategy, ttl, attemptTimeout time.Duration, log *logging.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}
	return &Cache{
		kv:             kv,
		strategies:     strategies,
		ttl:            ttl,
		attemptTimeout: attemptTimeout,
		log:            log.Sub("knowledge"),
	}
}

// Result is a resolved query plus where the answer came from.
type Result struct {
	Payload []byte
	Source  string // strategy name, or "cache" on a hit
}

// GetOrCompute answers the query from cache or by walking the strategy
// chain. The first strategy success is cached under the query's
// fingerprint; if every strategy fails the errors are joined under
// ErrRetrievalExhausted and nothing is cached.
func (c *Cache) GetOrCompute(ctx context.Context, scope, query string) (*Result, error) {
	key := Fingerprint(scope, query)

	cached, ok, err := c.kv.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	if ok {
		return &Result{Payload: cached, Source: "cache"}, nil
	}

	v, err, _ := c.flight.Do(key, func() (any, error) {
		// A concurrent caller may have populated the key while this
		// one waited its turn in the flight group.
		cached, ok, err := c.kv.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("cache lookup: %w", err)
		}
		if ok {
			return &Result{Payload: cached, Source: "cache"}, nil
		}
		return c.retrieve(ctx, key, query)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (c *Cache) retrieve(ctx context.Context, key, query string) (*Result, error) {
	var failures []error
	for _, s := range c.strategies {
		attemptCtx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
		payload, err := s.Attempt(attemptCtx, query)
		cancel()
		if err != nil {
			c.log.Warn().Str("strategy", s.Name()).Err(err).Msg("retrieval attempt failed")
			failures = append(failures, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		if err := c.kv.Set(ctx, key, payload, c.ttl); err != nil {
			return nil, fmt.Errorf("cache store: %w", err)
		}
		c.log.Debug().Str("strategy", s.Name()).Msg("retrieval cached")
		return &Result{Payload: payload, Source: s.Name()}, nil
	}
	return nil, errors.Join(domain.ErrRetrievalExhausted, errors.Join(failures...))
}

// Invalidate drops the cached entry for one query.
func (c *Cache) Invalidate(ctx context.Context, scope, query string) error {
	if err := c.kv.Delete(ctx, Fingerprint(scope, query)); err != nil {
		return fmt.Errorf("invalidate: %w", err)
	}
	return nil
}

// InvalidateMatching drops every cached entry whose key starts with
// prefix. Returns how many entries were removed.
func (c *Cache) InvalidateMatching(ctx context.Context, prefix string) (int, error) {
	keys, err := c.kv.Keys(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("scan prefix: %w", err)
	}
	for _, key := range keys {
		if err := c.kv.Delete(ctx, key); err != nil {
			return 0, fmt.Errorf("invalidate %s: %w", key, err)
		}
	}
	return len(keys), nil
}

// InvalidateScope drops every cached entry in scope.
func (c *Cache) InvalidateScope(ctx context.Context, scope string) (int, error) {
	return c.InvalidateMatching(ctx, ScopePrefix(scope))
}
