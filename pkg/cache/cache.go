package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/platinummonkey/protorules/pkg/compiler"
	"github.com/platinummonkey/protorules/pkg/observability"
	"github.com/platinummonkey/protorules/pkg/store"
)

// Option configures a CompiledCache
type Option func(*CompiledCache)

// WithMetrics reports hits, misses and size to Prometheus
func WithMetrics(metrics *observability.Metrics) Option {
	return func(c *CompiledCache) {
		c.metrics = metrics
	}
}

// WithLogger sets the cache logger
func WithLogger(logger *observability.Logger) Option {
	return func(c *CompiledCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithStore persists every compiled source so Lookup can rebuild sets
// that were evicted or compiled by another process
func WithStore(s store.SourceStore) Option {
	return func(c *CompiledCache) {
		c.store = s
	}
}

// CompiledCache keeps compiled validator sets keyed by source hash.
// Concurrent misses for the same source compile once.
type CompiledCache struct {
	config   *Config
	compiler *compiler.Compiler
	cache    *lru.LRU[string, *compiler.ValidatorSet]
	group    singleflight.Group
	stats    *counters
	metrics  *observability.Metrics
	logger   *observability.Logger
	store    store.SourceStore
}

// Stats holds cache statistics. Restores counts sets rebuilt from the
// source store.
type Stats struct {
	Hits     int64   `json:"hits" yaml:"hits"`
	Misses   int64   `json:"misses" yaml:"misses"`
	Entries  int     `json:"entries" yaml:"entries"`
	Restores int64   `json:"restores" yaml:"restores"`
	HitRate  float64 `json:"hit_rate" yaml:"hit_rate"`
}

// New creates a cache in front of c. A nil config uses DefaultConfig.
func New(config *Config, c *compiler.Compiler, opts ...Option) (*CompiledCache, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid cache config: %w", err)
	}
	if c == nil {
		c = compiler.New()
	}

	cc := &CompiledCache{
		config:   config,
		compiler: c,
		stats:    &counters{},
		logger:   observability.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(cc)
	}

	cc.cache = lru.NewLRU[string, *compiler.ValidatorSet](config.MaxEntries, cc.onEvict, config.TTL)
	return cc, nil
}

// Get returns the compiled set for source, compiling it on a miss.
// Compilation errors are returned and never cached.
func (c *CompiledCache) Get(ctx context.Context, source string) (*compiler.ValidatorSet, error) {
	key := Key(source)

	if set, ok := c.cache.Get(key); ok {
		c.recordLookup(true)
		return set, nil
	}
	c.recordLookup(false)

	return c.compile(ctx, key, source, false)
}

// compile builds the set for source once per key across concurrent
// callers, caches it and, unless it came from the store, persists the source.
// The shared compilation is detached from any one caller's cancellation;
// each caller stops waiting when its own ctx is done.
func (c *CompiledCache) compile(ctx context.Context, key, source string, restored bool) (*compiler.ValidatorSet, error) {
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		if set, ok := c.cache.Get(key); ok {
			return set, nil
		}
		set, err := c.compiler.Compile(shared, source)
		if err != nil {
			return nil, err
		}
		c.cache.Add(key, set)
		c.metrics.SetCacheEntries(c.cache.Len())
		c.logger.WithField("key", key).WithField("validators", set.Len()).Debug("cached compiled schema")

		if c.store != nil && !restored {
			if err := c.store.Put(shared, key, source); err != nil {
				c.logger.WithError(err).WithField("key", key).Warn("failed to persist schema source")
			}
		}
		return set, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*compiler.ValidatorSet), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Lookup returns the set for key without new source text. On a miss the
// source is loaded from the store, when one is attached, and recompiled.
func (c *CompiledCache) Lookup(ctx context.Context, key string) (*compiler.ValidatorSet, error) {
	if !ValidKey(key) {
		return nil, ErrInvalidCacheKey
	}
	set, ok := c.cache.Get(key)
	c.recordLookup(ok)
	if ok {
		return set, nil
	}
	if c.store == nil {
		return nil, ErrCacheMiss
	}

	source, err := c.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if Key(source) != key {
		return nil, fmt.Errorf("%w: stored source does not hash to %s", ErrStoreUnavailable, key)
	}

	set, err = c.compile(ctx, key, source, true)
	if err != nil {
		return nil, err
	}
	c.stats.restores.Add(1)
	c.logger.WithField("key", key).Info("restored compiled schema from store")
	return set, nil
}

// Delete removes a cached set and its stored source
func (c *CompiledCache) Delete(ctx context.Context, key string) error {
	if !ValidKey(key) {
		return ErrInvalidCacheKey
	}
	c.cache.Remove(key)
	c.metrics.SetCacheEntries(c.cache.Len())
	if c.store != nil {
		if err := c.store.Delete(ctx, key); err != nil {
			return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}
	return nil
}

// Ping checks the attached store. Without one it always succeeds.
func (c *CompiledCache) Ping(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	return c.store.Ping(ctx)
}

// HasStore reports whether a source store is attached
func (c *CompiledCache) HasStore() bool {
	return c.store != nil
}

// Purge removes every cached set. Stored sources are kept.
func (c *CompiledCache) Purge() {
	c.cache.Purge()
	c.metrics.SetCacheEntries(0)
}

// Len returns the number of cached sets
func (c *CompiledCache) Len() int {
	return c.cache.Len()
}

// Stats returns cache statistics
func (c *CompiledCache) Stats() Stats {
	stats := Stats{
		Hits:     c.stats.hits.Load(),
		Misses:   c.stats.misses.Load(),
		Entries:  c.cache.Len(),
		Restores: c.stats.restores.Load(),
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}
	return stats
}

func (c *CompiledCache) recordLookup(hit bool) {
	if hit {
		c.stats.hits.Add(1)
	} else {
		c.stats.misses.Add(1)
	}
	c.metrics.RecordCacheLookup(hit)
}

func (c *CompiledCache) onEvict(key string, _ *compiler.ValidatorSet) {
	c.logger.WithField("key", key).Debug("evicted compiled schema")
}

// counters tracks cache lookups
type counters struct {
	hits     atomic.Int64
	misses   atomic.Int64
	restores atomic.Int64
}
