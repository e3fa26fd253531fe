package schema

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultCacheTTL is how long a cached snapshot stays fresh.
const DefaultCacheTTL = time.Hour

// IntrospectFunc produces a fresh schema snapshot from the live catalog.
type IntrospectFunc func(ctx context.Context) (*Description, error)

// Cache is a single-slot, time-boxed memo of the introspected schema.
// The slot is guarded by a mutex, so concurrent misses are single-flighted
// behind the refresh. Refresh replaces the snapshot wholesale.
type Cache struct {
	mu         sync.Mutex
	introspect IntrospectFunc
	ttl        time.Duration
	now        func() time.Time
	snapshot   *Description
	fetchedAt  time.Time
	logger     *zap.Logger
}

// NewCache creates a cache around the given introspection function.
// A non-positive ttl falls back to DefaultCacheTTL. A nil logger is
// replaced with a no-op logger.
func NewCache(introspect IntrospectFunc, ttl time.Duration, logger *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		introspect: introspect,
		ttl:        ttl,
		now:        time.Now,
		logger:     logger.Named("schema-cache"),
	}
}

// Get returns the cached snapshot when it is younger than the TTL and
// forceRefresh is false; otherwise it re-introspects, stores the result
// with the current timestamp, and returns it.
func (c *Cache) Get(ctx context.Context, forceRefresh bool) (*Description, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !forceRefresh && c.snapshot != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.snapshot, nil
	}

	start := c.now()
	snapshot, err := c.introspect(ctx)
	if err != nil {
		return nil, err
	}

	c.snapshot = snapshot
	c.fetchedAt = c.now()
	c.logger.Info("schema snapshot refreshed",
		zap.String("database", snapshot.DatabaseName),
		zap.String("dialect", string(snapshot.Dialect)),
		zap.Int("tables", len(snapshot.Tables)),
		zap.Duration("elapsed", c.now().Sub(start)))

	return snapshot, nil
}

// Invalidate clears the cache unconditionally. The next Get re-introspects.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = nil
	c.fetchedAt = time.Time{}
}
