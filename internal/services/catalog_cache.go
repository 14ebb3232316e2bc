package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/duds-studio/catalog-api/internal/domain"
)

// FetchFunc loads the full in-stock product list from the backing store.
type FetchFunc func(ctx context.Context) ([]domain.Product, error)

// DefaultCacheTTL bounds how stale a served product list can be.
const DefaultCacheTTL = 5 * time.Minute

// CatalogCacheDeps carries the dependencies for NewCatalogCache.
type CatalogCacheDeps struct {
	// Fetch is required.
	Fetch FetchFunc
	// TTL defaults to DefaultCacheTTL when zero.
	TTL time.Duration
	// Clock defaults to time.Now when nil.
	Clock func() time.Time
}

// CatalogCache serves a shared product snapshot with a TTL. Concurrent
// callers that miss the cache share a single fetch; a failed fetch leaves
// any previous snapshot untouched.
type CatalogCache struct {
	fetch FetchFunc
	ttl   time.Duration
	clock func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	products  []domain.Product
	fetchedAt time.Time
	valid     bool
}

func NewCatalogCache(deps CatalogCacheDeps) *CatalogCache {
	if deps.TTL <= 0 {
		deps.TTL = DefaultCacheTTL
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &CatalogCache{
		fetch: deps.Fetch,
		ttl:   deps.TTL,
		clock: deps.Clock,
	}
}

type snapshot struct {
	products  []domain.Product
	fetchedAt time.Time
}

// Get returns the cached snapshot, refreshing it through a single shared
// fetch when the TTL has lapsed. The snapshot is handed back through the
// flight group itself, so a successful Get always carries the products it
// fetched even when an Invalidate races the refresh. The returned slice is
// shared between callers and must not be mutated.
func (c *CatalogCache) Get(ctx context.Context) ([]domain.Product, time.Time, error) {
	if products, fetchedAt, ok := c.cached(); ok {
		return products, fetchedAt, nil
	}

	v, err, _ := c.group.Do("catalog", func() (any, error) {
		// Re-check under the group: a concurrent caller may have
		// refreshed the snapshot while this one queued.
		if products, fetchedAt, ok := c.cached(); ok {
			return snapshot{products: products, fetchedAt: fetchedAt}, nil
		}

		products, err := c.fetch(ctx)
		if err != nil {
			return nil, err
		}
		fetchedAt := c.clock()

		c.mu.Lock()
		c.products = products
		c.fetchedAt = fetchedAt
		c.valid = true
		c.mu.Unlock()
		return snapshot{products: products, fetchedAt: fetchedAt}, nil
	})
	if err != nil {
		return nil, time.Time{}, err
	}

	snap := v.(snapshot)
	return snap.products, snap.fetchedAt, nil
}

// Invalidate discards the snapshot so the next Get refetches.
func (c *CatalogCache) Invalidate() {
	c.mu.Lock()
	c.products = nil
	c.fetchedAt = time.Time{}
	c.valid = false
	c.mu.Unlock()
}

func (c *CatalogCache) cached() ([]domain.Product, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.valid {
		return nil, time.Time{}, false
	}
	if c.clock().Sub(c.fetchedAt) >= c.ttl {
		return nil, time.Time{}, false
	}
	return c.products, c.fetchedAt, true
}
