package catalogs

import (
	"context"
	"slices"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/agentstation/bomsync/pkg/constants"
	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/logging"
	"github.com/agentstation/bomsync/pkg/parts"
)

const listingKey = "catalogs"

// Cache is a time-bounded cache of the catalog listing and of per-part
// catalog membership. Only one listing refresh is in flight at a time;
// callers arriving during a refresh wait for its result.
type Cache struct {
	repo CatalogRepository
	ttl  time.Duration
	now  func() time.Time

	mu        sync.RWMutex
	listing   []Catalog
	fetched   bool
	fetchedAt time.Time
	refreshes int

	flight  singleflight.Group
	members *gocache.Cache
}

// membership is a cached probe result. A miss is cached as well so the same
// part is not probed twice within one TTL window.
type membership struct {
	entry     Entry
	found     bool
	checkedAt time.Time
}

// CacheOption configures a Cache.
type CacheOption func(*Cache)

// WithTTL sets how long listings and membership results stay fresh.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithNow sets the time source used for freshness checks.
func WithNow(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache creates a cache in front of repo.
func NewCache(repo CatalogRepository, opts ...CacheOption) *Cache {
	c := &Cache{
		repo: repo,
		ttl:  constants.CatalogCacheTTL,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.members = gocache.New(c.ttl, constants.CacheCleanupInterval)
	return c
}

// TTL returns the freshness window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Catalogs returns the catalog listing, refreshing it when it is older than
// the TTL.
func (c *Cache) Catalogs(ctx context.Context) ([]Catalog, error) {
	c.mu.RLock()
	if c.fetched && c.now().Sub(c.fetchedAt) < c.ttl {
		out := slices.Clone(c.listing)
		c.mu.RUnlock()
		return out, nil
	}
	c.mu.RUnlock()

	// The shared refresh outlives any single waiter's cancellation.
	refreshCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(listingKey, func() (any, error) {
		list, err := c.repo.ListCatalogs(refreshCtx)
		if err != nil {
			return nil, errors.WrapResource("list", "catalogs", "", err)
		}
		c.mu.Lock()
		c.listing = slices.Clone(list)
		c.fetched = true
		c.fetchedAt = c.now()
		c.refreshes++
		c.mu.Unlock()
		logging.FromContext(refreshCtx).Debug().
			Int("catalogs", len(list)).
			Msg("Refreshed catalog listing")
		return list, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return slices.Clone(res.Val.([]Catalog)), nil
	}
}

// Invalidate marks the listing stale so the next access refreshes it.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.fetched = false
	c.mu.Unlock()
}

// Lookup returns a fresh cached membership result for a part. The second
// value reports whether the part was found, the third whether any fresh
// result was cached at all.
func (c *Cache) Lookup(partNumber string) (Entry, bool, bool) {
	v, ok := c.members.Get(parts.Normalize(partNumber))
	if !ok {
		return Entry{}, false, false
	}
	m := v.(membership)
	if c.now().Sub(m.checkedAt) >= c.ttl {
		return Entry{}, false, false
	}
	return m.entry, m.found, true
}

// Store records a membership result for a part.
func (c *Cache) Store(partNumber string, entry Entry, found bool) {
	c.members.Set(parts.Normalize(partNumber), membership{
		entry:     entry,
		found:     found,
		checkedAt: c.now(),
	}, gocache.DefaultExpiration)
}

// Forget drops the cached membership result for a part.
func (c *Cache) Forget(partNumber string) {
	c.members.Delete(parts.Normalize(partNumber))
}

// Probe reports which catalog holds a part, checking catalogs in the given
// order and stopping at the first hit. Lookup failures other than
// cancellation are logged and treated as a miss for that catalog; a miss is
// only cached when every catalog answered NotFound.
func (c *Cache) Probe(ctx context.Context, partNumber string, order []Catalog) (Entry, bool, error) {
	key := parts.Normalize(partNumber)
	if e, found, ok := c.Lookup(key); ok {
		return e, found, nil
	}

	clean := true
	for _, cat := range order {
		if err := ctx.Err(); err != nil {
			return Entry{}, false, err
		}
		e, err := c.repo.GetCatalogItem(ctx, cat.ID, key)
		switch {
		case err == nil:
			if e.CatalogID == "" {
				e.CatalogID = cat.ID
			}
			if e.PartNumber == "" {
				e.PartNumber = key
			}
			c.Store(key, e, true)
			return e, true, nil
		case errors.IsCanceled(err):
			return Entry{}, false, err
		case errors.IsNotFound(err):
		default:
			clean = false
			logging.FromContext(ctx).Warn().
				Err(err).
				Str("catalog_id", cat.ID).
				Str("part_number", key).
				Msg("Catalog lookup failed, treating part as unmatched")
		}
	}
	if clean {
		c.Store(key, Entry{}, false)
	}
	return Entry{}, false, nil
}

// CacheStats describes the cache contents.
type CacheStats struct {
	Catalogs  int `json:"catalogs"`
	Members   int `json:"members"`
	Refreshes int `json:"refreshes"`
}

// Stats returns current cache statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheStats{
		Catalogs:  len(c.listing),
		Members:   c.members.ItemCount(),
		Refreshes: c.refreshes,
	}
}
