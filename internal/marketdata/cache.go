package marketdata

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/neilchentw7/alpha-beta-dashboard/internal/returns"
)

// cacheEntry is one memoized fetch result.
type cacheEntry struct {
	series    returns.Series
	expiresAt time.Time
}

// CachedProvider memoizes another provider's fetches with a TTL, keyed by
// the requested date span. The upstream's freshness is its own concern;
// the cache only prevents refetching the same span on every dashboard
// reload within the TTL.
type CachedProvider struct {
	upstream Provider
	ttl      time.Duration
	group    singleflight.Group

	mu        sync.Mutex
	entries   map[string]cacheEntry
	hitCount  int64
	missCount int64
}

// NewCachedProvider wraps upstream with a TTL cache. A non-positive TTL
// disables caching entirely.
func NewCachedProvider(upstream Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		upstream: upstream,
		ttl:      ttl,
		entries:  make(map[string]cacheEntry),
	}
}

// FetchDailyReturns returns the cached series for the span when fresh,
// otherwise delegates to the upstream and stores the result. Upstream
// errors are never cached.
func (c *CachedProvider) FetchDailyReturns(ctx context.Context, start, end time.Time) (returns.Series, error) {
	if c.ttl <= 0 {
		return c.upstream.FetchDailyReturns(ctx, start, end)
	}

	key := spanKey(start, end)

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && time.Now().Before(entry.expiresAt) {
		c.hitCount++
		series := entry.series
		c.mu.Unlock()
		return series, nil
	}
	c.missCount++
	c.mu.Unlock()

	// Concurrent dashboard loads for the same span share one upstream
	// fetch instead of racing to fill the cache.
	result, err, _ := c.group.Do(key, func() (interface{}, error) {
		series, err := c.upstream.FetchDailyReturns(ctx, start, end)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = cacheEntry{series: series, expiresAt: time.Now().Add(c.ttl)}
		c.evictExpiredLocked()
		c.mu.Unlock()
		return series, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(returns.Series), nil
}

// Stats reports hit and miss counts since construction.
func (c *CachedProvider) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hitCount, c.missCount
}

// Invalidate drops every cached span.
func (c *CachedProvider) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *CachedProvider) evictExpiredLocked() {
	now := time.Now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func spanKey(start, end time.Time) string {
	return fmt.Sprintf("%s|%s", start.Format(returns.DateFormat), end.Format(returns.DateFormat))
}
