package analyze

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dealsentry/dealsentry/internal/catalog"
)

// CachedAnalyzer memoizes analysis results by ASIN plus a content hash
// of the source fields, so a listing whose upstream payload changed is
// re-analyzed naturally. Two concurrent requests for the same key run
// the analysis once.
type CachedAnalyzer struct {
	analyzer *Analyzer
	ttl      time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
}

type cacheEntry struct {
	features catalog.ProductFeatures
	storedAt time.Time
}

// NewCachedAnalyzer wraps an analyzer with a TTL cache. A zero TTL
// defaults to 30 minutes.
func NewCachedAnalyzer(analyzer *Analyzer, ttl time.Duration) *CachedAnalyzer {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &CachedAnalyzer{
		analyzer: analyzer,
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[string]cacheEntry),
	}
}

// Analyze returns the cached record when fresh, computing it at most
// once per key otherwise.
func (c *CachedAnalyzer) Analyze(p *catalog.Product, category string) catalog.ProductFeatures {
	key := cacheKey(p, category)

	c.mu.RLock()
	if e, ok := c.entries[key]; ok && c.now().Sub(e.storedAt) < c.ttl {
		c.mu.RUnlock()
		return e.features
	}
	c.mu.RUnlock()

	v, _, _ := c.group.Do(key, func() (interface{}, error) {
		pf := c.analyzer.Analyze(p, category)
		c.mu.Lock()
		c.entries[key] = cacheEntry{features: pf, storedAt: c.now()}
		c.mu.Unlock()
		return pf, nil
	})
	return v.(catalog.ProductFeatures)
}

// Evict drops expired entries; callers may run it periodically.
func (c *CachedAnalyzer) Evict() {
	cutoff := c.now().Add(-c.ttl)
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if e.storedAt.Before(cutoff) {
			delete(c.entries, k)
		}
	}
}

func cacheKey(p *catalog.Product, category string) string {
	h := fnv.New64a()
	fmt.Fprint(h, p.Title, "\x00", p.Brand, "\x00")
	for _, f := range p.FeaturesList {
		fmt.Fprint(h, f, "\x1f")
	}
	// Map order is randomized; hash a stable fold instead.
	var sum uint64
	for k, v := range p.TechnicalDetails {
		hh := fnv.New64a()
		fmt.Fprint(hh, k, "=", v)
		sum += hh.Sum64()
	}
	fmt.Fprint(h, sum)
	return fmt.Sprintf("%s:%s:%x", p.ASIN, category, h.Sum64())
}
