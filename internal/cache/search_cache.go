package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/dealsentry/dealsentry/internal/catalog"
)

// TTL guidance: search results go stale quickly (prices move), item
// details less so.
const (
	SearchTTL = 10 * time.Minute
	ItemTTL   = 30 * time.Minute
)

// SearchKey is the canonical cache key input for one upstream search.
type SearchKey struct {
	Keywords      string
	SearchIndex   string
	MinPrice      int
	MaxPrice      int
	BrowseNode    string
	ItemCount     int
	ResourceSetID string
}

// String renders the normalized key. Keyword order and case are
// canonicalized so equivalent searches share an entry.
func (k SearchKey) String() string {
	words := strings.Fields(strings.ToLower(k.Keywords))
	raw := fmt.Sprintf("%s|%s|%d|%d|%s|%d|%s",
		strings.Join(words, " "), strings.ToLower(k.SearchIndex),
		k.MinPrice, k.MaxPrice, k.BrowseNode, k.ItemCount, k.ResourceSetID)
	sum := sha1.Sum([]byte(raw))
	return "dealsentry:search:" + hex.EncodeToString(sum[:])
}

// SearchCacheRepo is the optional read-through cache in front of
// paginated search.
type SearchCacheRepo interface {
	Get(ctx context.Context, key SearchKey) ([]catalog.Product, bool)
	Put(ctx context.Context, key SearchKey, products []catalog.Product, ttl time.Duration)
}

// RedisSearchCache stores serialized product sets in Redis.
type RedisSearchCache struct {
	client redis.UniversalClient
}

// NewRedisSearchCache wraps an existing client.
func NewRedisSearchCache(client redis.UniversalClient) *RedisSearchCache {
	return &RedisSearchCache{client: client}
}

func (c *RedisSearchCache) Get(ctx context.Context, key SearchKey) ([]catalog.Product, bool) {
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	raw, err := c.client.Get(ctx, key.String()).Bytes()
	if err != nil {
		return nil, false
	}
	var products []catalog.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, false
	}
	return products, true
}

func (c *RedisSearchCache) Put(ctx context.Context, key SearchKey, products []catalog.Product, ttl time.Duration) {
	raw, err := json.Marshal(products)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	_ = c.client.Set(ctx, key.String(), raw, ttl).Err()
}

// MemorySearchCache is the in-process fallback when no Redis is
// configured.
type MemorySearchCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	products []catalog.Product
	exp      time.Time
}

// NewMemorySearchCache builds an empty in-process cache.
func NewMemorySearchCache() *MemorySearchCache {
	return &MemorySearchCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemorySearchCache) Get(_ context.Context, key SearchKey) ([]catalog.Product, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key.String()]
	if !ok || c.now().After(e.exp) {
		delete(c.entries, key.String())
		return nil, false
	}
	out := make([]catalog.Product, len(e.products))
	copy(out, e.products)
	return out, true
}

func (c *MemorySearchCache) Put(_ context.Context, key SearchKey, products []catalog.Product, ttl time.Duration) {
	stored := make([]catalog.Product, len(products))
	copy(stored, products)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key.String()] = memoryEntry{products: stored, exp: c.now().Add(ttl)}
}
