package fetch

import (
	"container/list"
	"context"
	"io"
	"sync"
)

// DefaultCacheSize is the number of tiles a Cache keeps.
const DefaultCacheSize = 512

// Cache is a bounded in-memory tile cache. The least recently used entry is
// evicted once the cache is full.
type Cache struct {
	capacity int
	order    *list.List
	items    map[string]*list.Element
	mu       sync.Mutex

	// Stats
	hits   int
	misses int
}

type cacheEntry struct {
	key  string
	data []byte
}

// NewCache creates a cache holding up to capacity tiles.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get retrieves a tile.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).data, true
}

// Set stores a tile.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		el.Value.(*cacheEntry).data = data
		c.order.MoveToFront(el)
		return
	}
	c.items[key] = c.order.PushFront(&cacheEntry{key: key, data: data})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(*cacheEntry).key)
	}
}

// Len returns the number of cached tiles.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Cached wraps a fetcher with a cache keyed by request URL.
type Cached struct {
	Fetcher Fetcher
	Cache   *Cache
}

// NewCached wraps f with a cache of the given capacity.
func NewCached(f Fetcher, capacity int) *Cached {
	return &Cached{Fetcher: f, Cache: NewCache(capacity)}
}

// Fetch serves from the cache, falling through to the wrapped fetcher.
// Misses and errors are not cached.
func (c *Cached) Fetch(ctx context.Context, req Request) ([]byte, error) {
	if data, ok := c.Cache.Get(req.URL); ok {
		return data, nil
	}
	data, err := c.Fetcher.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	c.Cache.Set(req.URL, data)
	return data, nil
}

// Close closes the wrapped fetcher if it holds resources.
func (c *Cached) Close() error {
	c.Cache.Clear()
	if closer, ok := c.Fetcher.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
