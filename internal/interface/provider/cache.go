package provider

import (
	"container/list"
	"sync"
	"time"

	"flightwatch-service/internal/domain/entity"
)

// ResponseCache is a bounded in-memory cache in front of the primary
// provider. Reads refresh recency, so eviction removes the structurally
// oldest entry once at capacity. Entries also age out after a short TTL so a
// hit can never satisfy a refresh the staleness rules asked for.
type ResponseCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List
	items    map[string]*list.Element
	now      func() time.Time
}

type cacheEntry struct {
	key        string
	candidates []entity.FlightCandidate
	storedAt   time.Time
}

// NewResponseCache creates a cache holding at most capacity entries, each
// valid for ttl
func NewResponseCache(capacity int, ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		items:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

// Get returns the cached candidates for a key and refreshes its recency.
// Expired entries are removed and reported as a miss.
func (c *ResponseCache) Get(key string) ([]entity.FlightCandidate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	if c.now().Sub(entry.storedAt) > c.ttl {
		c.order.Remove(elem)
		delete(c.items, key)
		return nil, false
	}

	c.order.MoveToFront(elem)
	return entry.candidates, true
}

// Put stores candidates under a key, evicting the least recently used entry
// when at capacity
func (c *ResponseCache) Put(key string, candidates []entity.FlightCandidate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		entry := elem.Value.(*cacheEntry)
		entry.candidates = candidates
		entry.storedAt = c.now()
		c.order.MoveToFront(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).key)
		}
	}

	elem := c.order.PushFront(&cacheEntry{
		key:        key,
		candidates: candidates,
		storedAt:   c.now(),
	})
	c.items[key] = elem
}

// Len returns the number of live entries
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
