package provider

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"flightwatch-service/internal/domain/entity"
)

func candidates(designator string) []entity.FlightCandidate {
	return []entity.FlightCandidate{{Carrier: designator[:2], Number: designator[2:]}}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewResponseCache(2, time.Minute)

	cache.Put("a", candidates("AA111"))
	cache.Put("b", candidates("BB222"))

	// Touch "a" so "b" becomes the structurally oldest entry.
	_, ok := cache.Get("a")
	assert.True(t, ok)

	cache.Put("c", candidates("CC333"))
	assert.Equal(t, 2, cache.Len())

	_, ok = cache.Get("b")
	assert.False(t, ok, "least recently used entry should have been evicted")
	_, ok = cache.Get("a")
	assert.True(t, ok)
	_, ok = cache.Get("c")
	assert.True(t, ok)
}

func TestCacheEntriesExpire(t *testing.T) {
	cache := NewResponseCache(4, time.Minute)
	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.Put("a", candidates("AA111"))

	now = now.Add(30 * time.Second)
	_, ok := cache.Get("a")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = cache.Get("a")
	assert.False(t, ok, "expired entry should be a miss")
	assert.Equal(t, 0, cache.Len())
}

func TestCachePutRefreshesExisting(t *testing.T) {
	cache := NewResponseCache(2, time.Minute)

	cache.Put("a", candidates("AA111"))
	cache.Put("b", candidates("BB222"))
	cache.Put("a", candidates("AA999"))

	cache.Put("c", candidates("CC333"))

	_, ok := cache.Get("b")
	assert.False(t, ok)
	got, ok := cache.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "999", got[0].Number)
}
