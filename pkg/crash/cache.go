package crash

import (
	"container/list"
	"sync"
	"time"
)

// defaultCacheCapacity bounds the dedup cache's resident entry count; the
// oldest entry (by last touch) is evicted once capacity is reached (§5
// "Shared resources").
const defaultCacheCapacity = 2048

// cacheKey identifies one dedup slot: the same user submitting the same
// normalized crash log within the TTL window gets the cached result back
// (§4.L step 1).
type cacheKey struct {
	userID string
	logMD5 string
}

type cacheEntry struct {
	key       cacheKey
	result    Result
	fetchedAt time.Time
	elem      *list.Element
}

// dedupCache is a thread-safe, TTL-expiring, capacity-bounded LRU cache
// mapping (user_id, log_md5) to a completed crash-analysis Result. Modeled
// on the runbook fetch cache's mutex-guarded map with lazy TTL eviction,
// extended with an LRU list so memory is bounded under sustained load.
type dedupCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	entries  map[cacheKey]*cacheEntry
	order    *list.List // front = most recently used
}

func newDedupCache(ttl time.Duration) *dedupCache {
	return &dedupCache{
		ttl:      ttl,
		capacity: defaultCacheCapacity,
		entries:  make(map[cacheKey]*cacheEntry),
		order:    list.New(),
	}
}

// get returns the cached Result if present and not expired, touching its
// LRU position on a hit.
func (c *dedupCache) get(key cacheKey, now time.Time) (Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return Result{}, false
	}
	if now.Sub(entry.fetchedAt) > c.ttl {
		c.evictLocked(entry)
		return Result{}, false
	}
	c.order.MoveToFront(entry.elem)
	return entry.result, true
}

// set stores result under key, evicting the least-recently-used entry if
// the cache is at capacity.
func (c *dedupCache) set(key cacheKey, result Result, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.entries[key]; ok {
		existing.result = result
		existing.fetchedAt = now
		c.order.MoveToFront(existing.elem)
		return
	}

	entry := &cacheEntry{key: key, result: result, fetchedAt: now}
	entry.elem = c.order.PushFront(entry)
	c.entries[key] = entry

	for len(c.entries) > c.capacity {
		back := c.order.Back()
		if back == nil {
			break
		}
		c.evictLocked(back.Value.(*cacheEntry))
	}
}

func (c *dedupCache) evictLocked(entry *cacheEntry) {
	c.order.Remove(entry.elem)
	delete(c.entries, entry.key)
}
