package rag

import (
	"container/list"
	"sync"
	"time"

	"github.com/physical-ai/tutor-backend/models"
)

// cacheEntry represents a single cached answer with TTL
type cacheEntry struct {
	key        string
	result     models.AnswerResult
	insertedAt time.Time
	element    *list.Element // For LRU tracking
}

// isExpired checks if the cache entry has expired
func (e *cacheEntry) isExpired(ttl time.Duration) bool {
	return time.Since(e.insertedAt) > ttl
}

// AnswerCache is an in-memory LRU cache with TTL for generated answers,
// keyed by (question, selection). It is a latency optimization only;
// correctness never depends on it.
// Thread-safe implementation using sync.Mutex.
type AnswerCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry
	lruList *list.List // Doubly linked list for LRU tracking
	maxSize int
	ttl     time.Duration
	hits    uint64
	misses  uint64
}

// NewAnswerCache creates a new AnswerCache with specified max size and TTL
func NewAnswerCache(maxSize int, ttl time.Duration) *AnswerCache {
	return &AnswerCache{
		entries: make(map[string]*cacheEntry),
		lruList: list.New(),
		maxSize: maxSize,
		ttl:     ttl,
	}
}

// cacheKey joins question and selection with a separator that cannot
// appear in either (both arrive via JSON strings).
func cacheKey(question, selection string) string {
	return question + "\x00" + selection
}

// Get retrieves a cached answer. The second return is false when the
// key is absent or expired.
func (c *AnswerCache) Get(question, selection string) (models.AnswerResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(question, selection)
	entry, exists := c.entries[key]
	if !exists || entry.isExpired(c.ttl) {
		c.misses++
		if exists {
			c.removeEntry(key)
		}
		return models.AnswerResult{}, false
	}

	c.lruList.MoveToFront(entry.element)
	c.hits++
	return entry.result, true
}

// Set stores an answer, evicting the least recently used entry when full.
func (c *AnswerCache) Set(question, selection string, result models.AnswerResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(question, selection)
	if entry, exists := c.entries[key]; exists {
		entry.result = result
		entry.insertedAt = time.Now()
		c.lruList.MoveToFront(entry.element)
		return
	}

	if c.lruList.Len() >= c.maxSize {
		c.evictLRU()
	}

	entry := &cacheEntry{
		key:        key,
		result:     result,
		insertedAt: time.Now(),
	}
	entry.element = c.lruList.PushFront(key)
	c.entries[key] = entry
}

// CacheStats holds cache hit/miss counters
type CacheStats struct {
	Size   int
	Hits   uint64
	Misses uint64
}

// Stats returns current cache statistics
func (c *AnswerCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Size:   c.lruList.Len(),
		Hits:   c.hits,
		Misses: c.misses,
	}
}

// evictLRU removes the least recently used entry. Caller must hold the lock.
func (c *AnswerCache) evictLRU() {
	back := c.lruList.Back()
	if back == nil {
		return
	}
	key, ok := back.Value.(string)
	if !ok {
		return
	}
	c.removeEntry(key)
}

// removeEntry removes an entry by key. Caller must hold the lock.
func (c *AnswerCache) removeEntry(key string) {
	entry, exists := c.entries[key]
	if !exists {
		return
	}
	c.lruList.Remove(entry.element)
	delete(c.entries, key)
}
