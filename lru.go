// Package secretcache provides the bounded LRU cache underlying the secret cache.
package secretcache

import (
	"container/list"
	"sync"
)

// lruEntry keeps the key alongside the value so eviction can remove the
// map index entry for the list element being dropped.
type lruEntry[K comparable, V any] struct {
	key   K
	value V
}

// LRUCache is a fixed-capacity key/value store with least-recently-used
// eviction. A Get promotes the entry to most-recently-used; PutIfAbsent
// inserts at the most-recently-used position and evicts the
// least-recently-used entry when the cache is over capacity.
//
// A capacity of 0 disables retention entirely: every insert is immediately
// evicted and Get always misses.
//
// Thread Safety: all operations execute atomically under a single mutex,
// so callers never observe a partially updated list.
type LRUCache[K comparable, V any] struct {
	// mu protects idx and order
	mu sync.Mutex

	// maxSize limits the number of entries in the cache
	maxSize int

	// idx maps keys to their elements in the recency list
	idx map[K]*list.Element

	// order holds entries most-recently-used first
	order *list.List
}

// NewLRUCache creates an empty LRU cache holding at most maxSize entries.
// A negative maxSize is treated as 0.
func NewLRUCache[K comparable, V any](maxSize int) *LRUCache[K, V] {
	if maxSize < 0 {
		maxSize = 0
	}
	return &LRUCache[K, V]{
		maxSize: maxSize,
		idx:     make(map[K]*list.Element),
		order:   list.New(),
	}
}

// Get retrieves the value for the given key and promotes it to
// most-recently-used. Returns the zero value and false on a miss; a miss
// has no side effects.
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.idx[key]
	if !ok {
		var zero V
		return zero, false
	}

	c.order.MoveToFront(el)
	return el.Value.(*lruEntry[K, V]).value, true
}

// PutIfAbsent associates the value with the key only if the key is not
// already present. It returns true if the value was stored. An existing
// entry is left untouched and its recency is not updated.
//
// When the insert pushes the cache over capacity, the least-recently-used
// entry is evicted silently.
func (c *LRUCache[K, V]) PutIfAbsent(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.idx[key]; ok {
		return false
	}

	c.idx[key] = c.order.PushFront(&lruEntry[K, V]{key: key, value: value})

	if c.order.Len() > c.maxSize {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.idx, oldest.Value.(*lruEntry[K, V]).key)
	}

	return true
}

// Len returns the number of entries currently held in the cache.
func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
