// internal/runutil/lru_set.go
package runutil

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultSetCapacity bounds an LRUSet created with a non-positive capacity.
const DefaultSetCapacity = 1 << 16

// LRUSet is a size-bounded set safe for concurrent use. The least recently
// added or touched key is evicted first.
type LRUSet[K comparable] struct {
	c *lru.Cache[K, struct{}]
}

func NewLRUSet[K comparable](capacity int) *LRUSet[K] {
	if capacity <= 0 {
		capacity = DefaultSetCapacity
	}
	c, _ := lru.New[K, struct{}](capacity) // only fails for size <= 0
	return &LRUSet[K]{c: c}
}

// Add inserts k and reports whether it was already present. Exactly one of
// several concurrent first Adds of the same key sees false.
func (s *LRUSet[K]) Add(k K) bool {
	if ok, _ := s.c.ContainsOrAdd(k, struct{}{}); ok {
		s.c.Get(k) // touch
		return true
	}
	return false
}

// Len is the number of keys held.
func (s *LRUSet[K]) Len() int { return s.c.Len() }
