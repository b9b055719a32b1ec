package search

import "sync"

// defaultCacheSize bounds the result cache. Eviction is oldest-first.
const defaultCacheSize = 100

// resultCache memoizes search results keyed by (normalized query, rule-set
// size). It is only correct as of the last index update, so Update clears it.
type resultCache struct {
	mu      sync.Mutex
	max     int
	entries map[string][]Result
	order   []string // insertion order, oldest first
}

func newResultCache(max int) *resultCache {
	if max <= 0 {
		max = defaultCacheSize
	}
	return &resultCache{
		max:     max,
		entries: make(map[string][]Result),
	}
}

func (c *resultCache) get(key string) ([]Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	results, ok := c.entries[key]
	return results, ok
}

func (c *resultCache) put(key string, results []Result) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.entries[key] = results
		return
	}

	if len(c.order) >= c.max {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}

	c.entries[key] = results
	c.order = append(c.order, key)
}

func (c *resultCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]Result)
	c.order = nil
}

func (c *resultCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
