package coalesce

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Coalescer collapses identical concurrent lookups into a single underlying
// call and memoizes the result for a short TTL. It is an injectable
// collaborator — callers must stay correct when it is disabled or its
// entries expire, because it only exists to shave redundant queries.
type Coalescer struct {
	group singleflight.Group

	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
}

type entry struct {
	value    interface{}
	storedAt time.Time
}

// New creates a coalescer with the given memoization TTL. A zero TTL
// disables memoization and keeps only in-flight deduplication.
func New(ttl time.Duration) *Coalescer {
	return &Coalescer{
		entries: make(map[string]entry),
		ttl:     ttl,
	}
}

// Do returns a memoized value for key when one is still fresh; otherwise it
// runs fn, sharing one execution among concurrent callers with the same key.
// Errors are never memoized.
func (c *Coalescer) Do(key string, fn func() (interface{}, error)) (interface{}, error) {
	if c.ttl > 0 {
		c.mu.Lock()
		if e, ok := c.entries[key]; ok && time.Since(e.storedAt) < c.ttl {
			c.mu.Unlock()
			return e.value, nil
		}
		c.mu.Unlock()
	}

	v, err, _ := c.group.Do(key, fn)
	if err != nil {
		return nil, err
	}

	if c.ttl > 0 {
		c.mu.Lock()
		c.entries[key] = entry{value: v, storedAt: time.Now()}
		c.mu.Unlock()
	}
	return v, nil
}

// Forget drops the memoized value for key so the next Do runs fresh.
func (c *Coalescer) Forget(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	c.group.Forget(key)
}
