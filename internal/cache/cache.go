// Package cache memoizes successful acquisition results keyed by request
// fingerprint, bounded by LRU capacity and a TTL matched to how often the
// upstream sources refresh.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/goes-imagery/internal/domain"
)

// Cache is a thread-safe LRU with per-entry TTL and single-flight
// computation: concurrent callers for the same key share one in-flight
// computation instead of triggering duplicate fetches.
type Cache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock
	group      singleflight.Group

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
}

type entry struct {
	key      string
	value    domain.AcquisitionResult
	storedAt time.Time
	prev     *entry
	next     *entry
}

// New creates a cache holding up to maxEntries results for ttl each.
func New(maxEntries int, ttl time.Duration, clock clockwork.Clock) *Cache {
	return &Cache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[string]*entry),
	}
}

// GetOrCompute returns the cached result for key or runs compute to
// produce it. At most one computation per key is in flight at a time;
// later callers wait for and share its result. Only successful results
// whose file still exists are stored.
func (c *Cache) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) (domain.AcquisitionResult, error)) (domain.AcquisitionResult, bool, error) {
	if v, ok := c.lookup(key); ok {
		return v, true, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A prior flight may have filled the entry while we waited.
		if v, ok := c.lookup(key); ok {
			return v, nil
		}
		result, err := compute(ctx)
		if err != nil {
			return domain.AcquisitionResult{}, err
		}
		if result.Success && result.CheckFileExists() {
			c.put(key, result)
		}
		return result, nil
	})
	if err != nil {
		return domain.AcquisitionResult{}, false, err
	}
	return v.(domain.AcquisitionResult), false, nil
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge drops every entry.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.head = nil
	c.tail = nil
}

// lookup returns a live entry, evicting it instead when the TTL has
// lapsed or the caller deleted the underlying file.
func (c *Cache) lookup(key string) (domain.AcquisitionResult, bool) {
	c.mu.Lock()
	e, ok := c.entries[key]
	if !ok {
		c.mu.Unlock()
		return domain.AcquisitionResult{}, false
	}
	if c.clock.Since(e.storedAt) >= c.ttl {
		c.removeEntry(e)
		c.mu.Unlock()
		return domain.AcquisitionResult{}, false
	}
	c.moveToFront(e)
	value := e.value
	c.mu.Unlock()

	if !value.CheckFileExists() {
		c.mu.Lock()
		if cur, ok := c.entries[key]; ok && cur == e {
			c.removeEntry(cur)
		}
		c.mu.Unlock()
		return domain.AcquisitionResult{}, false
	}
	return value, true
}

func (c *Cache) put(key string, value domain.AcquisitionResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		e.storedAt = c.clock.Now()
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value, storedAt: c.clock.Now()}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *Cache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *Cache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *Cache) unlink(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *Cache) removeEntry(e *entry) {
	delete(c.entries, e.key)
	c.unlink(e)
}

func (c *Cache) evictTail() {
	if c.tail == nil {
		return
	}
	c.removeEntry(c.tail)
}
