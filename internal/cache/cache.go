package cache

import (
	"container/list"
	"sync"
	"time"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 100

// Entry is a cached lookup result.
type Entry struct {
	Lyrics     *string
	LastAccess time.Time
}

// Negative reports whether the entry records confirmed absence of lyrics.
func (e Entry) Negative() bool { return e.Lyrics == nil }

// Stats is a snapshot of cache counters.
type Stats struct {
	Len       int    `json:"len"`
	Capacity  int    `json:"capacity"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// HitRatio returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

type node struct {
	key   string
	entry Entry
}

// LyricsCache is a fixed-capacity LRU map from track ID to [Entry], safe for concurrent use.
type LyricsCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = most recently accessed
	items    map[string]*list.Element
	stats    Stats
	now      func() time.Time
	onEvict  func(key string, e Entry)
}

// Option configures a [LyricsCache].
type Option func(*LyricsCache)

// WithClock replaces time.Now for LastAccess stamps.
func WithClock(now func() time.Time) Option {
	return func(c *LyricsCache) { c.now = now }
}

// WithEvictionCallback registers fn to run, under the cache lock, for every capacity eviction.
func WithEvictionCallback(fn func(key string, e Entry)) Option {
	return func(c *LyricsCache) { c.onEvict = fn }
}

// New creates a cache holding at most capacity entries.
func New(capacity int, opts ...Option) *LyricsCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c := &LyricsCache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element, capacity),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the entry for key and marks it most recently accessed.
// The boolean is false on a miss; a negative entry is a hit.
func (c *LyricsCache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return Entry{}, false
	}

	c.stats.Hits++
	n := el.Value.(*node)
	n.entry.LastAccess = c.now()
	c.order.MoveToFront(el)
	return n.entry, true
}

// Peek returns the entry for key without touching access order or counters.
func (c *LyricsCache) Peek(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		return el.Value.(*node).entry, true
	}
	return Entry{}, false
}

// Put stores lyrics for key; nil records a negative entry.
// An existing entry is replaced and touched. Otherwise, when the cache is full, the least
// recently accessed entry is evicted before insertion.
func (c *LyricsCache) Put(key string, lyrics *string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := Entry{Lyrics: lyrics, LastAccess: c.now()}

	if el, ok := c.items[key]; ok {
		el.Value.(*node).entry = entry
		c.order.MoveToFront(el)
		return
	}

	if c.order.Len() >= c.capacity {
		c.evictOldest()
	}

	c.items[key] = c.order.PushFront(&node{key: key, entry: entry})
}

func (c *LyricsCache) evictOldest() {
	el := c.order.Back()
	if el == nil {
		return
	}
	n := c.order.Remove(el).(*node)
	delete(c.items, n.key)
	c.stats.Evictions++
	if c.onEvict != nil {
		c.onEvict(n.key, n.entry)
	}
}

// Remove drops key, reporting whether it was present.
func (c *LyricsCache) Remove(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return false
	}
	c.order.Remove(el)
	delete(c.items, key)
	return true
}

// Keys returns the cached track IDs from most to least recently accessed.
func (c *LyricsCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, c.order.Len())
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*node).key)
	}
	return keys
}

// Len returns the number of entries.
func (c *LyricsCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Capacity returns the maximum number of entries.
func (c *LyricsCache) Capacity() int { return c.capacity }

// Stats returns a snapshot of the counters.
func (c *LyricsCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Len = c.order.Len()
	s.Capacity = c.capacity
	return s
}

// Clear removes every entry. Counters are kept.
func (c *LyricsCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.order.Init()
	c.items = make(map[string]*list.Element, c.capacity)
}
