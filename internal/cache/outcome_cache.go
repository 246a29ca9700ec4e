package cache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Default cache configuration values
const (
	DefaultMaxEntries = 256
	DefaultTTL        = 10 * time.Minute
)

// Config controls the size and lifetime of cached entries
type Config struct {
	MaxEntries int           // zero means unbounded
	TTL        time.Duration // zero means entries never expire
}

// DefaultConfig returns the configuration used by the MCP server
func DefaultConfig() Config {
	return Config{
		MaxEntries: DefaultMaxEntries,
		TTL:        DefaultTTL,
	}
}

type entry[V any] struct {
	value    V
	cachedAt int64
}

// Cache holds reduction results keyed by the content they were computed
// from. Expired entries are dropped lazily on lookup and by CleanExpired;
// no background goroutine is started.
type Cache[V any] struct {
	entries sync.Map // string -> *entry[V]
	config  Config
	now     func() time.Time

	count     int64
	hits      int64
	misses    int64
	evictions int64

	// serializes inserts so the size bound holds
	putMu sync.Mutex
}

// Stats is a snapshot of cache counters
type Stats struct {
	Entries   int64   `json:"entries"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate"`
}

// New creates a cache
func New[V any](config Config) *Cache[V] {
	return &Cache[V]{config: config, now: time.Now}
}

// Key hashes content together with everything else that changes the
// result, such as the selected reducers and their options
func Key(content []byte, parts ...string) string {
	d := xxhash.New()
	_, _ = d.Write(content)
	for _, p := range parts {
		_, _ = d.Write([]byte{0})
		_, _ = d.WriteString(p)
	}
	var buf [16]byte
	return string(appendHex(buf[:0], d.Sum64()))
}

func appendHex(dst []byte, v uint64) []byte {
	const digits = "0123456789abcdef"
	for shift := 60; shift >= 0; shift -= 4 {
		dst = append(dst, digits[(v>>uint(shift))&0xf])
	}
	return dst
}

// Get returns the value cached under key
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	v, ok := c.entries.Load(key)
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return zero, false
	}
	e := v.(*entry[V])
	if c.expired(e) {
		if c.entries.CompareAndDelete(key, v) {
			atomic.AddInt64(&c.count, -1)
			atomic.AddInt64(&c.evictions, 1)
		}
		atomic.AddInt64(&c.misses, 1)
		return zero, false
	}
	atomic.AddInt64(&c.hits, 1)
	return e.value, true
}

// Put stores value under key, evicting the oldest entry when full
func (c *Cache[V]) Put(key string, value V) {
	c.putMu.Lock()
	defer c.putMu.Unlock()

	e := &entry[V]{value: value, cachedAt: c.now().UnixNano()}
	if _, loaded := c.entries.Swap(key, e); loaded {
		return
	}
	if atomic.AddInt64(&c.count, 1) > int64(c.config.MaxEntries) && c.config.MaxEntries > 0 {
		c.evictOldest()
	}
}

func (c *Cache[V]) expired(e *entry[V]) bool {
	return c.config.TTL > 0 && c.now().UnixNano()-e.cachedAt > c.config.TTL.Nanoseconds()
}

// evictOldest removes the entry cached first
func (c *Cache[V]) evictOldest() {
	var oldestKey interface{}
	oldestTime := c.now().UnixNano()

	c.entries.Range(func(key, value interface{}) bool {
		if cachedAt := value.(*entry[V]).cachedAt; cachedAt <= oldestTime {
			oldestTime = cachedAt
			oldestKey = key
		}
		return true
	})

	if oldestKey != nil {
		c.entries.Delete(oldestKey)
		atomic.AddInt64(&c.count, -1)
		atomic.AddInt64(&c.evictions, 1)
	}
}

// CleanExpired removes expired entries and returns how many were removed
func (c *Cache[V]) CleanExpired() int {
	if c.config.TTL <= 0 {
		return 0
	}
	cleaned := 0
	c.entries.Range(func(key, value interface{}) bool {
		if c.expired(value.(*entry[V])) && c.entries.CompareAndDelete(key, value) {
			atomic.AddInt64(&c.count, -1)
			cleaned++
		}
		return true
	})
	atomic.AddInt64(&c.evictions, int64(cleaned))
	return cleaned
}

// Clear drops every entry and resets the counters
func (c *Cache[V]) Clear() {
	c.putMu.Lock()
	defer c.putMu.Unlock()
	c.entries.Range(func(key, _ interface{}) bool {
		c.entries.Delete(key)
		return true
	})
	atomic.StoreInt64(&c.count, 0)
	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
	atomic.StoreInt64(&c.evictions, 0)
}

// Stats returns the current counters
func (c *Cache[V]) Stats() Stats {
	s := Stats{
		Entries:   atomic.LoadInt64(&c.count),
		Hits:      atomic.LoadInt64(&c.hits),
		Misses:    atomic.LoadInt64(&c.misses),
		Evictions: atomic.LoadInt64(&c.evictions),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}
