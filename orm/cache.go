package orm

import (
	"maps"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
)

// Stats are cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Size      int
	MaxSize   int
	HitRate   float64
}

type cacheEntry struct {
	table     string
	row       map[string]any
	expiresAt time.Time
}

// Cache keeps rows fetched by primary key. Entries expire after the TTL and
// the least recently used entry is evicted when the cache is full. A Cache
// may be shared by several tables and is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	lru     *lru.Cache
	ttl     time.Duration
	byTable map[string]map[string]struct{}
	stats   Stats
	removed bool
}

// NewCache creates a cache holding at most maxSize rows. A zero ttl keeps
// rows until they are evicted or invalidated.
func NewCache(maxSize int, ttl time.Duration) *Cache {
	c := &Cache{
		lru:     lru.New(maxSize),
		ttl:     ttl,
		byTable: map[string]map[string]struct{}{},
		stats:   Stats{MaxSize: maxSize},
	}
	c.lru.OnEvicted = c.onEvicted
	return c
}

func (c *Cache) onEvicted(key lru.Key, value any) {
	entry := value.(*cacheEntry)
	delete(c.byTable[entry.table], key.(string))
	if !c.removed {
		c.stats.Evictions++
	}
}

func cacheKey(table string, id []any) string {
	return table + ":" + formatKey(id)
}

// get returns a copy of the cached row.
func (c *Cache) get(table string, id []any) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey(table, id)
	v, ok := c.lru.Get(key)
	if !ok {
		c.miss()
		return nil, false
	}
	entry := v.(*cacheEntry)
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.remove(key)
		c.miss()
		return nil, false
	}
	c.stats.Hits++
	c.updateHitRate()
	return maps.Clone(entry.row), true
}

func (c *Cache) miss() {
	c.stats.Misses++
	c.updateHitRate()
}

func (c *Cache) set(table string, id []any, row map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := &cacheEntry{table: table, row: maps.Clone(row)}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}
	key := cacheKey(table, id)
	c.lru.Add(key, entry)
	if c.byTable[table] == nil {
		c.byTable[table] = map[string]struct{}{}
	}
	c.byTable[table][key] = struct{}{}
}

// remove drops key without counting it as an eviction.
func (c *Cache) remove(key string) {
	c.removed = true
	c.lru.Remove(key)
	c.removed = false
}

func (c *Cache) invalidate(table string, id []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.remove(cacheKey(table, id))
}

// InvalidateTable drops every row cached for table.
func (c *Cache) InvalidateTable(table string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.byTable[table] {
		c.remove(key)
	}
	delete(c.byTable, table)
}

// Clear drops every row and resets the counters.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removed = true
	c.lru.Clear()
	c.removed = false
	c.byTable = map[string]map[string]struct{}{}
	c.stats = Stats{MaxSize: c.stats.MaxSize}
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = c.lru.Len()
	return s
}

func (c *Cache) updateHitRate() {
	total := c.stats.Hits + c.stats.Misses
	if total > 0 {
		c.stats.HitRate = float64(c.stats.Hits) / float64(total) * 100
	}
}
