package textnorm

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Cache holds normalized views keyed by raw-text identity. It is safe for
// concurrent use; concurrent first access to the same key normalizes once.
type Cache struct {
	views    *gocache.Cache
	group    singleflight.Group
	capacity int
	seq      atomic.Uint64
}

// entry is a cached view stamped with its insertion order.
type entry struct {
	view *View
	seq  uint64
}

// NewCache creates a cache holding at most capacity views, each kept for ttl
// after insertion. A capacity <= 0 means unbounded.
func NewCache(capacity int, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	cleanup := ttl
	if cleanup == gocache.NoExpiration || cleanup > 10*time.Minute {
		cleanup = 10 * time.Minute
	}
	return &Cache{
		views:    gocache.New(ttl, cleanup),
		capacity: capacity,
	}
}

// KeyFor derives a cache key from the raw text itself.
func KeyFor(raw string) string {
	h := sha256.Sum256([]byte(raw))
	return "textnorm:v1:" + hex.EncodeToString(h[:])
}

// View returns the cached view for key, normalizing raw on a miss.
func (c *Cache) View(key, raw string) *View {
	if c == nil {
		return Normalize(raw)
	}
	if v, ok := c.views.Get(key); ok {
		return v.(*entry).view
	}

	v, _, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.views.Get(key); ok {
			return v.(*entry).view, nil
		}
		view := Normalize(raw)
		c.makeRoom()
		c.views.SetDefault(key, &entry{view: view, seq: c.seq.Add(1)})
		return view, nil
	})
	return v.(*View)
}

// Forget drops the view stored under key.
func (c *Cache) Forget(key string) {
	if c == nil {
		return
	}
	c.views.Delete(key)
}

// Len reports how many views are cached, including expired ones not yet
// cleaned up.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	return c.views.ItemCount()
}

// makeRoom evicts the oldest insertions until there is space for one more
// view.
func (c *Cache) makeRoom() {
	if c.capacity <= 0 {
		return
	}
	if c.views.ItemCount() < c.capacity {
		return
	}
	c.views.DeleteExpired()
	for c.views.ItemCount() >= c.capacity {
		oldestKey := ""
		var oldest uint64
		for k, item := range c.views.Items() {
			e := item.Object.(*entry)
			if oldestKey == "" || e.seq < oldest {
				oldestKey, oldest = k, e.seq
			}
		}
		if oldestKey == "" {
			return
		}
		c.views.Delete(oldestKey)
	}
}
