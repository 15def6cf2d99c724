package postshot

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultCardTTL is how long a rendered card stays cached.
	DefaultCardTTL   = 24 * time.Hour
	DefaultCacheSize = 1024
)

// Cache stores encoded images by key. Implementations must be safe for concurrent use.
type Cache interface {
	Load(key string) ([]byte, bool)
	Store(key string, b []byte)
}

var _ Cache = (*memoryCache)(nil)

// memoryCache is a size-bounded in-process cache whose entries expire after a fixed TTL.
type memoryCache struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemoryCache returns a Cache holding at most size entries, each for ttl.
func NewMemoryCache(size int, ttl time.Duration) *memoryCache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &memoryCache{
		lru: expirable.NewLRU[string, []byte](size, nil, ttl),
	}
}

func (c *memoryCache) Load(key string) ([]byte, bool) {
	return c.lru.Get(key)
}

func (c *memoryCache) Store(key string, b []byte) {
	if len(b) == 0 {
		return
	}
	c.lru.Add(key, b)
}

// noCache never stores anything.
type noCache struct{}

func (noCache) Load(string) ([]byte, bool) { return nil, false }
func (noCache) Store(string, []byte)       {}
