package cache

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/TheQwirl/qwirl-client/internal/model"
)

const memoryCacheSize = 64

// MemoryCache is the in-process SessionCache. Sessions live in an LRU so
// a long-running client browsing many Qwirls stays bounded; generations
// live outside it because cancellation must survive eviction.
type MemoryCache struct {
	mu       sync.Mutex
	sessions *lru.Cache[string, *model.QwirlSession]
	gens     map[string]uint64
}

func NewMemoryCache() *MemoryCache {
	sessions, err := lru.New[string, *model.QwirlSession](memoryCacheSize)
	if err != nil {
		// Only reachable with a non-positive size constant.
		panic(err)
	}
	return &MemoryCache{
		sessions: sessions,
		gens:     make(map[string]uint64),
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) (*model.QwirlSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions.Get(key)
	if !ok {
		return nil, nil
	}
	return s.Clone(), nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, s *model.QwirlSession) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions.Add(key, s.Clone())
	return nil
}

func (c *MemoryCache) Invalidate(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions.Remove(key)
	return nil
}

func (c *MemoryCache) Generation(ctx context.Context, key string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key], nil
}

func (c *MemoryCache) CancelInflight(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[key]++
	return nil
}

func (c *MemoryCache) CommitFetched(ctx context.Context, key string, gen uint64, s *model.QwirlSession) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] != gen {
		return false, nil
	}
	c.sessions.Add(key, s.Clone())
	return true, nil
}
