package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Memory is an in-process cache backed by go-cache with periodic purging of
// expired entries.
type Memory struct {
	store *gocache.Cache
}

func NewMemory(defaultTTL time.Duration) *Memory {
	if defaultTTL <= 0 {
		defaultTTL = 1 * time.Hour
	}
	return &Memory{
		store: gocache.New(defaultTTL, 10*time.Minute),
	}
}

func (m *Memory) Get(key string) ([]byte, bool) {
	if x, found := m.store.Get(key); found {
		return x.([]byte), true
	}
	return nil, false
}

func (m *Memory) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.store.Set(key, value, ttl)
}
