package cache

import (
	"crypto/sha1"
	"encoding/hex"
	"time"
)

// Cache is an injectable byte cache with time-bound eviction. Implementations
// are advisory only: a miss (or a failing backend) must always fall through to
// a full recomputation, never to an error.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
}

// Key builds a cache key from the exact input text plus model and task
// identity, so results from different providers never collide.
func Key(model, task, text string) string {
	sum := sha1.Sum([]byte(model + "\x00" + task + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// Noop is the no-op cache used in tests and when caching is disabled.
type Noop struct{}

func (Noop) Get(string) ([]byte, bool)         { return nil, false }
func (Noop) Set(string, []byte, time.Duration) {}
