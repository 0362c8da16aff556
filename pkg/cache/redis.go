package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a shared cache backed by go-redis, for deployments running more
// than one instance. Backend errors degrade to cache misses.
type Redis struct {
	client *redis.Client
}

func NewRedis(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Redis{client: redis.NewClient(opts)}, nil
}

func (r *Redis) Get(key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	value, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return value, true
}

func (r *Redis) Set(key string, value []byte, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Fire and forget: a failed write only costs a future recomputation.
	r.client.Set(ctx, key, value, ttl)
}
