package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/jerry-enebeli/filtertools/config"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by Get when the key holds no value.
var ErrCacheMiss = cache.ErrCacheMiss

// Cache stores query results between identical requests.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Get decodes the value stored under key into data, or returns ErrCacheMiss.
	Get(ctx context.Context, key string, data interface{}) error
	Delete(ctx context.Context, key string) error
}

// RedisCache is a Cache backed by Redis with a small in-process layer in front.
type RedisCache struct {
	cache *cache.Cache
}

// localCacheSize defines the size of the local cache (in number of entries) used alongside Redis.
const localCacheSize = 10000

// NewCache connects to the Redis server of cfg and checks it answers.
func NewCache(ctx context.Context, cfg *config.Configuration) (Cache, error) {
	opts, err := redisOptions(cfg.Redis.Dns)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}

	c := cache.New(&cache.Options{
		Redis:      client,
		LocalCache: cache.NewTinyLFU(localCacheSize, time.Minute),
	})
	return &RedisCache{cache: c}, nil
}

// redisOptions accepts both redis:// URLs and docker style host:port addresses.
func redisOptions(dns string) (*redis.Options, error) {
	if dns == "" {
		return nil, fmt.Errorf("redis address is required")
	}
	if !strings.Contains(dns, "://") {
		return &redis.Options{Addr: dns}, nil
	}
	return redis.ParseURL(dns)
}

func (r *RedisCache) Set(ctx context.Context, key string, data interface{}, ttl time.Duration) error {
	return r.cache.Set(&cache.Item{
		Ctx:   ctx,
		Key:   key,
		Value: data,
		TTL:   ttl,
	})
}

func (r *RedisCache) Get(ctx context.Context, key string, data interface{}) error {
	return r.cache.Get(ctx, key, data)
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	err := r.cache.Delete(ctx, key)
	if errors.Is(err, ErrCacheMiss) {
		return nil
	}
	return err
}
