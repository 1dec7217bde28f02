package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/atinyakov/go-user-directory/internal/models"
)

const (
	DefaultTTL = 30 * time.Second

	keyPrefix     = "userdir:pages:"
	generationKey = keyPrefix + "gen"
)

// RedisCache keeps pages under a generation number. Invalidate bumps the
// generation, which orphans every older entry until its TTL expires.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

type RedisOption func(*RedisCache)

func WithTTL(ttl time.Duration) RedisOption {
	return func(c *RedisCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func NewRedisCache(client *redis.Client, opts ...RedisOption) *RedisCache {
	c := &RedisCache{
		client: client,
		ttl:    DefaultTTL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect parses url, checks the server answers and returns the client.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// Generation returns the current generation, 0 before the first Invalidate.
func (c *RedisCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisCache) Get(ctx context.Context, gen int64, key string) (models.Page, bool, error) {
	raw, err := c.client.Get(ctx, pageKey(gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Page{}, false, nil
	}
	if err != nil {
		return models.Page{}, false, err
	}

	var page models.Page
	if err := json.Unmarshal(raw, &page); err != nil {
		return models.Page{}, false, fmt.Errorf("decode cached page: %w", err)
	}
	return page, true, nil
}

func (c *RedisCache) Set(ctx context.Context, gen int64, key string, page models.Page) error {
	raw, err := json.Marshal(page)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, pageKey(gen, key), raw, c.ttl).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey).Err()
}

func pageKey(gen int64, key string) string {
	return keyPrefix + strconv.FormatInt(gen, 10) + ":" + key
}
