package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Dave1206/Memory-App-sub000/internal/config"
)

var ErrCacheMiss = errors.New("cache miss")

type RedisMessageCache struct {
	client *redis.Client
	prefix string
}

func NewRedisMessageCache(cfg config.RedisConfig, prefix string) (*RedisMessageCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisMessageCache{
		client: client,
		prefix: prefix,
	}, nil
}

func (c *RedisMessageCache) BuildKey(conversationID uint, limit, offset int, before time.Time) string {
	return fmt.Sprintf("%s:%d:%d:%d:%d", c.prefix, conversationID, limit, offset, before.UnixMilli())
}

func (c *RedisMessageCache) Get(ctx context.Context, key string) (*PageResult, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}

	var result PageResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &result, nil
}

func (c *RedisMessageCache) Set(ctx context.Context, key string, result *PageResult, ttl time.Duration) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}

	return nil
}

func (c *RedisMessageCache) Close() error {
	return c.client.Close()
}

// Ensure interface is satisfied at compile time.
var _ MessageCache = (*RedisMessageCache)(nil)
