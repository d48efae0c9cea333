package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Dave1206/Memory-App-sub000/internal/config"
	"github.com/Dave1206/Memory-App-sub000/pkg/log"
)

// RedisSessions tracks per-user session liveness in redis and answers the
// presence predicate from it. Sessions expire on their own; a live
// connection keeps its user's key refreshed.
type RedisSessions struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisSessions(cfg config.RedisConfig, ttl time.Duration) (*RedisSessions, error) {
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

	return &RedisSessions{
		client: client,
		prefix: "session:user",
		ttl:    ttl,
	}, nil
}

func (s *RedisSessions) key(userID uint) string {
	return fmt.Sprintf("%s:%d", s.prefix, userID)
}

// Touch creates or refreshes the user's session key.
func (s *RedisSessions) Touch(ctx context.Context, userID uint) error {
	return s.client.Set(ctx, s.key(userID), time.Now().UnixMilli(), s.ttl).Err()
}

// Remove drops the user's session key immediately.
func (s *RedisSessions) Remove(ctx context.Context, userID uint) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}

func (s *RedisSessions) IsOnline(ctx context.Context, userID uint) bool {
	n, err := s.client.Exists(ctx, s.key(userID)).Result()
	if err != nil {
		l := log.L()
		l.Warn().Err(err).Uint64(log.FieldUserID, uint64(userID)).Msg("session liveness check failed")
		return false
	}
	return n > 0
}

func (s *RedisSessions) Close() error {
	return s.client.Close()
}

// Ensure interface is satisfied at compile time.
var _ OnlineChecker = (*RedisSessions)(nil)
