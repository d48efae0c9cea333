package cache

import (
	"context"
	"time"

	"github.com/Dave1206/Memory-App-sub000/internal/domain"
)

// PageResult is one cached page of conversation history.
type PageResult struct {
	Messages  []domain.Message `json:"messages"`
	Exhausted bool             `json:"exhausted"`
}

// MessageCache caches immutable history pages. Only pages anchored by a
// before cursor are cacheable; the live tail changes on every send.
type MessageCache interface {
	Get(ctx context.Context, key string) (*PageResult, error)
	Set(ctx context.Context, key string, result *PageResult, ttl time.Duration) error
	BuildKey(conversationID uint, limit, offset int, before time.Time) string
	Close() error
}
