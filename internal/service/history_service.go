package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Dave1206/Memory-App-sub000/internal/cache"
	"github.com/Dave1206/Memory-App-sub000/internal/config"
	"github.com/Dave1206/Memory-App-sub000/internal/domain"
	"github.com/Dave1206/Memory-App-sub000/internal/repository"
	"github.com/Dave1206/Memory-App-sub000/pkg/log"
)

type historyService struct {
	repo  repository.ChatRepository
	cache cache.MessageCache
	cfg   config.HistoryConfig
	sf    singleflight.Group
}

func NewHistoryService(repo repository.ChatRepository, msgCache cache.MessageCache, cfg config.HistoryConfig) HistoryService {
	return &historyService{
		repo:  repo,
		cache: msgCache,
		cfg:   cfg,
	}
}

// Messages returns up to limit messages older than before (newest overall if
// before is nil), oldest to newest within the batch. Fewer than limit results
// signals exhaustion to the caller.
func (s *historyService) Messages(ctx context.Context, conversationID uint, limit, offset int, before *time.Time) ([]domain.Message, error) {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}
	if limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	// The live tail changes on every send; only cursor-anchored pages are
	// immutable enough to cache.
	if before == nil {
		return s.repo.Messages(ctx, conversationID, limit, offset, nil)
	}

	cacheKey := s.cache.BuildKey(conversationID, limit, offset, *before)

	result, err, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
		return s.fetchWithCache(ctx, conversationID, limit, offset, *before, cacheKey)
	})
	if err != nil {
		return nil, err
	}

	page, ok := result.(*cache.PageResult)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	return page.Messages, nil
}

func (s *historyService) fetchWithCache(ctx context.Context, conversationID uint, limit, offset int, before time.Time, cacheKey string) (*cache.PageResult, error) {
	cached, err := s.cache.Get(ctx, cacheKey)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Msg("cache get error")
	}

	messages, err := s.repo.Messages(ctx, conversationID, limit, offset, &before)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages from repository: %w", err)
	}

	result := &cache.PageResult{
		Messages:  messages,
		Exhausted: len(messages) < limit,
	}

	// Store in cache (async to avoid blocking response)
	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.cache.Set(cacheCtx, cacheKey, result, s.cfg.CacheTTL); err != nil {
			l := log.L()
			l.Warn().Err(err).Msg("cache set error")
		}
	}()

	return result, nil
}
