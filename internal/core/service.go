package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// LookupService is the core service for card lookups. Every lookup runs
// the same pipeline: ban gate, cache check, fetch on miss, usage record,
// suspicious-activity check.
type LookupService struct {
	resolver CardResolver
	cache    CacheRepository
	usage    UsageRepository
	bans     BanRepository
	monitor  *ActivityMonitor
	logger   *zap.Logger
}

// NewLookupService creates a new lookup service
func NewLookupService(
	resolver CardResolver,
	cache CacheRepository,
	usage UsageRepository,
	bans BanRepository,
	monitor *ActivityMonitor,
	logger *zap.Logger,
) *LookupService {
	return &LookupService{
		resolver: resolver,
		cache:    cache,
		usage:    usage,
		bans:     bans,
		monitor:  monitor,
		logger:   logger,
	}
}

// Lookup resolves a card query, serving from cache when possible. Returns
// ErrUserBanned for banned users (no response, no usage record). Resolver
// errors are propagated uncached.
func (s *LookupService) Lookup(ctx context.Context, userID, userContact string, q CardQuery) ([]byte, error) {
	banned, err := s.bans.IsBanned(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ban check failed: %w", err)
	}
	if banned {
		s.logger.Info("Dropped lookup from banned user", zap.String("user_id", userID))
		return nil, ErrUserBanned
	}

	key := CardCacheKey(q)
	payload, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		s.logger.Debug("Cache hit", zap.String("key", key))
	case errors.Is(err, ErrCacheMiss):
		payload, err = s.resolver.ResolveCard(ctx, q.Name, q.SetCode, q.CollectorNumber)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, payload); err != nil {
			s.logger.Error("Failed to update cache", zap.Error(err), zap.String("key", key))
		}
	default:
		return nil, fmt.Errorf("cache lookup failed: %w", err)
	}

	s.instrument(ctx, userID, userContact, q.Raw)
	return payload, nil
}

// Rulings resolves rulings for a card by its upstream ID. Ban gating and
// usage accounting already happened for the lookup that produced the ID.
func (s *LookupService) Rulings(ctx context.Context, cardID string) ([]byte, error) {
	key := "rulings:" + cardID
	payload, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		s.logger.Debug("Cache hit", zap.String("key", key))
		return payload, nil
	case errors.Is(err, ErrCacheMiss):
	default:
		return nil, fmt.Errorf("cache lookup failed: %w", err)
	}

	payload, err = s.resolver.ResolveRulings(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, payload); err != nil {
		s.logger.Error("Failed to update cache", zap.Error(err), zap.String("key", key))
	}
	return payload, nil
}

// instrument records the lookup and runs the suspicious-activity check.
// Both are best effort: a failure here never affects the reply the user
// already earned.
func (s *LookupService) instrument(ctx context.Context, userID, userContact, query string) {
	if err := s.usage.Record(ctx, userID, userContact, query); err != nil {
		s.logger.Error("Failed to record usage", zap.Error(err), zap.String("user_id", userID))
		return
	}
	if s.monitor != nil {
		s.monitor.OnLookupRecorded(ctx, userID)
	}
}

// CardCacheKey builds the cache key for a card query. Name, set and
// collector number all participate so that different printings cache
// independently.
func CardCacheKey(q CardQuery) string {
	name := cases.Lower(language.Und).String(strings.TrimSpace(q.Name))
	return fmt.Sprintf("named:%s:%s:%s", name, strings.ToLower(q.SetCode), q.CollectorNumber)
}
