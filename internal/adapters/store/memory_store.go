package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jimsug/mtg-signal-bot/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the shared store, used
// for development and tests. Nothing survives a restart.
type MemoryStore struct {
	mu          sync.RWMutex
	cache       map[string]*core.CacheEntry
	events      []core.UsageEvent
	nextEventID int64
	bans        map[string]core.BanRecord

	logger      *zap.Logger
	ttl         time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
	now         func() time.Time
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore(ttl, cleanupFreq time.Duration, logger *zap.Logger) *MemoryStore {
	s := &MemoryStore{
		cache:       make(map[string]*core.CacheEntry),
		bans:        make(map[string]core.BanRecord),
		nextEventID: 1,
		logger:      logger,
		ttl:         ttl,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
		now:         time.Now,
	}

	// Start background cleanup
	go s.startCleanupTask()

	return s
}

// Get retrieves a cached payload, treating stale entries as absent
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.cache[key]
	if !ok {
		return nil, core.ErrCacheMiss
	}
	if s.now().Sub(entry.CachedAt) > s.ttl {
		return nil, core.ErrCacheMiss
	}
	return entry.Payload, nil
}

// Set upserts a cache entry
func (s *MemoryStore) Set(ctx context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache[key] = &core.CacheEntry{
		Key:      key,
		Payload:  payload,
		CachedAt: s.now(),
	}
	return nil
}

// Delete removes a single cache entry
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cache, key)
	return nil
}

// DeleteAll removes every cache entry
func (s *MemoryStore) DeleteAll(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := int64(len(s.cache))
	s.cache = make(map[string]*core.CacheEntry)
	return removed, nil
}

// Cleanup removes expired cache entries
func (s *MemoryStore) Cleanup(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var removed int64
	for key, entry := range s.cache {
		if now.Sub(entry.CachedAt) > s.ttl {
			delete(s.cache, key)
			removed++
		}
	}
	return removed, nil
}

// Search returns cache entries whose key contains the substring
func (s *MemoryStore) Search(ctx context.Context, substring string) ([]core.CacheKeyInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []core.CacheKeyInfo
	for key, entry := range s.cache {
		if strings.Contains(key, substring) {
			results = append(results, core.CacheKeyInfo{Key: key, CachedAt: entry.CachedAt})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	if len(results) > 100 {
		results = results[:100]
	}
	return results, nil
}

// Stats returns aggregate cache statistics
func (s *MemoryStore) Stats(ctx context.Context) (core.CacheStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return core.CacheStats{TotalEntries: len(s.cache)}, nil
}

// Record appends one usage event
func (s *MemoryStore) Record(ctx context.Context, userID, userContact, query string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, core.UsageEvent{
		ID:          s.nextEventID,
		UserID:      userID,
		UserContact: userContact,
		Query:       query,
		Timestamp:   s.now(),
	})
	s.nextEventID++
	return nil
}

// CountInWindow counts a user's events within the trailing window
func (s *MemoryStore) CountInWindow(ctx context.Context, userID string, window time.Duration) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Add(-window)
	count := 0
	for _, e := range s.events {
		if e.UserID == userID && !e.Timestamp.Before(cutoff) {
			count++
		}
	}
	return count, nil
}

// CountSince counts all events at or after the given time
func (s *MemoryStore) CountSince(ctx context.Context, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, e := range s.events {
		if !e.Timestamp.Before(since) {
			count++
		}
	}
	return count, nil
}

// SuspiciousUsers returns users with at least threshold events in the
// trailing window, highest count first
func (s *MemoryStore) SuspiciousUsers(ctx context.Context, threshold int, window time.Duration) ([]core.SuspiciousUser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := s.now().Add(-window)
	byUser := make(map[string]*core.SuspiciousUser)
	for _, e := range s.events {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		u, ok := byUser[e.UserID]
		if !ok {
			u = &core.SuspiciousUser{UserID: e.UserID}
			byUser[e.UserID] = u
		}
		u.LookupCount++
		if e.UserContact != "" {
			u.UserContact = e.UserContact
		}
	}

	var users []core.SuspiciousUser
	for _, u := range byUser {
		if u.LookupCount >= threshold {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].LookupCount != users[j].LookupCount {
			return users[i].LookupCount > users[j].LookupCount
		}
		return users[i].UserID < users[j].UserID
	})
	return users, nil
}

// Page returns one page of usage events, newest first
func (s *MemoryStore) Page(ctx context.Context, page, pageSize int, userID string) ([]core.UsageEvent, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if page < 1 {
		page = 1
	}

	var matching []core.UsageEvent
	for _, e := range s.events {
		if userID == "" || e.UserID == userID {
			matching = append(matching, e)
		}
	}
	sort.Slice(matching, func(i, j int) bool {
		if !matching[i].Timestamp.Equal(matching[j].Timestamp) {
			return matching[i].Timestamp.After(matching[j].Timestamp)
		}
		return matching[i].ID > matching[j].ID
	})

	total := len(matching)
	offset := (page - 1) * pageSize
	if offset >= total {
		return nil, total, nil
	}
	end := offset + pageSize
	if end > total {
		end = total
	}
	return matching[offset:end], total, nil
}

// IsBanned reports whether a user is banned
func (s *MemoryStore) IsBanned(ctx context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.bans[userID]
	return ok, nil
}

// Ban upserts a ban record
func (s *MemoryStore) Ban(ctx context.Context, userID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bans[userID] = core.BanRecord{
		UserID:   userID,
		BannedAt: s.now(),
		Reason:   reason,
	}
	return nil
}

// Unban removes a ban record
func (s *MemoryStore) Unban(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.bans, userID)
	return nil
}

// List returns all ban records, most recently banned first
func (s *MemoryStore) List(ctx context.Context) ([]core.BanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]core.BanRecord, 0, len(s.bans))
	for _, r := range s.bans {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].BannedAt.Equal(records[j].BannedAt) {
			return records[i].BannedAt.After(records[j].BannedAt)
		}
		return records[i].UserID < records[j].UserID
	})
	return records, nil
}

// startCleanupTask runs the periodic expired-entry sweep
func (s *MemoryStore) startCleanupTask() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, err := s.Cleanup(context.Background())
			if err != nil {
				s.logger.Error("Failed to clean up cache", zap.Error(err))
			} else {
				s.logger.Debug("Cleaned up expired cache entries", zap.Int64("removed", removed))
			}
		case <-s.stopCh:
			return
		}
	}
}

// Stop stops the background sweep
func (s *MemoryStore) Stop() {
	close(s.stopCh)
}
