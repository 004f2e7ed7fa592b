package core

import (
	"context"
	"time"
)

// CardResolver defines the interface for the upstream card data API.
// It is consulted only on cache miss.
type CardResolver interface {
	// ResolveCard fetches a card by name, optionally narrowed to a set
	// and collector number. Returns the raw card payload.
	ResolveCard(ctx context.Context, name, setCode, collectorNumber string) ([]byte, error)

	// ResolveRulings fetches rulings for a card by its upstream ID
	ResolveRulings(ctx context.Context, cardID string) ([]byte, error)
}

// CacheRepository defines the interface for the expiring lookup cache
type CacheRepository interface {
	// Get retrieves the payload for a key. Returns ErrCacheMiss if the
	// entry is absent or older than the TTL (stale rows are not deleted
	// on read; Cleanup reclaims them).
	Get(ctx context.Context, key string) ([]byte, error)

	// Set upserts an entry, resetting its cached-at time to now
	Set(ctx context.Context, key string, payload []byte) error

	// Delete removes a single entry; no error if absent
	Delete(ctx context.Context, key string) error

	// DeleteAll removes every entry and returns the number removed
	DeleteAll(ctx context.Context) (int64, error)

	// Cleanup removes expired entries and returns the number removed
	Cleanup(ctx context.Context) (int64, error)

	// Search returns entries whose key contains the substring,
	// key-ascending, capped at 100 results
	Search(ctx context.Context, substring string) ([]CacheKeyInfo, error)

	// Stats returns aggregate cache statistics
	Stats(ctx context.Context) (CacheStats, error)
}

// UsageRepository defines the interface for the append-only usage ledger
type UsageRepository interface {
	// Record appends one lookup event with the current timestamp
	Record(ctx context.Context, userID, userContact, query string) error

	// CountInWindow counts a user's events within the trailing window
	CountInWindow(ctx context.Context, userID string, window time.Duration) (int, error)

	// CountSince counts all events at or after the given time
	CountSince(ctx context.Context, since time.Time) (int, error)

	// SuspiciousUsers returns users with at least threshold events in the
	// trailing window, ordered by count descending
	SuspiciousUsers(ctx context.Context, threshold int, window time.Duration) ([]SuspiciousUser, error)

	// Page returns one page of events ordered newest first (1-based page
	// number), optionally filtered by user, plus the total matching count
	Page(ctx context.Context, page, pageSize int, userID string) ([]UsageEvent, int, error)
}

// BanRepository defines the interface for the banned-user registry
type BanRepository interface {
	IsBanned(ctx context.Context, userID string) (bool, error)

	// Ban upserts a ban record, replacing reason and timestamp if the
	// user is already banned
	Ban(ctx context.Context, userID, reason string) error

	// Unban removes a ban record; no error if absent
	Unban(ctx context.Context, userID string) error

	// List returns all ban records, most recently banned first
	List(ctx context.Context) ([]BanRecord, error)
}

// Notifier defines the interface for out-of-band message delivery
// (owner alerts, login codes). Delivery is best effort.
type Notifier interface {
	Send(ctx context.Context, destination, text string) error
}
