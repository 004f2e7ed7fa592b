package core

import (
	"time"
)

// Query flags recognised inside the [[...]] bracket syntax
const (
	FlagNone     = ""
	FlagImage    = "!"
	FlagRulings  = "?"
	FlagLegality = "#"
	FlagPrice    = "$"
)

// CardQuery represents one parsed card reference from a message
type CardQuery struct {
	Raw             string // original text inside [[ ]]
	Flag            string // one of the Flag constants
	Name            string
	SetCode         string // e.g. "WWK", empty if unspecified
	CollectorNumber string
}

// CacheEntry represents one stored cache row
type CacheEntry struct {
	Key      string
	Payload  []byte
	CachedAt time.Time
}

// CacheKeyInfo is the search-result view of a cache entry (no payload)
type CacheKeyInfo struct {
	Key      string
	CachedAt time.Time
}

// CacheStats holds aggregate cache statistics
type CacheStats struct {
	TotalEntries int
}

// UsageEvent represents a single recorded card lookup
type UsageEvent struct {
	ID          int64
	UserID      string
	UserContact string
	Query       string
	Timestamp   time.Time
}

// SuspiciousUser is a user whose lookup count crossed the threshold
type SuspiciousUser struct {
	UserID      string
	UserContact string
	LookupCount int
}

// BanRecord represents a banned user
type BanRecord struct {
	UserID   string
	BannedAt time.Time
	Reason   string
}
