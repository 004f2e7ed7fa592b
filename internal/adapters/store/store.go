package store

import (
	"github.com/jimsug/mtg-signal-bot/internal/core"
)

// Store is the shared durable store: one backend provides the card
// cache, the usage ledger and the ban registry so administrative
// queries can aggregate across them.
type Store interface {
	core.CacheRepository
	core.UsageRepository
	core.BanRepository

	// Stop halts the background sweep and releases resources
	Stop()
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MySQLStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
