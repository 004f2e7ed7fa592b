package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jimsug/mtg-signal-bot/internal/core"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of the shared durable store.
// One database file holds the card cache, the usage ledger and the ban
// registry so that administrative queries can aggregate across them.
type SQLiteStore struct {
	db          *sql.DB
	logger      *zap.Logger
	ttl         time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
	now         func() time.Time
}

// NewSQLiteStore opens (or creates) the database and starts the hourly
// cache sweep.
func NewSQLiteStore(dbPath string, ttl, cleanupFreq time.Duration, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	if err := createSQLiteTables(db); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{
		db:          db,
		logger:      logger,
		ttl:         ttl,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
		now:         time.Now,
	}

	// Start background cleanup
	go s.startCleanupTask()

	return s, nil
}

func createSQLiteTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS card_cache (
			cache_key TEXT PRIMARY KEY,
			data      TEXT NOT NULL,
			cached_at INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create card_cache table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_cached_at ON card_cache(cached_at)
	`)
	if err != nil {
		return fmt.Errorf("failed to create cache index: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS usage_log (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			user_uuid  TEXT NOT NULL,
			user_phone TEXT,
			query      TEXT NOT NULL,
			timestamp  INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create usage_log table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_usage_user_ts ON usage_log(user_uuid, timestamp)
	`)
	if err != nil {
		return fmt.Errorf("failed to create usage index: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS banned_users (
			user_uuid TEXT PRIMARY KEY,
			banned_at INTEGER NOT NULL,
			reason    TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create banned_users table: %w", err)
	}

	return nil
}

// Get retrieves a cached payload. Stale rows are treated as absent but
// left in place for the periodic sweep to reclaim.
func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	var cachedAt int64

	err := s.db.QueryRowContext(ctx, `
		SELECT data, cached_at FROM card_cache WHERE cache_key = ?
	`, key).Scan(&data, &cachedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to query cache: %w", err)
	}

	if s.now().Unix()-cachedAt > int64(s.ttl.Seconds()) {
		s.logger.Debug("Cache entry expired", zap.String("key", key))
		return nil, core.ErrCacheMiss
	}

	return data, nil
}

// Set upserts a cache entry, resetting its cached-at time
func (s *SQLiteStore) Set(ctx context.Context, key string, payload []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO card_cache (cache_key, data, cached_at)
		VALUES (?, ?, ?)
	`, key, payload, s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to insert cache entry: %w", err)
	}
	return nil
}

// Delete removes a single cache entry
func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM card_cache WHERE cache_key = ?
	`, key)
	if err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// DeleteAll removes every cache entry
func (s *SQLiteStore) DeleteAll(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM card_cache`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	return result.RowsAffected()
}

// Cleanup removes expired cache entries and returns the number removed
func (s *SQLiteStore) Cleanup(ctx context.Context) (int64, error) {
	cutoff := s.now().Unix() - int64(s.ttl.Seconds())
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM card_cache WHERE cached_at < ?
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up expired entries: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
		return 0, nil
	}
	return removed, nil
}

// Search returns cache entries whose key contains the substring
func (s *SQLiteStore) Search(ctx context.Context, substring string) ([]core.CacheKeyInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cache_key, cached_at FROM card_cache
		WHERE cache_key LIKE '%' || ? || '%'
		ORDER BY cache_key ASC
		LIMIT 100
	`, substring)
	if err != nil {
		return nil, fmt.Errorf("failed to search cache: %w", err)
	}
	defer rows.Close()

	var results []core.CacheKeyInfo
	for rows.Next() {
		var key string
		var cachedAt int64
		if err := rows.Scan(&key, &cachedAt); err != nil {
			return nil, fmt.Errorf("failed to scan cache row: %w", err)
		}
		results = append(results, core.CacheKeyInfo{
			Key:      key,
			CachedAt: time.Unix(cachedAt, 0).UTC(),
		})
	}
	return results, rows.Err()
}

// Stats returns aggregate cache statistics
func (s *SQLiteStore) Stats(ctx context.Context) (core.CacheStats, error) {
	var total int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM card_cache`).Scan(&total)
	if err != nil {
		return core.CacheStats{}, fmt.Errorf("failed to query cache stats: %w", err)
	}
	return core.CacheStats{TotalEntries: total}, nil
}

// Record appends one usage event
func (s *SQLiteStore) Record(ctx context.Context, userID, userContact, query string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_log (user_uuid, user_phone, query, timestamp)
		VALUES (?, ?, ?, ?)
	`, userID, nullable(userContact), query, s.now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}

// CountInWindow counts a user's events within the trailing window
func (s *SQLiteStore) CountInWindow(ctx context.Context, userID string, window time.Duration) (int, error) {
	cutoff := s.now().Unix() - int64(window.Seconds())
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM usage_log WHERE user_uuid = ? AND timestamp >= ?
	`, userID, cutoff).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count usage: %w", err)
	}
	return count, nil
}

// CountSince counts all events at or after the given time
func (s *SQLiteStore) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM usage_log WHERE timestamp >= ?
	`, since.Unix()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count usage: %w", err)
	}
	return count, nil
}

// SuspiciousUsers returns users with at least threshold events in the
// trailing window, highest count first
func (s *SQLiteStore) SuspiciousUsers(ctx context.Context, threshold int, window time.Duration) ([]core.SuspiciousUser, error) {
	cutoff := s.now().Unix() - int64(window.Seconds())
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_uuid, MAX(user_phone) AS user_phone, COUNT(*) AS lookup_count
		FROM usage_log
		WHERE timestamp >= ?
		GROUP BY user_uuid
		HAVING COUNT(*) >= ?
		ORDER BY lookup_count DESC, user_uuid ASC
	`, cutoff, threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to query suspicious users: %w", err)
	}
	defer rows.Close()

	var users []core.SuspiciousUser
	for rows.Next() {
		var u core.SuspiciousUser
		var contact sql.NullString
		if err := rows.Scan(&u.UserID, &contact, &u.LookupCount); err != nil {
			return nil, fmt.Errorf("failed to scan suspicious user: %w", err)
		}
		u.UserContact = contact.String
		users = append(users, u)
	}
	return users, rows.Err()
}

// Page returns one page of usage events, newest first
func (s *SQLiteStore) Page(ctx context.Context, page, pageSize int, userID string) ([]core.UsageEvent, int, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	where := ""
	args := []interface{}{}
	if userID != "" {
		where = "WHERE user_uuid = ?"
		args = append(args, userID)
	}

	var total int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM usage_log %s", where), args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count usage log: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, user_uuid, user_phone, query, timestamp
		FROM usage_log %s
		ORDER BY timestamp DESC, id DESC
		LIMIT ? OFFSET ?
	`, where)
	rows, err := s.db.QueryContext(ctx, query, append(args, pageSize, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query usage log: %w", err)
	}
	defer rows.Close()

	var events []core.UsageEvent
	for rows.Next() {
		var e core.UsageEvent
		var contact sql.NullString
		var ts int64
		if err := rows.Scan(&e.ID, &e.UserID, &contact, &e.Query, &ts); err != nil {
			return nil, 0, fmt.Errorf("failed to scan usage event: %w", err)
		}
		e.UserContact = contact.String
		e.Timestamp = time.Unix(ts, 0).UTC()
		events = append(events, e)
	}
	return events, total, rows.Err()
}

// IsBanned reports whether a user is banned
func (s *SQLiteStore) IsBanned(ctx context.Context, userID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM banned_users WHERE user_uuid = ?
	`, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query ban record: %w", err)
	}
	return true, nil
}

// Ban upserts a ban record
func (s *SQLiteStore) Ban(ctx context.Context, userID, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO banned_users (user_uuid, banned_at, reason)
		VALUES (?, ?, ?)
	`, userID, s.now().Unix(), nullable(reason))
	if err != nil {
		return fmt.Errorf("failed to ban user: %w", err)
	}
	s.logger.Info("Banned user", zap.String("user_id", userID), zap.String("reason", reason))
	return nil
}

// Unban removes a ban record
func (s *SQLiteStore) Unban(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM banned_users WHERE user_uuid = ?
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to unban user: %w", err)
	}
	s.logger.Info("Unbanned user", zap.String("user_id", userID))
	return nil
}

// List returns all ban records, most recently banned first
func (s *SQLiteStore) List(ctx context.Context) ([]core.BanRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_uuid, banned_at, reason FROM banned_users
		ORDER BY banned_at DESC, user_uuid ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list banned users: %w", err)
	}
	defer rows.Close()

	var records []core.BanRecord
	for rows.Next() {
		var r core.BanRecord
		var bannedAt int64
		var reason sql.NullString
		if err := rows.Scan(&r.UserID, &bannedAt, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan ban record: %w", err)
		}
		r.BannedAt = time.Unix(bannedAt, 0).UTC()
		r.Reason = reason.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// startCleanupTask runs the periodic expired-entry sweep
func (s *SQLiteStore) startCleanupTask() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			removed, err := s.Cleanup(context.Background())
			if err != nil {
				s.logger.Error("Failed to clean up cache", zap.Error(err))
			} else {
				s.logger.Info("Purged expired cache entries", zap.Int64("removed", removed))
			}
		case <-s.stopCh:
			return
		}
	}
}

// Stop stops the background sweep and closes the database
func (s *SQLiteStore) Stop() {
	close(s.stopCh)
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
