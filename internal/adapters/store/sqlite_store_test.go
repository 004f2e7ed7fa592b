package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jimsug/mtg-signal-bot/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) (*SQLiteStore, *time.Time) {
	t.Helper()

	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), 24*time.Hour, time.Hour, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(s.Stop)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestCacheSetGetRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	payload := []byte(`{"name":"Lightning Bolt"}`)
	require.NoError(t, s.Set(ctx, "named:bolt::", payload))

	got, err := s.Get(ctx, "named:bolt::")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestCacheGetAbsent(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.Get(context.Background(), "named:nothing::")
	assert.ErrorIs(t, err, core.ErrCacheMiss)
}

func TestCacheExpiryIsLazy(t *testing.T) {
	s, now := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "named:bolt::", []byte(`{}`)))

	*now = now.Add(24*time.Hour + time.Second)

	// Stale reads are absent
	_, err := s.Get(ctx, "named:bolt::")
	assert.ErrorIs(t, err, core.ErrCacheMiss)

	// But the row survives until a sweep runs
	results, err := s.Search(ctx, "bolt")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "named:bolt::", results[0].Key)

	removed, err := s.Cleanup(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	results, err = s.Search(ctx, "bolt")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestCacheSetResetsCachedAt(t *testing.T) {
	s, now := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "named:bolt::", []byte(`{"v":1}`)))
	*now = now.Add(23 * time.Hour)
	require.NoError(t, s.Set(ctx, "named:bolt::", []byte(`{"v":2}`)))
	*now = now.Add(2 * time.Hour)

	// 25h after the first write, 2h after the upsert: still fresh
	got, err := s.Get(ctx, "named:bolt::")
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":2}`), got)

	// The upsert never leaves two live rows
	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalEntries)
}

func TestCleanupRemovesOnlyExpired(t *testing.T) {
	s, now := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "named:old::", []byte(`{}`)))
	*now = now.Add(25 * time.Hour)
	require.NoError(t, s.Set(ctx, "named:fresh::", []byte(`{}`)))

	removed, err := s.Cleanup(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, err = s.Get(ctx, "named:fresh::")
	assert.NoError(t, err)

	// Nothing further to expire
	removed, err = s.Cleanup(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, removed)
}

func TestCacheDeleteAll(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Set(ctx, fmt.Sprintf("named:card-%d::", i), []byte(`{}`)))
	}

	removed, err := s.DeleteAll(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, removed)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalEntries)
}

func TestCacheDeleteIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "named:bolt::", []byte(`{}`)))
	require.NoError(t, s.Delete(ctx, "named:bolt::"))
	require.NoError(t, s.Delete(ctx, "named:bolt::"))

	_, err := s.Get(ctx, "named:bolt::")
	assert.ErrorIs(t, err, core.ErrCacheMiss)
}

func TestCacheSearchOrderAndCap(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 105; i++ {
		require.NoError(t, s.Set(ctx, fmt.Sprintf("named:card-%03d::", i), []byte(`{}`)))
	}
	require.NoError(t, s.Set(ctx, "rulings:some-id", []byte(`{}`)))

	results, err := s.Search(ctx, "named:card")
	require.NoError(t, err)
	assert.Len(t, results, 100)
	assert.Equal(t, "named:card-000::", results[0].Key)
	assert.True(t, sortedByKey(results))

	// Flat keyspace: substring search spans namespaces
	results, err = s.Search(ctx, "some-id")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "rulings:some-id", results[0].Key)
}

func sortedByKey(results []core.CacheKeyInfo) bool {
	for i := 1; i < len(results); i++ {
		if results[i-1].Key > results[i].Key {
			return false
		}
	}
	return true
}

func TestRecordAndCountInWindow(t *testing.T) {
	s, now := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, "uuid-1", "+61400000000", "Lightning Bolt"))
	require.NoError(t, s.Record(ctx, "uuid-1", "+61400000000", "Grizzly Bears"))

	count, err := s.CountInWindow(ctx, "uuid-1", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// Old events fall out of the window
	*now = now.Add(10 * time.Minute)
	require.NoError(t, s.Record(ctx, "uuid-1", "", "Counterspell"))

	count, err = s.CountInWindow(ctx, "uuid-1", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Other users are not counted
	count, err = s.CountInWindow(ctx, "uuid-2", 5*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestCountSince(t *testing.T) {
	s, now := newTestStore(t)
	ctx := context.Background()

	start := *now
	require.NoError(t, s.Record(ctx, "uuid-1", "", "Bolt"))
	*now = now.Add(time.Hour)
	require.NoError(t, s.Record(ctx, "uuid-2", "", "Bears"))

	count, err := s.CountSince(ctx, start)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = s.CountSince(ctx, start.Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSuspiciousUsers(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		require.NoError(t, s.Record(ctx, "uuid-heavy", "+61411111111", "Bolt"))
	}
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Record(ctx, "uuid-light", "", "Bears"))
	}

	users, err := s.SuspiciousUsers(ctx, 20, 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "uuid-heavy", users[0].UserID)
	assert.Equal(t, "+61411111111", users[0].UserContact)
	assert.Equal(t, 20, users[0].LookupCount)
}

func TestSuspiciousUsersOrderedByCount(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 12; i++ {
		require.NoError(t, s.Record(ctx, "uuid-a", "", "Bolt"))
	}
	for i := 0; i < 30; i++ {
		require.NoError(t, s.Record(ctx, "uuid-b", "", "Bears"))
	}

	users, err := s.SuspiciousUsers(ctx, 10, 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "uuid-b", users[0].UserID)
	assert.Equal(t, 30, users[0].LookupCount)
	assert.Equal(t, "uuid-a", users[1].UserID)
}

func TestSuspiciousUsersWindowExcludesOldEvents(t *testing.T) {
	s, now := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		require.NoError(t, s.Record(ctx, "uuid-1", "", "Bolt"))
	}
	*now = now.Add(10 * time.Minute)

	users, err := s.SuspiciousUsers(ctx, 20, 5*time.Minute)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestPagePagination(t *testing.T) {
	s, now := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 75; i++ {
		require.NoError(t, s.Record(ctx, "uuid-1", "", fmt.Sprintf("card-%d", i)))
		*now = now.Add(time.Second)
	}

	rows, total, err := s.Page(ctx, 1, 50, "")
	require.NoError(t, err)
	assert.Equal(t, 75, total)
	require.Len(t, rows, 50)
	// Newest first
	assert.Equal(t, "card-74", rows[0].Query)

	rows, total, err = s.Page(ctx, 2, 50, "")
	require.NoError(t, err)
	assert.Equal(t, 75, total)
	assert.Len(t, rows, 25)

	rows, total, err = s.Page(ctx, 3, 50, "")
	require.NoError(t, err)
	assert.Equal(t, 75, total)
	assert.Empty(t, rows)
}

func TestPageTiesBreakByInsertionOrder(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	// All in the same second
	require.NoError(t, s.Record(ctx, "uuid-1", "", "first"))
	require.NoError(t, s.Record(ctx, "uuid-1", "", "second"))
	require.NoError(t, s.Record(ctx, "uuid-1", "", "third"))

	rows, _, err := s.Page(ctx, 1, 50, "")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "third", rows[0].Query)
	assert.Equal(t, "second", rows[1].Query)
	assert.Equal(t, "first", rows[2].Query)
}

func TestPageUserFilter(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Record(ctx, "uuid-1", "", "Bolt"))
	require.NoError(t, s.Record(ctx, "uuid-2", "", "Bears"))
	require.NoError(t, s.Record(ctx, "uuid-1", "", "Counterspell"))

	rows, total, err := s.Page(ctx, 1, 50, "uuid-1")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, "uuid-1", r.UserID)
	}
}

func TestBanRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	banned, err := s.IsBanned(ctx, "uuid-1")
	require.NoError(t, err)
	assert.False(t, banned)

	require.NoError(t, s.Ban(ctx, "uuid-1", "testing"))
	banned, err = s.IsBanned(ctx, "uuid-1")
	require.NoError(t, err)
	assert.True(t, banned)

	require.NoError(t, s.Unban(ctx, "uuid-1"))
	banned, err = s.IsBanned(ctx, "uuid-1")
	require.NoError(t, err)
	assert.False(t, banned)

	// Unban is idempotent
	require.NoError(t, s.Unban(ctx, "uuid-1"))
}

func TestRebanReplacesReason(t *testing.T) {
	s, now := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Ban(ctx, "uuid-1", "spamming"))
	first := *now
	*now = now.Add(time.Hour)
	require.NoError(t, s.Ban(ctx, "uuid-1", "still spamming"))

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "still spamming", records[0].Reason)
	assert.True(t, records[0].BannedAt.After(first))
}

func TestBanListOrderedNewestFirst(t *testing.T) {
	s, now := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Ban(ctx, "uuid-old", ""))
	*now = now.Add(time.Hour)
	require.NoError(t, s.Ban(ctx, "uuid-new", "abuse"))

	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "uuid-new", records[0].UserID)
	assert.Equal(t, "uuid-old", records[1].UserID)
	assert.Equal(t, "abuse", records[0].Reason)
	assert.Empty(t, records[1].Reason)
}
