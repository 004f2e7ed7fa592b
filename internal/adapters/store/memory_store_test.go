package store

import (
	"context"
	"testing"
	"time"

	"github.com/jimsug/mtg-signal-bot/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMemoryTestStore(t *testing.T) (*MemoryStore, *time.Time) {
	t.Helper()

	s := NewMemoryStore(24*time.Hour, time.Hour, zap.NewNop())
	t.Cleanup(s.Stop)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestMemoryCacheExpiryIsLazy(t *testing.T) {
	s, now := newMemoryTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "named:bolt::", []byte(`{}`)))

	*now = now.Add(24*time.Hour + time.Second)

	_, err := s.Get(ctx, "named:bolt::")
	assert.ErrorIs(t, err, core.ErrCacheMiss)

	results, err := s.Search(ctx, "bolt")
	require.NoError(t, err)
	assert.Len(t, results, 1)

	removed, err := s.Cleanup(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalEntries)
}

func TestMemoryPagePagination(t *testing.T) {
	s, now := newMemoryTestStore(t)
	ctx := context.Background()

	for i := 0; i < 75; i++ {
		require.NoError(t, s.Record(ctx, "uuid-1", "", "Bolt"))
		*now = now.Add(time.Second)
	}

	rows, total, err := s.Page(ctx, 1, 50, "")
	require.NoError(t, err)
	assert.Equal(t, 75, total)
	assert.Len(t, rows, 50)

	rows, total, err = s.Page(ctx, 2, 50, "")
	require.NoError(t, err)
	assert.Equal(t, 75, total)
	assert.Len(t, rows, 25)
}

func TestMemorySuspiciousUsers(t *testing.T) {
	s, _ := newMemoryTestStore(t)
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
	assert.Equal(t, 20, users[0].LookupCount)
}

func TestMemoryBanRoundTrip(t *testing.T) {
	s, _ := newMemoryTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Ban(ctx, "uuid-1", "testing"))
	banned, err := s.IsBanned(ctx, "uuid-1")
	require.NoError(t, err)
	assert.True(t, banned)

	require.NoError(t, s.Ban(ctx, "uuid-1", "updated"))
	records, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "updated", records[0].Reason)

	require.NoError(t, s.Unban(ctx, "uuid-1"))
	banned, err = s.IsBanned(ctx, "uuid-1")
	require.NoError(t, err)
	assert.False(t, banned)
}
