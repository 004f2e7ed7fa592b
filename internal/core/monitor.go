package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ActivityMonitor watches the usage ledger for threshold crossings and
// alerts the owner, at most once per user per cooldown period. The
// cooldown map is process-local; a restart may produce one extra alert
// per user.
type ActivityMonitor struct {
	usage     UsageRepository
	notifier  Notifier
	ownerDest string
	threshold int
	window    time.Duration
	cooldown  time.Duration
	logger    *zap.Logger

	mu        sync.Mutex
	lastAlert map[string]time.Time
	now       func() time.Time
}

// NewActivityMonitor creates a new suspicious-activity monitor
func NewActivityMonitor(
	usage UsageRepository,
	notifier Notifier,
	ownerDest string,
	threshold int,
	window time.Duration,
	cooldown time.Duration,
	logger *zap.Logger,
) *ActivityMonitor {
	return &ActivityMonitor{
		usage:     usage,
		notifier:  notifier,
		ownerDest: ownerDest,
		threshold: threshold,
		window:    window,
		cooldown:  cooldown,
		logger:    logger,
		lastAlert: make(map[string]time.Time),
		now:       time.Now,
	}
}

// OnLookupRecorded evaluates a user after their lookup has been recorded
// in the ledger. Alert delivery failures are logged and swallowed; this
// method never returns an error to the lookup path.
func (m *ActivityMonitor) OnLookupRecorded(ctx context.Context, userID string) {
	now := m.now()

	m.mu.Lock()
	last := m.lastAlert[userID]
	m.mu.Unlock()
	if now.Sub(last) < m.cooldown {
		return
	}

	count, err := m.usage.CountInWindow(ctx, userID, m.window)
	if err != nil {
		m.logger.Error("Failed to count lookups for alert check",
			zap.Error(err), zap.String("user_id", userID))
		return
	}
	if count < m.threshold {
		return
	}

	m.mu.Lock()
	// Re-check under the lock so concurrent crossings alert once
	if now.Sub(m.lastAlert[userID]) < m.cooldown {
		m.mu.Unlock()
		return
	}
	m.lastAlert[userID] = now
	m.mu.Unlock()

	msg := fmt.Sprintf("Suspicious usage alert: user %s has made %d lookups in the last %d minutes.",
		userID, count, int(m.window.Minutes()))
	m.logger.Warn("Suspicious usage detected",
		zap.String("user_id", userID), zap.Int("lookup_count", count))

	if err := m.notifier.Send(ctx, m.ownerDest, msg); err != nil {
		m.logger.Error("Failed to send suspicious-usage alert",
			zap.Error(err), zap.String("user_id", userID))
	}
}
