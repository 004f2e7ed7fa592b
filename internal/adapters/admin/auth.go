package admin

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jimsug/mtg-signal-bot/internal/core"
	"go.uber.org/zap"
)

// Authenticator implements the admin login flow: a one-time 6-digit
// code is sent to the owner over Signal, and a successful verify issues
// a signed session token. Pending codes live in memory only.
type Authenticator struct {
	notifier      core.Notifier
	ownerNumber   string
	secretKey     []byte
	codeExpiry    time.Duration
	sessionMaxAge time.Duration
	logger        *zap.Logger

	mu           sync.Mutex
	pendingCodes map[string]time.Time
	now          func() time.Time
}

// NewAuthenticator creates a new admin authenticator
func NewAuthenticator(
	notifier core.Notifier,
	ownerNumber, secretKey string,
	codeExpiry, sessionMaxAge time.Duration,
	logger *zap.Logger,
) *Authenticator {
	return &Authenticator{
		notifier:      notifier,
		ownerNumber:   ownerNumber,
		secretKey:     []byte(secretKey),
		codeExpiry:    codeExpiry,
		sessionMaxAge: sessionMaxAge,
		logger:        logger,
		pendingCodes:  make(map[string]time.Time),
		now:           time.Now,
	}
}

// RequestCode generates and sends a login code if the phone matches the
// owner. It always returns cleanly so callers cannot learn whether the
// number was correct. Delivery failures are logged and swallowed.
func (a *Authenticator) RequestCode(ctx context.Context, phone string) {
	if phone != a.ownerNumber || a.ownerNumber == "" {
		a.logger.Debug("Login attempt with non-owner phone")
		return
	}

	code, err := generateCode()
	if err != nil {
		a.logger.Error("Failed to generate login code", zap.Error(err))
		return
	}

	a.mu.Lock()
	a.sweepLocked()
	a.pendingCodes[code] = a.now().Add(a.codeExpiry)
	a.mu.Unlock()

	a.logger.Info("Sending login code to owner")
	if err := a.notifier.Send(ctx, a.ownerNumber, "Admin login code: "+code); err != nil {
		a.logger.Error("Failed to send login code", zap.Error(err))
	}
}

// VerifyCode validates a login code, consuming it on success
func (a *Authenticator) VerifyCode(code string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	expires, ok := a.pendingCodes[code]
	if !ok {
		return false
	}
	delete(a.pendingCodes, code)
	return a.now().Before(expires)
}

// CreateSessionToken issues a signed session token
func (a *Authenticator) CreateSessionToken() (string, error) {
	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.sessionMaxAge)),
	})
	signed, err := token.SignedString(a.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return signed, nil
}

// ValidateSessionToken checks signature and expiry of a session token
func (a *Authenticator) ValidateSessionToken(tokenString string) bool {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secretKey, nil
	})
	return err == nil && token.Valid
}

// sweepLocked drops expired pending codes; caller holds the lock
func (a *Authenticator) sweepLocked() {
	now := a.now()
	for code, expires := range a.pendingCodes {
		if now.After(expires) {
			delete(a.pendingCodes, code)
		}
	}
}

// generateCode returns a 6-digit numeric code
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n), nil
}
