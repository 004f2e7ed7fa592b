package admin

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type captureNotifier struct {
	destinations []string
	messages     []string
	err          error
}

func (n *captureNotifier) Send(ctx context.Context, destination, text string) error {
	if n.err != nil {
		return n.err
	}
	n.destinations = append(n.destinations, destination)
	n.messages = append(n.messages, text)
	return nil
}

var codePattern = regexp.MustCompile(`\d{6}$`)

func (n *captureNotifier) lastCode(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, n.messages)
	code := codePattern.FindString(n.messages[len(n.messages)-1])
	require.NotEmpty(t, code, "message should end with a 6-digit code")
	return code
}

func newTestAuthenticator(notifier *captureNotifier) (*Authenticator, *time.Time) {
	a := NewAuthenticator(notifier, "+61400000000", "test-secret", 5*time.Minute, 30*time.Minute, zap.NewNop())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return now }
	return a, &now
}

func TestRequestCodeSendsToOwner(t *testing.T) {
	notifier := &captureNotifier{}
	a, _ := newTestAuthenticator(notifier)

	a.RequestCode(context.Background(), "+61400000000")
	require.Len(t, notifier.messages, 1)
	assert.Equal(t, "+61400000000", notifier.destinations[0])
	assert.True(t, strings.HasPrefix(notifier.messages[0], "Admin login code: "))
	notifier.lastCode(t)
}

func TestRequestCodeIgnoresNonOwner(t *testing.T) {
	notifier := &captureNotifier{}
	a, _ := newTestAuthenticator(notifier)

	a.RequestCode(context.Background(), "+61499999999")
	assert.Empty(t, notifier.messages)
}

func TestRequestCodeEmptyOwnerNeverSends(t *testing.T) {
	notifier := &captureNotifier{}
	a := NewAuthenticator(notifier, "", "test-secret", 5*time.Minute, 30*time.Minute, zap.NewNop())

	a.RequestCode(context.Background(), "")
	assert.Empty(t, notifier.messages)
}

func TestVerifyCodeConsumesOnUse(t *testing.T) {
	notifier := &captureNotifier{}
	a, _ := newTestAuthenticator(notifier)

	a.RequestCode(context.Background(), "+61400000000")
	code := notifier.lastCode(t)

	assert.True(t, a.VerifyCode(code))
	assert.False(t, a.VerifyCode(code), "a code is single use")
}

func TestVerifyCodeExpires(t *testing.T) {
	notifier := &captureNotifier{}
	a, now := newTestAuthenticator(notifier)

	a.RequestCode(context.Background(), "+61400000000")
	code := notifier.lastCode(t)

	*now = now.Add(5*time.Minute + time.Second)
	assert.False(t, a.VerifyCode(code))
}

func TestVerifyCodeUnknown(t *testing.T) {
	notifier := &captureNotifier{}
	a, _ := newTestAuthenticator(notifier)

	assert.False(t, a.VerifyCode("000000"))
}

func TestRequestCodeDeliveryFailureSwallowed(t *testing.T) {
	notifier := &captureNotifier{err: errors.New("signal down")}
	a, _ := newTestAuthenticator(notifier)

	// Must not panic; the code is still pending but undeliverable
	a.RequestCode(context.Background(), "+61400000000")
	assert.Empty(t, notifier.messages)
}

func TestSessionTokenRoundTrip(t *testing.T) {
	a := NewAuthenticator(&captureNotifier{}, "+61400000000", "test-secret", 5*time.Minute, 30*time.Minute, zap.NewNop())

	token, err := a.CreateSessionToken()
	require.NoError(t, err)
	assert.True(t, a.ValidateSessionToken(token))
}

func TestSessionTokenExpired(t *testing.T) {
	a := NewAuthenticator(&captureNotifier{}, "+61400000000", "test-secret", 5*time.Minute, -time.Minute, zap.NewNop())

	token, err := a.CreateSessionToken()
	require.NoError(t, err)
	assert.False(t, a.ValidateSessionToken(token))
}

func TestSessionTokenWrongKeyRejected(t *testing.T) {
	a := NewAuthenticator(&captureNotifier{}, "+61400000000", "test-secret", 5*time.Minute, 30*time.Minute, zap.NewNop())
	other := NewAuthenticator(&captureNotifier{}, "+61400000000", "other-secret", 5*time.Minute, 30*time.Minute, zap.NewNop())

	token, err := a.CreateSessionToken()
	require.NoError(t, err)
	assert.False(t, other.ValidateSessionToken(token))
	assert.False(t, a.ValidateSessionToken("not.a.token"))
}
