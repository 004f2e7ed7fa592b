package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := NewFromViper(NewEmptyViper())

	assert.Equal(t, "sqlite", cfg.GetString("store.type"))
	assert.Equal(t, 20, cfg.GetInt("usage.suspicious_threshold"))
	assert.True(t, cfg.GetBool("admin.enabled"))

	ttl, err := cfg.GetDuration("cache.ttl")
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, ttl)

	window, err := cfg.GetDuration("usage.suspicious_window")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, window)

	delay, err := cfg.GetDuration("bot.between_card_delay")
	require.NoError(t, err)
	assert.Equal(t, 150*time.Millisecond, delay)
}

func TestTypedAccessors(t *testing.T) {
	v := NewEmptyViper()
	v.Set("signal.phone_number", "+61400000000")
	v.Set("signal.owner_number", "+61400000001")
	v.Set("admin.secret_key", "s3cret")
	cfg := NewFromViper(v)

	sc := cfg.GetSignal()
	assert.Equal(t, "http://localhost:8080", sc.ServiceURL)
	assert.Equal(t, "+61400000000", sc.PhoneNumber)
	assert.Equal(t, "+61400000001", sc.OwnerNumber)

	ac := cfg.GetAdmin()
	assert.True(t, ac.Enabled)
	assert.Equal(t, "0.0.0.0:8081", ac.ListenAddress)
	assert.Equal(t, "s3cret", ac.SecretKey)

	assert.Equal(t, "https://api.scryfall.com", cfg.GetScryfall().BaseURL)
}

func TestGetDurationRejectsGarbage(t *testing.T) {
	v := NewEmptyViper()
	v.Set("cache.ttl", "not-a-duration")
	cfg := NewFromViper(v)

	_, err := cfg.GetDuration("cache.ttl")
	assert.Error(t, err)
}
