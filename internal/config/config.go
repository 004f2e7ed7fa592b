package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/mtg-signal-bot/")
	v.AddConfigPath("$HOME/.mtg-signal-bot")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("MTG_BOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Signal transport defaults
	v.SetDefault("signal.service_url", "http://localhost:8080")
	v.SetDefault("signal.phone_number", "")
	v.SetDefault("signal.owner_number", "")
	v.SetDefault("signal.receive_timeout", "10s")
	v.SetDefault("signal.poll_interval", "1s")

	// Scryfall defaults
	v.SetDefault("scryfall.base_url", "https://api.scryfall.com")
	v.SetDefault("scryfall.user_agent", "MTGSignalBot/1.0 (github.com/jimsug/mtg-signal-bot)")
	v.SetDefault("scryfall.request_delay", "100ms")
	v.SetDefault("scryfall.request_timeout", "10s")
	v.SetDefault("scryfall.image_timeout", "15s")

	// Bot defaults
	v.SetDefault("bot.between_card_delay", "150ms")

	// Store defaults
	v.SetDefault("store.type", "sqlite")
	v.SetDefault("store.sqlite_path", "/data/mtgbot.db")
	v.SetDefault("store.mysql_dsn", "user:password@tcp(localhost:3306)/mtgbot")

	// Cache defaults
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.cleanup_frequency", "1h")

	// Usage tracking defaults
	v.SetDefault("usage.suspicious_threshold", 20)
	v.SetDefault("usage.suspicious_window", "5m")
	v.SetDefault("usage.alert_cooldown", "30m")

	// Admin defaults
	v.SetDefault("admin.enabled", true)
	v.SetDefault("admin.listen_address", "0.0.0.0:8081")
	v.SetDefault("admin.secret_key", "change-me-in-production")
	v.SetDefault("admin.session_max_age", "30m")
	v.SetDefault("admin.code_expiry", "5m")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}
