package config

// SignalConfig represents the configuration for the Signal transport
type SignalConfig struct {
	ServiceURL  string
	PhoneNumber string
	OwnerNumber string
}

// ScryfallConfig represents the configuration for the Scryfall API client
type ScryfallConfig struct {
	BaseURL   string
	UserAgent string
}

// AdminConfig represents the configuration for the admin API
type AdminConfig struct {
	Enabled       bool
	ListenAddress string
	SecretKey     string
}

// GetSignal returns the Signal transport configuration
func (c *Config) GetSignal() SignalConfig {
	return SignalConfig{
		ServiceURL:  c.GetString("signal.service_url"),
		PhoneNumber: c.GetString("signal.phone_number"),
		OwnerNumber: c.GetString("signal.owner_number"),
	}
}

// GetScryfall returns the Scryfall client configuration
func (c *Config) GetScryfall() ScryfallConfig {
	return ScryfallConfig{
		BaseURL:   c.GetString("scryfall.base_url"),
		UserAgent: c.GetString("scryfall.user_agent"),
	}
}

// GetAdmin returns the admin API configuration
func (c *Config) GetAdmin() AdminConfig {
	return AdminConfig{
		Enabled:       c.GetBool("admin.enabled"),
		ListenAddress: c.GetString("admin.listen_address"),
		SecretKey:     c.GetString("admin.secret_key"),
	}
}
