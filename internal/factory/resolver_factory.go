package factory

import (
	"fmt"

	"github.com/jimsug/mtg-signal-bot/internal/adapters/scryfall"
	"github.com/jimsug/mtg-signal-bot/internal/config"
	"go.uber.org/zap"
)

// ResolverFactory creates the card resolver based on configuration
type ResolverFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewResolverFactory creates a new resolver factory
func NewResolverFactory(cfg *config.Config, logger *zap.Logger) *ResolverFactory {
	return &ResolverFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateResolver creates the Scryfall client
func (f *ResolverFactory) CreateResolver() (*scryfall.Client, error) {
	requestDelay, err := f.cfg.GetDuration("scryfall.request_delay")
	if err != nil {
		return nil, fmt.Errorf("invalid request delay: %w", err)
	}
	requestTimeout, err := f.cfg.GetDuration("scryfall.request_timeout")
	if err != nil {
		return nil, fmt.Errorf("invalid request timeout: %w", err)
	}
	imageTimeout, err := f.cfg.GetDuration("scryfall.image_timeout")
	if err != nil {
		return nil, fmt.Errorf("invalid image timeout: %w", err)
	}

	sc := f.cfg.GetScryfall()
	return scryfall.NewClient(sc.BaseURL, sc.UserAgent, requestDelay, requestTimeout, imageTimeout, f.logger), nil
}
