package factory

import (
	"fmt"

	"github.com/jimsug/mtg-signal-bot/internal/adapters/signal"
	"github.com/jimsug/mtg-signal-bot/internal/config"
	"go.uber.org/zap"
)

// ChatFactory creates the Signal transport client based on configuration
type ChatFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewChatFactory creates a new chat factory
func NewChatFactory(cfg *config.Config, logger *zap.Logger) *ChatFactory {
	return &ChatFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClient creates the signal-cli-rest-api client
func (f *ChatFactory) CreateClient() (*signal.Client, error) {
	sc := f.cfg.GetSignal()
	if sc.PhoneNumber == "" {
		return nil, fmt.Errorf("signal.phone_number is required")
	}

	receiveTimeout, err := f.cfg.GetDuration("signal.receive_timeout")
	if err != nil {
		return nil, fmt.Errorf("invalid receive timeout: %w", err)
	}

	return signal.NewClient(sc.ServiceURL, sc.PhoneNumber, receiveTimeout, f.logger), nil
}
