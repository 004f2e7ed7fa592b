package di

import (
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/jimsug/mtg-signal-bot/internal/adapters/admin"
	"github.com/jimsug/mtg-signal-bot/internal/adapters/scryfall"
	"github.com/jimsug/mtg-signal-bot/internal/adapters/signal"
	"github.com/jimsug/mtg-signal-bot/internal/adapters/store"
	"github.com/jimsug/mtg-signal-bot/internal/config"
	"github.com/jimsug/mtg-signal-bot/internal/core"
	"github.com/jimsug/mtg-signal-bot/internal/factory"
	"github.com/jimsug/mtg-signal-bot/internal/logging"
	"github.com/jimsug/mtg-signal-bot/internal/ports"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewResolverFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewChatFactory); err != nil {
		return nil, err
	}

	// Register the shared store and its repository views
	if err := container.Provide(func(f *factory.StoreFactory) (store.Store, error) {
		return f.CreateStore()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s store.Store) core.CacheRepository { return s }); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s store.Store) core.UsageRepository { return s }); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s store.Store) core.BanRepository { return s }); err != nil {
		return nil, err
	}

	// Register the card resolver
	if err := container.Provide(func(f *factory.ResolverFactory) (*scryfall.Client, error) {
		return f.CreateResolver()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(c *scryfall.Client) core.CardResolver { return c }); err != nil {
		return nil, err
	}
	if err := container.Provide(func(c *scryfall.Client) signal.ImageFetcher { return c }); err != nil {
		return nil, err
	}

	// Register the Signal client and notifier
	if err := container.Provide(func(f *factory.ChatFactory) (*signal.Client, error) {
		return f.CreateClient()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(c *signal.Client) core.Notifier { return c }); err != nil {
		return nil, err
	}

	// Register the suspicious-activity monitor
	if err := container.Provide(func(
		usage core.UsageRepository,
		notifier core.Notifier,
		cfg *config.Config,
		logger *zap.Logger,
	) (*core.ActivityMonitor, error) {
		window, err := cfg.GetDuration("usage.suspicious_window")
		if err != nil {
			return nil, fmt.Errorf("invalid suspicious window: %w", err)
		}
		cooldown, err := cfg.GetDuration("usage.alert_cooldown")
		if err != nil {
			return nil, fmt.Errorf("invalid alert cooldown: %w", err)
		}
		return core.NewActivityMonitor(
			usage,
			notifier,
			cfg.GetSignal().OwnerNumber,
			cfg.GetInt("usage.suspicious_threshold"),
			window,
			cooldown,
			logger,
		), nil
	}); err != nil {
		return nil, err
	}

	// Register the lookup service
	if err := container.Provide(core.NewLookupService); err != nil {
		return nil, err
	}

	// Register the message handler and listener
	if err := container.Provide(func(
		service *core.LookupService,
		client *signal.Client,
		images signal.ImageFetcher,
		cfg *config.Config,
		logger *zap.Logger,
	) (*signal.MessageHandler, error) {
		delay, err := cfg.GetDuration("bot.between_card_delay")
		if err != nil {
			return nil, fmt.Errorf("invalid between-card delay: %w", err)
		}
		return signal.NewMessageHandler(service, client, images, delay, logger), nil
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		client *signal.Client,
		handler *signal.MessageHandler,
		cfg *config.Config,
		logger *zap.Logger,
	) (ports.MessageListener, error) {
		pollInterval, err := cfg.GetDuration("signal.poll_interval")
		if err != nil {
			return nil, fmt.Errorf("invalid poll interval: %w", err)
		}
		return signal.NewListener(client, handler, pollInterval, logger), nil
	}); err != nil {
		return nil, err
	}

	// Register the admin authenticator and API server
	if err := container.Provide(func(
		notifier core.Notifier,
		cfg *config.Config,
		logger *zap.Logger,
	) (*admin.Authenticator, error) {
		codeExpiry, err := cfg.GetDuration("admin.code_expiry")
		if err != nil {
			return nil, fmt.Errorf("invalid code expiry: %w", err)
		}
		sessionMaxAge, err := cfg.GetDuration("admin.session_max_age")
		if err != nil {
			return nil, fmt.Errorf("invalid session max age: %w", err)
		}
		ac := cfg.GetAdmin()
		return admin.NewAuthenticator(
			notifier,
			cfg.GetSignal().OwnerNumber,
			ac.SecretKey,
			codeExpiry,
			sessionMaxAge,
			logger,
		), nil
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(
		cache core.CacheRepository,
		usage core.UsageRepository,
		bans core.BanRepository,
		auth *admin.Authenticator,
		cfg *config.Config,
		logger *zap.Logger,
	) (*admin.Server, error) {
		window, err := cfg.GetDuration("usage.suspicious_window")
		if err != nil {
			return nil, fmt.Errorf("invalid suspicious window: %w", err)
		}
		return admin.NewServer(
			cache,
			usage,
			bans,
			auth,
			cfg.GetAdmin().ListenAddress,
			cfg.GetInt("usage.suspicious_threshold"),
			window,
			logger,
		), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}
