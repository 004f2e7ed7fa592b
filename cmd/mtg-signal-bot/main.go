package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jimsug/mtg-signal-bot/internal/adapters/admin"
	"github.com/jimsug/mtg-signal-bot/internal/adapters/store"
	"github.com/jimsug/mtg-signal-bot/internal/config"
	"github.com/jimsug/mtg-signal-bot/internal/di"
	"github.com/jimsug/mtg-signal-bot/internal/ports"
	"go.uber.org/zap"
)

func main() {
	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	cfg *config.Config,
	listener ports.MessageListener,
	adminServer *admin.Server,
	sharedStore store.Store,
) error {
	defer logger.Sync()

	// Start the message listener
	if err := listener.Start(); err != nil {
		logger.Fatal("Failed to start listener", zap.Error(err))
		return err
	}

	// Start the admin API if enabled
	adminEnabled := cfg.GetAdmin().Enabled
	if adminEnabled {
		if err := adminServer.Start(); err != nil {
			logger.Error("Failed to start admin API", zap.Error(err))
		}
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	if err := listener.Stop(); err != nil {
		logger.Error("Failed to stop listener", zap.Error(err))
	}
	if adminEnabled {
		if err := adminServer.Stop(); err != nil {
			logger.Error("Failed to stop admin API", zap.Error(err))
		}
	}

	// Stop the store (halts the cache sweep, closes the database)
	sharedStore.Stop()

	logger.Info("Shutdown complete")
	return nil
}
