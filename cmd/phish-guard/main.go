package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikey/phish-guard/internal/adapters/cache"
	"github.com/mikey/phish-guard/internal/di"
	"github.com/mikey/phish-guard/internal/factory"
	"github.com/mikey/phish-guard/internal/ports"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (searches the default locations if not specified)")
	flag.Parse()

	// Build the dependency injection container
	container, err := di.BuildContainer(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Application error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main application function that gets all dependencies injected
func run(
	logger *zap.Logger,
	listeners []ports.Listener,
	classifiers *factory.ClassifierFactory,
	verdictCache cache.StoppableCache,
) error {
	defer logger.Sync()

	started := make([]ports.Listener, 0, len(listeners))
	for _, l := range listeners {
		if err := l.Start(); err != nil {
			logger.Error("Failed to start listener", zap.Error(err))
			stopAll(logger, started)
			return err
		}
		started = append(started, l)
	}
	logger.Info("phish-guard started", zap.Int("listeners", len(started)))

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("Shutting down...", zap.String("signal", sig.String()))

	stopAll(logger, started)

	if err := classifiers.Close(); err != nil {
		logger.Error("Failed to close classifier backends", zap.Error(err))
	}

	if verdictCache != nil {
		verdictCache.Stop()
	}

	logger.Info("Shutdown complete")
	return nil
}

// stopAll stops listeners in reverse start order
func stopAll(logger *zap.Logger, listeners []ports.Listener) {
	var errs []error
	for i := len(listeners) - 1; i >= 0; i-- {
		if err := listeners[i].Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		logger.Error("Failed to stop listeners", zap.Error(err))
	}
}
