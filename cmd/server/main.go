// Package main runs the operations dashboard service:
// - Session (polling): trades, profiles and houses refreshed into metrics, capital and alerts
// - Thresholds (watched): config.yaml thresholds reloaded on change
// - API (HTTP + WebSocket): views, alert state, schedule toggles, Prometheus metrics
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ops-analytics/internal/api"
	"ops-analytics/internal/app"
	"ops-analytics/internal/config"
	"ops-analytics/internal/logging"
	"ops-analytics/internal/observability"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to config.yaml")
	envFile := flag.String("env-file", ".env", "Path to .env file")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	storageBackend := flag.String("storage", "", "Storage backend: memory or postgres (overrides config)")
	seed := flag.Bool("seed", false, "Load the fixture dataset on startup (always on for memory storage)")
	migrate := flag.Bool("migrate", true, "Apply embedded schema migrations on startup")
	flag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "load env file: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *storageBackend != "" {
		cfg.Storage.Backend = *storageBackend
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
			os.Exit(1)
		}
	}

	root, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "setup logging: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Component(root, "server")

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Channel to signal completion
	done := make(chan struct{})

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.WithField("signal", sig.String()).Info("initiating graceful shutdown")
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig.String()).Warn("second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Warn("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	err = run(ctx, cfg, *configPath, *seed, *migrate, root)
	close(done)

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("server error")
	}
	logger.Info("shutdown complete")
}

// run wires stores, session, threshold watcher and API, and blocks until ctx is done.
func run(ctx context.Context, cfg config.Config, configPath string, seed, migrate bool, root *logrus.Logger) error {
	logger := logging.Component(root, "server")

	stores, err := app.OpenStores(ctx, cfg.Storage, app.OpenOptions{
		Migrate: migrate,
		Logger:  logging.Component(root, "storage"),
	})
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer stores.Close()

	if stores.Memory || seed {
		fx, err := stores.Seed(ctx, time.Now())
		if err != nil {
			return fmt.Errorf("seed fixtures: %w", err)
		}
		logger.WithFields(logrus.Fields{
			"houses":   len(fx.Houses),
			"profiles": len(fx.Profiles),
			"trades":   len(fx.Trades),
		}).Info("fixture dataset loaded")
	}

	thresholds := config.NewThresholdStore(cfg.Thresholds)
	observer := observability.DefaultMetrics

	session, err := app.NewSession(cfg, stores, thresholds, observer, logging.Component(root, "session"))
	if err != nil {
		return err
	}

	server := api.NewServer(api.Options{
		Addr:     cfg.Server.Addr,
		Session:  session,
		Observer: observer,
		Logger:   root,
	})

	logger.WithFields(logrus.Fields{
		"addr":    cfg.Server.Addr,
		"storage": cfg.Storage.Backend,
		"window":  cfg.Server.Window,
		"poll":    cfg.Server.PollInterval.String(),
		"feed":    cfg.Feed.URL != "",
	}).Info("starting ops dashboard")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return session.Run(gctx, cfg.Server.PollInterval)
	})
	g.Go(func() error {
		// Hot reload is optional; the service keeps the thresholds it started with.
		err := config.Watch(gctx, configPath, thresholds, logging.Component(root, "config"))
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Warn("threshold watcher stopped")
		}
		return nil
	})
	g.Go(func() error {
		return server.ListenAndServe(gctx)
	})

	return g.Wait()
}
