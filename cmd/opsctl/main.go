// Command opsctl runs one-shot operations against the dashboard stores:
// schema migration, seeding, metrics, alerts, schedule toggles, reports and
// reconciliation against the remote feed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ops-analytics/internal/app"
	"ops-analytics/internal/config"
	"ops-analytics/internal/dashboard"
	"ops-analytics/internal/logging"
	"ops-analytics/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// cli carries state shared by every subcommand.
type cli struct {
	configPath string
	envFile    string
	backend    string

	cfg    config.Config
	logger *logrus.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "opsctl",
		Short:         "Operations dashboard CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.load()
		},
	}
	root.PersistentFlags().StringVar(&c.configPath, "config", "config.yaml", "path to config.yaml")
	root.PersistentFlags().StringVar(&c.envFile, "env-file", ".env", "path to .env file")
	root.PersistentFlags().StringVar(&c.backend, "storage", "", "storage backend: memory or postgres (overrides config)")

	root.AddCommand(
		migrateCmd(c),
		seedCmd(c),
		metricsCmd(c),
		alertsCmd(c),
		toggleCmd(c),
		reportCmd(c),
		verifyCmd(c),
	)
	return root
}

func (c *cli) load() error {
	if err := config.LoadEnvFile(c.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.backend != "" {
		cfg.Storage.Backend = c.backend
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	// CLI output goes to stdout; keep logs quiet unless asked.
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.Log.Level = "warn"
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logger
	return nil
}

// open connects the configured stores. The in-memory backend starts from the fixture dataset.
func (c *cli) open(ctx context.Context, migrate bool) (*app.Stores, error) {
	stores, err := app.OpenStores(ctx, c.cfg.Storage, app.OpenOptions{
		Migrate: migrate,
		Logger:  logging.Component(c.logger, "storage"),
	})
	if err != nil {
		return nil, err
	}
	if stores.Memory {
		if _, err := stores.Seed(ctx, now()); err != nil {
			stores.Close()
			return nil, fmt.Errorf("seed fixtures: %w", err)
		}
	}
	return stores, nil
}

// session builds a dashboard session over stores and refreshes it once.
func (c *cli) session(ctx context.Context, stores *app.Stores) (*dashboard.Session, *dashboard.View, error) {
	session, err := app.NewSession(c.cfg, stores, config.NewThresholdStore(c.cfg.Thresholds),
		observability.DefaultMetrics, logging.Component(c.logger, "session"))
	if err != nil {
		return nil, nil, err
	}
	view, err := session.Refresh(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("refresh: %w", err)
	}
	return session, view, nil
}
