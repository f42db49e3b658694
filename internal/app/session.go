package app

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"ops-analytics/internal/config"
	"ops-analytics/internal/dashboard"
	"ops-analytics/internal/metrics"
	"ops-analytics/internal/observability"
	"ops-analytics/internal/window"
)

// MetricsOptions returns the engine options configured in cfg.
func MetricsOptions(cfg config.Config) metrics.Options {
	return metrics.Options{Baseline: cfg.Server.Baseline}
}

// NewSession builds a dashboard session over stores and the configured feed.
func NewSession(cfg config.Config, stores *Stores, thresholds config.ThresholdSource,
	observer *observability.Metrics, logger logrus.FieldLogger) (*dashboard.Session, error) {
	sel, err := window.ParseSelector(cfg.Server.Window, "", "")
	if err != nil {
		return nil, fmt.Errorf("server window: %w", err)
	}

	return dashboard.New(dashboard.Options{
		Ledger:     Ledger(cfg.Feed, stores, observer, logger),
		Directory:  stores.Directory,
		Thresholds: thresholds,
		AlertState: stores.AlertState,
		Snapshots:  stores.Snapshots,
		Window:     sel,
		Metrics:    MetricsOptions(cfg),
		Observer:   observer,
		Logger:     logger,
	}), nil
}
