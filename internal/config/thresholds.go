package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"ops-analytics/internal/domain"
)

// ThresholdSource yields the thresholds in force.
type ThresholdSource interface {
	Thresholds() domain.ThresholdConfig
}

// ThresholdStore holds the current thresholds. The last Set wins.
type ThresholdStore struct {
	v atomic.Pointer[domain.ThresholdConfig]
}

// NewThresholdStore creates a store holding the clamped initial thresholds.
func NewThresholdStore(initial domain.ThresholdConfig) *ThresholdStore {
	s := &ThresholdStore{}
	s.Set(initial)
	return s
}

// Thresholds returns the thresholds in force.
func (s *ThresholdStore) Thresholds() domain.ThresholdConfig {
	return *s.v.Load()
}

// Set replaces the thresholds, clamping each value to its minimum.
func (s *ThresholdStore) Set(c domain.ThresholdConfig) {
	c = c.Clamp()
	s.v.Store(&c)
}

// ReadThresholds parses the thresholds section of a config file.
// Fields absent from the file keep their current values in base.
func ReadThresholds(path string, base domain.ThresholdConfig) (domain.ThresholdConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, fmt.Errorf("read %s: %w", path, err)
	}
	var doc struct {
		Thresholds domain.ThresholdConfig `yaml:"thresholds"`
	}
	doc.Thresholds = base
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return base, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc.Thresholds, nil
}

// Watch reloads the thresholds section of path into store whenever the file changes,
// until ctx is done. A file that fails to parse leaves the store unchanged.
//
// The parent directory is watched so editors that replace the file are followed.
func Watch(ctx context.Context, path string, store *ThresholdStore, logger logrus.FieldLogger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			next, err := ReadThresholds(abs, store.Thresholds())
			if err != nil {
				logger.WithError(err).Warn("threshold reload failed, keeping previous values")
				continue
			}
			store.Set(next)
			applied := store.Thresholds()
			logger.WithFields(logrus.Fields{
				"min_active_per_house": applied.MinActiveProfilesPerHouse,
				"min_capital":          applied.MinCapitalPerHouse.String(),
				"low_balance":          applied.LowBalanceThreshold.String(),
				"target_daily_volume":  applied.TargetDailyVolume.String(),
			}).Info("thresholds reloaded")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.WithError(err).Warn("config watcher error")
		}
	}
}
