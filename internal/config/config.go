// Package config loads the service configuration from config.yaml, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/logging"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig           `yaml:"server"`
	Storage    StorageConfig          `yaml:"storage"`
	Feed       FeedConfig             `yaml:"feed"`
	Log        logging.Config         `yaml:"log"`
	Thresholds domain.ThresholdConfig `yaml:"thresholds"`
}

// ServerConfig configures the HTTP surface and the refresh loop.
type ServerConfig struct {
	Addr         string          `yaml:"addr"`
	PollInterval time.Duration   `yaml:"poll_interval"`
	Window       string          `yaml:"window"`   // default selector preset
	Baseline     decimal.Decimal `yaml:"baseline"` // drawdown percentage base
	OutputDir    string          `yaml:"output_dir"`
}

// StorageConfig selects and addresses the persistence backend.
type StorageConfig struct {
	Backend       string `yaml:"backend"` // memory | postgres
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
	RedisURL      string `yaml:"redis_url"`
	RedisPrefix   string `yaml:"redis_prefix"`
}

// FeedConfig addresses the remote trade feed. An empty URL reads the local store.
type FeedConfig struct {
	URL           string        `yaml:"url"`
	Token         string        `yaml:"token"`
	Timeout       time.Duration `yaml:"timeout"`
	RatePerSecond float64       `yaml:"rate_per_second"`
}

// Default returns a configuration that runs fully in memory.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:         ":9090",
			PollInterval: 30 * time.Second,
			Window:       "month-to-date",
			Baseline:     decimal.NewFromInt(1000),
			OutputDir:    "output",
		},
		Storage: StorageConfig{
			Backend:     BackendMemory,
			RedisPrefix: "ops:alerts:",
		},
		Feed: FeedConfig{
			Timeout:       10 * time.Second,
			RatePerSecond: 5,
		},
		Log:        logging.DefaultConfig(),
		Thresholds: domain.DefaultThresholds(),
	}
}

// Load reads the configuration. A missing path or file keeps the defaults;
// environment variables override file values. Thresholds are clamped.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Thresholds = cfg.Thresholds.Clamp()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the environment.
// Existing variables win; a missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return errors.New("storage.postgres_dsn is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Server.PollInterval <= 0 {
		return errors.New("server.poll_interval must be positive")
	}
	if c.Server.Baseline.IsNegative() {
		return errors.New("server.baseline must not be negative")
	}
	return nil
}

func applyEnv(cfg *Config) error {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	str("OPS_ADDR", &cfg.Server.Addr)
	str("OPS_WINDOW", &cfg.Server.Window)
	str("OPS_OUTPUT_DIR", &cfg.Server.OutputDir)
	str("OPS_STORAGE", &cfg.Storage.Backend)
	str("POSTGRES_DSN", &cfg.Storage.PostgresDSN)
	str("CLICKHOUSE_DSN", &cfg.Storage.ClickhouseDSN)
	str("REDIS_URL", &cfg.Storage.RedisURL)
	str("FEED_URL", &cfg.Feed.URL)
	str("FEED_TOKEN", &cfg.Feed.Token)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("LOG_FILE", &cfg.Log.File)

	if v := os.Getenv("OPS_POLL_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("OPS_POLL_INTERVAL: %w", err)
		}
		cfg.Server.PollInterval = d
	}
	if v := os.Getenv("OPS_BASELINE"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return fmt.Errorf("OPS_BASELINE: %w", err)
		}
		cfg.Server.Baseline = d
	}
	if v := os.Getenv("FEED_RATE_PER_SECOND"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("FEED_RATE_PER_SECOND: %w", err)
		}
		cfg.Feed.RatePerSecond = f
	}
	if v := os.Getenv("OPS_MIN_ACTIVE_PER_HOUSE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("OPS_MIN_ACTIVE_PER_HOUSE: %w", err)
		}
		cfg.Thresholds.MinActiveProfilesPerHouse = n
	}
	for key, dst := range map[string]*decimal.Decimal{
		"OPS_MIN_CAPITAL_PER_HOUSE": &cfg.Thresholds.MinCapitalPerHouse,
		"OPS_LOW_BALANCE":           &cfg.Thresholds.LowBalanceThreshold,
		"OPS_TARGET_DAILY_VOLUME":   &cfg.Thresholds.TargetDailyVolume,
	} {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}

	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	return nil
}
