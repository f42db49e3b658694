// Package app wires configuration into stores, feeds and sessions for the binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"ops-analytics/internal/config"
	"ops-analytics/internal/feed"
	"ops-analytics/internal/observability"
	"ops-analytics/internal/storage"
	chstore "ops-analytics/internal/storage/clickhouse"
	"ops-analytics/internal/storage/memory"
	"ops-analytics/internal/storage/migrations"
	pgstore "ops-analytics/internal/storage/postgres"
	redisstore "ops-analytics/internal/storage/redis"
)

// Stores holds every storage implementation a binary may need.
// Snapshots and AlertState are nil when their backend is not configured.
type Stores struct {
	Trades     storage.TradeRecordStore
	Directory  storage.Directory
	Snapshots  storage.EquitySnapshotStore
	AlertState storage.AlertStateStore

	// Memory is set for the in-memory backend.
	Memory bool

	closers []func()
}

// Close releases every connection in reverse open order.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}

// OpenOptions controls OpenStores.
type OpenOptions struct {
	// Migrate applies the embedded schema before returning.
	Migrate bool
	Logger  logrus.FieldLogger
}

// OpenStores creates the stores selected by cfg.
func OpenStores(ctx context.Context, cfg config.StorageConfig, opts OpenOptions) (*Stores, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	if cfg.Backend == config.BackendMemory {
		logger.Info("using in-memory storage")
		return &Stores{
			Trades:     memory.NewTradeRecordStore(),
			Directory:  storage.Directory{Profiles: memory.NewProfileStore(), Houses: memory.NewHouseStore()},
			Snapshots:  memory.NewEquitySnapshotStore(),
			AlertState: memory.NewAlertStateStore(),
			Memory:     true,
		}, nil
	}

	s := &Stores{}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	s.closers = append(s.closers, pool.Close)
	if opts.Migrate {
		if err := migrations.Postgres(ctx, pool); err != nil {
			s.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
	}
	s.Trades = pgstore.NewTradeRecordStore(pool)
	s.Directory = storage.Directory{
		Profiles: pgstore.NewProfileStore(pool),
		Houses:   pgstore.NewHouseStore(pool),
	}
	logger.Info("connected to postgres")

	// ClickHouse (optional)
	if cfg.ClickhouseDSN != "" {
		conn, err := openClickhouse(ctx, cfg.ClickhouseDSN, opts.Migrate)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		s.closers = append(s.closers, func() { _ = conn.Close() })
		s.Snapshots = chstore.NewEquitySnapshotStore(conn)
		logger.Info("connected to clickhouse")
	}

	// Redis (optional)
	if cfg.RedisURL != "" {
		client, err := redisstore.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		s.closers = append(s.closers, func() { _ = client.Close() })
		s.AlertState = redisstore.NewAlertStateStore(client, cfg.RedisPrefix)
		logger.Info("connected to redis")
	}

	return s, nil
}

// openClickhouse connects to the DSN database. With migrate set the database is
// created first through a server-default connection, then the schema is applied.
func openClickhouse(ctx context.Context, dsn string, migrate bool) (*chstore.Conn, error) {
	if !migrate {
		return chstore.NewConn(ctx, dsn)
	}

	db, err := migrations.ClickhouseDatabase(dsn)
	if err != nil {
		return nil, err
	}
	admin, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return nil, err
	}
	err = migrations.CreateClickhouseDatabase(ctx, admin, db)
	_ = admin.Close()
	if err != nil {
		return nil, err
	}

	conn, err := chstore.NewConn(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := migrations.Clickhouse(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	return conn, nil
}

// Seed loads the built-in fixture dataset into s.
func (s *Stores) Seed(ctx context.Context, now time.Time) (feed.Fixtures, error) {
	return feed.LoadFixtures(ctx, s.Trades, s.Directory, now)
}

// Ledger returns the remote feed when configured, else the local trade store.
func Ledger(cfg config.FeedConfig, stores *Stores, observer *observability.Metrics, logger logrus.FieldLogger) feed.Ledger {
	if cfg.URL == "" {
		return feed.NewStoreLedger(stores.Trades)
	}
	return feed.NewHTTPLedger(feed.HTTPOptions{
		BaseURL:       cfg.URL,
		Token:         cfg.Token,
		Timeout:       cfg.Timeout,
		RatePerSecond: cfg.RatePerSecond,
		RetryCount:    2,
		Metrics:       observer,
		Logger:        logger,
	})
}
