package clickhouse

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/storage"
)

// EquitySnapshotStore implements storage.EquitySnapshotStore using ClickHouse.
// Each snapshot is one row with the curve stored as parallel arrays.
type EquitySnapshotStore struct {
	conn *Conn
}

// NewEquitySnapshotStore creates a new EquitySnapshotStore.
func NewEquitySnapshotStore(conn *Conn) *EquitySnapshotStore {
	return &EquitySnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.EquitySnapshotStore = (*EquitySnapshotStore)(nil)

// InsertBulk adds snapshots atomically. Fails entire batch on any duplicate.
func (s *EquitySnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.EquitySnapshot) (err error) {
	if len(snapshots) == 0 {
		return nil
	}
	defer observe("equity_snapshots.insert_bulk", time.Now(), &err)

	// MergeTree does not enforce uniqueness; check intra-batch and existing rows first.
	seen := make(map[string]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.SnapshotID == "" || snap.Series == "" {
			return storage.ErrInvalidInput
		}
		key := snap.SnapshotID + "|" + snap.Series
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	for _, snap := range snapshots {
		exists, err := s.exists(ctx, snap.SnapshotID, snap.Series)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO equity_snapshots (
			snapshot_id, window_key, series, computed_at,
			point_dates, cumulative_profit
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		dates, values := splitPoints(snap.Points)
		err = batch.Append(
			snap.SnapshotID, snap.WindowKey, snap.Series, snap.ComputedAt.UTC(),
			dates, values,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetLatest retrieves the most recent snapshot for (window_key, series).
func (s *EquitySnapshotStore) GetLatest(ctx context.Context, windowKey, series string) (_ *domain.EquitySnapshot, err error) {
	defer observe("equity_snapshots.get_latest", time.Now(), &err)
	query := `
		SELECT
			snapshot_id, window_key, series, computed_at,
			point_dates, cumulative_profit
		FROM equity_snapshots
		WHERE window_key = ? AND series = ?
		ORDER BY computed_at DESC
		LIMIT 1
	`

	var (
		snap   domain.EquitySnapshot
		dates  []time.Time
		values []decimal.Decimal
	)
	err = s.conn.QueryRow(ctx, query, windowKey, series).Scan(
		&snap.SnapshotID, &snap.WindowKey, &snap.Series, &snap.ComputedAt,
		&dates, &values,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get latest equity snapshot: %w", err)
	}
	if len(dates) != len(values) {
		return nil, fmt.Errorf("equity snapshot %s: %d dates but %d values", snap.SnapshotID, len(dates), len(values))
	}

	snap.ComputedAt = snap.ComputedAt.UTC()
	snap.Points = make([]domain.EquityPoint, len(dates))
	for i := range dates {
		snap.Points[i] = domain.EquityPoint{Date: domain.Day(dates[i]), CumulativeProfit: values[i]}
	}
	return &snap, nil
}

func (s *EquitySnapshotStore) exists(ctx context.Context, snapshotID, series string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		`SELECT count(*) FROM equity_snapshots WHERE snapshot_id = ? AND series = ?`,
		snapshotID, series,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func splitPoints(points []domain.EquityPoint) ([]time.Time, []decimal.Decimal) {
	dates := make([]time.Time, len(points))
	values := make([]decimal.Decimal, len(points))
	for i, p := range points {
		dates[i] = domain.Day(p.Date)
		values[i] = p.CumulativeProfit
	}
	return dates, values
}
