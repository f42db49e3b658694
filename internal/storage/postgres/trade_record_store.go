package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/storage"
)

// TradeRecordStore implements storage.TradeRecordStore using PostgreSQL.
// Rows are append-only facts keyed by (trade_id, created_at); reads pick the
// latest fact per trade_id with DISTINCT ON.
type TradeRecordStore struct {
	pool *Pool
}

// NewTradeRecordStore creates a new TradeRecordStore.
func NewTradeRecordStore(pool *Pool) *TradeRecordStore {
	return &TradeRecordStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)

const insertTradeRecordQuery = `
	INSERT INTO trade_records (
		trade_id, trade_date, category, counterpart, market,
		stake, odds, outcome, profit, created_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, $10
	)
`

// latestTradeRecordsQuery selects the latest fact per trade_id.
// Callers append a WHERE clause on the outer query and an ORDER BY.
const latestTradeRecordsQuery = `
	SELECT
		trade_id, trade_date, category, counterpart, market,
		stake, odds, outcome, profit, created_at
	FROM (
		SELECT DISTINCT ON (trade_id)
			trade_id, trade_date, category, counterpart, market,
			stake, odds, outcome, profit, created_at
		FROM trade_records
		ORDER BY trade_id, created_at DESC
	) latest
`

func tradeArgs(t *domain.TradeRecord) []any {
	return []any{
		t.ID, domain.Day(t.Date), string(t.Category), t.Counterpart, t.Market,
		t.Stake, t.Odds, string(t.Outcome), t.Profit, createdAt(t),
	}
}

// createdAt defaults a missing fact timestamp so (trade_id, created_at) stays usable as a key.
func createdAt(t *domain.TradeRecord) time.Time {
	if t.CreatedAt.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return t.CreatedAt.UTC()
}

// Insert adds a new fact. Returns ErrDuplicateKey if (trade_id, created_at) exists.
func (s *TradeRecordStore) Insert(ctx context.Context, t *domain.TradeRecord) error {
	if t == nil || t.ID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, insertTradeRecordQuery, tradeArgs(t)...)
	return mapError("insert trade record", err)
}

// InsertBulk adds multiple facts atomically. Fails entire batch on any duplicate.
func (s *TradeRecordStore) InsertBulk(ctx context.Context, trades []*domain.TradeRecord) (err error) {
	if len(trades) == 0 {
		return nil
	}
	defer observe("trade_records.insert_bulk", time.Now(), &err)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, t := range trades {
		if t == nil || t.ID == "" {
			return storage.ErrInvalidInput
		}
		if _, err := tx.Exec(ctx, insertTradeRecordQuery, tradeArgs(t)...); err != nil {
			return mapError("insert trade record in bulk", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByID retrieves the latest fact for a trade. Returns ErrNotFound if not exists.
func (s *TradeRecordStore) GetByID(ctx context.Context, id string) (*domain.TradeRecord, error) {
	query := `
		SELECT
			trade_id, trade_date, category, counterpart, market,
			stake, odds, outcome, profit, created_at
		FROM trade_records
		WHERE trade_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	row := s.pool.QueryRow(ctx, query, id)
	t, err := scanTradeRecord(row)
	if err != nil {
		return nil, mapError("get trade record by id", err)
	}
	return t, nil
}

// GetByDateRange retrieves latest facts dated within [start, end] (inclusive).
func (s *TradeRecordStore) GetByDateRange(ctx context.Context, start, end time.Time) (_ []*domain.TradeRecord, err error) {
	defer observe("trade_records.get_by_date_range", time.Now(), &err)
	query := latestTradeRecordsQuery + `
		WHERE trade_date >= $1 AND trade_date <= $2
		ORDER BY trade_date ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query, domain.Day(start), domain.Day(end))
	if err != nil {
		return nil, fmt.Errorf("get trade records by date range: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// GetAll retrieves the latest fact of every trade.
func (s *TradeRecordStore) GetAll(ctx context.Context) (_ []*domain.TradeRecord, err error) {
	defer observe("trade_records.get_all", time.Now(), &err)
	query := latestTradeRecordsQuery + `
		ORDER BY trade_date ASC, trade_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all trade records: %w", err)
	}
	defer rows.Close()

	return scanTradeRecords(rows)
}

// scanTradeRecord scans a single row into a TradeRecord.
func scanTradeRecord(row pgx.Row) (*domain.TradeRecord, error) {
	var (
		t        domain.TradeRecord
		category string
		outcome  string
	)

	err := row.Scan(
		&t.ID, &t.Date, &category, &t.Counterpart, &t.Market,
		&t.Stake, &t.Odds, &outcome, &t.Profit, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Date = domain.Day(t.Date)
	t.Category = domain.Category(category)
	t.Outcome = domain.Outcome(outcome)
	t.CreatedAt = t.CreatedAt.UTC()
	return &t, nil
}

// scanTradeRecords scans multiple rows into a slice of TradeRecord.
func scanTradeRecords(rows pgx.Rows) ([]*domain.TradeRecord, error) {
	var trades []*domain.TradeRecord

	for rows.Next() {
		t, err := scanTradeRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trade record row: %w", err)
		}
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade record rows: %w", err)
	}

	return trades, nil
}
