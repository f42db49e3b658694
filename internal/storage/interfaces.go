package storage

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ops-analytics/internal/domain"
)

// TradeRecordStore provides access to trade_records storage.
// Records are append-only facts keyed by (id, created_at); readers see the latest
// fact per id.
type TradeRecordStore interface {
	// Insert adds a new fact. Returns ErrDuplicateKey if (id, created_at) exists.
	Insert(ctx context.Context, t *domain.TradeRecord) error

	// InsertBulk adds multiple facts atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.TradeRecord) error

	// GetByID retrieves the latest fact for an id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.TradeRecord, error)

	// GetByDateRange retrieves latest facts dated within [start, end] (inclusive),
	// ordered by date ASC, id ASC.
	GetByDateRange(ctx context.Context, start, end time.Time) ([]*domain.TradeRecord, error)

	// GetAll retrieves latest facts for every id, ordered by date ASC, id ASC.
	GetAll(ctx context.Context) ([]*domain.TradeRecord, error)
}

// ProfileStore provides access to profiles and their rota schedules.
type ProfileStore interface {
	// Upsert creates or replaces a profile, including its schedule.
	Upsert(ctx context.Context, p *domain.ProfileEntity) error

	// GetByID retrieves a profile. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.ProfileEntity, error)

	// GetAll retrieves all profiles ordered by id ASC.
	GetAll(ctx context.Context) ([]*domain.ProfileEntity, error)

	// GetByHouse retrieves profiles of one house ordered by id ASC.
	GetByHouse(ctx context.Context, houseID string) ([]*domain.ProfileEntity, error)

	// UpdateBalance sets a profile balance. Returns ErrNotFound if not exists.
	UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error

	// SaveSchedule replaces a profile schedule. Returns ErrNotFound if not exists.
	SaveSchedule(ctx context.Context, id string, s domain.Schedule) error

	// Delete removes a profile. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, id string) error
}

// HouseStore provides access to houses.
type HouseStore interface {
	// Upsert creates or replaces a house.
	Upsert(ctx context.Context, h *domain.House) error

	// GetByID retrieves a house. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, id string) (*domain.House, error)

	// GetAll retrieves all houses ordered by id ASC.
	GetAll(ctx context.Context) ([]*domain.House, error)

	// Delete removes a house. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, id string) error
}

// EquitySnapshotStore provides access to equity_snapshots analytics storage.
type EquitySnapshotStore interface {
	// InsertBulk adds snapshots. Fails entire batch on duplicate (snapshot_id, series).
	InsertBulk(ctx context.Context, snapshots []*domain.EquitySnapshot) error

	// GetLatest retrieves the most recent snapshot for (window_key, series).
	// Returns ErrNotFound if none exists.
	GetLatest(ctx context.Context, windowKey, series string) (*domain.EquitySnapshot, error)
}

// AlertStateStore keeps caller-side alert view state keyed by AlertItem.ID.
type AlertStateStore interface {
	// MarkRead marks alert ids as read.
	MarkRead(ctx context.Context, ids ...string) error

	// MarkUnread clears the read flag of alert ids.
	MarkUnread(ctx context.Context, ids ...string) error

	// SetExpanded records whether an alert is expanded in the view.
	SetExpanded(ctx context.Context, id string, expanded bool) error

	// State returns the read and expanded sets.
	State(ctx context.Context) (read, expanded map[string]bool, err error)

	// Retain drops view state for ids not in live.
	Retain(ctx context.Context, live []string) error
}

// Directory bundles the profile and house stores read by a dashboard session.
type Directory struct {
	Profiles ProfileStore
	Houses   HouseStore
}
