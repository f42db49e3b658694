package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/storage"
)

// ProfileStore implements storage.ProfileStore using PostgreSQL.
type ProfileStore struct {
	pool *Pool
}

// NewProfileStore creates a new ProfileStore.
func NewProfileStore(pool *Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ProfileStore = (*ProfileStore)(nil)

const selectProfileColumns = `
	SELECT
		profile_id, owner_id, house_id, balance, avg_stake,
		schedule_year, schedule_month, schedule_days
	FROM profiles
`

// Upsert creates or replaces a profile.
func (s *ProfileStore) Upsert(ctx context.Context, p *domain.ProfileEntity) error {
	if p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO profiles (
			profile_id, owner_id, house_id, balance, avg_stake,
			schedule_year, schedule_month, schedule_days, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (profile_id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			house_id = EXCLUDED.house_id,
			balance = EXCLUDED.balance,
			avg_stake = EXCLUDED.avg_stake,
			schedule_year = EXCLUDED.schedule_year,
			schedule_month = EXCLUDED.schedule_month,
			schedule_days = EXCLUDED.schedule_days,
			updated_at = now()
	`

	_, err := s.pool.Exec(ctx, query,
		p.ID, p.OwnerID, p.HouseID, p.Balance, p.AvgStake,
		p.Schedule.Year, int(p.Schedule.Month), encodeDays(p.Schedule.Days),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// GetByID retrieves a profile. Returns ErrNotFound if not exists.
func (s *ProfileStore) GetByID(ctx context.Context, id string) (*domain.ProfileEntity, error) {
	row := s.pool.QueryRow(ctx, selectProfileColumns+` WHERE profile_id = $1`, id)
	p, err := scanProfile(row)
	if err != nil {
		return nil, mapError("get profile by id", err)
	}
	return p, nil
}

// GetAll retrieves all profiles ordered by id ASC.
func (s *ProfileStore) GetAll(ctx context.Context) ([]*domain.ProfileEntity, error) {
	rows, err := s.pool.Query(ctx, selectProfileColumns+` ORDER BY profile_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("get all profiles: %w", err)
	}
	defer rows.Close()

	return scanProfiles(rows)
}

// GetByHouse retrieves profiles of one house ordered by id ASC.
func (s *ProfileStore) GetByHouse(ctx context.Context, houseID string) ([]*domain.ProfileEntity, error) {
	rows, err := s.pool.Query(ctx, selectProfileColumns+` WHERE house_id = $1 ORDER BY profile_id ASC`, houseID)
	if err != nil {
		return nil, fmt.Errorf("get profiles by house: %w", err)
	}
	defer rows.Close()

	return scanProfiles(rows)
}

// UpdateBalance sets a profile balance.
func (s *ProfileStore) UpdateBalance(ctx context.Context, id string, balance decimal.Decimal) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE profiles SET balance = $2, updated_at = now() WHERE profile_id = $1`,
		id, balance,
	)
	if err != nil {
		return fmt.Errorf("update profile balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SaveSchedule replaces a profile schedule.
func (s *ProfileStore) SaveSchedule(ctx context.Context, id string, sched domain.Schedule) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE profiles
		SET schedule_year = $2, schedule_month = $3, schedule_days = $4, updated_at = now()
		WHERE profile_id = $1
	`, id, sched.Year, int(sched.Month), encodeDays(sched.Days))
	if err != nil {
		return fmt.Errorf("save profile schedule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a profile.
func (s *ProfileStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM profiles WHERE profile_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanProfile(row pgx.Row) (*domain.ProfileEntity, error) {
	var (
		p     domain.ProfileEntity
		month int
		days  string
	)

	err := row.Scan(
		&p.ID, &p.OwnerID, &p.HouseID, &p.Balance, &p.AvgStake,
		&p.Schedule.Year, &month, &days,
	)
	if err != nil {
		return nil, err
	}

	p.Schedule.Month = time.Month(month)
	p.Schedule.Days, err = decodeDays(days)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", p.ID, err)
	}
	return &p, nil
}

func scanProfiles(rows pgx.Rows) ([]*domain.ProfileEntity, error) {
	var profiles []*domain.ProfileEntity

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan profile row: %w", err)
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profile rows: %w", err)
	}

	return profiles, nil
}
