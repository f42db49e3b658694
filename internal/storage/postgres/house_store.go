package postgres

import (
	"context"
	"fmt"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/storage"
)

// HouseStore implements storage.HouseStore using PostgreSQL.
type HouseStore struct {
	pool *Pool
}

// NewHouseStore creates a new HouseStore.
func NewHouseStore(pool *Pool) *HouseStore {
	return &HouseStore{pool: pool}
}

// Compile-time interface check.
var _ storage.HouseStore = (*HouseStore)(nil)

// Upsert creates or replaces a house.
func (s *HouseStore) Upsert(ctx context.Context, h *domain.House) error {
	if h == nil || h.ID == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO houses (house_id, name, distributor_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (house_id) DO UPDATE SET
			name = EXCLUDED.name,
			distributor_id = EXCLUDED.distributor_id
	`, h.ID, h.Name, h.DistributorID)
	if err != nil {
		return fmt.Errorf("upsert house: %w", err)
	}
	return nil
}

// GetByID retrieves a house. Returns ErrNotFound if not exists.
func (s *HouseStore) GetByID(ctx context.Context, id string) (*domain.House, error) {
	var h domain.House
	err := s.pool.QueryRow(ctx,
		`SELECT house_id, name, distributor_id FROM houses WHERE house_id = $1`, id,
	).Scan(&h.ID, &h.Name, &h.DistributorID)
	if err != nil {
		return nil, mapError("get house by id", err)
	}
	return &h, nil
}

// GetAll retrieves all houses ordered by id ASC.
func (s *HouseStore) GetAll(ctx context.Context) ([]*domain.House, error) {
	rows, err := s.pool.Query(ctx, `SELECT house_id, name, distributor_id FROM houses ORDER BY house_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("get all houses: %w", err)
	}
	defer rows.Close()

	var houses []*domain.House
	for rows.Next() {
		var h domain.House
		if err := rows.Scan(&h.ID, &h.Name, &h.DistributorID); err != nil {
			return nil, fmt.Errorf("scan house row: %w", err)
		}
		houses = append(houses, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate house rows: %w", err)
	}
	return houses, nil
}

// Delete removes a house.
func (s *HouseStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM houses WHERE house_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete house: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
