package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/storage"
)

// ProfileStore is an in-memory implementation of storage.ProfileStore.
type ProfileStore struct {
	mu   sync.RWMutex
	data map[string]*domain.ProfileEntity // keyed by profile id
}

// NewProfileStore creates a new in-memory profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		data: make(map[string]*domain.ProfileEntity),
	}
}

// Upsert creates or replaces a profile.
func (s *ProfileStore) Upsert(_ context.Context, p *domain.ProfileEntity) error {
	if p == nil || p.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[p.ID] = p.Clone()
	return nil
}

// GetByID retrieves a profile. Returns ErrNotFound if not exists.
func (s *ProfileStore) GetByID(_ context.Context, id string) (*domain.ProfileEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return p.Clone(), nil
}

// GetAll retrieves all profiles ordered by id ASC.
func (s *ProfileStore) GetAll(_ context.Context) ([]*domain.ProfileEntity, error) {
	return s.collect(func(*domain.ProfileEntity) bool { return true }), nil
}

// GetByHouse retrieves profiles of one house ordered by id ASC.
func (s *ProfileStore) GetByHouse(_ context.Context, houseID string) ([]*domain.ProfileEntity, error) {
	return s.collect(func(p *domain.ProfileEntity) bool { return p.HouseID == houseID }), nil
}

// UpdateBalance sets a profile balance.
func (s *ProfileStore) UpdateBalance(_ context.Context, id string, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	p.Balance = balance
	return nil
}

// SaveSchedule replaces a profile schedule.
func (s *ProfileStore) SaveSchedule(_ context.Context, id string, sched domain.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.data[id]
	if !exists {
		return storage.ErrNotFound
	}
	p.Schedule = sched.Clone()
	return nil
}

// Delete removes a profile.
func (s *ProfileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[id]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

func (s *ProfileStore) collect(keep func(*domain.ProfileEntity) bool) []*domain.ProfileEntity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.ProfileEntity
	for _, p := range s.data {
		if keep(p) {
			result = append(result, p.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

var _ storage.ProfileStore = (*ProfileStore)(nil)
