package memory

import (
	"context"
	"sort"
	"sync"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/storage"
)

// HouseStore is an in-memory implementation of storage.HouseStore.
type HouseStore struct {
	mu   sync.RWMutex
	data map[string]*domain.House
}

// NewHouseStore creates a new in-memory house store.
func NewHouseStore() *HouseStore {
	return &HouseStore{
		data: make(map[string]*domain.House),
	}
}

// Upsert creates or replaces a house.
func (s *HouseStore) Upsert(_ context.Context, h *domain.House) error {
	if h == nil || h.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy := *h
	s.data[h.ID] = &copy
	return nil
}

// GetByID retrieves a house. Returns ErrNotFound if not exists.
func (s *HouseStore) GetByID(_ context.Context, id string) (*domain.House, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, exists := s.data[id]
	if !exists {
		return nil, storage.ErrNotFound
	}
	copy := *h
	return &copy, nil
}

// GetAll retrieves all houses ordered by id ASC.
func (s *HouseStore) GetAll(_ context.Context) ([]*domain.House, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.House, 0, len(s.data))
	for _, h := range s.data {
		copy := *h
		result = append(result, &copy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Delete removes a house.
func (s *HouseStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[id]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, id)
	return nil
}

var _ storage.HouseStore = (*HouseStore)(nil)
