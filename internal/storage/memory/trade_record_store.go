package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/storage"
)

// TradeRecordStore is an in-memory implementation of storage.TradeRecordStore.
type TradeRecordStore struct {
	mu    sync.RWMutex
	facts []domain.TradeRecord // append order
	keys  map[string]struct{}  // (id, created_at)
}

// NewTradeRecordStore creates a new in-memory trade record store.
func NewTradeRecordStore() *TradeRecordStore {
	return &TradeRecordStore{
		keys: make(map[string]struct{}),
	}
}

func factKey(t *domain.TradeRecord) string {
	return fmt.Sprintf("%s|%d", t.ID, t.CreatedAt.UnixNano())
}

// Insert adds a new fact. Returns ErrDuplicateKey if (id, created_at) exists.
func (s *TradeRecordStore) Insert(_ context.Context, t *domain.TradeRecord) error {
	if t == nil || t.ID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := factKey(t)
	if _, exists := s.keys[key]; exists {
		return storage.ErrDuplicateKey
	}

	s.keys[key] = struct{}{}
	s.facts = append(s.facts, *t)
	return nil
}

// InsertBulk adds multiple facts atomically. Fails entire batch on any duplicate.
func (s *TradeRecordStore) InsertBulk(_ context.Context, trades []*domain.TradeRecord) error {
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(trades))

	// First pass: check for duplicates (existing + intra-batch)
	for _, t := range trades {
		if t == nil || t.ID == "" {
			return storage.ErrInvalidInput
		}
		key := factKey(t)
		if _, exists := s.keys[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, t := range trades {
		s.keys[factKey(t)] = struct{}{}
		s.facts = append(s.facts, *t)
	}

	return nil
}

// GetByID retrieves the latest fact for an id. Returns ErrNotFound if not exists.
func (s *TradeRecordStore) GetByID(_ context.Context, id string) (*domain.TradeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var found *domain.TradeRecord
	for i := range s.facts {
		f := &s.facts[i]
		if f.ID != id {
			continue
		}
		if found == nil || !f.CreatedAt.Before(found.CreatedAt) {
			found = f
		}
	}
	if found == nil {
		return nil, storage.ErrNotFound
	}

	copy := *found
	return &copy, nil
}

// GetByDateRange retrieves latest facts dated within [start, end] (inclusive).
func (s *TradeRecordStore) GetByDateRange(_ context.Context, start, end time.Time) ([]*domain.TradeRecord, error) {
	start, end = domain.Day(start), domain.Day(end)
	return s.latest(func(t *domain.TradeRecord) bool {
		d := domain.Day(t.Date)
		return !d.Before(start) && !d.After(end)
	}), nil
}

// GetAll retrieves latest facts for every id.
func (s *TradeRecordStore) GetAll(_ context.Context) ([]*domain.TradeRecord, error) {
	return s.latest(func(*domain.TradeRecord) bool { return true }), nil
}

// latest supersedes facts per id, applies keep, and orders by date, id.
func (s *TradeRecordStore) latest(keep func(*domain.TradeRecord) bool) []*domain.TradeRecord {
	s.mu.RLock()
	current := domain.Supersede(s.facts)
	s.mu.RUnlock()

	domain.SortByDate(current)

	var result []*domain.TradeRecord
	for i := range current {
		if keep(&current[i]) {
			t := current[i]
			result = append(result, &t)
		}
	}
	return result
}

var _ storage.TradeRecordStore = (*TradeRecordStore)(nil)
