package memory

import (
	"context"
	"sync"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/storage"
)

// EquitySnapshotStore is an in-memory implementation of storage.EquitySnapshotStore.
type EquitySnapshotStore struct {
	mu   sync.RWMutex
	data []*domain.EquitySnapshot
	keys map[string]struct{} // snapshot_id|series
}

// NewEquitySnapshotStore creates a new in-memory equity snapshot store.
func NewEquitySnapshotStore() *EquitySnapshotStore {
	return &EquitySnapshotStore{
		keys: make(map[string]struct{}),
	}
}

func snapshotKey(s *domain.EquitySnapshot) string {
	return s.SnapshotID + "|" + s.Series
}

// InsertBulk adds snapshots atomically. Fails entire batch on any duplicate.
func (s *EquitySnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.EquitySnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.SnapshotID == "" || snap.Series == "" {
			return storage.ErrInvalidInput
		}
		key := snapshotKey(snap)
		if _, exists := s.keys[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, snap := range snapshots {
		s.keys[snapshotKey(snap)] = struct{}{}
		s.data = append(s.data, cloneSnapshot(snap))
	}
	return nil
}

// GetLatest retrieves the most recent snapshot for (window_key, series).
func (s *EquitySnapshotStore) GetLatest(_ context.Context, windowKey, series string) (*domain.EquitySnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *domain.EquitySnapshot
	for _, snap := range s.data {
		if snap.WindowKey != windowKey || snap.Series != series {
			continue
		}
		if latest == nil || !snap.ComputedAt.Before(latest.ComputedAt) {
			latest = snap
		}
	}
	if latest == nil {
		return nil, storage.ErrNotFound
	}
	return cloneSnapshot(latest), nil
}

func cloneSnapshot(s *domain.EquitySnapshot) *domain.EquitySnapshot {
	c := *s
	c.Points = make([]domain.EquityPoint, len(s.Points))
	copy(c.Points, s.Points)
	return &c
}

var _ storage.EquitySnapshotStore = (*EquitySnapshotStore)(nil)
