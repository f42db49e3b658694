package memory

import (
	"context"
	"sync"

	"ops-analytics/internal/storage"
)

// AlertStateStore is an in-memory implementation of storage.AlertStateStore.
type AlertStateStore struct {
	mu       sync.RWMutex
	read     map[string]bool
	expanded map[string]bool
}

// NewAlertStateStore creates a new in-memory alert view state store.
func NewAlertStateStore() *AlertStateStore {
	return &AlertStateStore{
		read:     make(map[string]bool),
		expanded: make(map[string]bool),
	}
}

// MarkRead marks alert ids as read.
func (s *AlertStateStore) MarkRead(_ context.Context, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		s.read[id] = true
	}
	return nil
}

// MarkUnread clears the read flag of alert ids.
func (s *AlertStateStore) MarkUnread(_ context.Context, ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.read, id)
	}
	return nil
}

// SetExpanded records whether an alert is expanded.
func (s *AlertStateStore) SetExpanded(_ context.Context, id string, expanded bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expanded {
		s.expanded[id] = true
	} else {
		delete(s.expanded, id)
	}
	return nil
}

// State returns copies of the read and expanded sets.
func (s *AlertStateStore) State(_ context.Context) (map[string]bool, map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	read := make(map[string]bool, len(s.read))
	for id := range s.read {
		read[id] = true
	}
	expanded := make(map[string]bool, len(s.expanded))
	for id := range s.expanded {
		expanded[id] = true
	}
	return read, expanded, nil
}

// Retain drops view state for ids not in live.
func (s *AlertStateStore) Retain(_ context.Context, live []string) error {
	keep := make(map[string]struct{}, len(live))
	for _, id := range live {
		keep[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.read {
		if _, ok := keep[id]; !ok {
			delete(s.read, id)
		}
	}
	for id := range s.expanded {
		if _, ok := keep[id]; !ok {
			delete(s.expanded, id)
		}
	}
	return nil
}

var _ storage.AlertStateStore = (*AlertStateStore)(nil)
