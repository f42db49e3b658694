package rotation

import (
	"errors"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"ops-analytics/internal/domain"
)

// ErrProfileNotFound is returned when a profile id is not registered.
var ErrProfileNotFound = errors.New("profile not found")

// Scheduler owns the profiles of one session and is the only mutator of their schedules.
type Scheduler struct {
	mu       sync.RWMutex
	profiles map[string]*domain.ProfileEntity
}

// NewScheduler creates a scheduler holding copies of profiles.
func NewScheduler(profiles ...*domain.ProfileEntity) *Scheduler {
	s := &Scheduler{profiles: make(map[string]*domain.ProfileEntity, len(profiles))}
	for _, p := range profiles {
		if p != nil {
			s.profiles[p.ID] = p.Clone()
		}
	}
	return s
}

// Toggle flips one day of one profile and returns the new state and the resulting schedule.
// Unknown profiles return ErrProfileNotFound; an out-of-range day panics.
func (s *Scheduler) Toggle(profileID string, dayIndex int) (domain.DayState, domain.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[profileID]
	if !ok {
		return "", domain.Schedule{}, ErrProfileNotFound
	}
	state := ToggleDay(&p.Schedule, dayIndex)
	return state, p.Schedule.Clone(), nil
}

// Upsert registers or replaces a profile.
func (s *Scheduler) Upsert(p *domain.ProfileEntity) {
	if p == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.ID] = p.Clone()
}

// Replace swaps the whole profile set, e.g. after a directory refresh.
func (s *Scheduler) Replace(profiles []*domain.ProfileEntity) {
	next := make(map[string]*domain.ProfileEntity, len(profiles))
	for _, p := range profiles {
		if p != nil {
			next[p.ID] = p.Clone()
		}
	}

	s.mu.Lock()
	s.profiles = next
	s.mu.Unlock()
}

// Remove drops a profile.
func (s *Scheduler) Remove(profileID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, profileID)
}

// SetBalance records an external balance change (deposit, withdrawal, settlement).
func (s *Scheduler) SetBalance(profileID string, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[profileID]
	if !ok {
		return ErrProfileNotFound
	}
	p.Balance = balance
	return nil
}

// Profile returns a copy of one profile.
func (s *Scheduler) Profile(profileID string) (*domain.ProfileEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[profileID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return p.Clone(), nil
}

// Profiles returns copies of every profile ordered by id.
func (s *Scheduler) Profiles() []*domain.ProfileEntity {
	s.mu.RLock()
	out := make([]*domain.ProfileEntity, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ActiveCapitalToday sums the balances of registered profiles active at todayIndex.
func (s *Scheduler) ActiveCapitalToday(todayIndex int) decimal.Decimal {
	return ActiveCapitalToday(s.Profiles(), todayIndex)
}
