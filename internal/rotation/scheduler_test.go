package rotation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ops-analytics/internal/domain"
)

func profile(id, house string, balance int64, state domain.DayState) *domain.ProfileEntity {
	return &domain.ProfileEntity{
		ID:       id,
		OwnerID:  "owner",
		HouseID:  house,
		Balance:  decimal.NewFromInt(balance),
		Schedule: NewSchedule(2024, time.May, state),
	}
}

func TestIsActiveToday(t *testing.T) {
	p := profile("p1", "h1", 100, domain.DayResting)
	p.Schedule.Days[4] = domain.DayActive

	assert.True(t, IsActiveToday(p, 4))
	assert.False(t, IsActiveToday(p, 5))
	assert.False(t, IsActiveToday(p, -1))
	assert.False(t, IsActiveToday(p, 31))
	assert.False(t, IsActiveToday(nil, 0))
}

func TestActiveCapital(t *testing.T) {
	profiles := []*domain.ProfileEntity{
		profile("p1", "h1", 100, domain.DayActive),
		profile("p2", "h1", 250, domain.DayResting),
		profile("p3", "h2", 400, domain.DayActive),
		nil,
	}

	assert.Equal(t, "500", ActiveCapitalToday(profiles, 0).String())
	assert.Equal(t, "100", ActiveCapitalByHouse(profiles, "h1", 0).String())
	assert.Equal(t, 1, ActiveCountByHouse(profiles, "h1", 0))
	assert.Equal(t, 0, ActiveCountByHouse(profiles, "h3", 0))

	byHouse := CapitalByHouse(profiles, []*domain.House{{ID: "h2"}, {ID: "h1"}}, 0)
	require.Len(t, byHouse, 2)
	assert.Equal(t, "h2", byHouse[0].HouseID)
	assert.Equal(t, "400", byHouse[0].ActiveCapital.String())
}

func TestAsOf_MonthRollover(t *testing.T) {
	may := profile("p1", "h1", 100, domain.DayActive)
	june := &domain.ProfileEntity{
		ID:       "p2",
		HouseID:  "h1",
		Balance:  decimal.NewFromInt(250),
		Schedule: NewSchedule(2024, time.June, domain.DayActive),
	}
	profiles := []*domain.ProfileEntity{may, june, nil}

	firstOfJune := time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)
	current, today := AsOf(profiles, firstOfJune)
	require.Len(t, current, 2)
	assert.Equal(t, 0, today)

	assert.Same(t, june, current[1])
	assert.Equal(t, 0, current[0].Schedule.Len())
	assert.Equal(t, 31, may.Schedule.Len(), "input profile must not change")

	assert.Equal(t, "250", ActiveCapitalToday(current, today).String())
	assert.Equal(t, 1, ActiveCountByHouse(current, "h1", today))

	assert.False(t, ActiveOn(may, firstOfJune))
	assert.True(t, ActiveOn(june, firstOfJune))
	assert.True(t, ActiveOn(may, time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC)))
	assert.False(t, ActiveOn(nil, firstOfJune))
}

func TestScheduler_ToggleRoundTripCapital(t *testing.T) {
	s := NewScheduler(
		profile("p1", "h1", 100, domain.DayActive),
		profile("p2", "h1", 275, domain.DayResting),
	)
	const today = 9

	before := s.ActiveCapitalToday(today)

	state, sched, err := s.Toggle("p2", today)
	require.NoError(t, err)
	assert.Equal(t, domain.DayActive, state)
	assert.Equal(t, domain.DayActive, sched.Days[today])

	after := s.ActiveCapitalToday(today)
	assert.True(t, after.Sub(before).Equal(decimal.NewFromInt(275)), "capital grew by %s", after.Sub(before))

	_, _, err = s.Toggle("p2", today)
	require.NoError(t, err)
	assert.True(t, s.ActiveCapitalToday(today).Equal(before))
}

func TestScheduler_ToggleIsolation(t *testing.T) {
	s := NewScheduler(
		profile("p1", "h1", 100, domain.DayResting),
		profile("p2", "h1", 100, domain.DayResting),
	)
	p2Before, err := s.Profile("p2")
	require.NoError(t, err)

	_, _, err = s.Toggle("p1", 3)
	require.NoError(t, err)

	p2After, err := s.Profile("p2")
	require.NoError(t, err)
	assert.Equal(t, p2Before.Schedule, p2After.Schedule)
}

func TestScheduler_Errors(t *testing.T) {
	s := NewScheduler(profile("p1", "h1", 100, domain.DayResting))

	_, _, err := s.Toggle("missing", 0)
	assert.ErrorIs(t, err, ErrProfileNotFound)
	assert.ErrorIs(t, s.SetBalance("missing", decimal.Zero), ErrProfileNotFound)
	_, err = s.Profile("missing")
	assert.ErrorIs(t, err, ErrProfileNotFound)

	assert.Panics(t, func() { _, _, _ = s.Toggle("p1", 31) })
}

func TestScheduler_ProfilesAreCopies(t *testing.T) {
	orig := profile("p1", "h1", 100, domain.DayResting)
	s := NewScheduler(orig)

	orig.Schedule.Days[0] = domain.DayActive
	got := s.Profiles()
	require.Len(t, got, 1)
	assert.Equal(t, domain.DayResting, got[0].Schedule.Days[0])

	got[0].Schedule.Days[0] = domain.DayActive
	assert.Equal(t, domain.DayResting, s.Profiles()[0].Schedule.Days[0])
}

func TestScheduler_UpsertReplaceRemoveSetBalance(t *testing.T) {
	s := NewScheduler()
	s.Upsert(profile("p2", "h1", 10, domain.DayActive))
	s.Upsert(profile("p1", "h1", 20, domain.DayActive))

	ids := func() []string {
		var out []string
		for _, p := range s.Profiles() {
			out = append(out, p.ID)
		}
		return out
	}
	assert.Equal(t, []string{"p1", "p2"}, ids())

	require.NoError(t, s.SetBalance("p1", decimal.NewFromInt(70)))
	assert.Equal(t, "80", s.ActiveCapitalToday(0).String())

	s.Remove("p2")
	assert.Equal(t, []string{"p1"}, ids())

	s.Replace([]*domain.ProfileEntity{profile("p9", "h2", 5, domain.DayActive)})
	assert.Equal(t, []string{"p9"}, ids())
}
