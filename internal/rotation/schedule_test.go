package rotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ops-analytics/internal/domain"
)

func TestNewSchedule_LengthMatchesMonth(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.February, 29},
		{2023, time.February, 28},
		{2024, time.April, 30},
		{2024, time.December, 31},
	}

	for _, tt := range tests {
		s := NewSchedule(tt.year, tt.month, domain.DayResting)
		assert.Equal(t, tt.want, s.Len(), "%d-%02d", tt.year, tt.month)
		for _, d := range s.Days {
			assert.Equal(t, domain.DayResting, d)
		}
	}
}

func TestGenerateSchedule(t *testing.T) {
	s := GenerateSchedule(2024, time.April, 2, 1, 0)
	require.Equal(t, 30, s.Len())
	assert.Equal(t, []domain.DayState{
		domain.DayActive, domain.DayActive, domain.DayResting,
		domain.DayActive, domain.DayActive, domain.DayResting,
	}, s.Days[:6])

	shifted := GenerateSchedule(2024, time.April, 2, 1, 1)
	assert.Equal(t, []domain.DayState{domain.DayActive, domain.DayResting, domain.DayActive}, shifted.Days[:3])

	allRest := GenerateSchedule(2024, time.April, 0, 3, 0)
	assert.False(t, ActiveFrom(allRest, 0))

	allActive := GenerateSchedule(2024, time.April, 1, 0, 0)
	for _, d := range allActive.Days {
		assert.Equal(t, domain.DayActive, d)
	}
}

func TestTodayIndex(t *testing.T) {
	s := NewSchedule(2024, time.May, domain.DayActive)

	idx, ok := TodayIndex(s, time.Date(2024, time.May, 19, 23, 59, 0, 0, time.UTC))
	assert.True(t, ok)
	assert.Equal(t, 18, idx)

	_, ok = TodayIndex(s, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC))
	assert.False(t, ok)

	assert.Equal(t, 0, MonthIndex(time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)))
}

func TestToggleDay_Involution(t *testing.T) {
	s := GenerateSchedule(2024, time.May, 3, 2, 0)
	original := s.Clone()

	for i := 0; i < s.Len(); i++ {
		before := s.Days[i]
		got := ToggleDay(&s, i)
		assert.Equal(t, before.Flip(), got)

		// only day i changed
		for j := range s.Days {
			if j != i {
				assert.Equal(t, original.Days[j], s.Days[j], "day %d changed when toggling %d", j, i)
			}
		}

		ToggleDay(&s, i)
		assert.Equal(t, original, s)
	}
}

func TestToggleDay_OutOfRangePanics(t *testing.T) {
	s := NewSchedule(2024, time.February, domain.DayResting)

	assert.Panics(t, func() { ToggleDay(&s, -1) })
	assert.Panics(t, func() { ToggleDay(&s, 29) })
	assert.NotPanics(t, func() { ToggleDay(&s, 28) })
}

func TestActiveFrom(t *testing.T) {
	s := NewSchedule(2024, time.May, domain.DayResting)
	s.Days[10] = domain.DayActive

	assert.True(t, ActiveFrom(s, 0))
	assert.True(t, ActiveFrom(s, 10))
	assert.False(t, ActiveFrom(s, 11))
}
