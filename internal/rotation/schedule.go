package rotation

import (
	"fmt"
	"time"

	"ops-analytics/internal/domain"
)

// NewSchedule returns a month-long schedule with every day set to state.
func NewSchedule(year int, month time.Month, state domain.DayState) domain.Schedule {
	days := make([]domain.DayState, domain.DaysIn(year, month))
	for i := range days {
		days[i] = state
	}
	return domain.Schedule{Year: year, Month: month, Days: days}
}

// GenerateSchedule builds a cyclic rota: activeRun ACTIVE days followed by restRun
// RESTING days, repeated over the month. offset shifts the cycle so that profiles of
// one house can be staggered.
func GenerateSchedule(year int, month time.Month, activeRun, restRun, offset int) domain.Schedule {
	if activeRun <= 0 {
		return NewSchedule(year, month, domain.DayResting)
	}
	if restRun < 0 {
		restRun = 0
	}

	s := NewSchedule(year, month, domain.DayResting)
	cycle := activeRun + restRun
	for i := range s.Days {
		pos := (i + offset) % cycle
		if pos < 0 {
			pos += cycle
		}
		if pos < activeRun {
			s.Days[i] = domain.DayActive
		}
	}
	return s
}

// TodayIndex returns the schedule index of now's calendar day.
// ok is false when now falls outside the schedule's month.
func TodayIndex(s domain.Schedule, now time.Time) (int, bool) {
	y, m, d := now.Date()
	if y != s.Year || m != s.Month {
		return 0, false
	}
	if d-1 >= len(s.Days) {
		return 0, false
	}
	return d - 1, true
}

// MonthIndex returns the day index of now within its own month.
// It is the index every schedule sized for now's month uses.
func MonthIndex(now time.Time) int {
	return now.Day() - 1
}

// ToggleDay flips exactly one day of s.
// An out-of-range index is a caller bug and panics.
func ToggleDay(s *domain.Schedule, dayIndex int) domain.DayState {
	if dayIndex < 0 || dayIndex >= len(s.Days) {
		panic(fmt.Sprintf("rotation: day index %d out of range [0, %d)", dayIndex, len(s.Days)))
	}
	s.Days[dayIndex] = s.Days[dayIndex].Flip()
	return s.Days[dayIndex]
}

// ActiveFrom reports whether s has any ACTIVE day at or after dayIndex.
func ActiveFrom(s domain.Schedule, dayIndex int) bool {
	if dayIndex < 0 {
		dayIndex = 0
	}
	for i := dayIndex; i < len(s.Days); i++ {
		if s.Days[i] == domain.DayActive {
			return true
		}
	}
	return false
}
