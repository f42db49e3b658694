package postgres

import (
	"fmt"
	"strings"

	"ops-analytics/internal/domain"
)

// Schedules are stored as one character per day: 'A' active, 'R' resting.
const (
	dayActiveChar  = 'A'
	dayRestingChar = 'R'
)

func encodeDays(days []domain.DayState) string {
	var b strings.Builder
	b.Grow(len(days))
	for _, d := range days {
		if d == domain.DayActive {
			b.WriteByte(dayActiveChar)
		} else {
			b.WriteByte(dayRestingChar)
		}
	}
	return b.String()
}

func decodeDays(s string) ([]domain.DayState, error) {
	days := make([]domain.DayState, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case dayActiveChar:
			days[i] = domain.DayActive
		case dayRestingChar:
			days[i] = domain.DayResting
		default:
			return nil, fmt.Errorf("invalid schedule day %q at %d", s[i], i)
		}
	}
	return days, nil
}
