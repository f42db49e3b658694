package domain

import "time"

// DateLayout is the calendar-day wire format.
const DateLayout = "2006-01-02"

// Day truncates t to its calendar day at UTC midnight.
// The calendar day is taken in t's own location.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDay parses a YYYY-MM-DD calendar day.
func ParseDay(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// DaysIn returns the number of days in the given month (28-31).
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FirstOfMonth returns the first calendar day of t's month.
func FirstOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}
