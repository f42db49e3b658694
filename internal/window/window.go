// Package window resolves date-window selectors and slices a trade ledger by them.
package window

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"ops-analytics/internal/domain"
)

// Kind distinguishes preset windows from operator-entered ranges.
type Kind string

// Kind constants
const (
	KindPreset Kind = "preset"
	KindCustom Kind = "custom"
)

// Preset names accepted by ParseSelector.
const (
	PresetToday         = "today"
	PresetLast7Days     = "last-7-days"
	PresetLast30Days    = "last-30-days"
	PresetMonthToDate   = "month-to-date"
	PresetYearToDate    = "year-to-date"
	PresetPreviousMonth = "previous-month"
	PresetAll           = "all"
)

// Selector picks a window. Presets resolve against "now" at filter time;
// custom windows carry their own bounds.
type Selector struct {
	Kind   Kind
	Preset string
	Days   int // used by "last-N-days" presets
	Start  time.Time
	End    time.Time
}

// MonthToDate selects [first of month, now].
func MonthToDate() Selector { return Selector{Kind: KindPreset, Preset: PresetMonthToDate} }

// LastNDays selects [now - n days, now].
func LastNDays(n int) Selector {
	return Selector{Kind: KindPreset, Preset: fmt.Sprintf("last-%d-days", n), Days: n}
}

// Custom selects [start, end] verbatim.
func Custom(start, end time.Time) Selector {
	return Selector{Kind: KindCustom, Start: start, End: end}
}

// All selects the whole ledger.
func All() Selector { return Selector{Kind: KindPreset, Preset: PresetAll} }

// Range is a resolved, inclusive calendar-day window.
// Empty is set when the window can hold no records (e.g. end before start).
type Range struct {
	Start     time.Time
	End       time.Time
	Unbounded bool
	Empty     bool
}

// Contains reports whether day falls inside the range, both ends inclusive.
func (r Range) Contains(day time.Time) bool {
	if r.Empty {
		return false
	}
	if r.Unbounded {
		return true
	}
	d := domain.Day(day)
	return !d.Before(r.Start) && !d.After(r.End)
}

// Key returns a stable textual form, e.g. "2024-05-01..2024-05-19".
func (r Range) Key() string {
	switch {
	case r.Empty:
		return "empty"
	case r.Unbounded:
		return "all"
	default:
		return r.Start.Format(domain.DateLayout) + ".." + r.End.Format(domain.DateLayout)
	}
}

// Resolve turns a selector into a concrete range against now.
// An inverted custom range resolves to an empty range rather than an error.
func Resolve(sel Selector, now time.Time) Range {
	today := domain.Day(now)

	if sel.Kind == KindCustom {
		start, end := domain.Day(sel.Start), domain.Day(sel.End)
		if end.Before(start) {
			return Range{Start: start, End: end, Empty: true}
		}
		return Range{Start: start, End: end}
	}

	switch sel.Preset {
	case PresetAll:
		return Range{Unbounded: true}
	case PresetToday:
		return Range{Start: today, End: today}
	case PresetMonthToDate:
		return Range{Start: domain.FirstOfMonth(today), End: today}
	case PresetYearToDate:
		return Range{Start: time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), End: today}
	case PresetPreviousMonth:
		first := domain.FirstOfMonth(today)
		return Range{Start: first.AddDate(0, -1, 0), End: first.AddDate(0, 0, -1)}
	case PresetLast7Days:
		return Range{Start: today.AddDate(0, 0, -7), End: today}
	case PresetLast30Days:
		return Range{Start: today.AddDate(0, 0, -30), End: today}
	}

	if sel.Days > 0 {
		return Range{Start: today.AddDate(0, 0, -sel.Days), End: today}
	}

	// Unknown presets select nothing.
	return Range{Start: today, End: today, Empty: true}
}

// Filter returns the records whose Date falls inside the resolved window.
// Input order is preserved.
func Filter(ledger []domain.TradeRecord, sel Selector, now time.Time) []domain.TradeRecord {
	return FilterRange(ledger, Resolve(sel, now))
}

// FilterRange is Filter over an already resolved range.
func FilterRange(ledger []domain.TradeRecord, r Range) []domain.TradeRecord {
	out := make([]domain.TradeRecord, 0, len(ledger))
	if r.Empty {
		return out
	}
	for _, rec := range ledger {
		if r.Contains(rec.Date) {
			out = append(out, rec)
		}
	}
	return out
}

// ParseSelector parses operator input. kind is a preset name, "last-N-days",
// or "custom" with YYYY-MM-DD start and end.
func ParseSelector(kind, start, end string) (Selector, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	switch kind {
	case "", PresetMonthToDate:
		return MonthToDate(), nil
	case PresetToday, PresetLast7Days, PresetLast30Days, PresetYearToDate, PresetPreviousMonth, PresetAll:
		return Selector{Kind: KindPreset, Preset: kind}, nil
	case string(KindCustom):
		s, err := domain.ParseDay(start)
		if err != nil {
			return Selector{}, fmt.Errorf("parse window start: %w", err)
		}
		e, err := domain.ParseDay(end)
		if err != nil {
			return Selector{}, fmt.Errorf("parse window end: %w", err)
		}
		return Custom(s, e), nil
	}

	if strings.HasPrefix(kind, "last-") && strings.HasSuffix(kind, "-days") {
		n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(kind, "last-"), "-days"))
		if err != nil || n <= 0 {
			return Selector{}, fmt.Errorf("invalid window %q", kind)
		}
		return LastNDays(n), nil
	}

	return Selector{}, fmt.Errorf("unknown window %q", kind)
}
