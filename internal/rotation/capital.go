package rotation

import (
	"time"

	"github.com/shopspring/decimal"

	"ops-analytics/internal/domain"
)

// AsOf projects profiles onto now's calendar day and returns the projection with
// now's index within its month. A profile whose schedule covers another month comes
// back as a copy without schedule days, so it is never active and never idle.
// Profiles already on now's month are returned as is; nil entries are dropped.
func AsOf(profiles []*domain.ProfileEntity, now time.Time) ([]*domain.ProfileEntity, int) {
	out := make([]*domain.ProfileEntity, 0, len(profiles))
	for _, p := range profiles {
		if p == nil {
			continue
		}
		if _, ok := TodayIndex(p.Schedule, now); ok {
			out = append(out, p)
			continue
		}
		off := p.Clone()
		off.Schedule = domain.Schedule{Year: p.Schedule.Year, Month: p.Schedule.Month}
		out = append(out, off)
	}
	return out, MonthIndex(now)
}

// ActiveOn reports whether p is ACTIVE on now's calendar day.
// A schedule for another month never is.
func ActiveOn(p *domain.ProfileEntity, now time.Time) bool {
	if p == nil {
		return false
	}
	i, ok := TodayIndex(p.Schedule, now)
	return ok && IsActiveToday(p, i)
}

// IsActiveToday reports whether p is ACTIVE at todayIndex.
// A nil profile or an index outside the schedule counts as not active.
func IsActiveToday(p *domain.ProfileEntity, todayIndex int) bool {
	if p == nil || todayIndex < 0 || todayIndex >= len(p.Schedule.Days) {
		return false
	}
	return p.Schedule.Days[todayIndex] == domain.DayActive
}

// ActiveCapitalToday sums the balances of profiles active at todayIndex.
// Computed from current state on every call.
func ActiveCapitalToday(profiles []*domain.ProfileEntity, todayIndex int) decimal.Decimal {
	return sumActive(profiles, todayIndex, func(*domain.ProfileEntity) bool { return true })
}

// ActiveCapitalByHouse is ActiveCapitalToday restricted to one house.
func ActiveCapitalByHouse(profiles []*domain.ProfileEntity, houseID string, todayIndex int) decimal.Decimal {
	return sumActive(profiles, todayIndex, func(p *domain.ProfileEntity) bool { return p.HouseID == houseID })
}

// ActiveCountByHouse counts profiles of one house active at todayIndex.
func ActiveCountByHouse(profiles []*domain.ProfileEntity, houseID string, todayIndex int) int {
	n := 0
	for _, p := range profiles {
		if p != nil && p.HouseID == houseID && IsActiveToday(p, todayIndex) {
			n++
		}
	}
	return n
}

// HouseCapital is the active-today view of one house.
type HouseCapital struct {
	HouseID       string          `json:"house_id"`
	ActiveCount   int             `json:"active_count"`
	ActiveCapital decimal.Decimal `json:"active_capital"`
}

// CapitalByHouse returns the active-today view for each house, in the given order.
func CapitalByHouse(profiles []*domain.ProfileEntity, houses []*domain.House, todayIndex int) []HouseCapital {
	out := make([]HouseCapital, 0, len(houses))
	for _, h := range houses {
		if h == nil {
			continue
		}
		out = append(out, HouseCapital{
			HouseID:       h.ID,
			ActiveCount:   ActiveCountByHouse(profiles, h.ID, todayIndex),
			ActiveCapital: ActiveCapitalByHouse(profiles, h.ID, todayIndex),
		})
	}
	return out
}

func sumActive(profiles []*domain.ProfileEntity, todayIndex int, keep func(*domain.ProfileEntity) bool) decimal.Decimal {
	sum := decimal.Zero
	for _, p := range profiles {
		if p != nil && keep(p) && IsActiveToday(p, todayIndex) {
			sum = sum.Add(p.Balance)
		}
	}
	return sum
}
