package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/metrics"
	"ops-analytics/internal/rotation"
	"ops-analytics/internal/window"
)

// AlertView is an alert plus the caller-side view state.
type AlertView struct {
	domain.AlertItem
	Read     bool `json:"read"`
	Expanded bool `json:"expanded"`
}

// CapitalView is the rotation state for today.
type CapitalView struct {
	Date        time.Time               `json:"date"`
	TodayIndex  int                     `json:"today_index"`
	Total       decimal.Decimal         `json:"total"`
	ActiveCount int                     `json:"active_count"`
	ByHouse     []rotation.HouseCapital `json:"by_house"`
}

// View is one applied refresh. Views are immutable once published.
type View struct {
	Generation  uint64                  `json:"generation"`
	ComputedAt  time.Time               `json:"computed_at"`
	Range       window.Range            `json:"-"`
	WindowKey   string                  `json:"window"`
	Metrics     *metrics.Metrics        `json:"metrics"`
	Alerts      []AlertView             `json:"alerts"`
	Unread      int                     `json:"unread"`
	Capital     CapitalView             `json:"capital"`
	TodayVolume decimal.Decimal         `json:"today_volume"`
	Thresholds  domain.ThresholdConfig  `json:"thresholds"`
	Profiles    []*domain.ProfileEntity `json:"profiles"`
	Houses      []*domain.House         `json:"houses"`
}

// withAlertState returns a copy of v with read/expanded flags applied.
func (v *View) withAlertState(read, expanded map[string]bool) *View {
	c := *v
	c.Alerts = make([]AlertView, len(v.Alerts))
	c.Unread = 0
	for i, a := range v.Alerts {
		a.Read = read[a.ID]
		a.Expanded = expanded[a.ID]
		if !a.Read {
			c.Unread++
		}
		c.Alerts[i] = a
	}
	return &c
}
