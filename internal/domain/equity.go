package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EquityPoint is one day of a cumulative-profit series.
type EquityPoint struct {
	Date             time.Time       `json:"date"`
	CumulativeProfit decimal.Decimal `json:"cumulative_profit"`
}

// DrawdownState describes the peak-to-current decline of the global curve.
// MaxDrawdown >= CurrentDrawdown >= 0 always holds.
type DrawdownState struct {
	RunningPeak        decimal.Decimal `json:"running_peak"`
	CurrentValue       decimal.Decimal `json:"current_value"`
	CurrentDrawdown    decimal.Decimal `json:"current_drawdown"`
	MaxDrawdown        decimal.Decimal `json:"max_drawdown"`
	CurrentDrawdownPct decimal.Decimal `json:"current_drawdown_pct"`
	MaxDrawdownPct     decimal.Decimal `json:"max_drawdown_pct"`
}

// Series names used for equity snapshots.
const SeriesGlobal = "GLOBAL"

// EquitySnapshot is a persisted equity curve for one window computation.
type EquitySnapshot struct {
	SnapshotID string    // deterministic, see idhash.SnapshotID
	WindowKey  string    // resolved window, e.g. "2024-05-01..2024-05-19"
	Series     string    // SeriesGlobal or a Category
	ComputedAt time.Time // wall-clock time of computation
	Points     []EquityPoint
}
