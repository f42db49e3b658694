package metrics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"ops-analytics/internal/domain"
)

// buildEquityCurves builds the global and per-category cumulative-profit curves.
// Closed records are grouped by day ascending. Every global date appears in every
// category curve at the same index, carrying the last value forward on idle days.
func buildEquityCurves(closed []domain.TradeRecord) ([]domain.EquityPoint, map[domain.Category][]domain.EquityPoint) {
	byCategory := make(map[domain.Category][]domain.EquityPoint, len(domain.Categories))
	for _, c := range domain.Categories {
		byCategory[c] = []domain.EquityPoint{}
	}
	if len(closed) == 0 {
		return []domain.EquityPoint{}, byCategory
	}

	type dayTotals struct {
		total      decimal.Decimal
		byCategory map[domain.Category]decimal.Decimal
	}

	days := make(map[time.Time]*dayTotals)
	for _, r := range closed {
		d := domain.Day(r.Date)
		dt, ok := days[d]
		if !ok {
			dt = &dayTotals{byCategory: make(map[domain.Category]decimal.Decimal)}
			days[d] = dt
		}
		dt.total = dt.total.Add(r.Profit)
		dt.byCategory[r.Category] = dt.byCategory[r.Category].Add(r.Profit)
		if _, known := byCategory[r.Category]; !known {
			byCategory[r.Category] = []domain.EquityPoint{}
		}
	}

	dates := make([]time.Time, 0, len(days))
	for d := range days {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	global := make([]domain.EquityPoint, 0, len(dates))
	running := decimal.Zero
	runningByCategory := make(map[domain.Category]decimal.Decimal, len(byCategory))

	for _, d := range dates {
		dt := days[d]
		running = running.Add(dt.total)
		global = append(global, domain.EquityPoint{Date: d, CumulativeProfit: running})

		for c := range byCategory {
			runningByCategory[c] = runningByCategory[c].Add(dt.byCategory[c])
			byCategory[c] = append(byCategory[c], domain.EquityPoint{Date: d, CumulativeProfit: runningByCategory[c]})
		}
	}

	return global, byCategory
}

// computeDrawdown runs one left-to-right pass over the global curve.
//
// The pass starts from the implicit origin: cumulative profit is 0 before the first
// trade, so the origin is the first point and the first peak. A curve that opens with
// a loss is therefore already in drawdown.
//
// Percent forms divide by baseline + max(peak, 0); the max percentage uses the peak
// in force when the max drawdown was observed.
func computeDrawdown(curve []domain.EquityPoint, baseline decimal.Decimal) (domain.DrawdownState, []domain.EquityPoint) {
	state := domain.DrawdownState{
		RunningPeak:        decimal.Zero,
		CurrentValue:       decimal.Zero,
		CurrentDrawdown:    decimal.Zero,
		MaxDrawdown:        decimal.Zero,
		CurrentDrawdownPct: decimal.Zero,
		MaxDrawdownPct:     decimal.Zero,
	}
	series := make([]domain.EquityPoint, 0, len(curve))

	peak := decimal.Zero
	peakAtMax := decimal.Zero
	for _, p := range curve {
		if p.CumulativeProfit.GreaterThan(peak) {
			peak = p.CumulativeProfit
		}
		dd := peak.Sub(p.CumulativeProfit)
		if dd.GreaterThan(state.MaxDrawdown) {
			state.MaxDrawdown = dd
			peakAtMax = peak
		}
		state.CurrentValue = p.CumulativeProfit
		state.CurrentDrawdown = dd
		series = append(series, domain.EquityPoint{Date: p.Date, CumulativeProfit: dd})
	}

	state.RunningPeak = peak
	state.CurrentDrawdownPct = drawdownPct(state.CurrentDrawdown, baseline, peak)
	state.MaxDrawdownPct = drawdownPct(state.MaxDrawdown, baseline, peakAtMax)

	return state, series
}

// drawdownPct returns dd / (baseline + max(peak, 0)), or 0 for a non-positive base.
func drawdownPct(dd, baseline, peak decimal.Decimal) decimal.Decimal {
	base := baseline.Add(decimal.Max(peak, decimal.Zero))
	return safeDiv(dd, base)
}
