package metrics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/window"
)

// DefaultMoverLimit caps the contributor and drain lists when Options leaves it unset.
const DefaultMoverLimit = 5

// Options parameterizes a computation.
type Options struct {
	// Baseline is the starting bankroll used as the drawdown percentage base.
	// The engine does not derive it from data.
	Baseline decimal.Decimal

	// MoverDimension groups closed records for the movers lists.
	MoverDimension Dimension

	// MoverLimit caps each movers list. <= 0 means DefaultMoverLimit.
	MoverLimit int
}

// Metrics is the KPI set for one slice of the ledger.
type Metrics struct {
	// Counts
	ClosedCount int `json:"closed_count"`
	OpenCount   int `json:"open_count"`
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`

	// Volume and result (closed records only)
	TotalStake   decimal.Decimal `json:"total_stake"`
	TotalProfit  decimal.Decimal `json:"total_profit"`
	AverageStake decimal.Decimal `json:"average_stake"`
	AverageOdds  decimal.Decimal `json:"average_odds"`
	ROI          decimal.Decimal `json:"roi"`      // TotalProfit / TotalStake, 0 without volume
	WinRate      decimal.Decimal `json:"win_rate"` // Wins / ClosedCount, 0 without closed records

	// Open records
	Exposure decimal.Decimal `json:"exposure"` // sum of open stakes

	// Curves
	Equity   []domain.EquityPoint                     `json:"equity"`
	Category map[domain.Category][]domain.EquityPoint `json:"category"`
	Drawdown domain.DrawdownState                     `json:"drawdown"`
	// DrawdownSeries is peak - value per global equity point.
	DrawdownSeries []domain.EquityPoint `json:"drawdown_series"`

	// Verticals
	CategoryTotals []GroupTotal `json:"category_totals"` // per-category closed profit, sorted by category order
	Leader         *GroupTotal  `json:"leader"`          // highest category profit
	Worst          *GroupTotal  `json:"worst"`           // lowest category profit

	Movers MoverSet `json:"movers"`
}

// Compute derives the full KPI set from records. It is a pure function of its input.
func Compute(records []domain.TradeRecord, opts Options) *Metrics {
	closed, open := partition(records)

	m := &Metrics{
		ClosedCount: len(closed),
		OpenCount:   len(open),
		Exposure:    sumStake(open),
		TotalStake:  sumStake(closed),
		TotalProfit: sumProfit(closed),
	}

	oddsSum := decimal.Zero
	for _, r := range closed {
		oddsSum = oddsSum.Add(r.Odds)
		switch r.Outcome {
		case domain.OutcomeWin:
			m.Wins++
		case domain.OutcomeLoss:
			m.Losses++
		}
	}

	m.ROI = safeDiv(m.TotalProfit, m.TotalStake)
	if n := len(closed); n > 0 {
		count := decimal.NewFromInt(int64(n))
		m.AverageStake = m.TotalStake.Div(count)
		m.AverageOdds = oddsSum.Div(count)
		m.WinRate = decimal.NewFromInt(int64(m.Wins)).Div(count)
	}

	m.Equity, m.Category = buildEquityCurves(closed)
	m.Drawdown, m.DrawdownSeries = computeDrawdown(m.Equity, opts.Baseline)

	m.CategoryTotals = categoryTotals(closed)
	m.Leader, m.Worst = leaderAndWorst(m.CategoryTotals)

	m.Movers = movers(closed, opts.MoverDimension, opts.MoverLimit)

	return m
}

// ComputeWindow filters the ledger by the selector and computes metrics on the slice.
func ComputeWindow(ledger []domain.TradeRecord, sel window.Selector, now time.Time, opts Options) *Metrics {
	return Compute(window.Filter(ledger, sel, now), opts)
}

// partition splits records into closed and open, preserving order.
func partition(records []domain.TradeRecord) (closed, open []domain.TradeRecord) {
	for _, r := range records {
		if r.IsClosed() {
			closed = append(closed, r)
		} else {
			open = append(open, r)
		}
	}
	return closed, open
}

func sumStake(records []domain.TradeRecord) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(r.Stake)
	}
	return sum
}

func sumProfit(records []domain.TradeRecord) decimal.Decimal {
	sum := decimal.Zero
	for _, r := range records {
		sum = sum.Add(r.Profit)
	}
	return sum
}

// safeDiv returns num/den, or 0 when den is not positive.
func safeDiv(num, den decimal.Decimal) decimal.Decimal {
	if !den.IsPositive() {
		return decimal.Zero
	}
	return num.Div(den)
}

// categoryTotals sums closed profit per category. Every known category is present,
// plus any unknown category seen in the data (appended in name order).
func categoryTotals(closed []domain.TradeRecord) []GroupTotal {
	sums := make(map[domain.Category]decimal.Decimal)
	counts := make(map[domain.Category]int)
	for _, r := range closed {
		sums[r.Category] = sums[r.Category].Add(r.Profit)
		counts[r.Category]++
	}

	totals := make([]GroupTotal, 0, len(domain.Categories))
	seen := make(map[domain.Category]bool)
	for _, c := range domain.Categories {
		seen[c] = true
		totals = append(totals, GroupTotal{Key: string(c), Profit: sums[c], Count: counts[c]})
	}

	var extra []string
	for c := range sums {
		if !seen[c] {
			extra = append(extra, string(c))
		}
	}
	sort.Strings(extra)
	for _, c := range extra {
		cat := domain.Category(c)
		totals = append(totals, GroupTotal{Key: c, Profit: sums[cat], Count: counts[cat]})
	}

	return totals
}

// leaderAndWorst picks argmax/argmin by profit among categories with activity.
// Ties keep the earlier category.
func leaderAndWorst(totals []GroupTotal) (*GroupTotal, *GroupTotal) {
	var leader, worst *GroupTotal
	for i := range totals {
		t := &totals[i]
		if t.Count == 0 {
			continue
		}
		if leader == nil || t.Profit.GreaterThan(leader.Profit) {
			leader = t
		}
		if worst == nil || t.Profit.LessThan(worst.Profit) {
			worst = t
		}
	}
	if leader != nil {
		l := *leader
		leader = &l
	}
	if worst != nil {
		w := *worst
		worst = &w
	}
	return leader, worst
}
