package domain

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord represents one betting operation as delivered by the ledger feed.
// Records are immutable facts: a settlement arrives as a replacing fact with the
// same ID and a later CreatedAt, never as an in-place edit.
type TradeRecord struct {
	ID          string    // unique operation id
	Date        time.Time // calendar day (UTC midnight)
	Category    Category  // vertical
	Counterpart string    // bookmaker / venue identifier
	Market      string    // free-text market classification

	Stake   decimal.Decimal // >= 0
	Odds    decimal.Decimal // decimal odds, > 1
	Outcome Outcome         // WIN | LOSS | PENDING
	Profit  decimal.Decimal // signed; 0 while PENDING

	CreatedAt time.Time // fact timestamp, used to pick the latest fact per ID
}

// Outcome is the settlement state of an operation.
type Outcome string

// Outcome constants
const (
	OutcomeWin     Outcome = "WIN"
	OutcomeLoss    Outcome = "LOSS"
	OutcomePending Outcome = "PENDING"
)

// ParseOutcome parses an outcome string.
func ParseOutcome(s string) (Outcome, error) {
	switch Outcome(s) {
	case OutcomeWin, OutcomeLoss, OutcomePending:
		return Outcome(s), nil
	default:
		return "", fmt.Errorf("unknown outcome %q", s)
	}
}

// IsClosed reports whether the record is settled.
func (t *TradeRecord) IsClosed() bool {
	return t.Outcome != OutcomePending
}

// SettleProfit returns the profit implied by stake, odds and outcome.
//
//	WIN     -> stake * (odds - 1)
//	LOSS    -> -stake
//	PENDING -> 0
func SettleProfit(stake, odds decimal.Decimal, outcome Outcome) decimal.Decimal {
	switch outcome {
	case OutcomeWin:
		return stake.Mul(odds.Sub(decimal.NewFromInt(1)))
	case OutcomeLoss:
		return stake.Neg()
	default:
		return decimal.Zero
	}
}

// Validate checks the record invariants. Engines never call it; importers do.
func (t *TradeRecord) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("trade record: missing id")
	}
	if t.Date.IsZero() {
		return fmt.Errorf("trade record %s: missing date", t.ID)
	}
	if t.Stake.IsNegative() {
		return fmt.Errorf("trade record %s: negative stake %s", t.ID, t.Stake)
	}
	if t.Odds.LessThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("trade record %s: odds %s must be > 1", t.ID, t.Odds)
	}
	if _, err := ParseOutcome(string(t.Outcome)); err != nil {
		return fmt.Errorf("trade record %s: %w", t.ID, err)
	}
	if want := SettleProfit(t.Stake, t.Odds, t.Outcome); !t.Profit.Equal(want) {
		return fmt.Errorf("trade record %s: profit %s does not match %s outcome (want %s)", t.ID, t.Profit, t.Outcome, want)
	}
	return nil
}

// Supersede keeps the latest fact per ID (by CreatedAt, later slice position wins ties).
// Output order follows the first appearance of each ID.
func Supersede(records []TradeRecord) []TradeRecord {
	latest := make(map[string]int, len(records))
	order := make([]string, 0, len(records))
	for i, r := range records {
		j, seen := latest[r.ID]
		if !seen {
			order = append(order, r.ID)
			latest[r.ID] = i
			continue
		}
		if !r.CreatedAt.Before(records[j].CreatedAt) {
			latest[r.ID] = i
		}
	}

	out := make([]TradeRecord, 0, len(order))
	for _, id := range order {
		out = append(out, records[latest[id]])
	}
	return out
}

// SortByDate sorts records by Date ASC, ID ASC in place.
func SortByDate(records []TradeRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Date.Equal(records[j].Date) {
			return records[i].Date.Before(records[j].Date)
		}
		return records[i].ID < records[j].ID
	})
}
