// Package verification reconciles the trade ledger held in local storage against
// another ledger (typically the remote feed). It reports missing facts on either side
// and field-level divergences for trades present in both.
package verification

import (
	"context"
	"fmt"
	"sort"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/feed"
	"ops-analytics/internal/window"
)

// FieldDivergence represents a mismatch between stored and reference values.
type FieldDivergence struct {
	Field    string `json:"field"`
	Expected string `json:"expected"` // stored value
	Actual   string `json:"actual"`   // reference value
}

// Status classifies one reconciled trade.
type Status string

// Status constants
const (
	StatusMatch           Status = "MATCH"
	StatusDivergent       Status = "DIVERGENT"
	StatusMissingLocal    Status = "MISSING_LOCAL"     // in the reference only
	StatusMissingExternal Status = "MISSING_REFERENCE" // in local storage only
)

// VerificationResult contains the result of verifying a single trade.
type VerificationResult struct {
	TradeID     string            `json:"trade_id"`
	Status      Status            `json:"status"`
	Divergences []FieldDivergence `json:"divergences,omitempty"`
}

// VerificationReport contains results for one reconciled window.
type VerificationReport struct {
	Window          string               `json:"window"`
	TotalTrades     int                  `json:"total_trades"`
	MatchedTrades   int                  `json:"matched_trades"`
	DivergentTrades int                  `json:"divergent_trades"`
	MissingLocal    int                  `json:"missing_local"`
	MissingExternal int                  `json:"missing_reference"`
	Results         []VerificationResult `json:"results"` // non-matching trades only, by trade id
}

// Clean reports whether both ledgers agree on every trade.
func (r *VerificationReport) Clean() bool {
	return r.MatchedTrades == r.TotalTrades
}

// Verifier compares a stored ledger with a reference ledger.
type Verifier struct {
	stored    feed.Ledger
	reference feed.Ledger
}

// NewVerifier creates a verifier. Both ledgers already apply supersession.
func NewVerifier(stored, reference feed.Ledger) *Verifier {
	return &Verifier{stored: stored, reference: reference}
}

// VerifyRange reconciles the latest facts of both ledgers inside r.
func (v *Verifier) VerifyRange(ctx context.Context, r window.Range) (*VerificationReport, error) {
	local, err := v.stored.Trades(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("load stored trades: %w", err)
	}
	remote, err := v.reference.Trades(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("load reference trades: %w", err)
	}
	report := Reconcile(local, remote)
	report.Window = r.Key()
	return report, nil
}

// Reconcile compares two ledgers by trade id.
func Reconcile(stored, reference []domain.TradeRecord) *VerificationReport {
	byID := make(map[string]*domain.TradeRecord, len(stored))
	for i := range stored {
		byID[stored[i].ID] = &stored[i]
	}
	seen := make(map[string]bool, len(reference))

	report := &VerificationReport{Results: []VerificationResult{}}
	for i := range reference {
		ref := &reference[i]
		seen[ref.ID] = true
		report.TotalTrades++

		local, ok := byID[ref.ID]
		if !ok {
			report.MissingLocal++
			report.Results = append(report.Results, VerificationResult{TradeID: ref.ID, Status: StatusMissingLocal})
			continue
		}
		if d := CompareTradeRecords(local, ref); len(d) > 0 {
			report.DivergentTrades++
			report.Results = append(report.Results, VerificationResult{TradeID: ref.ID, Status: StatusDivergent, Divergences: d})
			continue
		}
		report.MatchedTrades++
	}

	for id := range byID {
		if !seen[id] {
			report.TotalTrades++
			report.MissingExternal++
			report.Results = append(report.Results, VerificationResult{TradeID: id, Status: StatusMissingExternal})
		}
	}

	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].TradeID < report.Results[j].TradeID
	})
	return report
}

// CompareTradeRecords compares two facts of the same trade and returns divergences.
// Money fields compare by value, so "100" and "100.00" match. CreatedAt is not
// compared: the two sides may have recorded the same fact at different times.
func CompareTradeRecords(stored, reference *domain.TradeRecord) []FieldDivergence {
	var divergences []FieldDivergence
	add := func(field, expected, actual string) {
		divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}

	if stored.ID != reference.ID {
		add("ID", stored.ID, reference.ID)
	}
	if !domain.Day(stored.Date).Equal(domain.Day(reference.Date)) {
		add("Date", stored.Date.Format(domain.DateLayout), reference.Date.Format(domain.DateLayout))
	}
	if stored.Category != reference.Category {
		add("Category", string(stored.Category), string(reference.Category))
	}
	if stored.Counterpart != reference.Counterpart {
		add("Counterpart", stored.Counterpart, reference.Counterpart)
	}
	if stored.Market != reference.Market {
		add("Market", stored.Market, reference.Market)
	}
	if !stored.Stake.Equal(reference.Stake) {
		add("Stake", stored.Stake.String(), reference.Stake.String())
	}
	if !stored.Odds.Equal(reference.Odds) {
		add("Odds", stored.Odds.String(), reference.Odds.String())
	}
	if stored.Outcome != reference.Outcome {
		add("Outcome", string(stored.Outcome), string(reference.Outcome))
	}
	if !stored.Profit.Equal(reference.Profit) {
		add("Profit", stored.Profit.String(), reference.Profit.String())
	}

	return divergences
}
