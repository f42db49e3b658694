package feed

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/idhash"
)

// WireTrade is the JSON shape served by the remote feed and the API.
// Money fields accept JSON numbers or strings.
type WireTrade struct {
	ID          string          `json:"id,omitempty"`
	Date        string          `json:"date"` // YYYY-MM-DD
	Category    string          `json:"category"`
	Counterpart string          `json:"counterpart"`
	Market      string          `json:"market"`
	Stake       decimal.Decimal `json:"stake"`
	Odds        decimal.Decimal `json:"odds"`
	Outcome     string          `json:"outcome"`
	Profit      decimal.Decimal `json:"profit"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ToRecord converts and validates a wire trade. A missing id is derived with
// idhash.ImportTradeID from the trade content and CreatedAt; seq only labels errors.
func (w WireTrade) ToRecord(seq int) (domain.TradeRecord, error) {
	date, err := domain.ParseDay(strings.TrimSpace(w.Date))
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("trade %d: date: %w", seq, err)
	}
	category, err := domain.ParseCategory(w.Category)
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("trade %d: %w", seq, err)
	}
	outcome, err := domain.ParseOutcome(strings.ToUpper(strings.TrimSpace(w.Outcome)))
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("trade %d: %w", seq, err)
	}

	id := strings.TrimSpace(w.ID)
	if id == "" {
		id = idhash.ImportTradeID(w.Counterpart, w.Market, string(category), date, w.Stake, w.Odds, w.CreatedAt)
	}

	rec := domain.TradeRecord{
		ID:          id,
		Date:        date,
		Category:    category,
		Counterpart: strings.TrimSpace(w.Counterpart),
		Market:      strings.TrimSpace(w.Market),
		Stake:       w.Stake,
		Odds:        w.Odds,
		Outcome:     outcome,
		Profit:      w.Profit,
		CreatedAt:   w.CreatedAt.UTC(),
	}
	if err := rec.Validate(); err != nil {
		return domain.TradeRecord{}, err
	}
	return rec, nil
}

// FromRecord converts a record to its wire shape.
func FromRecord(r domain.TradeRecord) WireTrade {
	return WireTrade{
		ID:          r.ID,
		Date:        r.Date.Format(domain.DateLayout),
		Category:    string(r.Category),
		Counterpart: r.Counterpart,
		Market:      r.Market,
		Stake:       r.Stake,
		Odds:        r.Odds,
		Outcome:     string(r.Outcome),
		Profit:      r.Profit,
		CreatedAt:   r.CreatedAt,
	}
}
