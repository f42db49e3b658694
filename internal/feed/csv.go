package feed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ops-analytics/internal/domain"
)

// csvColumns is the import header. id and created_at may be left blank.
var csvColumns = []string{"id", "date", "category", "counterpart", "market", "stake", "odds", "outcome", "profit", "created_at"}

// ReadCSV parses a ledger export. Blank profit cells are settled from stake, odds
// and outcome; blank created_at cells take importedAt. Any invalid row fails the import.
func ReadCSV(r io.Reader, importedAt time.Time) ([]*domain.TradeRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range []string{"date", "category", "stake", "odds", "outcome"} {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	cell := func(row []string, col string) string {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []*domain.TradeRecord
	for seq := 0; ; seq++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", seq+1, err)
		}

		// Rows without created_at are spaced a microsecond apart so identical
		// rows stay distinct facts.
		w := WireTrade{
			ID:          cell(row, "id"),
			Date:        cell(row, "date"),
			Category:    cell(row, "category"),
			Counterpart: cell(row, "counterpart"),
			Market:      cell(row, "market"),
			Outcome:     cell(row, "outcome"),
			CreatedAt:   importedAt.Add(time.Duration(seq) * time.Microsecond),
		}
		if w.Stake, err = decimal.NewFromString(cell(row, "stake")); err != nil {
			return nil, fmt.Errorf("row %d: stake: %w", seq+1, err)
		}
		if w.Odds, err = decimal.NewFromString(cell(row, "odds")); err != nil {
			return nil, fmt.Errorf("row %d: odds: %w", seq+1, err)
		}
		if p := cell(row, "profit"); p != "" {
			if w.Profit, err = decimal.NewFromString(p); err != nil {
				return nil, fmt.Errorf("row %d: profit: %w", seq+1, err)
			}
		} else {
			w.Profit = domain.SettleProfit(w.Stake, w.Odds, domain.Outcome(strings.ToUpper(w.Outcome)))
		}
		if ts := cell(row, "created_at"); ts != "" {
			if w.CreatedAt, err = time.Parse(time.RFC3339, ts); err != nil {
				return nil, fmt.Errorf("row %d: created_at: %w", seq+1, err)
			}
		}

		rec, err := w.ToRecord(seq)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", seq+1, err)
		}
		out = append(out, &rec)
	}
	return out, nil
}

// WriteCSV writes records in the ReadCSV layout.
func WriteCSV(w io.Writer, records []domain.TradeRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return err
	}
	for _, r := range records {
		if err := cw.Write([]string{
			r.ID,
			r.Date.Format(domain.DateLayout),
			string(r.Category),
			r.Counterpart,
			r.Market,
			r.Stake.String(),
			r.Odds.String(),
			string(r.Outcome),
			r.Profit.String(),
			r.CreatedAt.UTC().Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
