// Package feed supplies trade ledgers to the engines: from the local store,
// a remote HTTP feed, CSV imports or built-in demo fixtures.
package feed

import (
	"context"
	"errors"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/storage"
	"ops-analytics/internal/window"
)

// ErrFeedUnavailable is returned when the remote feed cannot serve a request
// (transport failure, non-2xx status, or the circuit breaker is open).
var ErrFeedUnavailable = errors.New("trade feed unavailable")

// Ledger yields the current trade facts dated inside a resolved window.
type Ledger interface {
	Trades(ctx context.Context, r window.Range) ([]domain.TradeRecord, error)
}

// StoreLedger reads the ledger from a TradeRecordStore.
type StoreLedger struct {
	store storage.TradeRecordStore
}

// NewStoreLedger creates a ledger backed by store.
func NewStoreLedger(store storage.TradeRecordStore) *StoreLedger {
	return &StoreLedger{store: store}
}

// Trades returns the latest fact per id inside r, ordered by date, id.
func (l *StoreLedger) Trades(ctx context.Context, r window.Range) ([]domain.TradeRecord, error) {
	if r.Empty {
		return nil, nil
	}

	var (
		rows []*domain.TradeRecord
		err  error
	)
	if r.Unbounded {
		rows, err = l.store.GetAll(ctx)
	} else {
		rows, err = l.store.GetByDateRange(ctx, r.Start, r.End)
	}
	if err != nil {
		return nil, err
	}

	out := make([]domain.TradeRecord, 0, len(rows))
	for _, t := range rows {
		out = append(out, *t)
	}
	return out, nil
}

var _ Ledger = (*StoreLedger)(nil)
