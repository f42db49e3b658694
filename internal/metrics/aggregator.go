package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/idhash"
	"ops-analytics/internal/storage"
	"ops-analytics/internal/window"
)

// ErrNoSnapshotStore is returned by ComputeAndStore when no snapshot store is configured.
var ErrNoSnapshotStore = errors.New("no equity snapshot store configured")

// Result is one windowed computation.
type Result struct {
	Range      window.Range
	ComputedAt time.Time
	Metrics    *Metrics
}

// Aggregator computes windowed metrics from stored trade records.
type Aggregator struct {
	tradeRecordStore storage.TradeRecordStore
	snapshotStore    storage.EquitySnapshotStore // optional
	opts             Options
	now              func() time.Time
}

// NewAggregator creates a new metrics aggregator. snapshotStore may be nil.
func NewAggregator(tradeStore storage.TradeRecordStore, snapshotStore storage.EquitySnapshotStore, opts Options) *Aggregator {
	return &Aggregator{
		tradeRecordStore: tradeStore,
		snapshotStore:    snapshotStore,
		opts:             opts,
		now:              time.Now,
	}
}

// WithClock overrides the reference clock used to resolve window presets.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// ComputeWindow loads the records inside the resolved window and computes metrics.
// An empty window yields zeroed metrics, not an error.
func (a *Aggregator) ComputeWindow(ctx context.Context, sel window.Selector) (*Result, error) {
	now := a.now()
	r := window.Resolve(sel, now)

	records, err := a.load(ctx, r)
	if err != nil {
		return nil, err
	}

	return &Result{
		Range:      r,
		ComputedAt: now,
		Metrics:    Compute(records, a.opts),
	}, nil
}

func (a *Aggregator) load(ctx context.Context, r window.Range) ([]domain.TradeRecord, error) {
	if r.Empty {
		return nil, nil
	}

	var (
		stored []*domain.TradeRecord
		err    error
	)
	if r.Unbounded {
		stored, err = a.tradeRecordStore.GetAll(ctx)
	} else {
		stored, err = a.tradeRecordStore.GetByDateRange(ctx, r.Start, r.End)
	}
	if err != nil {
		return nil, fmt.Errorf("load trades for %s: %w", r.Key(), err)
	}

	records := make([]domain.TradeRecord, 0, len(stored))
	for _, t := range stored {
		records = append(records, *t)
	}
	return records, nil
}

// ComputeAndStore computes metrics and persists one equity snapshot per series
// (global plus every category curve).
// Returns storage.ErrDuplicateKey if the snapshots already exist (append-only).
func (a *Aggregator) ComputeAndStore(ctx context.Context, sel window.Selector) (*Result, error) {
	if a.snapshotStore == nil {
		return nil, ErrNoSnapshotStore
	}

	res, err := a.ComputeWindow(ctx, sel)
	if err != nil {
		return nil, err
	}

	if err := a.snapshotStore.InsertBulk(ctx, Snapshots(res)); err != nil {
		return nil, fmt.Errorf("store equity snapshots: %w", err)
	}
	return res, nil
}

// Snapshots converts a result into persisted equity snapshots, global first,
// then categories in display order.
func Snapshots(res *Result) []*domain.EquitySnapshot {
	key := res.Range.Key()
	at := res.ComputedAt.UTC()

	snap := func(series string, points []domain.EquityPoint) *domain.EquitySnapshot {
		return &domain.EquitySnapshot{
			SnapshotID: idhash.SnapshotID(key, series, at),
			WindowKey:  key,
			Series:     series,
			ComputedAt: at,
			Points:     points,
		}
	}

	out := []*domain.EquitySnapshot{snap(domain.SeriesGlobal, res.Metrics.Equity)}
	for _, total := range res.Metrics.CategoryTotals {
		c := domain.Category(total.Key)
		out = append(out, snap(string(c), res.Metrics.Category[c]))
	}
	return out
}
