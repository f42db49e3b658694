package reporting

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"ops-analytics/internal/alerts"
	"ops-analytics/internal/config"
	"ops-analytics/internal/domain"
	"ops-analytics/internal/feed"
	"ops-analytics/internal/metrics"
	"ops-analytics/internal/rotation"
	"ops-analytics/internal/storage"
	"ops-analytics/internal/window"
)

// maxIntegrityErrors caps the integrity list in one report.
const maxIntegrityErrors = 20

// Generator produces reports from the ledger and the profile directory.
type Generator struct {
	ledger     feed.Ledger
	directory  storage.Directory
	thresholds config.ThresholdSource
	opts       metrics.Options
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(
	ledger feed.Ledger,
	directory storage.Directory,
	thresholds config.ThresholdSource,
	opts metrics.Options,
) *Generator {
	return &Generator{
		ledger:     ledger,
		directory:  directory,
		thresholds: thresholds,
		opts:       opts,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report for sel.
func (g *Generator) Generate(ctx context.Context, sel window.Selector) (*Report, error) {
	now := g.now()
	r := window.Resolve(sel, now)

	var (
		records  []domain.TradeRecord
		profiles []*domain.ProfileEntity
		houses   []*domain.House
	)
	eg, ectx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		records, err = g.ledger.Trades(ectx, r)
		return err
	})
	eg.Go(func() (err error) {
		profiles, err = g.directory.Profiles.GetAll(ectx)
		return err
	})
	eg.Go(func() (err error) {
		houses, err = g.directory.Houses.GetAll(ectx)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	m := metrics.Compute(records, g.opts)
	current, todayIndex := rotation.AsOf(profiles, now)

	return &Report{
		GeneratedAt:  now,
		WindowKey:    r.Key(),
		Baseline:     g.opts.Baseline,
		DataSummary:  dataSummary(records, m, len(profiles), len(houses)),
		DataQuality:  dataQuality(records),
		Metrics:      m,
		Verticals:    verticals(m),
		Capital:      rotation.CapitalByHouse(current, houses, todayIndex),
		CapitalTotal: rotation.ActiveCapitalToday(current, todayIndex),
		Alerts:       alerts.Evaluate(current, houses, g.thresholds.Thresholds(), todayIndex),
	}, nil
}

func dataSummary(records []domain.TradeRecord, m *metrics.Metrics, profiles, houses int) DataSummary {
	s := DataSummary{
		TotalRecords:  len(records),
		ClosedRecords: m.ClosedCount,
		OpenRecords:   m.OpenCount,
		Profiles:      profiles,
		Houses:        houses,
	}
	for i, r := range records {
		d := domain.Day(r.Date)
		if i == 0 || d.Before(s.DateRangeStart) {
			s.DateRangeStart = d
		}
		if i == 0 || d.After(s.DateRangeEnd) {
			s.DateRangeEnd = d
		}
	}
	return s
}

func dataQuality(records []domain.TradeRecord) DataQualitySection {
	var errs []string
	failed := 0
	for i := range records {
		if err := records[i].Validate(); err != nil {
			failed++
			if len(errs) < maxIntegrityErrors {
				errs = append(errs, err.Error())
			}
		}
	}
	if failed > len(errs) {
		errs = append(errs, fmt.Sprintf("... and %d more", failed-len(errs)))
	}
	return DataQualitySection{IntegrityErrors: errs, AllChecksPassed: failed == 0}
}

func verticals(m *metrics.Metrics) []VerticalRow {
	rows := make([]VerticalRow, 0, len(m.CategoryTotals))
	for _, t := range m.CategoryTotals {
		rows = append(rows, VerticalRow{
			Category: domain.Category(t.Key),
			Count:    t.Count,
			Profit:   t.Profit,
			Leader:   m.Leader != nil && m.Leader.Key == t.Key,
			Worst:    m.Worst != nil && m.Worst.Key == t.Key,
		})
	}
	return rows
}
