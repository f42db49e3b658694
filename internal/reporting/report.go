package reporting

import (
	"time"

	"github.com/shopspring/decimal"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/metrics"
	"ops-analytics/internal/rotation"
)

// Report is the operational report for one window.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	WindowKey   string
	Baseline    decimal.Decimal

	// Data Summary
	DataSummary DataSummary

	// Data Quality (record invariant checks)
	DataQuality DataQualitySection

	// KPIs and curves
	Metrics *metrics.Metrics

	// Verticals sorted by category display order
	Verticals []VerticalRow

	// Rotation state today, one row per house
	Capital      []rotation.HouseCapital
	CapitalTotal decimal.Decimal

	// Ranked alerts
	Alerts []domain.AlertItem
}

// DataSummary describes the ledger slice behind the report.
type DataSummary struct {
	TotalRecords   int
	ClosedRecords  int
	OpenRecords    int
	Profiles       int
	Houses         int
	DateRangeStart time.Time // first record date, zero without records
	DateRangeEnd   time.Time // last record date, zero without records
}

// DataQualitySection lists records that break the settlement invariants.
// Engines still count them; the list is for operators.
type DataQualitySection struct {
	IntegrityErrors []string
	AllChecksPassed bool
}

// VerticalRow is the closed result of one category.
type VerticalRow struct {
	Category domain.Category
	Count    int
	Profit   decimal.Decimal
	Leader   bool
	Worst    bool
}
