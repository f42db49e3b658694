// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Refresh metrics
	RefreshTotal    *prometheus.CounterVec
	RefreshDuration prometheus.Histogram
	StaleDiscarded  prometheus.Counter
	RecordsLoaded   prometheus.Gauge

	// Engine output
	AlertsActive       *prometheus.GaugeVec
	ActiveCapitalToday prometheus.Gauge
	ActiveProfiles     prometheus.Gauge
	TotalProfit        prometheus.Gauge
	MaxDrawdown        prometheus.Gauge
	SnapshotsStored    prometheus.Counter

	// Rotation
	ScheduleToggles prometheus.Counter

	// Feed metrics
	FeedRequestLatency *prometheus.HistogramVec
	FeedErrors         *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Push
	WSClients prometheus.Gauge

	// Health
	LastSuccessfulRefresh prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on reg.
// A nil reg uses the default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "ops_analytics"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		RefreshTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "refresh_total",
			Help:      "Total number of dashboard refreshes by status",
		}, []string{"status"}),
		RefreshDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "refresh_duration_seconds",
			Help:      "Refresh duration in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		StaleDiscarded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "stale_results_discarded_total",
			Help:      "Refresh results dropped because a newer refresh started",
		}),
		RecordsLoaded: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "records_loaded",
			Help:      "Trade records loaded by the last applied refresh",
		}),

		AlertsActive: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "active",
			Help:      "Alerts produced by the last evaluation by severity",
		}, []string{"severity"}),
		ActiveCapitalToday: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rotation",
			Name:      "active_capital_today",
			Help:      "Sum of balances of profiles ACTIVE today",
		}),
		ActiveProfiles: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rotation",
			Name:      "active_profiles_today",
			Help:      "Number of profiles ACTIVE today",
		}),
		TotalProfit: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "metrics",
			Name:      "total_profit",
			Help:      "Closed profit of the default window",
		}),
		MaxDrawdown: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "metrics",
			Name:      "max_drawdown",
			Help:      "Max drawdown of the default window",
		}),
		SnapshotsStored: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "metrics",
			Name:      "snapshots_stored_total",
			Help:      "Total number of equity snapshots persisted",
		}),

		ScheduleToggles: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rotation",
			Name:      "toggles_total",
			Help:      "Total number of schedule day toggles",
		}),

		FeedRequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "request_latency_seconds",
			Help:      "Trade feed request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		FeedErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "errors_total",
			Help:      "Total number of trade feed errors by kind",
		}, []string{"endpoint", "kind"}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		WSClients: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "ws_clients",
			Help:      "Connected WebSocket clients",
		}),

		LastSuccessfulRefresh: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_refresh_timestamp",
			Help:      "Unix timestamp of last applied refresh",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordRefresh records one refresh outcome: "applied", "stale" or "error".
func (m *Metrics) RecordRefresh(status string, seconds float64) {
	m.RefreshTotal.WithLabelValues(status).Inc()
	m.RefreshDuration.Observe(seconds)
	if status == "stale" {
		m.StaleDiscarded.Inc()
	}
}

// SetAlertCounts replaces the per-severity alert gauges.
func (m *Metrics) SetAlertCounts(bySeverity map[string]int, severities []string) {
	for _, s := range severities {
		m.AlertsActive.WithLabelValues(s).Set(float64(bySeverity[s]))
	}
}

// RecordFeedRequest records a feed call. kind is empty on success.
func (m *Metrics) RecordFeedRequest(endpoint string, seconds float64, kind string) {
	m.FeedRequestLatency.WithLabelValues(endpoint).Observe(seconds)
	if kind != "" {
		m.FeedErrors.WithLabelValues(endpoint, kind).Inc()
	}
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordDBQuery records database query metrics on DefaultMetrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.RecordDBQuery(database, operation, seconds, err)
}
