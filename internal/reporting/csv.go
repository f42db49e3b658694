package reporting

import (
	"fmt"
	"strings"

	"ops-analytics/internal/domain"
)

// RenderEquityCSV renders the global, drawdown and per-category curves, one row per date.
func RenderEquityCSV(r *Report) string {
	var sb strings.Builder
	m := r.Metrics

	// Header
	sb.WriteString("date,cumulative_profit,drawdown")
	for _, v := range r.Verticals {
		sb.WriteString(",")
		sb.WriteString(strings.ToLower(string(v.Category)))
	}
	sb.WriteString("\n")

	// Rows
	for i, p := range m.Equity {
		sb.WriteString(fmt.Sprintf("%s,%s,%s",
			p.Date.Format(domain.DateLayout),
			p.CumulativeProfit.StringFixed(2),
			m.DrawdownSeries[i].CumulativeProfit.StringFixed(2),
		))
		for _, v := range r.Verticals {
			sb.WriteString(",")
			sb.WriteString(m.Category[v.Category][i].CumulativeProfit.StringFixed(2))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// RenderAlertsCSV renders ranked alerts as CSV string.
func RenderAlertsCSV(items []domain.AlertItem) string {
	var sb strings.Builder

	sb.WriteString("rank,id,rule,severity,target,title,impact,cause,action\n")
	for _, a := range items {
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%s,%s,%s,%s,%s,%s\n",
			a.Rank,
			csvField(a.ID),
			a.Rule,
			a.Severity,
			csvField(a.TargetRef),
			csvField(a.Title),
			csvField(a.ImpactSummary),
			csvField(a.Cause),
			csvField(a.RecommendedAction),
		))
	}

	return sb.String()
}

// csvField quotes s when it holds a separator, quote or newline.
func csvField(s string) string {
	if !strings.ContainsAny(s, ",\"\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
