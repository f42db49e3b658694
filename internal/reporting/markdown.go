package reporting

import (
	"fmt"
	"strings"
	"time"

	"ops-analytics/internal/domain"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder
	m := r.Metrics

	// Header
	sb.WriteString("# Operations Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Window: %s | Baseline: %s\n\n", r.WindowKey, r.Baseline.StringFixed(2)))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Records | %d |\n", r.DataSummary.TotalRecords))
	sb.WriteString(fmt.Sprintf("| Settled | %d |\n", r.DataSummary.ClosedRecords))
	sb.WriteString(fmt.Sprintf("| Open | %d |\n", r.DataSummary.OpenRecords))
	sb.WriteString(fmt.Sprintf("| Profiles | %d |\n", r.DataSummary.Profiles))
	sb.WriteString(fmt.Sprintf("| Houses | %d |\n", r.DataSummary.Houses))
	sb.WriteString(fmt.Sprintf("| First Date | %s |\n", formatDay(r.DataSummary.DateRangeStart)))
	sb.WriteString(fmt.Sprintf("| Last Date | %s |\n", formatDay(r.DataSummary.DateRangeEnd)))
	sb.WriteString("\n")

	// Data Quality
	sb.WriteString("## Data Quality\n\n")
	if r.DataQuality.AllChecksPassed {
		sb.WriteString("**All records satisfy the settlement invariants.**\n\n")
	} else {
		sb.WriteString("### Integrity Errors\n\n")
		for _, err := range r.DataQuality.IntegrityErrors {
			sb.WriteString(fmt.Sprintf("- %s\n", err))
		}
		sb.WriteString("\n")
	}

	// KPIs
	sb.WriteString("## KPIs\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Stake | %s |\n", m.TotalStake.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Total Profit | %s |\n", m.TotalProfit.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| ROI | %s%% |\n", m.ROI.Shift(2).StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Win Rate | %s%% |\n", m.WinRate.Shift(2).StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Wins / Losses | %d / %d |\n", m.Wins, m.Losses))
	sb.WriteString(fmt.Sprintf("| Average Stake | %s |\n", m.AverageStake.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Average Odds | %s |\n", m.AverageOdds.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Exposure (open) | %s |\n", m.Exposure.StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Current Drawdown | %s (%s%%) |\n",
		m.Drawdown.CurrentDrawdown.StringFixed(2), m.Drawdown.CurrentDrawdownPct.Shift(2).StringFixed(2)))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %s (%s%%) |\n",
		m.Drawdown.MaxDrawdown.StringFixed(2), m.Drawdown.MaxDrawdownPct.Shift(2).StringFixed(2)))
	sb.WriteString("\n")

	// Verticals
	sb.WriteString("## Verticals\n\n")
	sb.WriteString("| Category | Settled | Profit | |\n")
	sb.WriteString("|----------|---------|--------|---|\n")
	for _, v := range r.Verticals {
		mark := ""
		switch {
		case v.Leader:
			mark = "leader"
		case v.Worst:
			mark = "worst"
		}
		sb.WriteString(fmt.Sprintf("| %s | %d | %s | %s |\n", v.Category, v.Count, v.Profit.StringFixed(2), mark))
	}
	sb.WriteString("\n")

	// Movers
	sb.WriteString(fmt.Sprintf("## Movers by %s\n\n", m.Movers.Dimension))
	if len(m.Movers.Contributors) == 0 && len(m.Movers.Drains) == 0 {
		sb.WriteString("No settled activity.\n\n")
	} else {
		sb.WriteString("| Side | Key | Count | Profit |\n")
		sb.WriteString("|------|-----|-------|--------|\n")
		for _, g := range m.Movers.Contributors {
			sb.WriteString(fmt.Sprintf("| + | %s | %d | %s |\n", g.Key, g.Count, g.Profit.StringFixed(2)))
		}
		for _, g := range m.Movers.Drains {
			sb.WriteString(fmt.Sprintf("| - | %s | %d | %s |\n", g.Key, g.Count, g.Profit.StringFixed(2)))
		}
		sb.WriteString("\n")
	}

	// Rotation
	sb.WriteString("## Capital Active Today\n\n")
	sb.WriteString(fmt.Sprintf("Total: %s\n\n", r.CapitalTotal.StringFixed(2)))
	if len(r.Capital) > 0 {
		sb.WriteString("| House | Active Profiles | Active Capital |\n")
		sb.WriteString("|-------|-----------------|----------------|\n")
		for _, h := range r.Capital {
			sb.WriteString(fmt.Sprintf("| %s | %d | %s |\n", h.HouseID, h.ActiveCount, h.ActiveCapital.StringFixed(2)))
		}
		sb.WriteString("\n")
	}

	// Alerts
	sb.WriteString("## Alerts\n\n")
	if len(r.Alerts) == 0 {
		sb.WriteString("No alerts.\n\n")
	} else {
		for _, a := range r.Alerts {
			sb.WriteString(fmt.Sprintf("%d. **[%s] %s** (`%s`)\n", a.Rank, a.Severity, a.Title, a.ID))
			sb.WriteString(fmt.Sprintf("   - Impact: %s\n", a.ImpactSummary))
			sb.WriteString(fmt.Sprintf("   - Cause: %s\n", a.Cause))
			sb.WriteString(fmt.Sprintf("   - Action: %s\n", a.RecommendedAction))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(domain.DateLayout)
}
