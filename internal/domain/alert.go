package domain

// Severity classifies an alert. Lower Priority() sorts first.
type Severity string

// Severity constants, most severe first.
const (
	SeverityCritical  Severity = "Critical"
	SeverityRisk      Severity = "Risk"
	SeverityExecution Severity = "Execution"
	SeverityFinance   Severity = "Finance"
	SeverityInfo      Severity = "Info"
)

// Priority returns the default ranking weight (0 = most severe).
func (s Severity) Priority() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityRisk:
		return 1
	case SeverityExecution:
		return 2
	case SeverityFinance:
		return 3
	default:
		return 4
	}
}

// AlertItem is one explainable alert produced by an evaluation pass.
// ID is "<rule>:<target>" so the same condition keeps the same ID across passes.
type AlertItem struct {
	ID                string   `json:"id"`
	Rule              string   `json:"rule"`
	Severity          Severity `json:"severity"`
	Title             string   `json:"title"`
	ImpactSummary     string   `json:"impact_summary"`
	Cause             string   `json:"cause"`
	RecommendedAction string   `json:"recommended_action"`
	TargetRef         string   `json:"target_ref"`
	Rank              int      `json:"rank"`
}

// AlertID composes the deterministic alert id.
func AlertID(rule, target string) string {
	return rule + ":" + target
}
