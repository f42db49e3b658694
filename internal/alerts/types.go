package alerts

import (
	"github.com/shopspring/decimal"

	"ops-analytics/internal/domain"
)

// Rule names. They prefix alert ids, so they must stay stable.
const (
	RuleLowBalance       = "low-balance"
	RuleUnderstaffed     = "understaffed"
	RuleUndercapitalized = "undercapitalized"
	RuleVolumeShortfall  = "volume-shortfall"
	RuleIdleProfiles     = "idle-profiles"
)

// ruleOrder is the default ranking order inside one severity.
var ruleOrder = map[string]int{
	RuleLowBalance:       0,
	RuleUnderstaffed:     1,
	RuleUndercapitalized: 2,
	RuleVolumeShortfall:  3,
	RuleIdleProfiles:     4,
}

// TargetToday is the target of alerts about the whole operation today.
const TargetToday = "today"

// Input is the live state one evaluation pass runs against.
type Input struct {
	Profiles   []*domain.ProfileEntity
	Houses     []*domain.House
	Thresholds domain.ThresholdConfig
	TodayIndex int

	// TodayVolume is the total stake placed today. Nil disables the volume rule.
	TodayVolume *decimal.Decimal
}
