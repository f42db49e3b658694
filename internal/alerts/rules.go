package alerts

import (
	"fmt"
	"strings"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/rotation"
)

// maxListed caps the profile ids spelled out in a cause.
const maxListed = 5

// lowBalance emits one aggregate alert for every profile below the low-balance threshold.
// Profiles arrive sorted, so the first offender is the lowest id.
func lowBalance(in Input) []domain.AlertItem {
	var low []*domain.ProfileEntity
	for _, p := range in.Profiles {
		if p.Balance.LessThan(in.Thresholds.LowBalanceThreshold) {
			low = append(low, p)
		}
	}
	if len(low) == 0 {
		return nil
	}

	target := low[0].ID
	return []domain.AlertItem{{
		ID:            domain.AlertID(RuleLowBalance, target),
		Rule:          RuleLowBalance,
		Severity:      domain.SeverityCritical,
		Title:         "Profiles below minimum balance",
		ImpactSummary: fmt.Sprintf("%d %s below threshold", len(low), plural(len(low), "profile", "profiles")),
		Cause: fmt.Sprintf("Balance under %s on %s",
			in.Thresholds.LowBalanceThreshold.StringFixed(2), listIDs(low)),
		RecommendedAction: "Top up the listed profiles or rest them until funded",
		TargetRef:         target,
	}}
}

// understaffed emits one alert per house with fewer active profiles today than required.
func understaffed(in Input) []domain.AlertItem {
	var items []domain.AlertItem
	required := in.Thresholds.MinActiveProfilesPerHouse

	for _, h := range in.Houses {
		active := rotation.ActiveCountByHouse(in.Profiles, h.ID, in.TodayIndex)
		if active >= required {
			continue
		}
		items = append(items, domain.AlertItem{
			ID:            domain.AlertID(RuleUnderstaffed, h.ID),
			Rule:          RuleUnderstaffed,
			Severity:      domain.SeverityRisk,
			Title:         fmt.Sprintf("House %s understaffed", houseLabel(h)),
			ImpactSummary: fmt.Sprintf("%d of %d required profiles active today", active, required),
			Cause: fmt.Sprintf("Rotation leaves %d active %s in house %s (distributor %s)",
				active, plural(active, "profile", "profiles"), h.ID, orDash(h.DistributorID)),
			RecommendedAction: fmt.Sprintf("Activate %d more %s for today", required-active, plural(required-active, "profile", "profiles")),
			TargetRef:         h.ID,
		})
	}
	return items
}

// undercapitalized emits one alert per house whose active capital today is below the minimum.
// A zero minimum disables the rule.
func undercapitalized(in Input) []domain.AlertItem {
	required := in.Thresholds.MinCapitalPerHouse
	if !required.IsPositive() {
		return nil
	}

	var items []domain.AlertItem
	for _, h := range in.Houses {
		capital := rotation.ActiveCapitalByHouse(in.Profiles, h.ID, in.TodayIndex)
		if !capital.LessThan(required) {
			continue
		}
		items = append(items, domain.AlertItem{
			ID:                domain.AlertID(RuleUndercapitalized, h.ID),
			Rule:              RuleUndercapitalized,
			Severity:          domain.SeverityFinance,
			Title:             fmt.Sprintf("House %s undercapitalized", houseLabel(h)),
			ImpactSummary:     fmt.Sprintf("Active capital %s of %s required", capital.StringFixed(2), required.StringFixed(2)),
			Cause:             fmt.Sprintf("Balances of profiles active today in house %s sum below the minimum", h.ID),
			RecommendedAction: "Fund active profiles or rotate in better funded ones",
			TargetRef:         h.ID,
		})
	}
	return items
}

// volumeShortfall emits one alert when today's stake is below the daily target.
func volumeShortfall(in Input) []domain.AlertItem {
	target := in.Thresholds.TargetDailyVolume
	if in.TodayVolume == nil || !target.IsPositive() {
		return nil
	}
	volume := *in.TodayVolume
	if !volume.LessThan(target) {
		return nil
	}

	return []domain.AlertItem{{
		ID:                domain.AlertID(RuleVolumeShortfall, TargetToday),
		Rule:              RuleVolumeShortfall,
		Severity:          domain.SeverityExecution,
		Title:             "Daily volume behind target",
		ImpactSummary:     fmt.Sprintf("Volume %s of %s target", volume.StringFixed(2), target.StringFixed(2)),
		Cause:             fmt.Sprintf("Stake placed today is %s short", target.Sub(volume).StringFixed(2)),
		RecommendedAction: "Increase operation count on active profiles",
		TargetRef:         TargetToday,
	}}
}

// idleProfiles emits one aggregate alert for profiles with no ACTIVE day left this month.
func idleProfiles(in Input) []domain.AlertItem {
	if in.TodayIndex < 0 {
		return nil
	}

	var idle []*domain.ProfileEntity
	for _, p := range in.Profiles {
		if in.TodayIndex < len(p.Schedule.Days) && !rotation.ActiveFrom(p.Schedule, in.TodayIndex) {
			idle = append(idle, p)
		}
	}
	if len(idle) == 0 {
		return nil
	}

	target := idle[0].ID
	return []domain.AlertItem{{
		ID:                domain.AlertID(RuleIdleProfiles, target),
		Rule:              RuleIdleProfiles,
		Severity:          domain.SeverityInfo,
		Title:             "Profiles idle for the rest of the month",
		ImpactSummary:     fmt.Sprintf("%d %s without active days left", len(idle), plural(len(idle), "profile", "profiles")),
		Cause:             fmt.Sprintf("No ACTIVE day scheduled from today on for %s", listIDs(idle)),
		RecommendedAction: "Schedule active days or deprovision the profiles",
		TargetRef:         target,
	}}
}

func listIDs(profiles []*domain.ProfileEntity) string {
	ids := make([]string, 0, maxListed)
	for i, p := range profiles {
		if i == maxListed {
			break
		}
		ids = append(ids, p.ID)
	}
	s := strings.Join(ids, ", ")
	if extra := len(profiles) - len(ids); extra > 0 {
		s += fmt.Sprintf(" and %d more", extra)
	}
	return s
}

func houseLabel(h *domain.House) string {
	if h.Name != "" {
		return h.Name
	}
	return h.ID
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
