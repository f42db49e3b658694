package alerts

import (
	"sort"
	"strconv"

	"ops-analytics/internal/domain"
)

// rule is a pure predicate over current state producing zero or more alerts.
type rule func(in Input) []domain.AlertItem

// Engine evaluates alert rules.
type Engine struct {
	rules []rule
}

// NewEngine creates an engine with the default rule set.
func NewEngine() *Engine {
	return &Engine{
		rules: []rule{
			lowBalance,
			understaffed,
			undercapitalized,
			volumeShortfall,
			idleProfiles,
		},
	}
}

// Evaluate runs every rule against the given state and returns ranked alerts.
func Evaluate(profiles []*domain.ProfileEntity, houses []*domain.House, thresholds domain.ThresholdConfig, todayIndex int) []domain.AlertItem {
	return NewEngine().Run(Input{
		Profiles:   profiles,
		Houses:     houses,
		Thresholds: thresholds,
		TodayIndex: todayIndex,
	})
}

// Run recomputes the full alert set from in. It keeps no state between calls.
// Thresholds are clamped to their minimums; nil profiles and houses are skipped.
// The result is never nil.
func (e *Engine) Run(in Input) []domain.AlertItem {
	in.Thresholds = in.Thresholds.Clamp()
	in.Profiles = compactProfiles(in.Profiles)
	in.Houses = compactHouses(in.Houses)

	items := []domain.AlertItem{}
	for _, r := range e.rules {
		items = append(items, r(in)...)
	}

	Rank(items)
	return items
}

// Rank orders items by severity, then rule, then target, and assigns 1-based ranks.
func Rank(items []domain.AlertItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if pa, pb := a.Severity.Priority(), b.Severity.Priority(); pa != pb {
			return pa < pb
		}
		if ra, rb := ruleRank(a.Rule), ruleRank(b.Rule); ra != rb {
			return ra < rb
		}
		return lessID(a.TargetRef, b.TargetRef)
	})
	for i := range items {
		items[i].Rank = i + 1
	}
}

func ruleRank(name string) int {
	if r, ok := ruleOrder[name]; ok {
		return r
	}
	return len(ruleOrder)
}

// lessID orders ids numerically when both are integers, lexically otherwise.
func lessID(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil && na != nb {
		return na < nb
	}
	return a < b
}

func compactProfiles(profiles []*domain.ProfileEntity) []*domain.ProfileEntity {
	out := make([]*domain.ProfileEntity, 0, len(profiles))
	for _, p := range profiles {
		if p != nil && p.ID != "" {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out
}

// compactHouses drops nil and duplicate houses (first wins) and orders by id.
func compactHouses(houses []*domain.House) []*domain.House {
	seen := make(map[string]bool, len(houses))
	out := make([]*domain.House, 0, len(houses))
	for _, h := range houses {
		if h == nil || h.ID == "" || seen[h.ID] {
			continue
		}
		seen[h.ID] = true
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool { return lessID(out[i].ID, out[j].ID) })
	return out
}
