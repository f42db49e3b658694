package alerts

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/rotation"
)

const today = 14

func profile(id, house string, balance int64, activeToday bool) *domain.ProfileEntity {
	s := rotation.NewSchedule(2024, time.May, domain.DayResting)
	if activeToday {
		s.Days[today] = domain.DayActive
	}
	return &domain.ProfileEntity{
		ID:       id,
		OwnerID:  "owner",
		HouseID:  house,
		Balance:  decimal.NewFromInt(balance),
		Schedule: s,
	}
}

func byRule(items []domain.AlertItem, rule string) []domain.AlertItem {
	var out []domain.AlertItem
	for _, it := range items {
		if it.Rule == rule {
			out = append(out, it)
		}
	}
	return out
}

func TestLowBalance_AggregatesIntoOneAlert(t *testing.T) {
	thresholds := domain.DefaultThresholds()
	thresholds.LowBalanceThreshold = decimal.NewFromInt(450)

	profiles := []*domain.ProfileEntity{
		profile("p1", "h1", 100, true),
		profile("p2", "h1", 500, true),
		profile("p3", "h1", 300, true),
	}

	items := Evaluate(profiles, nil, thresholds, today)

	low := byRule(items, RuleLowBalance)
	require.Len(t, low, 1)
	assert.Equal(t, domain.SeverityCritical, low[0].Severity)
	assert.Contains(t, low[0].ImpactSummary, "2 profiles")
	assert.Equal(t, "p1", low[0].TargetRef)
	assert.Equal(t, "low-balance:p1", low[0].ID)
	assert.Contains(t, low[0].Cause, "p1, p3")
	assert.Equal(t, 1, low[0].Rank)
}

func TestLowBalance_TargetIsLowestID(t *testing.T) {
	thresholds := domain.DefaultThresholds()
	profiles := []*domain.ProfileEntity{
		profile("10", "h1", 1, true),
		profile("9", "h1", 1, true),
		profile("100", "h1", 1, true),
	}

	low := byRule(Evaluate(profiles, nil, thresholds, today), RuleLowBalance)
	require.Len(t, low, 1)
	assert.Equal(t, "9", low[0].TargetRef)
}

func TestUnderstaffed_OnePerHouse(t *testing.T) {
	thresholds := domain.DefaultThresholds()
	thresholds.MinActiveProfilesPerHouse = 3

	houses := []*domain.House{
		{ID: "h1", Name: "North", DistributorID: "d1"},
		{ID: "h2", Name: "South", DistributorID: "d1"},
	}
	profiles := []*domain.ProfileEntity{
		profile("p1", "h1", 1000, true),
		profile("p2", "h1", 1000, false),
		profile("p3", "h2", 1000, true),
		profile("p4", "h2", 1000, true),
		profile("p5", "h2", 1000, true),
	}

	items := Evaluate(profiles, houses, thresholds, today)

	risk := byRule(items, RuleUnderstaffed)
	require.Len(t, risk, 1)
	assert.Equal(t, domain.SeverityRisk, risk[0].Severity)
	assert.Equal(t, "understaffed:h1", risk[0].ID)
	assert.Equal(t, "h1", risk[0].TargetRef)
	assert.Contains(t, risk[0].ImpactSummary, "1 of 3")
}

func TestUnderstaffed_NotAggregated(t *testing.T) {
	thresholds := domain.DefaultThresholds()
	houses := []*domain.House{{ID: "h2"}, {ID: "h1"}, {ID: "h3"}}

	risk := byRule(Evaluate(nil, houses, thresholds, today), RuleUnderstaffed)
	require.Len(t, risk, 3)
	assert.Equal(t, []string{"h1", "h2", "h3"}, []string{risk[0].TargetRef, risk[1].TargetRef, risk[2].TargetRef})
}

func TestUndercapitalized(t *testing.T) {
	thresholds := domain.DefaultThresholds()
	thresholds.MinActiveProfilesPerHouse = 1
	thresholds.MinCapitalPerHouse = decimal.NewFromInt(1000)

	houses := []*domain.House{{ID: "h1"}, {ID: "h2"}}
	profiles := []*domain.ProfileEntity{
		profile("p1", "h1", 600, true),
		profile("p2", "h1", 5000, false),
		profile("p3", "h2", 1200, true),
	}

	fin := byRule(Evaluate(profiles, houses, thresholds, today), RuleUndercapitalized)
	require.Len(t, fin, 1)
	assert.Equal(t, "h1", fin[0].TargetRef)
	assert.Equal(t, domain.SeverityFinance, fin[0].Severity)

	thresholds.MinCapitalPerHouse = decimal.Zero
	assert.Empty(t, byRule(Evaluate(profiles, houses, thresholds, today), RuleUndercapitalized))
}

func TestVolumeShortfall(t *testing.T) {
	engine := NewEngine()
	thresholds := domain.DefaultThresholds()
	thresholds.TargetDailyVolume = decimal.NewFromInt(5000)

	low := decimal.NewFromInt(1200)
	items := byRule(engine.Run(Input{Thresholds: thresholds, TodayIndex: today, TodayVolume: &low}), RuleVolumeShortfall)
	require.Len(t, items, 1)
	assert.Equal(t, "volume-shortfall:today", items[0].ID)
	assert.Contains(t, items[0].Cause, "3800.00")

	enough := decimal.NewFromInt(5000)
	assert.Empty(t, byRule(engine.Run(Input{Thresholds: thresholds, TodayIndex: today, TodayVolume: &enough}), RuleVolumeShortfall))

	assert.Empty(t, byRule(engine.Run(Input{Thresholds: thresholds, TodayIndex: today}), RuleVolumeShortfall))
}

func TestIdleProfiles(t *testing.T) {
	thresholds := domain.DefaultThresholds()
	thresholds.LowBalanceThreshold = decimal.Zero

	later := profile("p1", "h1", 1000, false)
	later.Schedule.Days[today+3] = domain.DayActive
	earlier := profile("p2", "h1", 1000, false)
	earlier.Schedule.Days[today-3] = domain.DayActive

	idle := byRule(Evaluate([]*domain.ProfileEntity{later, earlier}, nil, thresholds, today), RuleIdleProfiles)
	require.Len(t, idle, 1)
	assert.Equal(t, "p2", idle[0].TargetRef)
	assert.Equal(t, domain.SeverityInfo, idle[0].Severity)
	assert.Contains(t, idle[0].ImpactSummary, "1 profile without")
}

func TestEvaluate_ClampsThresholds(t *testing.T) {
	thresholds := domain.ThresholdConfig{
		MinActiveProfilesPerHouse: -4,
		MinCapitalPerHouse:        decimal.NewFromInt(-10),
		LowBalanceThreshold:       decimal.NewFromInt(-1),
		TargetDailyVolume:         decimal.NewFromInt(-5),
	}
	houses := []*domain.House{{ID: "h1"}, {ID: "h2"}}
	profiles := []*domain.ProfileEntity{
		profile("p1", "h1", 0, true),
		profile("p2", "h2", 0, false),
	}

	var items []domain.AlertItem
	require.NotPanics(t, func() { items = Evaluate(profiles, houses, thresholds, today) })

	// Negative minimum behaves as 1: h1 has one active profile, h2 none.
	risk := byRule(items, RuleUnderstaffed)
	require.Len(t, risk, 1)
	assert.Equal(t, "h2", risk[0].TargetRef)

	assert.Empty(t, byRule(items, RuleLowBalance))
	assert.Empty(t, byRule(items, RuleUndercapitalized))
}

func TestEvaluate_RankingOrder(t *testing.T) {
	thresholds := domain.DefaultThresholds()
	thresholds.MinActiveProfilesPerHouse = 1
	volume := decimal.NewFromInt(10)

	houses := []*domain.House{{ID: "h2"}, {ID: "h1"}}
	profiles := []*domain.ProfileEntity{
		profile("p1", "h1", 100, false),
		profile("p2", "h2", 2000, false),
	}

	items := NewEngine().Run(Input{
		Profiles: profiles, Houses: houses, Thresholds: thresholds,
		TodayIndex: today, TodayVolume: &volume,
	})

	got := make([]string, len(items))
	for i, it := range items {
		got[i] = it.ID
		assert.Equal(t, i+1, it.Rank)
	}
	assert.Equal(t, []string{
		"low-balance:p1",
		"understaffed:h1",
		"understaffed:h2",
		"volume-shortfall:today",
		"undercapitalized:h1",
		"undercapitalized:h2",
		"idle-profiles:p1",
	}, got)
}

func TestEvaluate_DeterministicIDs(t *testing.T) {
	thresholds := domain.DefaultThresholds()
	houses := []*domain.House{{ID: "h1"}, {ID: "h2"}}
	profiles := []*domain.ProfileEntity{
		profile("p3", "h2", 100, true),
		profile("p1", "h1", 100, false),
	}

	first := Evaluate(profiles, houses, thresholds, today)
	// Input order must not matter.
	second := Evaluate([]*domain.ProfileEntity{profiles[1], profiles[0]}, []*domain.House{houses[1], houses[0]}, thresholds, today)

	assert.Equal(t, first, second)
}

func TestEvaluate_NoViolations(t *testing.T) {
	thresholds := domain.DefaultThresholds()
	thresholds.MinActiveProfilesPerHouse = 1
	thresholds.MinCapitalPerHouse = decimal.NewFromInt(100)

	items := Evaluate(
		[]*domain.ProfileEntity{profile("p1", "h1", 1000, true)},
		[]*domain.House{{ID: "h1"}},
		thresholds, today,
	)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestEvaluate_NeverPanics(t *testing.T) {
	inputs := []Input{
		{},
		{TodayIndex: -1},
		{TodayIndex: 400},
		{Profiles: []*domain.ProfileEntity{nil, {ID: "p1"}}, Houses: []*domain.House{nil, {ID: "h1"}, {ID: "h1"}}},
		{Profiles: []*domain.ProfileEntity{profile("p1", "h1", 1, true)}, TodayIndex: 40},
	}

	for i, in := range inputs {
		in := in
		t.Run(fmt.Sprintf("input_%d", i), func(t *testing.T) {
			assert.NotPanics(t, func() { NewEngine().Run(in) })
		})
	}
}
