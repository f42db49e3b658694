package domain

import "github.com/shopspring/decimal"

// ThresholdConfig holds operator-tunable alert limits. Last value wins.
type ThresholdConfig struct {
	MinActiveProfilesPerHouse int             `yaml:"min_active_profiles_per_house" json:"min_active_profiles_per_house"`
	MinCapitalPerHouse        decimal.Decimal `yaml:"min_capital_per_house" json:"min_capital_per_house"`
	LowBalanceThreshold       decimal.Decimal `yaml:"low_balance_threshold" json:"low_balance_threshold"`
	TargetDailyVolume         decimal.Decimal `yaml:"target_daily_volume" json:"target_daily_volume"`
}

// DefaultThresholds returns the thresholds used when none are configured.
func DefaultThresholds() ThresholdConfig {
	return ThresholdConfig{
		MinActiveProfilesPerHouse: 3,
		MinCapitalPerHouse:        decimal.NewFromInt(1000),
		LowBalanceThreshold:       decimal.NewFromInt(450),
		TargetDailyVolume:         decimal.NewFromInt(5000),
	}
}

// Clamp forces every value to its documented minimum.
// MinActiveProfilesPerHouse >= 1, money thresholds >= 0.
func (c ThresholdConfig) Clamp() ThresholdConfig {
	if c.MinActiveProfilesPerHouse < 1 {
		c.MinActiveProfilesPerHouse = 1
	}
	if c.MinCapitalPerHouse.IsNegative() {
		c.MinCapitalPerHouse = decimal.Zero
	}
	if c.LowBalanceThreshold.IsNegative() {
		c.LowBalanceThreshold = decimal.Zero
	}
	if c.TargetDailyVolume.IsNegative() {
		c.TargetDailyVolume = decimal.Zero
	}
	return c
}
