package feed

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/idhash"
	"ops-analytics/internal/rotation"
	"ops-analytics/internal/storage"
)

// Fixtures is a deterministic demo dataset anchored on a given day.
type Fixtures struct {
	Houses   []*domain.House
	Profiles []*domain.ProfileEntity
	Trades   []*domain.TradeRecord
}

var (
	fixtureCounterparts = []string{"bet365", "pinnacle", "betfair", "stake"}
	fixtureMarkets      = []string{"1x2", "over-under", "handicap", "live", "outright"}
)

// BuildFixtures generates houses, profiles with cyclic rotas for the month of now,
// and a ledger covering the previous 45 days. The last two days carry open trades.
func BuildFixtures(now time.Time) Fixtures {
	today := domain.Day(now)

	houses := []*domain.House{
		{ID: "h1", Name: "North Book", DistributorID: "d1"},
		{ID: "h2", Name: "South Book", DistributorID: "d1"},
		{ID: "h3", Name: "Exchange Desk", DistributorID: "d2"},
	}

	var profiles []*domain.ProfileEntity
	for i := 0; i < 9; i++ {
		profiles = append(profiles, &domain.ProfileEntity{
			ID:       fmt.Sprintf("p%d", i+1),
			OwnerID:  fmt.Sprintf("o%d", i%4+1),
			HouseID:  houses[i%len(houses)].ID,
			Balance:  decimal.NewFromInt(int64(200 + 150*i)),
			AvgStake: decimal.NewFromInt(int64(20 + 5*i)),
			Schedule: rotation.GenerateSchedule(today.Year(), today.Month(), 4+i%2, 2+i%3, i),
		})
	}

	var trades []*domain.TradeRecord
	start := today.AddDate(0, 0, -45)
	createdAt := start.Add(12 * time.Hour)
	seq := 0
	for day := start; !day.After(today); day = day.AddDate(0, 0, 1) {
		perDay := 1 + day.Day()%3
		for k := 0; k < perDay; k++ {
			n := seq
			seq++

			stake := decimal.NewFromInt(int64(25 + (n*37)%175))
			odds := decimal.NewFromInt(int64(150 + (n*53)%250)).Div(decimal.NewFromInt(100))
			outcome := domain.OutcomeLoss
			if n%5 == 0 || n%5 == 2 || n%7 == 3 {
				outcome = domain.OutcomeWin
			}
			if today.Sub(day) < 48*time.Hour && k == 0 {
				outcome = domain.OutcomePending
			}

			counterpart := fixtureCounterparts[n%len(fixtureCounterparts)]
			market := fixtureMarkets[(n/2)%len(fixtureMarkets)]
			category := domain.Categories[n%len(domain.Categories)]
			placed := createdAt.Add(time.Duration(n) * time.Minute)
			trades = append(trades, &domain.TradeRecord{
				ID:          idhash.ImportTradeID(counterpart, market, string(category), day, stake, odds, placed),
				Date:        day,
				Category:    category,
				Counterpart: counterpart,
				Market:      market,
				Stake:       stake,
				Odds:        odds,
				Outcome:     outcome,
				Profit:      domain.SettleProfit(stake, odds, outcome),
				CreatedAt:   placed,
			})
		}
	}

	return Fixtures{Houses: houses, Profiles: profiles, Trades: trades}
}

// LoadFixtures writes the demo dataset into the stores.
func LoadFixtures(ctx context.Context, trades storage.TradeRecordStore, dir storage.Directory, now time.Time) (Fixtures, error) {
	fx := BuildFixtures(now)

	for _, h := range fx.Houses {
		if err := dir.Houses.Upsert(ctx, h); err != nil {
			return fx, fmt.Errorf("upsert house %s: %w", h.ID, err)
		}
	}
	for _, p := range fx.Profiles {
		if err := dir.Profiles.Upsert(ctx, p); err != nil {
			return fx, fmt.Errorf("upsert profile %s: %w", p.ID, err)
		}
	}
	if err := trades.InsertBulk(ctx, fx.Trades); err != nil {
		return fx, fmt.Errorf("insert trades: %w", err)
	}
	return fx, nil
}
