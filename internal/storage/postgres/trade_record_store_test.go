package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ops-analytics/internal/domain"
	"ops-analytics/internal/storage"
)

func createTestTradeRecord(id, date string, outcome domain.Outcome, createdAt int64) *domain.TradeRecord {
	d, _ := domain.ParseDay(date)
	stake := decimal.RequireFromString("125.50")
	odds := decimal.RequireFromString("1.85")
	return &domain.TradeRecord{
		ID:          id,
		Date:        d,
		Category:    domain.CategorySports,
		Counterpart: "bet365",
		Market:      "1X2",
		Stake:       stake,
		Odds:        odds,
		Outcome:     outcome,
		Profit:      domain.SettleProfit(stake, odds, outcome),
		CreatedAt:   time.Unix(createdAt, 0).UTC(),
	}
}

func TestTradeRecordStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeRecordStore(pool)

	trade := createTestTradeRecord("trade-001", "2024-05-03", domain.OutcomeWin, 1000)
	require.NoError(t, store.Insert(ctx, trade))

	retrieved, err := store.GetByID(ctx, "trade-001")
	require.NoError(t, err)

	assert.Equal(t, trade.ID, retrieved.ID)
	assert.True(t, trade.Date.Equal(retrieved.Date))
	assert.Equal(t, trade.Category, retrieved.Category)
	assert.Equal(t, trade.Counterpart, retrieved.Counterpart)
	assert.Equal(t, trade.Market, retrieved.Market)
	assert.True(t, trade.Stake.Equal(retrieved.Stake), "stake %s", retrieved.Stake)
	assert.True(t, trade.Odds.Equal(retrieved.Odds), "odds %s", retrieved.Odds)
	assert.Equal(t, trade.Outcome, retrieved.Outcome)
	assert.True(t, trade.Profit.Equal(retrieved.Profit), "profit %s", retrieved.Profit)
	assert.True(t, trade.CreatedAt.Equal(retrieved.CreatedAt))
}

func TestTradeRecordStore_DuplicateFact(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeRecordStore(pool)

	trade := createTestTradeRecord("trade-001", "2024-05-03", domain.OutcomePending, 1000)
	require.NoError(t, store.Insert(ctx, trade))

	err := store.Insert(ctx, trade)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTradeRecordStore_LatestFactWins(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeRecordStore(pool)

	require.NoError(t, store.InsertBulk(ctx, []*domain.TradeRecord{
		createTestTradeRecord("trade-001", "2024-05-03", domain.OutcomePending, 1000),
		createTestTradeRecord("trade-001", "2024-05-03", domain.OutcomeLoss, 2000),
		createTestTradeRecord("trade-002", "2024-05-01", domain.OutcomeWin, 1500),
	}))

	got, err := store.GetByID(ctx, "trade-001")
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeLoss, got.Outcome)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "trade-002", all[0].ID)
	assert.Equal(t, "trade-001", all[1].ID)
	assert.Equal(t, domain.OutcomeLoss, all[1].Outcome)
}

func TestTradeRecordStore_InsertBulkRollsBack(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeRecordStore(pool)

	dup := createTestTradeRecord("trade-001", "2024-05-03", domain.OutcomeWin, 1000)
	err := store.InsertBulk(ctx, []*domain.TradeRecord{
		createTestTradeRecord("trade-000", "2024-05-02", domain.OutcomeWin, 1000),
		dup,
		dup,
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestTradeRecordStore_GetByDateRange(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewTradeRecordStore(pool)

	require.NoError(t, store.InsertBulk(ctx, []*domain.TradeRecord{
		createTestTradeRecord("t1", "2024-04-30", domain.OutcomeWin, 1),
		createTestTradeRecord("t2", "2024-05-01", domain.OutcomeWin, 1),
		createTestTradeRecord("t3", "2024-05-10", domain.OutcomeLoss, 1),
		createTestTradeRecord("t4", "2024-05-11", domain.OutcomeWin, 1),
	}))

	start, _ := domain.ParseDay("2024-05-01")
	end, _ := domain.ParseDay("2024-05-10")
	got, err := store.GetByDateRange(ctx, start, end)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "t2", got[0].ID)
	assert.Equal(t, "t3", got[1].ID)
}

func TestTradeRecordStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewTradeRecordStore(pool).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
