package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"ops-analytics/internal/storage/migrations"
	"ops-analytics/internal/storage/storagetest"
)

// setupTestDB returns a pool on a fresh migrated database.
func setupTestDB(t *testing.T) (*Pool, func()) {
	t.Helper()
	ctx := context.Background()

	pool, err := NewPool(ctx, storagetest.Postgres(t))
	require.NoError(t, err)
	require.NoError(t, migrations.Postgres(ctx, pool))

	return pool, pool.Close
}
