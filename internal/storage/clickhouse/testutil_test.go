package clickhouse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"ops-analytics/internal/storage/migrations"
	"ops-analytics/internal/storage/storagetest"
)

// setupTestDB returns a connection to a migrated database.
func setupTestDB(t *testing.T) (*Conn, func()) {
	t.Helper()
	ctx := context.Background()

	conn, err := NewConn(ctx, storagetest.Clickhouse(t))
	require.NoError(t, err)
	require.NoError(t, migrations.Clickhouse(ctx, conn))

	return conn, func() { _ = conn.Close() }
}
