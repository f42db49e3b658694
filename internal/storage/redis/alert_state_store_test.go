package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ops-analytics/internal/storage/storagetest"
)

// setupTestRedis returns a store on a fresh Redis container.
func setupTestRedis(t *testing.T) (*AlertStateStore, func()) {
	t.Helper()

	client, err := NewClient(context.Background(), storagetest.Redis(t))
	require.NoError(t, err)

	return NewAlertStateStore(client, "test:alerts:"), func() { _ = client.Close() }
}

func TestAlertStateStore_ReadAndExpand(t *testing.T) {
	store, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, store.MarkRead(ctx, "low-balance:p1", "understaffed:h1"))
	require.NoError(t, store.MarkUnread(ctx, "low-balance:p1"))
	require.NoError(t, store.SetExpanded(ctx, "understaffed:h1", true))
	require.NoError(t, store.SetExpanded(ctx, "understaffed:h2", true))
	require.NoError(t, store.SetExpanded(ctx, "understaffed:h2", false))

	read, expanded, err := store.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"understaffed:h1": true}, read)
	assert.Equal(t, map[string]bool{"understaffed:h1": true}, expanded)
}

func TestAlertStateStore_Retain(t *testing.T) {
	store, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()

	require.NoError(t, store.MarkRead(ctx, "a:1", "a:2", "a:3"))
	require.NoError(t, store.SetExpanded(ctx, "a:2", true))
	require.NoError(t, store.SetExpanded(ctx, "a:3", true))

	require.NoError(t, store.Retain(ctx, []string{"a:2", "a:9"}))

	read, expanded, err := store.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a:2": true}, read)
	assert.Equal(t, map[string]bool{"a:2": true}, expanded)

	require.NoError(t, store.Retain(ctx, nil))
	read, expanded, err = store.State(ctx)
	require.NoError(t, err)
	assert.Empty(t, read)
	assert.Empty(t, expanded)
}
