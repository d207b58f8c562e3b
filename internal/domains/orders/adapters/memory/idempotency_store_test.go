package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seboge-Atlegang/part3Cloud/internal/domains/orders/ports"
)

func TestIdempotencyStore_PurgeBefore(t *testing.T) {
	store := NewIdempotencyStore()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	store.now = func() time.Time { return base }
	_, err := store.Save(ctx, ports.IdempotencyRecord{Key: "old", RequestHash: "h1", OrderID: "o-1"})
	require.NoError(t, err)
	store.now = func() time.Time { return base.Add(48 * time.Hour) }
	_, err = store.Save(ctx, ports.IdempotencyRecord{Key: "fresh", RequestHash: "h2", OrderID: "o-2"})
	require.NoError(t, err)

	purged, err := store.PurgeBefore(ctx, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	gone, err := store.Get(ctx, "old")
	require.NoError(t, err)
	assert.Nil(t, gone)
	kept, err := store.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "o-2", kept.OrderID)
}

func TestIdempotencyStore_ForgetOnlyMatchingOrder(t *testing.T) {
	store := NewIdempotencyStore()
	ctx := context.Background()
	_, err := store.Save(ctx, ports.IdempotencyRecord{Key: "k", RequestHash: "h1", OrderID: "o-2"})
	require.NoError(t, err)

	require.NoError(t, store.Forget(ctx, "k", "o-1"))
	kept, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.NotNil(t, kept)

	require.NoError(t, store.Forget(ctx, "k", "o-2"))
	gone, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Nil(t, gone)
}
