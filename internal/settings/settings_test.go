package settings

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestRedisSettings(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedis(client)
	ctx := context.Background()

	// A missing key is an empty string, not an error.
	value, err := store.Get(ctx, KeyThisStoreID)
	require.NoError(t, err)
	require.Empty(t, value)

	require.NoError(t, store.Set(ctx, KeyThisStoreID, "store1"))
	value, err = store.Get(ctx, KeyThisStoreID)
	require.NoError(t, err)
	require.Equal(t, "store1", value)

	// Keys are namespaced so unrelated redis state stays untouched.
	require.NoError(t, mr.Set("ThisStoreID", "someone-else"))
	value, err = store.Get(ctx, KeyThisStoreID)
	require.NoError(t, err)
	require.Equal(t, "store1", value)

	require.NoError(t, store.Delete(ctx, KeyThisStoreID))
	value, err = store.Get(ctx, KeyThisStoreID)
	require.NoError(t, err)
	require.Empty(t, value)

	// Deleting a missing key is a no-op.
	require.NoError(t, store.Delete(ctx, KeyThisStoreID))
}

func TestMemorySettings(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	value, err := store.Get(ctx, KeySyncURL)
	require.NoError(t, err)
	require.Empty(t, value)

	require.NoError(t, store.Set(ctx, KeySyncURL, "https://sync.example.com"))
	value, err = store.Get(ctx, KeySyncURL)
	require.NoError(t, err)
	require.Equal(t, "https://sync.example.com", value)

	require.NoError(t, store.Delete(ctx, KeySyncURL))
	value, err = store.Get(ctx, KeySyncURL)
	require.NoError(t, err)
	require.Empty(t, value)
}
