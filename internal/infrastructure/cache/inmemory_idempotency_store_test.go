package cache

import (
	"context"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_Claim(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	t.Run("first claim wins", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "POST /payments:key-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, "POST /payments:key-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew, "a claimed key cannot be claimed again")

		claimed, err := store.IsProcessed(ctx, "POST /payments:key-1")
		require.NoError(t, err)
		assert.True(t, claimed)
	})

	t.Run("expired claims can be retaken", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "short", 10*time.Millisecond)
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)

		claimed, err := store.IsProcessed(ctx, "short")
		require.NoError(t, err)
		assert.False(t, claimed)

		isNew, err := store.MarkProcessed(ctx, "short", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("forget releases a claim", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "failed", time.Hour)
		require.NoError(t, err)
		require.NoError(t, store.Forget(ctx, "failed"))

		isNew, err := store.MarkProcessed(ctx, "failed", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})
}

func TestInMemoryIdempotencyStore_Responses(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	_, err := store.MarkProcessed(ctx, "key", time.Hour)
	require.NoError(t, err)

	_, found, err := store.LoadResponse(ctx, "key")
	require.NoError(t, err)
	assert.False(t, found, "a pending claim has no response yet")

	body := []byte(`{"status":201}`)
	require.NoError(t, store.SaveResponse(ctx, "key", body, time.Hour))
	body[0] = 'x'

	got, found, err := store.LoadResponse(ctx, "key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"status":201}`, string(got), "the stored copy is independent of the caller's slice")

	isNew, err := store.MarkProcessed(ctx, "key", time.Hour)
	require.NoError(t, err)
	assert.False(t, isNew)
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	store.MarkProcessed(ctx, "short-lived-1", 10*time.Millisecond)
	store.MarkProcessed(ctx, "short-lived-2", 10*time.Millisecond)
	store.MarkProcessed(ctx, "long-lived", time.Hour)
	assert.Equal(t, 3, store.Size())

	time.Sleep(20 * time.Millisecond)
	store.cleanup()

	assert.Equal(t, 1, store.Size())
}

func TestInMemoryIdempotencyStore_ConcurrentClaims(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	const workers = 100
	results := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		go func() {
			isNew, err := store.MarkProcessed(ctx, "concurrent", time.Hour)
			results <- err == nil && isNew
		}()
	}

	winners := 0
	for i := 0; i < workers; i++ {
		if <-results {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestIdempotencyStoreFactory(t *testing.T) {
	t.Run("memory backend", func(t *testing.T) {
		store, err := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: "memory"}).CreateStore()
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("redis without client falls back", func(t *testing.T) {
		store, err := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: "redis"}).CreateStore()
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &InMemoryIdempotencyStore{}, store)
	})

	t.Run("redis without client and no fallback", func(t *testing.T) {
		_, err := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: "redis"}, WithInMemoryFallback(false)).CreateStore()
		assert.Error(t, err)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := NewIdempotencyStoreFactory(config.IdempotencyConfig{Backend: "disk"}).CreateStore()
		assert.Error(t, err)
	})
}
