//go:build integration

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRedisIdempotencyStore(t *testing.T) {
	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "")
	require.NoError(t, err)
	store := NewRedisIdempotencyStore(redis.NewClient(&redis.Options{Addr: endpoint}), "test:")
	defer store.Close()

	isNew, err := store.MarkProcessed(ctx, "key", time.Minute)
	require.NoError(t, err)
	assert.True(t, isNew)
	isNew, err = store.MarkProcessed(ctx, "key", time.Minute)
	require.NoError(t, err)
	assert.False(t, isNew)

	_, found, err := store.LoadResponse(ctx, "key")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.SaveResponse(ctx, "key", []byte("done"), time.Minute))
	got, found, err := store.LoadResponse(ctx, "key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "done", string(got))

	require.NoError(t, store.Forget(ctx, "key"))
	claimed, err := store.IsProcessed(ctx, "key")
	require.NoError(t, err)
	assert.False(t, claimed)
}
