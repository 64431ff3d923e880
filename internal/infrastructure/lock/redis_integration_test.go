//go:build integration

package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
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
	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestRedisLocker(t *testing.T) {
	client := newRedis(t)
	first := NewRedisLocker(client, 100*time.Millisecond, 5*time.Second, nil)
	second := NewRedisLocker(client, 100*time.Millisecond, 5*time.Second, nil)
	ctx := context.Background()

	release, err := first.Acquire(ctx, "document:42")
	require.NoError(t, err)

	_, err = second.Acquire(ctx, "document:42")
	assert.True(t, errors.Is(err, shared.ErrLockTimeout), "got %v", err)

	release()
	release2, err := second.Acquire(ctx, "document:42")
	require.NoError(t, err)
	release2()
}
