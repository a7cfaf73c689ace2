//go:build integration
// +build integration

package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/testdesk/internal/model"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(ctx context.Context, t *testing.T) *redis.Client {
	t.Helper()
	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = redisC.Terminate(context.Background()) })

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = rdb.Close() })
	require.NoError(t, rdb.Ping(ctx).Err())
	return rdb
}

func TestSnapshotRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewSnapshotRepository(startRedis(ctx, t))

	got, err := repo.Load(ctx, "42")
	require.NoError(t, err)
	require.Nil(t, got)

	tests := []model.Test{
		{ID: 1, Name: "Quiz", OwnerChatID: "42", TestCount: 2, IsActive: true,
			Answers: model.NewAnswerList([]string{"A", "B"})},
	}
	require.NoError(t, repo.Save(ctx, "42", tests))

	got, err = repo.Load(ctx, "42")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, []string{"A", "B"}, got[0].Answers.Values())

	require.NoError(t, repo.Save(ctx, "42", nil))
	got, err = repo.Load(ctx, "42")
	require.NoError(t, err)
	require.Empty(t, got)

	require.NoError(t, repo.Delete(ctx, "42"))
	got, err = repo.Load(ctx, "42")
	require.NoError(t, err)
	require.Nil(t, got)
}
