package data

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrichard23/connectedin/internal/testutil"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func TestRedisCacheRepo_Set_Get_Delete(t *testing.T) {
	client := setupTestRedis(t)
	repo := NewRedisCacheRepo(client, "test:")
	ctx := context.Background()

	t.Run("set and get", func(t *testing.T) {
		value := []byte(`{"churches":[]}`)
		ttl := 5 * time.Minute

		require.NoError(t, repo.Set(ctx, "churches:list", value, ttl))

		result, err := repo.Get(ctx, "churches:list")
		require.NoError(t, err)
		assert.Equal(t, value, result)

		actualTTL := client.TTL(ctx, "test:churches:list").Val()
		assert.True(t, actualTTL > 0 && actualTTL <= ttl, "ttl %s", actualTTL)
	})

	t.Run("get missing key", func(t *testing.T) {
		result, err := repo.Get(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Set(ctx, "to-delete", []byte("x"), 0))

		deleted, err := repo.Delete(ctx, "to-delete")
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = repo.Delete(ctx, "to-delete")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("health", func(t *testing.T) {
		assert.NoError(t, repo.Health(ctx))
	})
}

func TestRedisCacheRepo_Validation(t *testing.T) {
	repo := NewRedisCacheRepo(setupTestRedis(t), "test:")
	ctx := context.Background()

	assert.ErrorIs(t, repo.Set(ctx, "", []byte("x"), time.Minute), errEmptyKey)

	_, err := repo.Get(ctx, "")
	assert.ErrorIs(t, err, errEmptyKey)

	_, err = repo.Delete(ctx, "")
	assert.ErrorIs(t, err, errEmptyKey)
}

func TestRedisCacheRepo_Unavailable(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	repo := NewRedisCacheRepo(client, "test:")
	ctx := context.Background()

	_, err := repo.Get(ctx, "k")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis get")
	assert.Error(t, repo.Health(ctx))
}
