package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrichard23/connectedin/internal/data/cryptoutil"
	"github.com/johnrichard23/connectedin/internal/domain/session"
	"github.com/johnrichard23/connectedin/internal/testutil"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	return testutil.SetupTestRedis(t)
}

func TestProfileStore_SaveAndLoad(t *testing.T) {
	client := setupTestRedis(t)
	store := NewProfileStore(client)
	ctx := context.Background()

	first := "Maria"
	profile := session.UserProfile{
		LocalID:   42,
		Email:     "maria@example.com",
		FirstName: &first,
		Role:      &session.UserRole{ID: 42, Email: "maria@example.com", RoleName: "church"},
	}
	require.NoError(t, store.Save(ctx, profile))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, profile, *loaded)

	ttl, err := client.TTL(ctx, DefaultKeyPrefix+profileKey).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(-1), ttl, "profile key must not expire")
}

func TestProfileStore_LoadMissing(t *testing.T) {
	store := NewProfileStore(setupTestRedis(t))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestProfileStore_LoadCorrupt(t *testing.T) {
	client := setupTestRedis(t)
	store := NewProfileStore(client)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, DefaultKeyPrefix+profileKey, "{not json", 0).Err())
	_, err := store.Load(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal profile")
}

func TestProfileStore_Clear(t *testing.T) {
	store := NewProfileStore(setupTestRedis(t))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, session.UserProfile{Email: "a@example.com"}))
	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestProfileStore_Onboarding(t *testing.T) {
	store := NewProfileStore(setupTestRedis(t))
	ctx := context.Background()

	done, err := store.HasCompletedOnboarding(ctx)
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, store.SetCompletedOnboarding(ctx, true))
	done, err = store.HasCompletedOnboarding(ctx)
	require.NoError(t, err)
	assert.True(t, done)

	require.NoError(t, store.SetCompletedOnboarding(ctx, false))
	done, err = store.HasCompletedOnboarding(ctx)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestProfileStore_PrefixIsolation(t *testing.T) {
	client := setupTestRedis(t)
	a := NewProfileStoreWithPrefix(client, "device-a:")
	b := NewProfileStoreWithPrefix(client, "device-b:")
	ctx := context.Background()

	require.NoError(t, a.Save(ctx, session.UserProfile{Email: "a@example.com"}))
	require.NoError(t, a.SetCompletedOnboarding(ctx, true))

	loaded, err := b.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, loaded)

	done, err := b.HasCompletedOnboarding(ctx)
	require.NoError(t, err)
	assert.False(t, done)
}

func TestProfileStore_SealedAtRest(t *testing.T) {
	client := setupTestRedis(t)
	sealer, err := cryptoutil.NewAESGCM(make([]byte, cryptoutil.KeySize))
	require.NoError(t, err)
	ctx := context.Background()

	plain := NewProfileStoreWithPrefix(client, "p:")
	require.NoError(t, plain.Save(ctx, session.UserProfile{LocalID: 1, Email: "legacy@example.com"}))

	store := NewProfileStoreWithOptions(client, ProfileStoreOptions{Prefix: "p:", Sealer: sealer})

	legacy, err := store.Load(ctx)
	require.NoError(t, err, "plain records written before sealing stay readable")
	require.NotNil(t, legacy)
	assert.Equal(t, "legacy@example.com", legacy.Email)

	profile := session.UserProfile{LocalID: 7, Email: "maria@example.com"}
	require.NoError(t, store.Save(ctx, profile))

	raw, err := client.Get(ctx, "p:"+profileKey).Bytes()
	require.NoError(t, err)
	assert.True(t, cryptoutil.IsSealed(raw))
	assert.NotContains(t, string(raw), "maria")

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, profile, *loaded)

	_, err = plain.Load(ctx)
	require.Error(t, err, "a store without the key cannot read sealed records")
}
