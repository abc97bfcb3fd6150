package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/johnrichard23/connectedin/internal/domain/model"
	apperrors "github.com/johnrichard23/connectedin/internal/errors"
	"github.com/johnrichard23/connectedin/internal/mocks"
)

type churchFixture struct {
	svc   *ChurchService
	repo  *mocks.MockChurchRepository
	cache *mocks.MockCacheRepository
}

func newChurchFixture(t *testing.T, withCache bool) churchFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := churchFixture{repo: mocks.NewMockChurchRepository(ctrl)}
	opts := ChurchServiceOptions{
		Repo:   f.repo,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	if withCache {
		f.cache = mocks.NewMockCacheRepository(ctrl)
		opts.Cache = ChurchCacheOptions{Repo: f.cache, TTL: time.Minute}
	}
	f.svc = NewChurchService(opts)
	return f
}

func TestNewChurchService_RequiresRepo(t *testing.T) {
	assert.Panics(t, func() { NewChurchService(ChurchServiceOptions{}) })
}

func TestChurchService_ListWithoutCache(t *testing.T) {
	f := newChurchFixture(t, false)
	ctx := context.Background()
	want := []*model.Church{{ID: "1", Name: "Grace"}}

	f.repo.EXPECT().List(ctx).Return(want, nil)

	got, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestChurchService_ListCacheMissStores(t *testing.T) {
	f := newChurchFixture(t, true)
	ctx := context.Background()
	want := []*model.Church{{ID: "1", Name: "Grace", Photos: []string{}}}
	encoded, err := json.Marshal(want)
	require.NoError(t, err)

	gomock.InOrder(
		f.cache.EXPECT().Get(ctx, churchListCacheKey).Return(nil, nil),
		f.repo.EXPECT().List(ctx).Return(want, nil),
		f.cache.EXPECT().Set(ctx, churchListCacheKey, encoded, time.Minute).Return(nil),
	)

	got, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestChurchService_ListCacheHit(t *testing.T) {
	f := newChurchFixture(t, true)
	ctx := context.Background()

	f.cache.EXPECT().Get(ctx, churchListCacheKey).Return([]byte(`[{"id":"1","name":"Grace"}]`), nil)

	got, err := f.svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Grace", got[0].Name)
}

func TestChurchService_ListCacheFailuresAreBypassed(t *testing.T) {
	f := newChurchFixture(t, true)
	ctx := context.Background()
	want := []*model.Church{{ID: "1"}}

	f.cache.EXPECT().Get(ctx, churchListCacheKey).Return(nil, errors.New("connection refused"))
	f.repo.EXPECT().List(ctx).Return(want, nil)
	f.cache.EXPECT().Set(ctx, churchListCacheKey, gomock.Any(), time.Minute).Return(errors.New("connection refused"))

	got, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestChurchService_ListCorruptCacheEntry(t *testing.T) {
	f := newChurchFixture(t, true)
	ctx := context.Background()

	f.cache.EXPECT().Get(ctx, churchListCacheKey).Return([]byte("{nope"), nil)
	f.cache.EXPECT().Delete(ctx, churchListCacheKey).Return(true, nil)
	f.repo.EXPECT().List(ctx).Return([]*model.Church{}, nil)
	f.cache.EXPECT().Set(ctx, churchListCacheKey, []byte("[]"), time.Minute).Return(nil)

	got, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestChurchService_ListRepoError(t *testing.T) {
	f := newChurchFixture(t, true)
	ctx := context.Background()
	repoErr := apperrors.Internal("db down")

	f.cache.EXPECT().Get(ctx, churchListCacheKey).Return(nil, nil)
	f.repo.EXPECT().List(ctx).Return(nil, repoErr)

	_, err := f.svc.List(ctx)
	assert.ErrorIs(t, err, repoErr)
}

func TestChurchService_WritesInvalidateList(t *testing.T) {
	ctx := context.Background()

	t.Run("create", func(t *testing.T) {
		f := newChurchFixture(t, true)
		req := model.CreateChurchRequest{Name: "Hope"}
		created := &model.Church{ID: "2", Name: "Hope"}

		gomock.InOrder(
			f.repo.EXPECT().Create(ctx, req).Return(created, nil),
			f.cache.EXPECT().Delete(ctx, churchListCacheKey).Return(true, nil),
		)

		got, err := f.svc.Create(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, created, got)
	})

	t.Run("update", func(t *testing.T) {
		f := newChurchFixture(t, true)
		req := model.UpdateChurchRequest{"name": json.RawMessage(`"Hope 2"`)}
		updated := &model.Church{ID: "2", Name: "Hope 2"}

		gomock.InOrder(
			f.repo.EXPECT().Update(ctx, "2", req).Return(updated, nil),
			f.cache.EXPECT().Delete(ctx, churchListCacheKey).Return(false, errors.New("timeout")),
		)

		got, err := f.svc.Update(ctx, "2", req)
		require.NoError(t, err, "invalidation failure must not fail the write")
		assert.Equal(t, updated, got)
	})

	t.Run("failed write keeps cache", func(t *testing.T) {
		f := newChurchFixture(t, true)
		f.repo.EXPECT().Update(ctx, "missing", gomock.Any()).Return(nil, apperrors.NotFound("Church not found"))

		_, err := f.svc.Update(ctx, "missing", model.UpdateChurchRequest{})
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestChurchService_GetByID(t *testing.T) {
	f := newChurchFixture(t, true)
	ctx := context.Background()

	f.repo.EXPECT().GetByID(ctx, "1").Return(&model.Church{ID: "1"}, nil)

	got, err := f.svc.GetByID(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)
}

func TestChurchService_PurgeListCache(t *testing.T) {
	ctx := context.Background()

	t.Run("no cache", func(t *testing.T) {
		f := newChurchFixture(t, false)
		existed, err := f.svc.PurgeListCache(ctx)
		require.NoError(t, err)
		assert.False(t, existed)
	})

	t.Run("propagates errors", func(t *testing.T) {
		f := newChurchFixture(t, true)
		f.cache.EXPECT().Delete(ctx, churchListCacheKey).Return(false, errors.New("conn refused"))

		_, err := f.svc.PurgeListCache(ctx)
		require.ErrorContains(t, err, "conn refused")
	})

	t.Run("deletes entry", func(t *testing.T) {
		f := newChurchFixture(t, true)
		f.cache.EXPECT().Delete(ctx, churchListCacheKey).Return(true, nil)

		existed, err := f.svc.PurgeListCache(ctx)
		require.NoError(t, err)
		assert.True(t, existed)
	})
}
