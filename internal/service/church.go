package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/johnrichard23/connectedin/internal/domain/model"
	"github.com/johnrichard23/connectedin/internal/observability/metrics"
	"github.com/johnrichard23/connectedin/internal/ports"
)

// churchListCacheKey holds the serialized church list.
const churchListCacheKey = "churches:list"

const churchListCacheName = "church_list"

// ChurchCacheOptions configures the optional list cache.
type ChurchCacheOptions struct {
	Repo ports.CacheRepository // nil disables caching
	TTL  time.Duration
}

// ChurchServiceOptions groups dependencies for ChurchService.
type ChurchServiceOptions struct {
	Repo    ports.ChurchRepository // Required
	Cache   ChurchCacheOptions
	Logger  *slog.Logger
	Metrics *metrics.Recorder // optional
}

// ChurchService serves church records and keeps a read-through cache of the list.
// Cache failures are logged and never fail a request.
type ChurchService struct {
	repo    ports.ChurchRepository
	cache   ports.CacheRepository
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Recorder
}

// NewChurchService constructs a new ChurchService.
func NewChurchService(opts ChurchServiceOptions) *ChurchService {
	if opts.Repo == nil {
		panic("ChurchRepository is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ChurchService{
		repo:    opts.Repo,
		cache:   opts.Cache.Repo,
		ttl:     opts.Cache.TTL,
		logger:  logger.With("component", "church_service"),
		metrics: opts.Metrics,
	}
}

// Create stores a new church and invalidates the cached list.
func (s *ChurchService) Create(ctx context.Context, req model.CreateChurchRequest) (*model.Church, error) {
	church, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.invalidateList(ctx)
	return church, nil
}

// GetByID retrieves a church by ID.
func (s *ChurchService) GetByID(ctx context.Context, id string) (*model.Church, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns every church, served from cache when possible.
func (s *ChurchService) List(ctx context.Context) ([]*model.Church, error) {
	if cached, ok := s.cachedList(ctx); ok {
		return cached, nil
	}

	churches, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	s.storeList(ctx, churches)
	return churches, nil
}

// Update merges a partial document into a church and invalidates the cached list.
func (s *ChurchService) Update(ctx context.Context, id string, req model.UpdateChurchRequest) (*model.Church, error) {
	church, err := s.repo.Update(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.invalidateList(ctx)
	return church, nil
}

func (s *ChurchService) cachedList(ctx context.Context) ([]*model.Church, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, churchListCacheKey)
	if err != nil {
		s.logger.WarnContext(ctx, "church list cache read failed", "error", err)
		s.metrics.CacheLookup(churchListCacheName, metrics.CacheError)
		return nil, false
	}
	if data == nil {
		s.metrics.CacheLookup(churchListCacheName, metrics.CacheMiss)
		return nil, false
	}
	var churches []*model.Church
	if err := json.Unmarshal(data, &churches); err != nil {
		s.logger.WarnContext(ctx, "discarding corrupt church list cache entry", "error", err)
		s.metrics.CacheLookup(churchListCacheName, metrics.CacheError)
		s.invalidateList(ctx)
		return nil, false
	}
	s.metrics.CacheLookup(churchListCacheName, metrics.CacheHit)
	return churches, true
}

func (s *ChurchService) storeList(ctx context.Context, churches []*model.Church) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(churches)
	if err != nil {
		s.logger.WarnContext(ctx, "encode church list for cache", "error", err)
		return
	}
	if err := s.cache.Set(ctx, churchListCacheKey, data, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "church list cache write failed", "error", err)
	}
}

func (s *ChurchService) invalidateList(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if _, err := s.cache.Delete(ctx, churchListCacheKey); err != nil {
		s.logger.WarnContext(ctx, "church list cache invalidation failed", "error", err)
	}
}

// PurgeListCache drops the cached list and reports whether an entry existed.
// Unlike write-path invalidation, errors are returned to the caller.
func (s *ChurchService) PurgeListCache(ctx context.Context) (bool, error) {
	if s.cache == nil {
		return false, nil
	}
	return s.cache.Delete(ctx, churchListCacheKey)
}
