package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/johnrichard23/connectedin/config"
	"github.com/johnrichard23/connectedin/internal/adapters/authroles"
	"github.com/johnrichard23/connectedin/internal/data"
	"github.com/johnrichard23/connectedin/internal/observability/metrics"
	"github.com/johnrichard23/connectedin/internal/service"
)

// ChurchServiceDeps contains dependencies for the church records service.
type ChurchServiceDeps struct {
	DB          *sql.DB
	RedisClient redis.UniversalClient // optional; nil disables the list cache
	Cache       config.CacheConfig
	Logger      *slog.Logger
	Metrics     *metrics.Recorder // optional
}

// BuildChurchService wires the Postgres repository and the optional Redis list cache.
func BuildChurchService(deps ChurchServiceDeps) *service.ChurchService {
	opts := service.ChurchServiceOptions{
		Repo:    data.NewChurchRepo(deps.DB),
		Logger:  deps.Logger,
		Metrics: deps.Metrics,
	}
	if deps.RedisClient != nil && deps.Cache.Enabled {
		opts.Cache = service.ChurchCacheOptions{
			Repo: data.NewRedisCacheRepo(deps.RedisClient, deps.Cache.KeyPrefix),
			TTL:  deps.Cache.ChurchListTTL,
		}
	}
	return service.NewChurchService(opts)
}

// SessionCore is the state store and coordinator hosted by the terminal client.
type SessionCore struct {
	Store       *service.StateStore
	Coordinator *service.AuthCoordinator
}

// Close stops the coordinator before the store so no transition races a closed store.
func (c *SessionCore) Close() {
	c.Coordinator.Close()
	c.Store.Close()
}

// SessionCoreDeps contains dependencies for the session core.
type SessionCoreDeps struct {
	Config      *config.AppConfig
	RedisClient redis.UniversalClient // required only for the redis profile store
	Logger      *slog.Logger
	Metrics     *metrics.Recorder // optional
}

// BuildSessionCore builds the identity provider, profile store, state store and coordinator.
func BuildSessionCore(ctx context.Context, deps SessionCoreDeps) (*SessionCore, error) {
	if deps.Config == nil {
		return nil, errors.New("session core config is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	provider, err := BuildIdentityProvider(ctx, AuthConfig{Auth: deps.Config.Auth, Logger: logger})
	if err != nil {
		return nil, err
	}

	profiles, err := BuildProfileStore(ProfileStoreConfig{
		Session:     deps.Config.Session,
		RedisClient: deps.RedisClient,
	})
	if err != nil {
		return nil, fmt.Errorf("profile store: %w", err)
	}

	store := service.NewStateStore(service.StateStoreOptions{
		Profiles: profiles,
		Logger:   logger,
		Metrics:  deps.Metrics,
	})
	coord := service.NewAuthCoordinator(service.AuthCoordinatorOptions{
		Provider: provider,
		Store:    store,
		Profiles: profiles,
		Roles:    authroles.StaticRoleMapper{ChurchGroup: deps.Config.Auth.ChurchGroup},
		Logger:   logger,
		Metrics:  deps.Metrics,
		Timeout:  deps.Config.Session.ProviderTimeout,
	})
	return &SessionCore{Store: store, Coordinator: coord}, nil
}
