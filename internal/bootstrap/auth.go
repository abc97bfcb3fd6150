package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/johnrichard23/connectedin/config"
	"github.com/johnrichard23/connectedin/internal/adapters/devauth"
	"github.com/johnrichard23/connectedin/internal/adapters/memory"
	"github.com/johnrichard23/connectedin/internal/adapters/oidc"
	redisadapter "github.com/johnrichard23/connectedin/internal/adapters/redis"
	"github.com/johnrichard23/connectedin/internal/data/cryptoutil"
	"github.com/johnrichard23/connectedin/internal/ports"
)

// AuthConfig contains configuration for the identity provider.
type AuthConfig struct {
	Auth   config.AuthConfig
	Logger *slog.Logger
}

// BuildIdentityProvider creates the identity provider for the configured auth mode.
//
//nolint:ireturn // callers only depend on the port.
func BuildIdentityProvider(ctx context.Context, cfg AuthConfig) (ports.IdentityProvider, error) {
	if err := cfg.Auth.Validate(); err != nil {
		return nil, fmt.Errorf("auth config: %w", err)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		logger.WarnContext(ctx, "using dev identity provider; do not use in production",
			"username", cfg.Auth.DevAuth.Username)
		return buildDevAuthProvider(cfg.Auth.DevAuth, logger)
	case config.AuthModeOAuth:
		return buildOIDCProvider(ctx, cfg.Auth.OAuth, logger)
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
}

func buildDevAuthProvider(cfg config.DevAuthConfig, logger *slog.Logger) (*devauth.Provider, error) {
	hash := cfg.PasswordHash
	if hash == "" {
		var err error
		if hash, err = devauth.HashPassword(cfg.Password); err != nil {
			return nil, fmt.Errorf("hash dev password: %w", err)
		}
	}

	prov, err := devauth.NewProvider(devauth.Config{
		Accounts: []devauth.Account{{
			UserID:       cfg.UserID,
			Username:     cfg.Username,
			PasswordHash: hash,
			Challenge:    devauth.Challenge(cfg.Challenge),
			TOTPSecret:   cfg.TOTPSecret,
			Groups:       cfg.Groups,
		}},
		SigningKey:             []byte(cfg.SigningKey),
		SessionDuration:        cfg.SessionDuration,
		StaticMFACode:          cfg.MFACode,
		SimulatePartialSignOut: cfg.SimulatePartialSignOut,
		Logger:                 logger,
	})
	if err != nil {
		return nil, fmt.Errorf("dev auth provider: %w", err)
	}
	return prov, nil
}

func buildOIDCProvider(ctx context.Context, cfg config.OAuthConfig, logger *slog.Logger) (*oidc.Provider, error) {
	prov, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
		ClientID:      cfg.ClientID,
		ClientSecret:  cfg.ClientSecret,
		Scope:         cfg.Scope,
		DiscoveryURL:  cfg.DiscoveryURL,
		RevocationURL: cfg.RevocationURL,
		Logger:        logger,
	})
	if err != nil {
		return nil, fmt.Errorf("oidc provider: %w", err)
	}
	return prov, nil
}

// ProfileStoreConfig selects and configures the profile store.
type ProfileStoreConfig struct {
	Session     config.SessionConfig
	RedisClient redis.UniversalClient
}

// BuildProfileStore returns the Redis or in-memory profile store.
//
//nolint:ireturn // callers only depend on the port.
func BuildProfileStore(cfg ProfileStoreConfig) (ports.ProfileStore, error) {
	switch cfg.Session.Store {
	case config.ProfileStoreMemory:
		return memory.NewProfileStore(), nil
	case config.ProfileStoreRedis, "":
		if cfg.RedisClient == nil {
			return nil, errors.New("redis profile store requires a redis client")
		}
		opts := redisadapter.ProfileStoreOptions{Prefix: cfg.Session.KeyPrefix}
		if cfg.Session.ProfileKey != "" {
			key, err := cryptoutil.ParseKey(cfg.Session.ProfileKey)
			if err != nil {
				return nil, fmt.Errorf("SESSION_PROFILE_ENCRYPTION_KEY: %w", err)
			}
			if opts.Sealer, err = cryptoutil.NewAESGCM(key); err != nil {
				return nil, err
			}
		}
		return redisadapter.NewProfileStoreWithOptions(cfg.RedisClient, opts), nil
	default:
		return nil, fmt.Errorf("unsupported profile store %q", cfg.Session.Store)
	}
}
