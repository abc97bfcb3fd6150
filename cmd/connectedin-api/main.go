package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/johnrichard23/connectedin/config"
	"github.com/johnrichard23/connectedin/internal/bootstrap"
	httpx "github.com/johnrichard23/connectedin/internal/http"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	logger := bootstrap.InitLogger()
	err := run(ctx, logger)
	stop()
	if err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	logger = bootstrap.NewLogger(os.Stdout, cfg.LogLevel, cfg.IsDev)
	slog.SetDefault(logger)

	logger.InfoContext(ctx, "starting connectedin api",
		"addr", cfg.HTTP.Addr,
		"db_host", cfg.Postgres.Host,
		"db_port", cfg.Postgres.Port,
		"db_name", cfg.Postgres.Name,
		"cache_enabled", cfg.Cache.Enabled)

	db, redisClient, err := initInfrastructure(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := db.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close database failed", "error", cerr)
		}
	}()
	if redisClient != nil {
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	if cfg.Postgres.RunMigrationsOnStart {
		if err = bootstrap.RunMigrations(ctx, db, logger); err != nil {
			return err
		}
	} else {
		logger.InfoContext(ctx, "skipping database migrations on startup", "reason", "disabled via config")
	}

	recorder, closeMetrics, err := bootstrap.BuildMetrics(cfg.Observability.Metrics, logger)
	if err != nil {
		return err
	}
	defer closeMetrics()

	churches := bootstrap.BuildChurchService(bootstrap.ChurchServiceDeps{
		DB:          db,
		RedisClient: redisClient,
		Cache:       cfg.Cache,
		Logger:      logger,
		Metrics:     recorder,
	})

	return bootstrap.RunHTTPServer(ctx, bootstrap.HTTPServerConfig{
		HTTP:         cfg.HTTP,
		Churches:     churches,
		Logger:       logger,
		Metrics:      recorder,
		HealthChecks: readinessChecks(db, redisClient),
	})
}

// readinessChecks pings Postgres and, when the cache is connected, Redis.
func readinessChecks(db *sql.DB, redisClient redis.UniversalClient) map[string]httpx.HealthCheck {
	checks := map[string]httpx.HealthCheck{"postgres": db.PingContext}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	return checks
}

// initInfrastructure connects Postgres and, when the list cache is enabled, Redis.
// A Redis failure only disables the cache.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func initInfrastructure(
	ctx context.Context,
	cfg *config.AppConfig,
	logger *slog.Logger,
) (*sql.DB, redis.UniversalClient, error) {
	db, err := bootstrap.ConnectDB(bootstrap.DatabaseConfig{
		DBConfig: cfg.Postgres,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect db: %w", err)
	}

	if !cfg.Cache.Enabled {
		return db, nil, nil
	}

	redisClient, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{
		RedisConfig: cfg.Redis,
		Logger:      logger,
	})
	if err != nil {
		logger.WarnContext(ctx, "redis unavailable; serving churches without cache", "error", err)
		return db, nil, nil
	}
	return db, redisClient, nil
}
