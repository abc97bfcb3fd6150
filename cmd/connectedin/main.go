package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/johnrichard23/connectedin/config"
	"github.com/johnrichard23/connectedin/internal/bootstrap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	logger := bootstrap.InitLogger()
	err := run(ctx)
	stop()
	if err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	// stdout belongs to the prompt.
	logger := bootstrap.NewLogger(os.Stderr, cfg.LogLevel, cfg.IsDev)

	redisClient, err := connectProfileRedis(&cfg, logger)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer func() {
			if cerr := redisClient.Close(); cerr != nil {
				logger.ErrorContext(ctx, "close redis failed", "error", cerr)
			}
		}()
	}

	recorder, closeMetrics, err := bootstrap.BuildMetrics(cfg.Observability.Metrics, logger)
	if err != nil {
		return err
	}
	defer closeMetrics()

	core, err := bootstrap.BuildSessionCore(ctx, bootstrap.SessionCoreDeps{
		Config:      &cfg,
		RedisClient: redisClient,
		Logger:      logger,
		Metrics:     recorder,
	})
	if err != nil {
		return fmt.Errorf("build session: %w", err)
	}
	defer core.Close()

	sh := newShell(shellOptions{Core: core, In: os.Stdin, Out: os.Stdout, Logger: logger})
	return sh.Run(ctx)
}

// connectProfileRedis connects Redis only for the redis profile store.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel/cluster support flexible.
func connectProfileRedis(cfg *config.AppConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	if cfg.Session.Store != config.ProfileStoreRedis {
		return nil, nil
	}
	client, err := bootstrap.ConnectRedis(bootstrap.DatabaseConfig{RedisConfig: cfg.Redis, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("connect redis (set SESSION_STORE=memory to run without it): %w", err)
	}
	return client, nil
}
