package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/johnrichard23/connectedin/config"
	httpx "github.com/johnrichard23/connectedin/internal/http"
	"github.com/johnrichard23/connectedin/internal/observability/metrics"
)

// HTTPServerConfig contains configuration for the API server.
type HTTPServerConfig struct {
	HTTP     config.HTTPConfig
	Churches httpx.ChurchService
	Logger   *slog.Logger
	Metrics  *metrics.Recorder // optional
	// HealthChecks are served on /readyz.
	HealthChecks map[string]httpx.HealthCheck
}

// BuildHTTPHandler builds the API router, adding the rate limiter when enabled.
func BuildHTTPHandler(cfg HTTPServerConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	services := httpx.RouterServices{
		Churches:     cfg.Churches,
		Logger:       logger,
		Metrics:      cfg.Metrics,
		HealthChecks: cfg.HealthChecks,
	}
	if cfg.HTTP.RateLimitEnabled {
		logger.Info("HTTP rate limiting enabled", "rps", cfg.HTTP.RateLimitRPS, "burst", cfg.HTTP.RateLimitBurst)
		services.RateLimiter = httpx.NewRateLimiter(httpx.RateLimitConfig{
			RequestsPerSecond: cfg.HTTP.RateLimitRPS,
			Burst:             cfg.HTTP.RateLimitBurst,
			IdleTTL:           cfg.HTTP.RateLimitIdleTTL,
		})
	}
	return httpx.NewRouter(services)
}

func newServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// RunHTTPServer serves until ctx is canceled, then shuts down gracefully.
func RunHTTPServer(ctx context.Context, cfg HTTPServerConfig) error {
	ln, err := net.Listen("tcp", listenAddr(cfg.HTTP.Addr))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return Serve(ctx, ln, cfg)
}

// Serve runs the API server on ln until ctx is canceled or the server fails.
func Serve(ctx context.Context, ln net.Listener, cfg HTTPServerConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	server := newServer(ln.Addr().String(), BuildHTTPHandler(cfg))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.InfoContext(gctx, "starting HTTP server", "addr", ln.Addr().String())
		if serveErr := server.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", serveErr)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down HTTP server")

		timeout := cfg.HTTP.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
			return fmt.Errorf("shutdown http server: %w", shutdownErr)
		}
		logger.Info("HTTP server stopped")
		return nil
	})
	return g.Wait()
}

// listenAddr guards against an empty addr to avoid listening on Go's default.
func listenAddr(addr string) string {
	if addr == "" {
		return ":8080"
	}
	return addr
}
