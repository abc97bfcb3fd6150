package config

import "time"

const (
	defaultRateLimitRPS   = 10
	defaultRateLimitBurst = 20
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// RateLimitEnabled turns on per-client request limiting.
	RateLimitEnabled bool `env:"HTTP_RATE_LIMIT_ENABLED" envDefault:"false"`
	// RateLimitRPS is the sustained requests per second allowed per client IP.
	RateLimitRPS float64 `env:"HTTP_RATE_LIMIT_RPS" envDefault:"10"`
	// RateLimitBurst is the burst allowed per client IP.
	RateLimitBurst int `env:"HTTP_RATE_LIMIT_BURST" envDefault:"20"`
	// RateLimitIdleTTL evicts limiters for idle clients.
	RateLimitIdleTTL time.Duration `env:"HTTP_RATE_LIMIT_IDLE_TTL" envDefault:"10m"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.RateLimitRPS <= 0 {
		h.RateLimitRPS = defaultRateLimitRPS
	}
	if h.RateLimitBurst < 1 {
		h.RateLimitBurst = defaultRateLimitBurst
	}
	if h.ShutdownTimeout <= 0 {
		h.ShutdownTimeout = 10 * time.Second
	}
}
