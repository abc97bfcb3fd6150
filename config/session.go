package config

import (
	"fmt"
	"strings"
	"time"
)

// ProfileStoreKind selects where the session core keeps the cached profile.
type ProfileStoreKind string

const (
	// ProfileStoreRedis persists the profile in Redis so it survives restarts.
	ProfileStoreRedis ProfileStoreKind = "redis"
	// ProfileStoreMemory keeps the profile for the lifetime of the process.
	ProfileStoreMemory ProfileStoreKind = "memory"
)

// UnmarshalText implements encoding.TextUnmarshaler for ProfileStoreKind.
func (k *ProfileStoreKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "redis", "memory":
		*k = ProfileStoreKind(v)
		return nil
	default:
		return fmt.Errorf("invalid ProfileStoreKind: %q (valid options: redis, memory)", v)
	}
}

const defaultProviderTimeout = 20 * time.Second

// SessionConfig configures the terminal client's session core.
type SessionConfig struct {
	// ProviderTimeout bounds every identity provider call.
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"20s"`
	// Store selects the profile store backend.
	Store ProfileStoreKind `env:"STORE" envDefault:"redis"`
	// KeyPrefix namespaces the profile keys in Redis.
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"connectedin:"`
	// ProfileKey is a base64 AES-256 key. When set, the Redis profile record is encrypted.
	ProfileKey string `env:"PROFILE_ENCRYPTION_KEY"`
}

// Sanitize applies guardrails to session configuration values.
func (s *SessionConfig) Sanitize() {
	if s.ProviderTimeout <= 0 {
		s.ProviderTimeout = defaultProviderTimeout
	}
	if s.KeyPrefix == "" {
		s.KeyPrefix = "connectedin:"
	}
}
