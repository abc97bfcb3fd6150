package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the identity provider backing the session core.
type AuthMode string

const (
	// AuthModeOAuth uses an OIDC provider (password grant plus token revocation).
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses the local dev provider (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// OAuthConfig contains OIDC provider configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	Scope        string `env:"SCOPE"          envDefault:"openid email offline_access"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	// RevocationURL overrides the revocation endpoint advertised by discovery.
	RevocationURL string `env:"REVOCATION_URL"`
}

// DevAuthConfig controls the single account served by the dev provider.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID   string `env:"USER_ID"  envDefault:"dev-user"`
	Username string `env:"USERNAME" envDefault:"dev@example.com"`
	// Password is hashed at startup; PasswordHash (bcrypt) wins when both are set.
	Password     string `env:"PASSWORD"      envDefault:"password123"`
	PasswordHash string `env:"PASSWORD_HASH"`
	// Challenge forces a step after the password: new-password, mfa or confirm-sign-up.
	Challenge  string `env:"CHALLENGE"`
	TOTPSecret string `env:"TOTP_SECRET"`
	MFACode    string `env:"MFA_CODE"    envDefault:"123456"`
	// Groups are asserted for the account on every sign-in.
	Groups []string `env:"GROUPS"`

	SigningKey             string        `env:"SIGNING_KEY"`
	SessionDuration        time.Duration `env:"SESSION_DURATION"          envDefault:"8h"`
	SimulatePartialSignOut bool          `env:"SIMULATE_PARTIAL_SIGN_OUT" envDefault:"false"`
}

// AuthConfig groups all identity provider configuration.
type AuthConfig struct {
	// Mode determines which identity provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"mock"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// ChurchGroup is the provider group whose members get the church experience.
	ChurchGroup string `env:"AUTH_CHURCH_GROUP" envDefault:"church-admins"`
}

// Validate reports missing settings for the selected mode.
func (a AuthConfig) Validate() error {
	switch a.Mode {
	case AuthModeOAuth:
		var errs []error
		if strings.TrimSpace(a.OAuth.ClientID) == "" {
			errs = append(errs, errors.New("OAUTH_CLIENT_ID is required"))
		}
		if strings.TrimSpace(a.OAuth.DiscoveryURL) == "" {
			errs = append(errs, errors.New("OAUTH_DISCOVERY_URL is required"))
		}
		return errors.Join(errs...)
	case AuthModeMock:
		if a.DevAuth.Password == "" && a.DevAuth.PasswordHash == "" {
			return errors.New("DEV_AUTH_PASSWORD or DEV_AUTH_PASSWORD_HASH is required")
		}
		return nil
	default:
		return fmt.Errorf("unsupported auth mode %q", a.Mode)
	}
}
