package devauth

// Package devauth provides a simple, config-driven IdentityProvider for local development.

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	domainauth "github.com/johnrichard23/connectedin/internal/domain/auth"
	"github.com/johnrichard23/connectedin/internal/ports"
)

// Challenge selects which sign-in challenge an account is put through.
type Challenge string

const (
	ChallengeNone          Challenge = ""
	ChallengeNewPassword   Challenge = "new-password"
	ChallengeMFA           Challenge = "mfa"
	ChallengeConfirmSignUp Challenge = "confirm-sign-up"
)

const (
	issuer             = "connectedin-devauth"
	minPasswordLength  = 8
	defaultSessionTime = 8 * time.Hour
)

var (
	errNoPendingSignIn = domainauth.NewProviderError("No sign in in progress", "Start a sign in before confirming it")
	errPasswordPolicy  = domainauth.NewProviderError(
		"Password does not conform to policy",
		fmt.Sprintf("Use at least %d characters", minPasswordLength),
	)
)

// Account is a local user known to the dev provider.
type Account struct {
	UserID       string
	Username     string
	PasswordHash string // bcrypt
	Challenge    Challenge
	TOTPSecret   string // base32; when empty Config.StaticMFACode is accepted
	Groups       []string
}

// Config controls the dev auth provider behavior.
type Config struct {
	Accounts []Account

	// SigningKey signs session tokens (HS256). A random key is generated when empty.
	SigningKey      []byte
	SessionDuration time.Duration // default 8h when zero
	StaticMFACode   string

	// SimulatePartialSignOut reports a failed token revocation on every sign-out.
	SimulatePartialSignOut bool

	Logger *slog.Logger
	Now    func() time.Time
}

type sessionClaims struct {
	Username string   `json:"username"`
	Groups   []string `json:"groups,omitempty"`
	jwt.RegisteredClaims
}

type pendingSignIn struct {
	username string
	step     domainauth.SignInStep
}

// Provider implements ports.IdentityProvider without any external service.
// It holds a single session, like a device-local auth client.
type Provider struct {
	mu       sync.Mutex
	accounts map[string]*Account
	token    string
	pending  *pendingSignIn

	key             []byte
	sessionDuration time.Duration
	staticMFACode   string
	partialSignOut  bool
	logger          *slog.Logger
	now             func() time.Time
}

var _ ports.IdentityProvider = (*Provider)(nil)

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if len(cfg.Accounts) == 0 {
		return nil, errors.New("dev auth: at least one account is required")
	}

	accounts := make(map[string]*Account, len(cfg.Accounts))
	for i := range cfg.Accounts {
		acct := cfg.Accounts[i]
		if err := validateAccount(acct); err != nil {
			return nil, err
		}
		accounts[normalize(acct.Username)] = &acct
	}

	key := cfg.SigningKey
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("dev auth: generate signing key: %w", err)
		}
	}

	dur := cfg.SessionDuration
	if dur == 0 {
		dur = defaultSessionTime
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Provider{
		accounts:        accounts,
		key:             key,
		sessionDuration: dur,
		staticMFACode:   cfg.StaticMFACode,
		partialSignOut:  cfg.SimulatePartialSignOut,
		logger:          logger.With("component", "devauth"),
		now:             now,
	}, nil
}

func validateAccount(acct Account) error {
	if acct.UserID == "" {
		return errors.New("dev auth: UserID is required")
	}
	if acct.Username == "" {
		return errors.New("dev auth: Username is required")
	}
	if _, err := bcrypt.Cost([]byte(acct.PasswordHash)); err != nil {
		return fmt.Errorf("dev auth: invalid password hash for %s: %w", acct.Username, err)
	}
	switch acct.Challenge {
	case ChallengeNone, ChallengeNewPassword, ChallengeMFA, ChallengeConfirmSignUp:
	default:
		return fmt.Errorf("dev auth: unknown challenge %q", acct.Challenge)
	}
	return nil
}

// HashPassword returns a bcrypt hash suitable for Account.PasswordHash.
func HashPassword(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (p *Provider) SignIn(ctx context.Context, username, password string) (domainauth.SignInResult, error) {
	if err := ctx.Err(); err != nil {
		return domainauth.SignInResult{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[normalize(username)]
	if !ok {
		return domainauth.SignInResult{}, domainauth.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(password)); err != nil {
		return domainauth.SignInResult{}, domainauth.ErrInvalidCredentials
	}

	p.pending = nil
	switch acct.Challenge {
	case ChallengeConfirmSignUp:
		return domainauth.SignInResult{NextStep: domainauth.StepConfirmSignUp}, nil
	case ChallengeNewPassword:
		p.pending = &pendingSignIn{username: acct.Username, step: domainauth.StepConfirmSignInWithNewPassword}
		return domainauth.SignInResult{NextStep: domainauth.StepConfirmSignInWithNewPassword}, nil
	case ChallengeMFA:
		p.pending = &pendingSignIn{username: acct.Username, step: domainauth.StepConfirmSignInWithSMSMFACode}
		return domainauth.SignInResult{NextStep: domainauth.StepConfirmSignInWithSMSMFACode}, nil
	}

	if err := p.issueLocked(acct); err != nil {
		return domainauth.SignInResult{}, err
	}
	return domainauth.SignInResult{NextStep: domainauth.StepDone, IsSignedIn: true}, nil
}

func (p *Provider) ConfirmSignIn(ctx context.Context, challengeResponse string) (domainauth.SignInResult, error) {
	if err := ctx.Err(); err != nil {
		return domainauth.SignInResult{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending == nil {
		return domainauth.SignInResult{}, errNoPendingSignIn
	}
	acct, ok := p.accounts[normalize(p.pending.username)]
	if !ok {
		p.pending = nil
		return domainauth.SignInResult{}, domainauth.ErrUserNotFound
	}

	switch p.pending.step {
	case domainauth.StepConfirmSignInWithNewPassword:
		if len(challengeResponse) < minPasswordLength {
			return domainauth.SignInResult{}, errPasswordPolicy
		}
		hash, err := HashPassword(challengeResponse)
		if err != nil {
			return domainauth.SignInResult{}, fmt.Errorf("dev auth: %w", err)
		}
		acct.PasswordHash = hash
		acct.Challenge = ChallengeNone
	case domainauth.StepConfirmSignInWithSMSMFACode:
		if !p.validMFACode(acct, challengeResponse) {
			return domainauth.SignInResult{}, domainauth.ErrCodeMismatch
		}
	default:
		return domainauth.SignInResult{}, fmt.Errorf("dev auth: unsupported challenge %s", p.pending.step)
	}

	p.pending = nil
	if err := p.issueLocked(acct); err != nil {
		return domainauth.SignInResult{}, err
	}
	return domainauth.SignInResult{NextStep: domainauth.StepDone, IsSignedIn: true}, nil
}

func (p *Provider) validMFACode(acct *Account, code string) bool {
	code = strings.TrimSpace(code)
	if acct.TOTPSecret == "" {
		return p.staticMFACode != "" && code == p.staticMFACode
	}
	ok, err := totp.ValidateCustom(code, acct.TOTPSecret, p.now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		p.logger.Warn("totp validation failed", "username", acct.Username, "error", err)
		return false
	}
	return ok
}

func (p *Provider) FetchSession(ctx context.Context) (domainauth.Session, error) {
	if err := ctx.Err(); err != nil {
		return domainauth.Session{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token == "" {
		return domainauth.Session{}, nil
	}
	if _, err := p.parseLocked(); err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			p.logger.InfoContext(ctx, "dev session expired")
			p.token = ""
			return domainauth.Session{}, nil
		}
		return domainauth.Session{}, fmt.Errorf("dev auth: %w", err)
	}
	return domainauth.Session{IsSignedIn: true}, nil
}

func (p *Provider) GetCurrentUser(ctx context.Context) (domainauth.Identity, error) {
	if err := ctx.Err(); err != nil {
		return domainauth.Identity{}, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token == "" {
		return domainauth.Identity{}, domainauth.ErrSignedOut
	}
	claims, err := p.parseLocked()
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domainauth.Identity{}, domainauth.ErrSessionExpired
		}
		return domainauth.Identity{}, fmt.Errorf("dev auth: %w", err)
	}
	return domainauth.Identity{UserID: claims.Subject, Username: claims.Username, Groups: claims.Groups}, nil
}

// ResetPassword acknowledges a reset request for a known account. The dev
// provider delivers nothing; the reset completes through ConfirmSignIn with
// the new password.
func (p *Provider) ResetPassword(ctx context.Context, username string) (domainauth.ResetResult, error) {
	if err := ctx.Err(); err != nil {
		return domainauth.ResetResult{}, err
	}

	p.mu.Lock()
	acct, ok := p.accounts[normalize(username)]
	p.mu.Unlock()
	if !ok {
		return domainauth.ResetResult{}, domainauth.ErrUserNotFound
	}

	destination := maskEmail(acct.Username)
	p.logger.InfoContext(ctx, "password reset requested", "destination", destination)

	return domainauth.ResetResult{
		NextStep:    domainauth.ResetStepConfirmWithCode,
		Destination: destination,
	}, nil
}

// SignOut drops the local session. There is nothing remote to revoke.
func (p *Provider) SignOut(ctx context.Context) domainauth.SignOutResult {
	p.mu.Lock()
	p.token = ""
	p.pending = nil
	p.mu.Unlock()

	if p.partialSignOut {
		p.logger.InfoContext(ctx, "simulating partial sign out")
		return domainauth.PartialSignOut(errors.New("dev auth: token revocation disabled"), nil, nil)
	}
	return domainauth.CompleteSignOut()
}

func (p *Provider) issueLocked(acct *Account) error {
	now := p.now()
	claims := sessionClaims{
		Username: acct.Username,
		Groups:   acct.Groups,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   acct.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.sessionDuration)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.key)
	if err != nil {
		return fmt.Errorf("dev auth: sign session token: %w", err)
	}
	p.token = signed
	return nil
}

func (p *Provider) parseLocked() (*sessionClaims, error) {
	claims := &sessionClaims{}
	_, err := jwt.ParseWithClaims(p.token, claims, func(*jwt.Token) (any, error) {
		return p.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// maskEmail keeps the first character of the local part: j***@example.com.
func maskEmail(s string) string {
	at := strings.IndexByte(s, '@')
	if at <= 0 {
		return "***"
	}
	return s[:1] + "***" + s[at:]
}

func normalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
