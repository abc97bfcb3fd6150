package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	domainauth "github.com/johnrichard23/connectedin/internal/domain/auth"
	"github.com/johnrichard23/connectedin/internal/domain/session"
	"github.com/johnrichard23/connectedin/internal/observability/metrics"
	"github.com/johnrichard23/connectedin/internal/ports"
)

// DefaultProviderTimeout bounds every identity provider call.
const DefaultProviderTimeout = 20 * time.Second

// UI-facing messages.
const (
	MsgSetNewPassword        = "Please set a new password"
	MsgSignInIncomplete      = "Sign in could not be completed. Please try again."
	MsgUnexpectedStep        = "Unexpected authentication step"
	MsgUnexpectedReset       = "Unexpected response from password reset"
	MsgNoSignInAttempt       = "No sign in attempt found"
	MsgPasswordsDoNotMatch   = "Passwords do not match"
	MsgSessionInvalid        = "Session is no longer valid. Please log in again."
	MsgTimeout               = "The request timed out. Please try again."
	MsgUnexpectedError       = "An unexpected error occurred. Please try again."
	MsgOnboardingSaveFailure = "Could not save onboarding progress. Please try again."

	prefixLogin       = "Login failed"
	prefixLoadUser    = "Failed to load user"
	prefixReset       = "Password reset failed"
	prefixNewPassword = "Failed to set new password"
	prefixMFA         = "Verification failed"
)

const flowSignIn = "sign_in"

// flowNames labels failures in metrics by the flow that produced them.
var flowNames = map[string]string{
	prefixLogin:       flowSignIn,
	prefixLoadUser:    "load_user",
	prefixReset:       "reset_password",
	prefixNewPassword: "new_password",
	prefixMFA:         "mfa",
}

// NoticeLevel tags a message surfaced to the UI.
type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeError NoticeLevel = "error"
)

// Notice is the single displayable message held by the coordinator.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// AuthCoordinatorOptions groups dependencies for AuthCoordinator.
type AuthCoordinatorOptions struct {
	Provider ports.IdentityProvider
	Store    *StateStore
	Profiles ports.ProfileStore
	Roles    ports.RoleMapper // optional; every identity is a plain user without it
	Logger   *slog.Logger
	Metrics  *metrics.Recorder // optional
	// Timeout bounds each provider call. Defaults to DefaultProviderTimeout.
	Timeout time.Duration
}

// pendingChallenge records a sign-in that stopped at a challenge step.
type pendingChallenge struct {
	username string
	step     domainauth.SignInStep
}

// AuthCoordinator is the only component that calls the identity provider.
// It translates provider results into state transitions or a displayable notice.
type AuthCoordinator struct {
	provider ports.IdentityProvider
	store    *StateStore
	profiles ports.ProfileStore
	roles    ports.RoleMapper
	logger   *slog.Logger
	metrics  *metrics.Recorder
	timeout  time.Duration

	flights singleflight.Group
	closed  atomic.Bool

	mu            sync.Mutex
	notice        *Notice
	pending       *pendingChallenge
	authenticated bool
}

// NewAuthCoordinator constructs an AuthCoordinator.
func NewAuthCoordinator(opts AuthCoordinatorOptions) *AuthCoordinator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &AuthCoordinator{
		provider: opts.Provider,
		store:    opts.Store,
		profiles: opts.Profiles,
		roles:    opts.Roles,
		logger:   logger.With("component", "auth_coordinator"),
		metrics:  opts.Metrics,
		timeout:  timeout,
	}
}

// SignIn signs in with credentials. Concurrent sign-ins for the same username collapse into one call.
func (c *AuthCoordinator) SignIn(ctx context.Context, username, password string) {
	c.once("sign_in:"+username, func() {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		res, err := c.provider.SignIn(callCtx, username, password)
		cancel()
		if err != nil {
			c.fail(prefixLogin, err)
			return
		}
		c.handleSignInResult(ctx, username, res)
	})
}

// handleSignInResult branches on the provider's next step.
func (c *AuthCoordinator) handleSignInResult(ctx context.Context, username string, res domainauth.SignInResult) {
	c.logger.InfoContext(ctx, "sign in step",
		slog.String("next_step", string(res.NextStep)),
		slog.Bool("signed_in", res.IsSignedIn),
	)

	switch res.NextStep {
	case domainauth.StepConfirmSignUp:
		c.clearPending()
		c.succeed(session.ConfirmCode(username))
	case domainauth.StepConfirmSignInWithSMSMFACode:
		c.setPending(username, res.NextStep)
		c.succeed(session.ConfirmMFACode())
	case domainauth.StepConfirmSignInWithNewPassword:
		c.setPending(username, res.NextStep)
		c.transitionWithNotice(session.ResetPassword(), Notice{Level: NoticeInfo, Message: MsgSetNewPassword})
	case domainauth.StepDone:
		if !res.IsSignedIn {
			c.setError(MsgSignInIncomplete)
			return
		}
		sess, err := c.fetchSession(ctx)
		if err != nil {
			c.fail(prefixLogin, err)
			return
		}
		if !sess.IsSignedIn {
			c.setError(MsgSignInIncomplete)
			return
		}
		c.HandleSuccessfulAuthentication(ctx)
	default:
		c.setError(MsgUnexpectedStep)
	}
}

// HandleSuccessfulAuthentication fetches the identity, persists its profile and
// transitions to Authenticated. Nothing is persisted or transitioned on failure.
func (c *AuthCoordinator) HandleSuccessfulAuthentication(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	id, err := c.provider.GetCurrentUser(callCtx)
	if err != nil {
		c.fail(prefixLoadUser, err)
		return
	}

	role := domainauth.RoleUser
	if c.roles != nil {
		role = c.roles.Map(id.Groups)
	}
	profile := session.ProfileFromIdentity(id, role)
	if err := c.store.SetProfile(callCtx, profile); err != nil {
		c.fail(prefixLoadUser, err)
		return
	}

	c.mu.Lock()
	c.authenticated = true
	c.pending = nil
	c.mu.Unlock()
	c.metrics.AuthOutcome(flowSignIn, nil)
	c.succeed(session.Authenticated(id))
}

// ResetPassword requests a reset code for username.
func (c *AuthCoordinator) ResetPassword(ctx context.Context, username string) {
	c.once("reset_password:"+username, func() {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		res, err := c.provider.ResetPassword(callCtx, username)
		cancel()
		if err != nil {
			c.fail(prefixReset, err)
			return
		}
		if res.NextStep != domainauth.ResetStepConfirmWithCode {
			c.logger.WarnContext(ctx, "unexpected reset step", slog.String("next_step", string(res.NextStep)))
			c.setError(MsgUnexpectedReset)
			return
		}
		c.succeed(session.ResetPassword())
	})
}

// ConfirmPasswordReset answers a pending sign-in challenge with a new password.
func (c *AuthCoordinator) ConfirmPasswordReset(ctx context.Context, newPassword string) {
	c.once("confirm_password_reset", func() {
		pending := c.pendingChallengeCopy()
		if pending == nil {
			c.setError(MsgNoSignInAttempt)
			return
		}
		c.logger.InfoContext(ctx, "answering sign in challenge", slog.String("step", string(pending.step)))

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		res, err := c.provider.ConfirmSignIn(callCtx, newPassword)
		cancel()
		if err != nil {
			c.fail(prefixNewPassword, err)
			return
		}

		if !(res.NextStep == domainauth.StepDone && res.IsSignedIn) {
			c.handleSignInResult(ctx, pending.username, res)
			return
		}

		sess, err := c.fetchSession(ctx)
		if err != nil || !sess.IsSignedIn {
			if err != nil {
				c.logger.WarnContext(ctx, "session fetch after reset failed", slog.Any("error", err))
			}
			c.clearPending()
			c.transitionWithNotice(session.Login(), Notice{Level: NoticeError, Message: MsgSessionInvalid})
			return
		}
		c.HandleSuccessfulAuthentication(ctx)
	})
}

// SetNewPassword checks the confirmation locally before confirming the reset.
func (c *AuthCoordinator) SetNewPassword(ctx context.Context, newPassword, confirmPassword string) {
	if newPassword != confirmPassword {
		c.setError(MsgPasswordsDoNotMatch)
		return
	}
	c.ConfirmPasswordReset(ctx, newPassword)
}

// ConfirmMFACode answers a pending multi-factor challenge.
func (c *AuthCoordinator) ConfirmMFACode(ctx context.Context, code string) {
	c.once("confirm_mfa", func() {
		pending := c.pendingChallengeCopy()
		if pending == nil {
			c.setError(MsgNoSignInAttempt)
			return
		}
		c.logger.InfoContext(ctx, "answering sign in challenge", slog.String("step", string(pending.step)))

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		res, err := c.provider.ConfirmSignIn(callCtx, code)
		cancel()
		if err != nil {
			c.fail(prefixMFA, err)
			return
		}
		c.handleSignInResult(ctx, pending.username, res)
	})
}

// ShowForgotPassword navigates to the forgot password flow.
func (c *AuthCoordinator) ShowForgotPassword() {
	c.transition(session.ForgotPassword())
}

// ShowLogin navigates to the login form.
func (c *AuthCoordinator) ShowLogin() {
	c.transition(session.Login())
}

// SignOut signs out at the provider and always ends at Login.
// Partial and failed provider sign-outs are logged; the local session is cleared regardless.
func (c *AuthCoordinator) SignOut(ctx context.Context) {
	c.once("sign_out", func() {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		res := c.provider.SignOut(callCtx)
		cancel()
		c.logSignOut(ctx, res)

		if c.profiles != nil {
			if err := c.profiles.SetCompletedOnboarding(ctx, false); err != nil {
				c.logger.ErrorContext(ctx, "clear onboarding flag failed", slog.Any("error", err))
			}
		}
		if err := c.store.ClearProfile(ctx); err != nil {
			c.logger.ErrorContext(ctx, "clear cached profile failed", slog.Any("error", err))
		}

		c.mu.Lock()
		c.authenticated = false
		c.pending = nil
		c.mu.Unlock()
		c.succeed(session.Login())
	})
}

func (c *AuthCoordinator) logSignOut(ctx context.Context, res domainauth.SignOutResult) {
	switch res.Outcome {
	case domainauth.SignOutComplete:
		c.logger.InfoContext(ctx, "signed out")
	case domainauth.SignOutPartial:
		c.logger.WarnContext(ctx, "signed out with partial revocation",
			slog.Any("revoke_token_error", res.RevokeTokenErr),
			slog.Any("global_sign_out_error", res.GlobalSignOutErr),
			slog.Any("hosted_ui_error", res.HostedUIErr),
		)
	default:
		c.logger.ErrorContext(ctx, "provider sign out failed", slog.Any("error", res.Err))
	}
}

// Restore picks the initial state on cold start.
// A signed in session with a cached profile resumes as Authenticated; a signed in
// session without one falls back to Login. Otherwise the onboarding flag decides.
func (c *AuthCoordinator) Restore(ctx context.Context) {
	c.once("restore", func() {
		onboarded := false
		if c.profiles != nil {
			done, err := c.profiles.HasCompletedOnboarding(ctx)
			if err != nil {
				c.logger.WarnContext(ctx, "read onboarding flag failed", slog.Any("error", err))
			}
			onboarded = done
		}
		fallback := session.Onboarding()
		if onboarded {
			fallback = session.Login()
		}

		sess, err := c.fetchSession(ctx)
		if err != nil || !sess.IsSignedIn {
			if err != nil {
				c.logger.WarnContext(ctx, "fetch session on start failed", slog.Any("error", err))
			}
			c.transition(fallback)
			return
		}

		profile, err := c.store.LoadProfile(ctx)
		if err != nil || profile == nil {
			if err != nil {
				c.logger.WarnContext(ctx, "load cached profile failed", slog.Any("error", err))
			}
			c.transition(session.Login())
			return
		}

		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		id, err := c.provider.GetCurrentUser(callCtx)
		cancel()
		if err != nil {
			c.logger.WarnContext(ctx, "fetch current user on start failed", slog.Any("error", err))
			c.transition(session.Login())
			return
		}

		c.mu.Lock()
		c.authenticated = true
		c.mu.Unlock()
		c.transition(session.Authenticated(id))
	})
}

// CompleteOnboarding records that onboarding finished and shows the login form.
func (c *AuthCoordinator) CompleteOnboarding(ctx context.Context) {
	if c.profiles != nil {
		if err := c.profiles.SetCompletedOnboarding(ctx, true); err != nil {
			c.logger.ErrorContext(ctx, "save onboarding flag failed", slog.Any("error", err))
			c.setError(MsgOnboardingSaveFailure)
			return
		}
	}
	c.transition(session.Login())
}

// ErrorMessage returns the current displayable message, if any.
// Informational notices share this channel.
func (c *AuthCoordinator) ErrorMessage() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notice == nil {
		return "", false
	}
	return c.notice.Message, true
}

// Notice returns a copy of the current notice, or nil.
func (c *AuthCoordinator) Notice() *Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.notice == nil {
		return nil
	}
	n := *c.notice
	return &n
}

// ClearError dismisses the current notice after the UI displayed it.
func (c *AuthCoordinator) ClearError() {
	c.mu.Lock()
	c.notice = nil
	c.mu.Unlock()
}

// IsAuthenticated reports whether the last completed flow signed the user in.
func (c *AuthCoordinator) IsAuthenticated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authenticated
}

// Close detaches the coordinator from its store. Calls still in flight complete
// at the provider but no longer change state or notices.
func (c *AuthCoordinator) Close() {
	c.closed.Store(true)
}

// once collapses concurrent calls that share key into a single execution.
func (c *AuthCoordinator) once(key string, fn func()) {
	_, _, shared := c.flights.Do(key, func() (any, error) {
		fn()
		return nil, nil
	})
	if shared {
		c.logger.Debug("collapsed duplicate intent", slog.String("intent", key))
	}
}

func (c *AuthCoordinator) fetchSession(ctx context.Context) (domainauth.Session, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.provider.FetchSession(callCtx)
}

// transition applies a pure state change without touching the notice.
func (c *AuthCoordinator) transition(to session.State) {
	if c.closed.Load() {
		c.logger.Debug("dropping transition after close", slog.String("to", to.String()))
		return
	}
	c.store.Transition(to)
}

// succeed clears the notice and transitions.
func (c *AuthCoordinator) succeed(to session.State) {
	if c.closed.Load() {
		c.logger.Debug("dropping transition after close", slog.String("to", to.String()))
		return
	}
	c.mu.Lock()
	c.notice = nil
	c.mu.Unlock()
	c.store.Transition(to)
}

func (c *AuthCoordinator) transitionWithNotice(to session.State, n Notice) {
	if c.closed.Load() {
		c.logger.Debug("dropping transition after close", slog.String("to", to.String()))
		return
	}
	c.mu.Lock()
	c.notice = &n
	c.mu.Unlock()
	c.store.Transition(to)
}

func (c *AuthCoordinator) setError(msg string) {
	if c.closed.Load() {
		return
	}
	c.mu.Lock()
	c.notice = &Notice{Level: NoticeError, Message: msg}
	c.mu.Unlock()
}

// fail surfaces err under prefix. Known provider errors keep their description;
// anything else gets a generic message.
func (c *AuthCoordinator) fail(prefix string, err error) {
	c.metrics.AuthOutcome(flowNames[prefix], err)
	if pe, ok := domainauth.AsProviderError(err); ok {
		c.logger.Warn(prefix,
			slog.String("description", pe.Description),
			slog.String("recovery_suggestion", pe.RecoverySuggestion),
			slog.Any("cause", pe.Cause),
		)
		c.setError(prefix + ": " + pe.Description)
		return
	}

	c.logger.Error(prefix, slog.Any("error", err))
	if errors.Is(err, context.DeadlineExceeded) {
		c.setError(prefix + ": " + MsgTimeout)
		return
	}
	c.setError(prefix + ": " + MsgUnexpectedError)
}

func (c *AuthCoordinator) setPending(username string, step domainauth.SignInStep) {
	c.mu.Lock()
	c.pending = &pendingChallenge{username: username, step: step}
	c.mu.Unlock()
}

func (c *AuthCoordinator) clearPending() {
	c.mu.Lock()
	c.pending = nil
	c.mu.Unlock()
}

func (c *AuthCoordinator) pendingChallengeCopy() *pendingChallenge {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return nil
	}
	p := *c.pending
	return &p
}
