package ports

// Package ports defines interfaces (hexagonal ports) for auth and storage behavior.
// Implementations live in internal/adapters and internal/data; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/johnrichard23/connectedin/internal/domain/auth"
	"github.com/johnrichard23/connectedin/internal/domain/session"
)

// IdentityProvider is the external authentication service the coordinator drives.
// Known failures are returned as *domainauth.ProviderError.
type IdentityProvider interface {
	// SignIn starts a sign-in with credentials and reports the next step.
	SignIn(ctx context.Context, username, password string) (domainauth.SignInResult, error)

	// FetchSession reports whether a valid session is currently held.
	FetchSession(ctx context.Context) (domainauth.Session, error)

	// GetCurrentUser returns the identity of the signed in user.
	GetCurrentUser(ctx context.Context) (domainauth.Identity, error)

	// ResetPassword requests a password reset for username.
	ResetPassword(ctx context.Context, username string) (domainauth.ResetResult, error)

	// ConfirmSignIn answers the pending sign-in challenge (new password, MFA code, ...).
	ConfirmSignIn(ctx context.Context, challengeResponse string) (domainauth.SignInResult, error)

	// SignOut clears the local session and revokes what it can remotely.
	// It never returns an error; failures are reported through the result.
	SignOut(ctx context.Context) domainauth.SignOutResult
}

// RoleMapper maps provider group claims to an application role.
type RoleMapper interface {
	Map(groups []string) domainauth.Role
}

// ProfileStore is the local key/value store holding the cached profile and onboarding flag.
type ProfileStore interface {
	Save(ctx context.Context, profile session.UserProfile) error
	// Load returns nil without error when no profile is cached.
	Load(ctx context.Context) (*session.UserProfile, error)
	Clear(ctx context.Context) error
	HasCompletedOnboarding(ctx context.Context) (bool, error)
	SetCompletedOnboarding(ctx context.Context, done bool) error
}
